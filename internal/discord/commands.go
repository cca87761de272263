package discord

import "github.com/bwmarrin/discordgo"

const (
	optionQuery  = "query"
	optionStatus = "status"
)

// Commands builds the guild slash commands for the ask and mode command names.
func Commands(askName, modeName string) []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:        askName,
			Description: "Claude AI에게 질문하기",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:              discordgo.ApplicationCommandOptionString,
					Name:              optionQuery,
					NameLocalizations: map[discordgo.Locale]string{discordgo.Korean: "할_말"},
					Description:       "Claude AI에게 물어볼 질문",
					Required:          true,
				},
			},
		},
		{
			Name:        modeName,
			Description: "냥 모드 설정",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionStatus,
					Description: "냥 모드를 켜거나 끕니다",
					Required:    true,
					Choices: []*discordgo.ApplicationCommandOptionChoice{
						{Name: "켜기", Value: "on"},
						{Name: "끄기", Value: "off"},
					},
				},
			},
		},
	}
}

func stringOption(data discordgo.ApplicationCommandInteractionData, name string) (string, bool) {
	for _, opt := range data.Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue(), true
		}
	}
	return "", false
}
