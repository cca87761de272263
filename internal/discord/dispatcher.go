package discord

import (
	"context"
	"errors"

	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/service"
	"nyan-bot/pkg/sequencer"

	"github.com/bwmarrin/discordgo"
)

// Dispatcher routes slash command interactions to the bot service.
type Dispatcher struct {
	api      interactionAPI
	gate     *service.AdmissionGate
	bot      service.IBotService
	askName  string
	modeName string
	logger   logger.ILogger
}

func NewDispatcher(api interactionAPI, gate *service.AdmissionGate, bot service.IBotService, askName, modeName string, log logger.ILogger) *Dispatcher {
	return &Dispatcher{
		api:      api,
		gate:     gate,
		bot:      bot,
		askName:  askName,
		modeName: modeName,
		logger:   log,
	}
}

// HandleInteraction ignores everything that is not an application command
// from an allowed user in the allowed guild.
func (d *Dispatcher) HandleInteraction(ctx context.Context, i *discordgo.Interaction) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	userID := interactionUserID(i)
	if !d.gate.Allow(i.GuildID, userID) {
		d.logger.Debug(logger.ModuleDiscord, "Interaction ignored", map[string]interface{}{
			"guild_id": i.GuildID,
			"user_id":  userID,
		})
		return
	}

	data := i.ApplicationCommandData()
	switch data.Name {
	case d.askName:
		d.handleAsk(ctx, i, data, userID)
	case d.modeName:
		d.handleMode(ctx, i, data, userID)
	}
}

func (d *Dispatcher) handleAsk(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData, userID string) {
	query, _ := stringOption(data, optionQuery)
	target := NewInteractionTarget(d.api, i)

	admission, err := d.bot.Ask(ctx, userID, target, query)
	switch {
	case err == nil:
		d.logger.Info(logger.ModuleDiscord, "Ask command accepted", map[string]interface{}{
			"user_id":   userID,
			"admission": admission.String(),
		})
	case errors.Is(err, sequencer.ErrQueueFull):
		// the sequencer already told the user
	default:
		d.logger.Warn(logger.ModuleDiscord, "Ask command refused", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		if replyErr := target.Reply(ctx, err.Error()); replyErr != nil {
			d.logger.Warn(logger.ModuleDiscord, "Failed to reply", map[string]interface{}{"error": replyErr.Error()})
		}
	}
}

func (d *Dispatcher) handleMode(ctx context.Context, i *discordgo.Interaction, data discordgo.ApplicationCommandInteractionData, userID string) {
	status, _ := stringOption(data, optionStatus)
	target := NewInteractionTarget(d.api, i)

	text, err := d.bot.SetStyleMode(ctx, userID, status)
	if err != nil {
		text = err.Error()
	}
	if err := target.Reply(ctx, text); err != nil {
		d.logger.Warn(logger.ModuleDiscord, "Failed to confirm style mode", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
	}
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
