// Package discord connects the bot to the Discord gateway and turns slash
// commands into bot service calls.
package discord

import (
	"context"
	"fmt"

	"nyan-bot/internal/config"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/service"

	"github.com/bwmarrin/discordgo"
)

const intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent

type Gateway struct {
	session    *discordgo.Session
	cfg        config.DiscordConfig
	dispatcher *Dispatcher
	logger     logger.ILogger
	baseCtx    context.Context

	fatal chan error
}

func NewGateway(ctx context.Context, cfg config.DiscordConfig, gate *service.AdmissionGate, bot service.IBotService, log logger.ILogger) (*Gateway, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = intents

	g := &Gateway{
		session:    session,
		cfg:        cfg,
		dispatcher: NewDispatcher(session, gate, bot, cfg.AskCommand, cfg.ModeCommand, log),
		logger:     log,
		baseCtx:    ctx,
		fatal:      make(chan error, 1),
	}
	session.AddHandlerOnce(g.onReady)
	session.AddHandler(g.onInteractionCreate)
	return g, nil
}

func (g *Gateway) Open() error {
	if err := g.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

// Fatal reports errors after which the process should exit.
func (g *Gateway) Fatal() <-chan error {
	return g.fatal
}

func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	g.logger.Info(logger.ModuleDiscord, "Logged in", map[string]interface{}{
		"user": r.User.String(),
	})

	if err := checkAllowedGuild(r, g.cfg.AllowedServerID); err != nil {
		g.logger.Error(logger.ModuleDiscord, "Allowed guild not found, shutting down", map[string]interface{}{
			"guild_id": g.cfg.AllowedServerID,
		})
		select {
		case g.fatal <- err:
		default:
		}
		return
	}
	g.logger.Info(logger.ModuleDiscord, "Serving allowed guild", map[string]interface{}{"guild_id": g.cfg.AllowedServerID})

	cmds := Commands(g.cfg.AskCommand, g.cfg.ModeCommand)
	if _, err := s.ApplicationCommandBulkOverwrite(r.User.ID, g.cfg.AllowedServerID, cmds); err != nil {
		// the bot keeps running with whatever commands were registered before
		g.logger.Error(logger.ModuleDiscord, "Failed to register slash commands", map[string]interface{}{"error": err.Error()})
		return
	}
	g.logger.Info(logger.ModuleDiscord, "Slash commands registered", map[string]interface{}{
		"commands": []string{g.cfg.AskCommand, g.cfg.ModeCommand},
	})
}

func (g *Gateway) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	g.dispatcher.HandleInteraction(g.baseCtx, i.Interaction)
}

func checkAllowedGuild(r *discordgo.Ready, guildID string) error {
	for _, guild := range r.Guilds {
		if guild.ID == guildID {
			return nil
		}
	}
	return fmt.Errorf("allowed guild %s is not among the %d guilds of this bot", guildID, len(r.Guilds))
}
