package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"nyan-bot/internal/pkg/logger"
	pktNats "nyan-bot/pkg/nats"
)

const styleControlDurable = "nyan-bot-style-mode"

// ControlSubscriber is satisfied by *pktNats.Subscriber.
type ControlSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.MessageHandler) error
}

type StyleModeCommand struct {
	Status    string `json:"status"`
	Requester string `json:"requester"`
}

// StyleModeListener lets operators flip the style mode by publishing
// {"status":"on"} to the control subject.
type StyleModeListener struct {
	subscriber ControlSubscriber
	bot        IBotService
	logger     logger.ILogger
}

func NewStyleModeListener(sub ControlSubscriber, bot IBotService, log logger.ILogger) *StyleModeListener {
	return &StyleModeListener{subscriber: sub, bot: bot, logger: log}
}

func (l *StyleModeListener) Start(ctx context.Context) error {
	if err := l.subscriber.Subscribe(ctx, pktNats.ControlStyleMode, styleControlDurable, l.handle); err != nil {
		return fmt.Errorf("subscribe to %s: %w", pktNats.ControlStyleMode, err)
	}
	l.logger.Info(logger.ModuleEvents, "Listening for style mode commands", map[string]interface{}{"subject": pktNats.ControlStyleMode})
	return nil
}

func (l *StyleModeListener) handle(ctx context.Context, subject string, data []byte) error {
	var cmd StyleModeCommand
	if err := json.Unmarshal(data, &cmd); err != nil {
		// malformed commands are dropped, redelivery would not fix them
		l.logger.Warn(logger.ModuleEvents, "Invalid style mode command", map[string]interface{}{"subject": subject, "error": err.Error()})
		return nil
	}
	if cmd.Requester == "" {
		cmd.Requester = "nats"
	}

	confirmation, err := l.bot.SetStyleMode(ctx, cmd.Requester, cmd.Status)
	if errors.Is(err, ErrInvalidStyleMode) {
		l.logger.Warn(logger.ModuleEvents, "Invalid style mode command", map[string]interface{}{"subject": subject, "status": cmd.Status})
		return nil
	}
	if err != nil {
		return err
	}

	l.logger.Info(logger.ModuleEvents, "Style mode changed from control subject", map[string]interface{}{
		"requester": cmd.Requester,
		"message":   confirmation,
	})
	return nil
}
