package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"nyan-bot/internal/pkg/logger"
	"nyan-bot/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const natsPublishTimeout = 3 * time.Second

// BotEventPublisher fans bot events out to the in-process bus and, when
// configured, to the external NATS stream.
type BotEventPublisher struct {
	pubSub    *gochannel.GoChannel
	topicName string
	external  events.Publisher
	logger    logger.ILogger
}

// NewBotEventPublisher accepts a nil external publisher.
func NewBotEventPublisher(pubSub *gochannel.GoChannel, topicName string, external events.Publisher, log logger.ILogger) *BotEventPublisher {
	return &BotEventPublisher{
		pubSub:    pubSub,
		topicName: topicName,
		external:  external,
		logger:    log,
	}
}

func (p *BotEventPublisher) Publish(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(events.BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	var errs []error
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := p.pubSub.Publish(p.topicName, msg); err != nil {
		errs = append(errs, fmt.Errorf("publish to %s: %w", p.topicName, err))
	}

	if p.external != nil {
		natsCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), natsPublishTimeout)
		defer cancel()
		if err := p.external.Publish(natsCtx, event); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		p.logger.Warn(logger.ModuleEvents, "Event publish incomplete", map[string]interface{}{
			"type":  event.EventType(),
			"error": errors.Join(errs...).Error(),
		})
	}
	return errors.Join(errs...)
}
