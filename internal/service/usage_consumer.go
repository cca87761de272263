package service

import (
	"context"
	"encoding/json"

	"nyan-bot/internal/entity"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/repository/contract"
	"nyan-bot/pkg/events"
	"nyan-bot/pkg/sequencer"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IUsageConsumer interface {
	Consume(ctx context.Context) error
}

type usageConsumer struct {
	pubSub    *gochannel.GoChannel
	topicName string
	usageRepo contract.UsageRepository
	logger    logger.ILogger
}

func NewUsageConsumer(pubSub *gochannel.GoChannel, topicName string, usageRepo contract.UsageRepository, log logger.ILogger) IUsageConsumer {
	return &usageConsumer{
		pubSub:    pubSub,
		topicName: topicName,
		usageRepo: usageRepo,
		logger:    log,
	}
}

// Consume subscribes and returns; messages are handled until ctx ends.
func (uc *usageConsumer) Consume(ctx context.Context) error {
	messages, err := uc.pubSub.Subscribe(ctx, uc.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			uc.processMessage(ctx, msg)
		}
	}()

	return nil
}

var outcomeByEvent = map[string]entity.Outcome{
	sequencer.EventRequestCompleted: entity.OutcomeCompleted,
	sequencer.EventRequestFailed:    entity.OutcomeFailed,
	sequencer.EventRequestQueued:    entity.OutcomeQueued,
	sequencer.EventRequestRejected:  entity.OutcomeRejected,
}

func (uc *usageConsumer) processMessage(ctx context.Context, msg *message.Message) {
	// Counters are best effort, so every message is acked.
	defer msg.Ack()

	var evt events.BaseEvent
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		uc.logger.Error(logger.ModuleUsage, "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		return
	}

	outcome, ok := outcomeByEvent[evt.Type]
	if !ok {
		return
	}

	requester, _ := evt.Data["requester"].(string)
	if requester == "" {
		uc.logger.Warn(logger.ModuleUsage, "Event has no requester", map[string]interface{}{"type": evt.Type})
		return
	}

	if err := uc.usageRepo.Increment(ctx, requester, outcome); err != nil {
		uc.logger.Error(logger.ModuleUsage, "Failed to record usage", map[string]interface{}{
			"requester": requester,
			"outcome":   string(outcome),
			"error":     err.Error(),
		})
	}
}
