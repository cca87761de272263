package service

import (
	"context"
	"testing"
	"time"

	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/repository/memory"
	"nyan-bot/pkg/events"
	"nyan-bot/pkg/sequencer"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(ctx context.Context, event events.Event) error {
	p.calls++
	return assert.AnError
}

func TestUsageConsumerCountsPublishedEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	repo := memory.NewUsageRepository()
	consumer := NewUsageConsumer(pubSub, "bot.events", repo, logger.NewNopLogger())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewBotEventPublisher(pubSub, "bot.events", nil, logger.NewNopLogger())
	for _, eventType := range []string{
		sequencer.EventRequestAdmitted,
		sequencer.EventRequestCompleted,
		sequencer.EventRequestQueued,
		sequencer.EventRequestCompleted,
		sequencer.EventRequestFailed,
		sequencer.EventStyleModeChanged,
	} {
		require.NoError(t, publisher.Publish(ctx, events.New(eventType, map[string]interface{}{"requester": "111"})))
	}

	// a malformed payload must not block later messages
	require.NoError(t, pubSub.Publish("bot.events", message.NewMessage(watermill.NewUUID(), []byte("{"))))
	require.NoError(t, publisher.Publish(ctx, events.New(sequencer.EventRequestRejected, map[string]interface{}{"requester": "222"})))

	// gochannel does not guarantee delivery order, only delivery
	assert.Eventually(t, func() bool {
		rejected, _ := repo.Get(ctx, "222")
		u, _ := repo.Get(ctx, "111")
		return rejected != nil && rejected.Rejected == 1 &&
			u != nil && u.Completed == 2 && u.Queued == 1 && u.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestBotEventPublisherReportsExternalFailure(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	external := &failingPublisher{}
	publisher := NewBotEventPublisher(pubSub, "bot.events", external, logger.NewNopLogger())

	err := publisher.Publish(context.Background(), events.New(sequencer.EventRequestAdmitted, nil))
	assert.Error(t, err)
	assert.Equal(t, 1, external.calls)
}
