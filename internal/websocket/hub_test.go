package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"nyan-bot/internal/dto"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/pkg/sequencer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAsker struct {
	requester string
	query     string
	target    sequencer.ReplyTarget
	err       error
}

func (a *fakeAsker) Ask(ctx context.Context, requester string, target sequencer.ReplyTarget, query string) (sequencer.Admission, error) {
	a.requester, a.query, a.target = requester, query, target
	return sequencer.AdmissionServing, a.err
}

func readFrame(t *testing.T, c *Client) dto.ChatFrame {
	t.Helper()
	select {
	case data := <-c.Send:
		var frame dto.ChatFrame
		require.NoError(t, json.Unmarshal(data, &frame))
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame")
		return dto.ChatFrame{}
	}
}

func TestHubTracksConnections(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(logger.NewNopLogger())
	go hub.Run(ctx)

	a := newClient(hub, nil, "111")
	b := newClient(hub, nil, "222")
	require.True(t, hub.Register(a))
	require.True(t, hub.Register(b))
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, time.Second, 5*time.Millisecond)

	hub.Unregister(a)
	assert.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, NewChatTarget(a).Deliver(ctx, "late"), ErrClientGone)

	cancel()
	<-hub.done
	assert.Equal(t, 0, hub.ConnectionCount())
	assert.False(t, hub.Register(newClient(hub, nil, "333")))
	assert.ErrorIs(t, NewChatTarget(b).Deliver(context.Background(), "late"), ErrClientGone)
}

func TestChatTargetFrames(t *testing.T) {
	c := newClient(NewHub(logger.NewNopLogger()), nil, "111")
	target := NewChatTarget(c)
	ctx := context.Background()

	require.NoError(t, target.NotifyBusy(ctx, "wait"))
	require.NoError(t, target.Acknowledge(ctx))
	require.NoError(t, target.Deliver(ctx, "answer 냥!"))

	busy := readFrame(t, c)
	assert.Equal(t, dto.FrameBusy, busy.Type)
	assert.Equal(t, "wait", busy.Text)
	assert.Equal(t, target.RequestID(), busy.RequestID)

	assert.Equal(t, dto.FrameProcessing, readFrame(t, c).Type)

	answer := readFrame(t, c)
	assert.Equal(t, dto.FrameAnswer, answer.Type)
	assert.Equal(t, "answer 냥!", answer.Text)
}

func TestSendBufferFull(t *testing.T) {
	c := newClient(NewHub(logger.NewNopLogger()), nil, "111")
	target := NewChatTarget(c)

	for i := 0; i < sendBufferSize; i++ {
		require.NoError(t, target.Acknowledge(context.Background()))
	}
	assert.ErrorIs(t, target.Acknowledge(context.Background()), ErrSendBufferFull)
}

func TestHandleFrame(t *testing.T) {
	c := newClient(NewHub(logger.NewNopLogger()), nil, "111")
	asker := &fakeAsker{}

	c.handleFrame(context.Background(), asker, []byte(`{"type":"ask","query":"hello"}`))
	assert.Equal(t, "111", asker.requester)
	assert.Equal(t, "hello", asker.query)
	assert.IsType(t, &ChatTarget{}, asker.target)

	c.handleFrame(context.Background(), asker, []byte(`garbage`))
	assert.Equal(t, dto.FrameError, readFrame(t, c).Type)

	asker.err = sequencer.ErrQueueFull
	c.handleFrame(context.Background(), asker, []byte(`{"type":"ask","query":"again"}`))
	frame := readFrame(t, c)
	assert.Equal(t, dto.FrameError, frame.Type)
	assert.Equal(t, sequencer.ErrQueueFull.Error(), frame.Text)
}
