package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nyan-bot/internal/entity"
	"nyan-bot/internal/pkg/logger"
	"nyan-bot/internal/repository/memory"
	"nyan-bot/pkg/sequencer"
	"nyan-bot/pkg/stylize"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCompleter struct {
	answer string
	err    error
}

func (c stubCompleter) Complete(ctx context.Context, query string) (string, error) {
	return c.answer, c.err
}

type captureTarget struct {
	mu        sync.Mutex
	delivered chan string
	busy      []string
}

func newCaptureTarget() *captureTarget {
	return &captureTarget{delivered: make(chan string, 1)}
}

func (t *captureTarget) Acknowledge(ctx context.Context) error { return nil }

func (t *captureTarget) Deliver(ctx context.Context, text string) error {
	t.delivered <- text
	return nil
}

func (t *captureTarget) NotifyBusy(ctx context.Context, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.busy = append(t.busy, text)
	return nil
}

func waitDelivery(t *testing.T, target *captureTarget) string {
	t.Helper()
	select {
	case text := <-target.delivered:
		return text
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery")
		return ""
	}
}

func newTestBotService(completer sequencer.Completer) (IBotService, *sequencer.Sequencer) {
	seq := sequencer.New(completer, sequencer.WithTransform(stylize.Transform))
	return NewBotService(seq, memory.NewUsageRepository(), "stub", logger.NewNopLogger()), seq
}

func TestBotServiceAskDeliversStyledAnswer(t *testing.T) {
	svc, _ := newTestBotService(stubCompleter{answer: "Hello."})
	target := newCaptureTarget()

	admission, err := svc.Ask(context.Background(), "111", target, "hi")
	require.NoError(t, err)
	assert.Equal(t, sequencer.AdmissionServing, admission)
	assert.Equal(t, "Hello 냥!.", waitDelivery(t, target))
}

type recordingCompleter struct {
	queries chan string
}

func (c recordingCompleter) Complete(ctx context.Context, query string) (string, error) {
	c.queries <- query
	return "ok", nil
}

func TestBotServiceAskComposesDecomposedHangul(t *testing.T) {
	completer := recordingCompleter{queries: make(chan string, 1)}
	svc, _ := newTestBotService(completer)
	target := newCaptureTarget()

	// "한" typed as three conjoining jamo
	_, err := svc.Ask(context.Background(), "111", target, "\u1112\u1161\u11ab")
	require.NoError(t, err)
	waitDelivery(t, target)
	assert.Equal(t, "한", <-completer.queries)
}

func TestBotServiceAskRejectsEmptyQuery(t *testing.T) {
	svc, _ := newTestBotService(stubCompleter{answer: "x"})

	_, err := svc.Ask(context.Background(), "111", newCaptureTarget(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestBotServiceAskAfterShutdown(t *testing.T) {
	svc, seq := newTestBotService(stubCompleter{answer: "x"})
	require.NoError(t, seq.Shutdown(context.Background()))

	_, err := svc.Ask(context.Background(), "111", newCaptureTarget(), "hi")
	assert.ErrorIs(t, err, sequencer.ErrClosed)
}

func TestBotServiceSetStyleMode(t *testing.T) {
	svc, seq := newTestBotService(stubCompleter{err: errors.New("down")})

	msg, err := svc.SetStyleMode(context.Background(), "111", "off")
	require.NoError(t, err)
	assert.Equal(t, "냥 모드가 비활성화되었습니다.", msg)
	assert.False(t, seq.StyleMode())
	assert.False(t, svc.Status().StyleMode)

	target := newCaptureTarget()
	_, err = svc.Ask(context.Background(), "111", target, "hi")
	require.NoError(t, err)
	assert.Equal(t, "죄송합니다. 요청을 처리하는 동안 오류가 발생했습니다.", waitDelivery(t, target))

	msg, err = svc.SetStyleMode(context.Background(), "111", "on")
	require.NoError(t, err)
	assert.Equal(t, "냥 모드가 활성화되었다냥!", msg)

	_, err = svc.SetStyleMode(context.Background(), "111", "sideways")
	assert.ErrorIs(t, err, ErrInvalidStyleMode)
	assert.True(t, seq.StyleMode())
}

func TestBotServiceStatus(t *testing.T) {
	svc, _ := newTestBotService(stubCompleter{answer: "ok"})

	status := svc.Status()
	assert.False(t, status.Busy)
	assert.Zero(t, status.QueueDepth)
	assert.True(t, status.StyleMode)
	assert.Equal(t, "stub", status.Provider)
}

func TestBotServiceUsage(t *testing.T) {
	repo := memory.NewUsageRepository()
	seq := sequencer.New(stubCompleter{answer: "ok"})
	svc := NewBotService(seq, repo, "stub", logger.NewNopLogger())
	ctx := context.Background()

	none, err := svc.GetUsage(ctx, "111")
	require.NoError(t, err)
	assert.Nil(t, none)

	require.NoError(t, repo.Increment(ctx, "111", entity.OutcomeCompleted))
	require.NoError(t, repo.Increment(ctx, "222", entity.OutcomeRejected))

	one, err := svc.GetUsage(ctx, "111")
	require.NoError(t, err)
	require.NotNil(t, one)
	assert.EqualValues(t, 1, one.Completed)
	assert.NotNil(t, one.LastSeenAt)

	all, err := svc.ListUsage(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.EqualValues(t, 1, all[1].Rejected)
}
