package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingPublisher struct {
	got []string
	err error
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) error {
	p.got = append(p.got, event.EventType())
	return p.err
}

func TestMultiDeliversToEveryPublisher(t *testing.T) {
	boom := errors.New("boom")
	first := &recordingPublisher{err: boom}
	second := &recordingPublisher{}

	err := Multi{first, nil, second}.Publish(context.Background(), New("REQUEST_QUEUED", nil))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"REQUEST_QUEUED"}, first.got)
	assert.Equal(t, []string{"REQUEST_QUEUED"}, second.got)
}

func TestNewDefaultsPayload(t *testing.T) {
	evt := New("STYLE_MODE_CHANGED", nil)

	assert.NotNil(t, evt.Payload())
	assert.False(t, evt.Timestamp().IsZero())
}
