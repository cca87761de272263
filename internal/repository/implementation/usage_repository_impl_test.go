package implementation

import (
	"testing"
	"time"

	"nyan-bot/internal/entity"

	"github.com/stretchr/testify/assert"
)

func TestUsageFromHash(t *testing.T) {
	u := usageFromHash("user-1", map[string]string{
		"completed":    "3",
		"failed":       "1",
		"queued":       "2",
		"rejected":     "garbage",
		"last_seen_at": "2024-05-01T10:00:00Z",
	})

	assert.Equal(t, "user-1", u.Requester)
	assert.EqualValues(t, 3, u.Completed)
	assert.EqualValues(t, 1, u.Failed)
	assert.EqualValues(t, 2, u.Queued)
	assert.EqualValues(t, 0, u.Rejected)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), u.LastSeenAt)
}

func TestUsageKey(t *testing.T) {
	assert.Equal(t, "bot:usage:42", usageKey("42"))
	assert.Equal(t, entity.Outcome("completed"), entity.OutcomeCompleted)
}
