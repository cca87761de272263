package contract

import (
	"context"

	"nyan-bot/internal/entity"
)

type UsageRepository interface {
	Increment(ctx context.Context, requester string, outcome entity.Outcome) error
	// Get returns nil when nothing was recorded for requester.
	Get(ctx context.Context, requester string) (*entity.Usage, error)
	List(ctx context.Context) ([]*entity.Usage, error)
}
