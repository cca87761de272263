package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"nyan-bot/internal/entity"
	"nyan-bot/internal/repository/contract"

	"github.com/patrickmn/go-cache"
)

// UsageRepository keeps counters in process memory. Used when Redis is not configured.
type UsageRepository struct {
	mu    sync.Mutex
	cache *cache.Cache
}

func NewUsageRepository() contract.UsageRepository {
	// Counters live as long as the process; only the janitor interval matters.
	c := cache.New(cache.NoExpiration, 10*time.Minute)
	return &UsageRepository{cache: c}
}

func (r *UsageRepository) Increment(_ context.Context, requester string, outcome entity.Outcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := entity.Usage{Requester: requester}
	if x, found := r.cache.Get(requester); found {
		u = x.(entity.Usage)
	}
	u.Add(outcome, 1)
	u.LastSeenAt = time.Now().UTC()
	r.cache.Set(requester, u, cache.NoExpiration)
	return nil
}

func (r *UsageRepository) Get(_ context.Context, requester string) (*entity.Usage, error) {
	if x, found := r.cache.Get(requester); found {
		u := x.(entity.Usage)
		return &u, nil
	}
	return nil, nil
}

func (r *UsageRepository) List(_ context.Context) ([]*entity.Usage, error) {
	items := r.cache.Items()
	out := make([]*entity.Usage, 0, len(items))
	for _, item := range items {
		u := item.Object.(entity.Usage)
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Requester < out[j].Requester })
	return out, nil
}
