package implementation

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"nyan-bot/internal/entity"
	"nyan-bot/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

const (
	usageKeyPrefix  = "bot:usage:"
	usageRequesters = "bot:usage:requesters"
	fieldLastSeenAt = "last_seen_at"
)

type RedisUsageRepository struct {
	rdb *redis.Client
}

func NewRedisUsageRepository(rdb *redis.Client) contract.UsageRepository {
	return &RedisUsageRepository{rdb: rdb}
}

func usageKey(requester string) string {
	return usageKeyPrefix + requester
}

func (r *RedisUsageRepository) Increment(ctx context.Context, requester string, outcome entity.Outcome) error {
	key := usageKey(requester)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(outcome), 1)
		pipe.HSet(ctx, key, fieldLastSeenAt, time.Now().UTC().Format(time.RFC3339))
		pipe.SAdd(ctx, usageRequesters, requester)
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment usage for %s: %w", requester, err)
	}
	return nil
}

func (r *RedisUsageRepository) Get(ctx context.Context, requester string) (*entity.Usage, error) {
	fields, err := r.rdb.HGetAll(ctx, usageKey(requester)).Result()
	if err != nil {
		return nil, fmt.Errorf("get usage for %s: %w", requester, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return usageFromHash(requester, fields), nil
}

func (r *RedisUsageRepository) List(ctx context.Context) ([]*entity.Usage, error) {
	requesters, err := r.rdb.SMembers(ctx, usageRequesters).Result()
	if err != nil {
		return nil, fmt.Errorf("list usage requesters: %w", err)
	}
	sort.Strings(requesters)

	cmds := make([]*redis.MapStringStringCmd, len(requesters))
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, requester := range requesters {
			cmds[i] = pipe.HGetAll(ctx, usageKey(requester))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}

	out := make([]*entity.Usage, 0, len(requesters))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		out = append(out, usageFromHash(requesters[i], fields))
	}
	return out, nil
}

func usageFromHash(requester string, fields map[string]string) *entity.Usage {
	u := &entity.Usage{Requester: requester}
	for _, outcome := range []entity.Outcome{entity.OutcomeCompleted, entity.OutcomeFailed, entity.OutcomeQueued, entity.OutcomeRejected} {
		if n, err := strconv.ParseInt(fields[string(outcome)], 10, 64); err == nil {
			u.Add(outcome, n)
		}
	}
	if ts, err := time.Parse(time.RFC3339, fields[fieldLastSeenAt]); err == nil {
		u.LastSeenAt = ts
	}
	return u
}
