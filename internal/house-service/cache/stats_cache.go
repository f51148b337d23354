package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-house/internal/house-service/dto"
)

// StatsCache guarda o resumo de cada house no Redis com TTL.
// Toda mudança de bankroll ou liquidação invalida a chave.
type StatsCache struct {
	Client *redis.Client
	TTL    time.Duration
}

func NewStatsCache(c *redis.Client, ttl time.Duration) *StatsCache {
	return &StatsCache{Client: c, TTL: ttl}
}

func key(house string) string { return "house:stats:" + house }

// Get retorna (stats, true) em hit; (zero, false, nil) em miss
func (c *StatsCache) Get(ctx context.Context, house string) (dto.StatsResponse, bool, error) {
	b, err := c.Client.Get(ctx, key(house)).Bytes()
	if errors.Is(err, redis.Nil) {
		return dto.StatsResponse{}, false, nil
	}
	if err != nil {
		return dto.StatsResponse{}, false, err
	}
	var st dto.StatsResponse
	if err := json.Unmarshal(b, &st); err != nil {
		return dto.StatsResponse{}, false, err
	}
	return st, true, nil
}

func (c *StatsCache) Set(ctx context.Context, st dto.StatsResponse) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, key(st.House), b, c.TTL).Err()
}

func (c *StatsCache) Invalidate(ctx context.Context, house string) error {
	return c.Client.Del(ctx, key(house)).Err()
}
