package cache

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/coinflip-house/pkg/contracts/events"
)

// Broadcaster repassa liquidações para um canal Redis Pub/Sub (feeds ao vivo)
type Broadcaster struct {
	r       *redis.Client
	channel string
}

func NewBroadcaster(r *redis.Client, channel string) *Broadcaster {
	return &Broadcaster{r: r, channel: channel}
}

// SettlementUpdate é o envelope publicado no canal
type SettlementUpdate struct {
	House   string            `json:"house"`
	Payload events.BetSettled `json:"payload"`
}

func (b *Broadcaster) Broadcast(ctx context.Context, e events.BetSettled) error {
	msg, err := json.Marshal(SettlementUpdate{House: e.House, Payload: e})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, msg).Err()
}
