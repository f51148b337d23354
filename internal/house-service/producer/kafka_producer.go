package producer

import (
	"context"
	"time"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	"github.com/radieske/coinflip-house/internal/shared/kafka"
	"github.com/radieske/coinflip-house/pkg/contracts/events"
)

// KafkaPublisher publica os eventos do ledger; a chave é o endereço da aposta
// (ou da house), então eventos do mesmo registro caem na mesma partição.
type KafkaPublisher struct {
	Placed   kafka.MessageWriter
	Settled  kafka.MessageWriter
	Bankroll kafka.MessageWriter
	Now      func() time.Time
}

func NewKafkaPublisher(placed, settled, bankroll kafka.MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{Placed: placed, Settled: settled, Bankroll: bankroll, Now: time.Now}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = p.Now().UnixMilli()
	return kafka.WriteJSON(ctx, p.Placed, e.BetAddress, e)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	if e.Ts.IsZero() {
		e.Ts = p.Now().UTC()
	}
	return kafka.WriteJSON(ctx, p.Settled, e.BetAddress, e)
}

func (p *KafkaPublisher) PublishHouseBankroll(ctx context.Context, e events.HouseBankroll) error {
	if e.Ts.IsZero() {
		e.Ts = p.Now().UTC()
	}
	return kafka.WriteJSON(ctx, p.Bankroll, e.House, e)
}

// BetPlacedEvent monta o evento a partir da aposta gravada
func BetPlacedEvent(b ledger.Bet) events.BetPlaced {
	return events.BetPlaced{
		BetAddress: b.Address.String(),
		House:      b.House.String(),
		UserID:     b.User,
		Amount:     b.Amount,
		UserGuess:  b.UserGuess,
		UserSeed:   b.UserSeed,
		Escrow:     b.Escrow.String(),
	}
}

// BetSettledEvent monta o evento de liquidação; by é quem liquidou
func BetSettledEvent(s ledger.Settlement, by string) events.BetSettled {
	e := events.BetSettled{
		BetAddress: s.Bet.Address.String(),
		House:      s.House.Address.String(),
		UserID:     s.Bet.User,
		Amount:     s.Bet.Amount,
		UserGuess:  s.Bet.UserGuess,
		UserSeed:   s.Bet.UserSeed,
		UserWon:    s.UserWon,
		Payout:     s.Payout,
		Digest:     s.Digest,
		WinCount:   s.House.WinCount,
		LossCount:  s.House.LossCount,
		SettledBy:  by,
	}
	if s.Bet.HouseSeed != nil {
		e.HouseSeed = *s.Bet.HouseSeed
	}
	if s.Bet.Result != nil {
		e.Result = *s.Bet.Result
	}
	if s.Bet.SettledAt != nil {
		e.Ts = *s.Bet.SettledAt
	}
	return e
}

func HouseBankrollEvent(op string, amount uint64, h ledger.HouseState) events.HouseBankroll {
	return events.HouseBankroll{
		House:     h.Address.String(),
		Operation: op,
		Amount:    amount,
		Balance:   h.BankrollBalance,
		Ts:        h.UpdatedAt,
	}
}
