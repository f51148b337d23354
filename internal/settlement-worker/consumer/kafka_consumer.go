package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	"github.com/radieske/coinflip-house/internal/house-service/producer"
	"github.com/radieske/coinflip-house/internal/shared/kafka"
	"github.com/radieske/coinflip-house/pkg/contracts/events"
)

// Reader é o pedaço do kafka.Reader usado pelo worker (commit manual)
type Reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

type Settler interface {
	SettleBet(ctx context.Context, caller string, bet ledger.Address, houseSeed uint64) (ledger.Settlement, error)
}

type SeedSource interface {
	Next() (uint64, error)
}

type Publisher interface {
	PublishBetSettled(ctx context.Context, e events.BetSettled) error
}

// Processor consome bet_placed e liquida cada aposta com uma house seed nova.
// A seed é sorteada uma vez por mensagem e reaproveitada nas retentativas;
// nunca se sorteia outra seed para a mesma aposta depois de uma falha.
type Processor struct {
	Log       *zap.Logger
	Reader    Reader
	Settler   Settler
	Seeds     SeedSource
	Publisher Publisher
	DLQ       kafka.MessageWriter
	Authority string // identidade usada no SettleBet

	MaxAttempts int           // default 3
	Backoff     time.Duration // linear: Backoff * tentativa

	OnConsumed   func()                  // métricas
	OnSettled    func(ledger.Settlement) // cache/broadcast/métricas
	OnSkipped    func(kind string)       // AlreadySettled | NotFound
	OnDeadLetter func()                  // métricas
	OnError      func(stage string)      // métricas por fase
}

// Run inicia o loop de consumo até o contexto ser cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.onError("read")
			if err := sleep(ctx, 500*time.Millisecond); err != nil {
				return err
			}
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.Handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// sem commit: a mensagem volta depois do rebalance/restart
			p.Log.Error("message not handled", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("handle")
			continue
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
			p.onError("commit")
		}
	}
}

// Handle processa uma mensagem. Retorna erro apenas quando a mensagem não pode
// ser commitada (nem liquidada, nem enviada para a DLQ).
func (p *Processor) Handle(ctx context.Context, m kafkago.Message) error {
	var ev events.BetPlaced
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.Log.Warn("invalid message", zap.Error(err))
		p.onError("decode")
		return p.deadLetter(ctx, m, fmt.Errorf("decode: %w", err), 0)
	}
	bet, err := ledger.ParseAddress(ev.BetAddress)
	if err != nil {
		p.onError("decode")
		return p.deadLetter(ctx, m, err, 0)
	}
	log := p.Log.With(zap.String("bet", bet.String()), zap.String("house", ev.House))

	houseSeed, err := p.Seeds.Next()
	if err != nil {
		p.onError("seed")
		return err
	}

	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		st, err := p.Settler.SettleBet(ctx, p.Authority, bet, houseSeed)
		if err == nil {
			log.Info("bet settled", zap.Bool("user_won", st.UserWon), zap.Uint64("payout", st.Payout),
				zap.Int("attempt", i))
			p.publish(ctx, log, st)
			if p.OnSettled != nil {
				p.OnSettled(st)
			}
			return nil
		}
		if errors.Is(err, ledger.ErrAlreadySettled) || errors.Is(err, ledger.ErrNotFound) {
			kind := ledger.Kind(err)
			log.Info("bet skipped", zap.String("kind", kind))
			if p.OnSkipped != nil {
				p.OnSkipped(kind)
			}
			return nil
		}

		lastErr = err
		log.Warn("settle failed", zap.Int("attempt", i), zap.String("kind", ledger.Kind(err)), zap.Error(err))
		p.onError("settle")
		if i < attempts {
			if err := sleep(ctx, p.Backoff*time.Duration(i)); err != nil {
				return err
			}
		}
	}
	return p.deadLetter(ctx, m, lastErr, attempts)
}

func (p *Processor) publish(ctx context.Context, log *zap.Logger, st ledger.Settlement) {
	if p.Publisher == nil {
		return
	}
	if err := p.Publisher.PublishBetSettled(ctx, producer.BetSettledEvent(st, p.Authority)); err != nil {
		log.Warn("publish bet_settled failed", zap.Error(err))
		p.onError("publish")
	}
}

// deadLetter copia a mensagem original para a DLQ com o motivo nos headers
func (p *Processor) deadLetter(ctx context.Context, m kafkago.Message, cause error, attempts int) error {
	if p.DLQ == nil {
		return fmt.Errorf("no dead letter queue configured: %w", cause)
	}
	dlq := kafkago.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(m.Headers,
			kafkago.Header{Key: "error", Value: []byte(cause.Error())},
			kafkago.Header{Key: "error_kind", Value: []byte(ledger.Kind(cause))},
			kafkago.Header{Key: "attempts", Value: []byte(strconv.Itoa(attempts))},
		),
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, dlq); err != nil {
		p.onError("dlq")
		return fmt.Errorf("write dlq: %w", err)
	}
	p.Log.Warn("message sent to dlq", zap.Int64("offset", m.Offset), zap.Error(cause))
	if p.OnDeadLetter != nil {
		p.OnDeadLetter()
	}
	return nil
}

func (p *Processor) onError(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
