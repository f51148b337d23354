package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-house/internal/house-service/cache"
	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	hmetrics "github.com/radieske/coinflip-house/internal/house-service/metrics"
	"github.com/radieske/coinflip-house/internal/house-service/producer"
	"github.com/radieske/coinflip-house/internal/house-service/repo"
	"github.com/radieske/coinflip-house/internal/settlement-worker/consumer"
	sharedcache "github.com/radieske/coinflip-house/internal/shared/cache"
	"github.com/radieske/coinflip-house/internal/shared/config"
	"github.com/radieske/coinflip-house/internal/shared/db"
	"github.com/radieske/coinflip-house/internal/shared/kafka"
	"github.com/radieske/coinflip-house/internal/shared/logger"
	"github.com/radieske/coinflip-house/internal/shared/metrics"
	"github.com/radieske/coinflip-house/internal/shared/seed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.StoreDriver != "postgres" {
		log.Fatal("settlement-worker requires STORE_DRIVER=postgres", zap.String("store", cfg.StoreDriver))
	}
	if cfg.HouseAuthority == "" {
		log.Fatal("HOUSE_AUTHORITY is required")
	}
	perm, err := ledger.ParseSettlePermission(cfg.SettlePermission)
	if err != nil {
		log.Fatal("settle permission", zap.Error(err))
	}

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	store := repo.NewPostgres(pg)

	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	stats := cache.NewStatsCache(rdb, cfg.StatsCacheTTL)
	broadcaster := cache.NewBroadcaster(rdb, cfg.RedisPubSubChannel)

	// Consumer group do worker e writers de saída
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicBetPlaced, cfg.SettlementGroupID)
	defer reader.Close()
	settledW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledW.Close()
	dlqW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlacedDLQ)
	defer dlqW.Close()
	publ := producer.NewKafkaPublisher(nil, settledW, nil)

	// Métricas do ledger + do loop de consumo
	m := hmetrics.New(prometheus.DefaultRegisterer)
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_messages_consumed_total", Help: "mensagens consumidas"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_skipped_total", Help: "apostas ignoradas por motivo"}, []string{"kind"})
	dead := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_dead_letters_total", Help: "mensagens enviadas para a DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, skipped, dead, errorsBy)

	eng := ledger.NewEngine(store, ledger.Options{SettlePermission: perm, Hooks: m.Hooks(ledger.Hooks{})})

	proc := &consumer.Processor{
		Log:         log,
		Reader:      reader,
		Settler:     eng,
		Seeds:       seed.New(),
		Publisher:   publ,
		DLQ:         dlqW,
		Authority:   cfg.HouseAuthority,
		MaxAttempts: 3,
		Backoff:     time.Second,

		OnConsumed:   func() { consumed.Inc() },
		OnSkipped:    func(kind string) { skipped.WithLabelValues(kind).Inc() },
		OnDeadLetter: func() { dead.Inc() },
		OnError:      func(stage string) { errorsBy.WithLabelValues(stage).Inc() },

		// Após liquidar: invalida stats e avisa o canal de feeds ao vivo
		OnSettled: func(st ledger.Settlement) {
			ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
			defer cancel()

			if err := stats.Invalidate(ctx, st.House.Address.String()); err != nil {
				log.Warn("stats cache invalidate failed", zap.Error(err))
			}
			if err := broadcaster.Broadcast(ctx, producer.BetSettledEvent(st, cfg.HouseAuthority)); err != nil {
				log.Warn("settlement broadcast failed", zap.Error(err))
			}
		},
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, func(ctx context.Context) error {
		if err := store.Ping(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})
	defer metricsSrv.Close()

	log.Info("settlement-worker started", zap.String("topic", cfg.TopicBetPlaced),
		zap.String("group", cfg.SettlementGroupID), zap.String("authority", cfg.HouseAuthority))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("processor stopped with error", zap.Error(err))
	}
	log.Info("settlement-worker stopped")
}
