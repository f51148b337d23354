package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-house/internal/house-service/cache"
	"github.com/radieske/coinflip-house/internal/house-service/feed"
	httpapi "github.com/radieske/coinflip-house/internal/house-service/http"
	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	hmetrics "github.com/radieske/coinflip-house/internal/house-service/metrics"
	"github.com/radieske/coinflip-house/internal/house-service/producer"
	"github.com/radieske/coinflip-house/internal/house-service/repo"
	"github.com/radieske/coinflip-house/internal/shared/auth"
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

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	perm, err := ledger.ParseSettlePermission(cfg.SettlePermission)
	if err != nil {
		log.Fatal("settle permission", zap.Error(err))
	}
	tokens, err := auth.NewTokens(cfg.AuthSecret, cfg.AuthIssuer, cfg.AuthTTL)
	if err != nil {
		log.Fatal("auth", zap.Error(err))
	}

	// Store: Postgres (durável) ou memória (dev/local)
	var (
		store  ledger.Store
		health []metrics.HealthFunc
	)
	switch cfg.StoreDriver {
	case "postgres":
		pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			log.Fatal("postgres connect", zap.Error(err))
		}
		defer pg.Close()
		pgStore := repo.NewPostgres(pg)
		if err := pgStore.Migrate(ctx); err != nil {
			log.Fatal("postgres migrate", zap.Error(err))
		}
		store = pgStore
		health = append(health, pgStore.Ping)
	default:
		log.Warn("using in-memory store; state is lost on restart")
		store = repo.NewMemory()
	}

	// Redis: cache de stats + broadcast de liquidações
	rdb, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	health = append(health, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })

	// Kafka writers (um por tópico)
	placedW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer placedW.Close()
	settledW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledW.Close()
	bankrollW := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicHouseBankroll)
	defer bankrollW.Close()
	publ := producer.NewKafkaPublisher(placedW, settledW, bankrollW)

	m := hmetrics.New(prometheus.DefaultRegisterer)
	eng := ledger.NewEngine(store, ledger.Options{
		SettlePermission: perm,
		Seeds:            seed.New(),
		Hooks: m.Hooks(ledger.Hooks{
			OnRejected: func(op string, err error) {
				if !ledger.IsCallerError(err) {
					log.Error("ledger operation failed", logger.Op(op), zap.Error(err))
				}
			},
		}),
	})

	if cfg.HouseAuthority != "" {
		bootstrapHouse(ctx, log, eng, cfg.HouseAuthority, cfg.HousePool)
	}

	// Feed ao vivo: Redis Pub/Sub -> WebSocket
	hub := feed.NewHub(log, nil)
	feed.StartRedisSubscriber(ctx, log, rdb, cfg.RedisPubSubChannel, hub)

	api := &httpapi.Server{
		Log:           log,
		Engine:        eng,
		Auth:          tokens,
		Publisher:     publ,
		Cache:         cache.NewStatsCache(rdb, cfg.StatsCacheTTL),
		Broadcaster:   cache.NewBroadcaster(rdb, cfg.RedisPubSubChannel),
		Feed:          hub,
		MintAuthority: cfg.MintAuthority,
		Decimals:      cfg.TokenDecimals,
	}
	apiSrv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort, checkAll(health))

	go func() {
		log.Info("house-service listening", zap.String("addr", apiSrv.Addr),
			zap.String("store", cfg.StoreDriver), zap.String("settle_permission", string(perm)))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api", zap.Error(err))
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()
	_ = apiSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("house-service stopped")
}

// bootstrapHouse garante que a house do pool configurado exista
func bootstrapHouse(ctx context.Context, log *zap.Logger, eng *ledger.Engine, authority, pool string) {
	h, err := eng.InitializeHouse(ctx, authority, pool)
	switch {
	case err == nil:
		log.Info("house initialized", zap.String("house", h.Address.String()), zap.String("pool", pool))
	case errors.Is(err, ledger.ErrAlreadyInitialized):
		log.Info("house already initialized", zap.String("house", ledger.HouseAddress(pool).String()), zap.String("pool", pool))
	default:
		log.Fatal("house bootstrap", zap.Error(err))
	}
}

func checkAll(checks []metrics.HealthFunc) metrics.HealthFunc {
	return func(ctx context.Context) error {
		for _, c := range checks {
			if err := c(ctx); err != nil {
				return err
			}
		}
		return nil
	}
}
