package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SERVICE_NAME", "house-service")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "8082", cfg.HTTPPort)
	assert.Equal(t, "9098", cfg.MetricsPort)
	assert.Equal(t, "bet_placed", cfg.TopicBetPlaced)
	assert.Equal(t, "bet_settled", cfg.TopicBetSettled)
	assert.Equal(t, "bet_placed_dlq", cfg.TopicBetPlacedDLQ)
	assert.Equal(t, "authority_only", cfg.SettlePermission)
	assert.Equal(t, "default", cfg.HousePool)
	assert.EqualValues(t, 6, cfg.TokenDecimals)
	assert.Equal(t, 30*time.Second, cfg.StatsCacheTTL)
}

func TestLoadWorkerPorts(t *testing.T) {
	t.Setenv("SERVICE_NAME", "settlement-worker")
	t.Setenv("METRICS_PORT", "7000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTPPort)
	assert.Equal(t, "7000", cfg.MetricsPort)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_TOPIC_BET_PLACED", "coinflip.placed")
	t.Setenv("STATS_CACHE_TTL", "5s")
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "coinflip.placed", cfg.TopicBetPlaced)
	assert.Equal(t, 5*time.Second, cfg.StatsCacheTTL)
	assert.Equal(t, "memory", cfg.StoreDriver)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("TOKEN_DECIMALS", "40")
	_, err = Load()
	assert.Error(t, err)

	t.Setenv("TOKEN_DECIMALS", "abc")
	_, err = Load()
	assert.Error(t, err)
}
