package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	"github.com/radieske/coinflip-house/internal/house-service/repo"
)

func TestHooksCountLedgerActivity(t *testing.T) {
	ctx := context.Background()
	m := New(prometheus.NewRegistry())

	var placed int
	store := repo.NewMemory()
	eng := ledger.NewEngine(store, ledger.Options{
		Hooks: m.Hooks(ledger.Hooks{OnBetPlaced: func(ledger.Bet) { placed++ }}),
	})

	for _, who := range []string{"authority", "alice"} {
		w, err := eng.OpenWallet(ctx, who)
		require.NoError(t, err)
		_, err = eng.Mint(ctx, w.Address, 1000)
		require.NoError(t, err)
	}
	h, err := eng.InitializeHouse(ctx, "authority", "default")
	require.NoError(t, err)
	_, err = eng.DepositHouse(ctx, "authority", h.Address, "", 500)
	require.NoError(t, err)

	b, err := eng.PlaceBet(ctx, "alice", h.Address, ledger.PlaceBetParams{UserSeed: 1, Amount: 40, UserGuess: true})
	require.NoError(t, err)
	s, err := eng.SettleBet(ctx, "authority", b.Address, 12345)
	require.NoError(t, err)

	_, err = eng.WithdrawHouse(ctx, "alice", h.Address, "", 1)
	require.ErrorIs(t, err, ledger.ErrUnauthorized)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HousesInitialized))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BetsPlaced))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.StakedTokens))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BankrollMoves.WithLabelValues(ledger.OpDepositHouse)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues(ledger.OpWithdrawHouse, "Unauthorized")))
	assert.Equal(t, float64(s.Payout), testutil.ToFloat64(m.PayoutTokens))
	assert.Equal(t, float64(s.House.BankrollBalance), testutil.ToFloat64(m.BankrollBalance.WithLabelValues(h.Address.String())))
	assert.Equal(t, 1, testutil.CollectAndCount(m.BetsSettled))
	assert.Equal(t, 1, placed)
}
