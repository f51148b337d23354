package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	"github.com/radieske/coinflip-house/internal/house-service/repo"
)

const (
	authority = "house-authority"
	alice     = "alice"
	bob       = "bob"
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *repo.Memory
	engine *ledger.Engine
	house  ledger.HouseState
}

// newFixture monta: carteiras com 1000 tokens para a autoridade e para alice,
// house inicializada e bankroll de 500.
func newFixture(t *testing.T, opts ledger.Options) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repo.NewMemory()
	eng := ledger.NewEngine(store, opts)

	for _, owner := range []string{authority, alice} {
		w, err := eng.OpenWallet(ctx, owner)
		require.NoError(t, err)
		_, err = eng.Mint(ctx, w.Address, 1_000)
		require.NoError(t, err)
	}

	h, err := eng.InitializeHouse(ctx, authority, "default")
	require.NoError(t, err)
	h, err = eng.DepositHouse(ctx, authority, h.Address, "", 500)
	require.NoError(t, err)

	return &fixture{t: t, ctx: ctx, store: store, engine: eng, house: h}
}

func (f *fixture) balance(addr ledger.Address) uint64 {
	f.t.Helper()
	a, err := f.engine.Account(f.ctx, addr)
	require.NoError(f.t, err)
	return a.Balance
}

func (f *fixture) houseState() ledger.HouseState {
	f.t.Helper()
	h, err := f.engine.House(f.ctx, f.house.Address)
	require.NoError(f.t, err)
	return h
}

func (f *fixture) place(user string, seed, amount uint64, guess bool) ledger.Bet {
	f.t.Helper()
	b, err := f.engine.PlaceBet(f.ctx, user, f.house.Address, ledger.PlaceBetParams{UserSeed: seed, Amount: amount, UserGuess: guess})
	require.NoError(f.t, err)
	return b
}

func (f *fixture) requireConservation() {
	f.t.Helper()
	require.Equal(f.t, f.store.Minted(), f.store.TotalSupply())
}

// houseSeedFor procura um house seed que produza o resultado desejado para a aposta
func houseSeedFor(bet ledger.Address, userSeed uint64, want bool) uint64 {
	for s := uint64(0); ; s++ {
		if ledger.Resolve(userSeed, s, bet) == want {
			return s
		}
	}
}

func TestInitializeHouse(t *testing.T) {
	ctx := context.Background()
	eng := ledger.NewEngine(repo.NewMemory(), ledger.Options{})

	h, err := eng.InitializeHouse(ctx, authority, "default")
	require.NoError(t, err)
	assert.Equal(t, ledger.HouseAddress("default"), h.Address)
	assert.Equal(t, ledger.BankrollAddress(h.Address), h.Bankroll)
	assert.Equal(t, authority, h.Authority)
	assert.Zero(t, h.WinCount)
	assert.Zero(t, h.LossCount)
	assert.Zero(t, h.BankrollBalance)

	bankroll, err := eng.Account(ctx, h.Bankroll)
	require.NoError(t, err)
	assert.Equal(t, string(h.Address), bankroll.Owner)

	_, err = eng.InitializeHouse(ctx, "someone-else", "default")
	assert.ErrorIs(t, err, ledger.ErrAlreadyInitialized)

	other, err := eng.InitializeHouse(ctx, authority, "vip")
	require.NoError(t, err)
	assert.NotEqual(t, h.Address, other.Address)

	_, err = eng.InitializeHouse(ctx, "", "empty")
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestDepositHouse(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	assert.EqualValues(t, 500, f.house.BankrollBalance)
	assert.EqualValues(t, 500, f.balance(ledger.WalletAddress(authority)))

	h, err := f.engine.DepositHouse(f.ctx, authority, f.house.Address, ledger.WalletAddress(authority), 200)
	require.NoError(t, err)
	assert.EqualValues(t, 700, h.BankrollBalance)
	assert.EqualValues(t, 300, f.balance(ledger.WalletAddress(authority)))
	f.requireConservation()
}

func TestDepositHouseRejections(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	_, err := f.engine.DepositHouse(f.ctx, authority, f.house.Address, "", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = f.engine.DepositHouse(f.ctx, alice, f.house.Address, ledger.WalletAddress(alice), 10)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	// autoridade tentando depositar a partir da carteira de outra pessoa
	_, err = f.engine.DepositHouse(f.ctx, authority, f.house.Address, ledger.WalletAddress(alice), 10)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.engine.DepositHouse(f.ctx, authority, f.house.Address, "", 501)
	assert.ErrorIs(t, err, ledger.ErrTransferFailed)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	_, err = f.engine.DepositHouse(f.ctx, authority, ledger.HouseAddress("missing"), "", 10)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.EqualValues(t, 500, f.houseState().BankrollBalance)
	assert.EqualValues(t, 500, f.balance(ledger.WalletAddress(authority)))
	assert.EqualValues(t, 1_000, f.balance(ledger.WalletAddress(alice)))
}

func TestWithdrawHouse(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	h, err := f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, "", 200)
	require.NoError(t, err)
	assert.EqualValues(t, 300, h.BankrollBalance)
	assert.EqualValues(t, 700, f.balance(ledger.WalletAddress(authority)))

	h, err = f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, ledger.WalletAddress(alice), 300)
	require.NoError(t, err)
	assert.Zero(t, h.BankrollBalance)
	assert.EqualValues(t, 1_300, f.balance(ledger.WalletAddress(alice)))
	f.requireConservation()
}

func TestWithdrawHouseRejections(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	_, err := f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, "", 501)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBankroll)

	_, err = f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, "", 0)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = f.engine.WithdrawHouse(f.ctx, alice, f.house.Address, "", 10)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, ledger.WalletAddress("nobody"), 10)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	assert.EqualValues(t, 500, f.houseState().BankrollBalance)
}

func TestConcurrentWithdrawalsNeverOverdraw(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, short int
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, "", 100)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ledger.ErrInsufficientBankroll):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 5, short)
	assert.Zero(t, f.houseState().BankrollBalance)
	f.requireConservation()
}

func TestPlaceBet(t *testing.T) {
	f := newFixture(t, ledger.Options{})

	b := f.place(alice, 42, 100, true)
	assert.Equal(t, ledger.BetAddress(alice, 42), b.Address)
	assert.Equal(t, alice, b.User)
	assert.Equal(t, f.house.Address, b.House)
	assert.EqualValues(t, 100, b.Amount)
	assert.True(t, b.UserGuess)
	assert.False(t, b.Settled)
	assert.Nil(t, b.HouseSeed)
	assert.Nil(t, b.Result)
	assert.Equal(t, ledger.BetStatusOpen, b.Status())

	assert.EqualValues(t, 100, f.balance(b.Escrow))
	assert.EqualValues(t, 900, f.balance(ledger.WalletAddress(alice)))

	escrow, err := f.engine.Account(f.ctx, b.Escrow)
	require.NoError(t, err)
	assert.Equal(t, string(b.Address), escrow.Owner)

	stored, err := f.engine.Bet(f.ctx, b.Address)
	require.NoError(t, err)
	assert.Equal(t, b.Address, stored.Address)
	f.requireConservation()
}

func TestPlaceBetRejections(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	f.place(alice, 42, 100, true)

	cases := []struct {
		name   string
		user   string
		house  ledger.Address
		params ledger.PlaceBetParams
		want   error
	}{
		{"duplicate seed", alice, f.house.Address, ledger.PlaceBetParams{UserSeed: 42, Amount: 10, UserGuess: false}, ledger.ErrDuplicateBet},
		{"zero stake", alice, f.house.Address, ledger.PlaceBetParams{UserSeed: 1, Amount: 0}, ledger.ErrInvalidAmount},
		{"short wallet", alice, f.house.Address, ledger.PlaceBetParams{UserSeed: 2, Amount: 901}, ledger.ErrInsufficientUserFunds},
		{"no wallet", bob, f.house.Address, ledger.PlaceBetParams{UserSeed: 3, Amount: 1}, ledger.ErrInsufficientUserFunds},
		{"bankroll cannot cover", alice, f.house.Address, ledger.PlaceBetParams{UserSeed: 4, Amount: 501}, ledger.ErrInsufficientBankroll},
		{"unknown house", alice, ledger.HouseAddress("missing"), ledger.PlaceBetParams{UserSeed: 5, Amount: 1}, ledger.ErrNotFound},
		{"anonymous", "", f.house.Address, ledger.PlaceBetParams{UserSeed: 6, Amount: 1}, ledger.ErrUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.engine.PlaceBet(f.ctx, c.user, c.house, c.params)
			assert.ErrorIs(t, err, c.want)
		})
	}

	assert.EqualValues(t, 900, f.balance(ledger.WalletAddress(alice)))
	assert.EqualValues(t, 500, f.houseState().BankrollBalance)
	_, err := f.engine.Bet(f.ctx, ledger.BetAddress(alice, 1))
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	f.requireConservation()
}

func TestSettleBetUserWins(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	b := f.place(alice, 42, 100, true)
	seed := houseSeedFor(b.Address, 42, true)

	s, err := f.engine.SettleBet(f.ctx, authority, b.Address, seed)
	require.NoError(t, err)
	assert.True(t, s.UserWon)
	assert.EqualValues(t, 200, s.Payout)
	assert.True(t, s.Bet.Settled)
	require.NotNil(t, s.Bet.HouseSeed)
	require.NotNil(t, s.Bet.Result)
	assert.Equal(t, seed, *s.Bet.HouseSeed)
	assert.True(t, *s.Bet.Result)
	assert.Equal(t, ledger.BetStatusUserWon, s.Bet.Status())
	assert.Equal(t, ledger.OutcomeDigestHex(42, seed, b.Address), s.Digest)

	assert.EqualValues(t, 1_100, f.balance(ledger.WalletAddress(alice)))
	assert.EqualValues(t, 400, s.House.BankrollBalance)
	assert.EqualValues(t, 1, s.House.LossCount)
	assert.Zero(t, s.House.WinCount)

	escrow, err := f.engine.Account(f.ctx, b.Escrow)
	require.NoError(t, err)
	assert.Zero(t, escrow.Balance)
	assert.True(t, escrow.Closed)
	f.requireConservation()
}

func TestSettleBetHouseWins(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	b := f.place(alice, 42, 100, true)
	seed := houseSeedFor(b.Address, 42, false)

	s, err := f.engine.SettleBet(f.ctx, authority, b.Address, seed)
	require.NoError(t, err)
	assert.False(t, s.UserWon)
	assert.Zero(t, s.Payout)
	assert.False(t, *s.Bet.Result)
	assert.Equal(t, ledger.BetStatusHouseWon, s.Bet.Status())

	assert.EqualValues(t, 900, f.balance(ledger.WalletAddress(alice)))
	assert.EqualValues(t, 600, s.House.BankrollBalance)
	assert.EqualValues(t, 1, s.House.WinCount)
	assert.Zero(t, s.House.LossCount)
	assert.Zero(t, f.balance(b.Escrow))
	f.requireConservation()
}

func TestSettleBetOnlyOnce(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	b := f.place(alice, 42, 100, false)

	_, err := f.engine.SettleBet(f.ctx, authority, b.Address, 7)
	require.NoError(t, err)

	walletBefore := f.balance(ledger.WalletAddress(alice))
	houseBefore := f.houseState()

	_, err = f.engine.SettleBet(f.ctx, authority, b.Address, 8)
	assert.ErrorIs(t, err, ledger.ErrAlreadySettled)

	assert.Equal(t, walletBefore, f.balance(ledger.WalletAddress(alice)))
	houseAfter := f.houseState()
	assert.Equal(t, houseBefore.BankrollBalance, houseAfter.BankrollBalance)
	assert.Equal(t, houseBefore.Settled(), houseAfter.Settled())

	stored, err := f.engine.Bet(f.ctx, b.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 7, *stored.HouseSeed)

	// a identidade continua ocupada depois da liquidação
	_, err = f.engine.PlaceBet(f.ctx, alice, f.house.Address, ledger.PlaceBetParams{UserSeed: 42, Amount: 10})
	assert.ErrorIs(t, err, ledger.ErrDuplicateBet)
}

func TestConcurrentSettleSameBet(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	b := f.place(alice, 42, 100, true)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var ok, settled int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			_, err := f.engine.SettleBet(f.ctx, authority, b.Address, seed)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if errors.Is(err, ledger.ErrAlreadySettled) {
				settled++
			}
		}(uint64(i))
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, settled)
	assert.EqualValues(t, 1, f.houseState().Settled())
	f.requireConservation()
}

func TestSettleBetPermission(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	b := f.place(alice, 42, 100, true)

	_, err := f.engine.SettleBet(f.ctx, alice, b.Address, 1)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)

	_, err = f.engine.SettleBet(f.ctx, authority, ledger.BetAddress(alice, 99), 1)
	assert.ErrorIs(t, err, ledger.ErrNotFound)

	open := newFixture(t, ledger.Options{SettlePermission: ledger.SettleAnyone})
	ob := open.place(alice, 42, 100, true)
	_, err = open.engine.SettleBetRandom(open.ctx, "any-keeper", ob.Address)
	assert.NoError(t, err)
}

type fixedSeed uint64

func (s fixedSeed) Next() (uint64, error) { return uint64(s), nil }

func TestSettleAnyoneCannotChooseHouseSeed(t *testing.T) {
	f := newFixture(t, ledger.Options{SettlePermission: ledger.SettleAnyone, Seeds: fixedSeed(77)})
	before := f.houseState().BankrollBalance

	for seed := uint64(1); seed <= 5; seed++ {
		b := f.place(alice, seed, 100, true)
		_, err := f.engine.SettleBet(f.ctx, alice, b.Address, houseSeedFor(b.Address, seed, true))
		require.ErrorIs(t, err, ledger.ErrUnauthorized)
		_, err = f.engine.SettleBet(f.ctx, "any-keeper", b.Address, houseSeedFor(b.Address, seed, true))
		require.ErrorIs(t, err, ledger.ErrUnauthorized)

		got, err := f.engine.Bet(f.ctx, b.Address)
		require.NoError(t, err)
		assert.False(t, got.Settled)
	}
	assert.Equal(t, before, f.houseState().BankrollBalance)
	assert.EqualValues(t, 0, f.houseState().Settled())
	f.requireConservation()

	// sem seed explícito o Engine sorteia; o bettor pode liquidar, mas não escolher o resultado
	b, err := f.engine.Bet(f.ctx, ledger.BetAddress(alice, 1))
	require.NoError(t, err)
	s, err := f.engine.SettleBetRandom(f.ctx, alice, b.Address)
	require.NoError(t, err)
	require.NotNil(t, s.Bet.HouseSeed)
	assert.EqualValues(t, 77, *s.Bet.HouseSeed)
	assert.Equal(t, ledger.Resolve(1, 77, b.Address), *s.Bet.Result)

	// a autoridade continua podendo informar o seed
	b2, err := f.engine.Bet(f.ctx, ledger.BetAddress(alice, 2))
	require.NoError(t, err)
	s, err = f.engine.SettleBet(f.ctx, authority, b2.Address, 5)
	require.NoError(t, err)
	assert.EqualValues(t, 5, *s.Bet.HouseSeed)
}

func TestSettleRequiresCaller(t *testing.T) {
	f := newFixture(t, ledger.Options{SettlePermission: ledger.SettleAnyone, Seeds: fixedSeed(1)})
	b := f.place(alice, 1, 10, true)

	_, err := f.engine.SettleBetRandom(f.ctx, "", b.Address)
	assert.ErrorIs(t, err, ledger.ErrUnauthorized)
}

func TestSettleBetRollsBackWhenBankrollCannotPay(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	b := f.place(alice, 42, 100, true)

	// a autoridade esvazia o bankroll entre a aposta e a liquidação
	_, err := f.engine.WithdrawHouse(f.ctx, authority, f.house.Address, "", 450)
	require.NoError(t, err)

	seed := houseSeedFor(b.Address, 42, true)
	_, err = f.engine.SettleBet(f.ctx, authority, b.Address, seed)
	assert.ErrorIs(t, err, ledger.ErrInsufficientBankroll)

	stored, err := f.engine.Bet(f.ctx, b.Address)
	require.NoError(t, err)
	assert.False(t, stored.Settled)
	assert.EqualValues(t, 100, f.balance(b.Escrow))
	assert.EqualValues(t, 50, f.houseState().BankrollBalance)
	assert.Zero(t, f.houseState().Settled())

	// perda da house ainda pode ser liquidada
	_, err = f.engine.SettleBet(f.ctx, authority, b.Address, houseSeedFor(b.Address, 42, false))
	require.NoError(t, err)
	assert.EqualValues(t, 150, f.houseState().BankrollBalance)
	f.requireConservation()
}

// failingStore faz a N-ésima transferência falhar, simulando o serviço externo rejeitando
type failingStore struct {
	*repo.Memory
	failAt int
}

type failingTx struct {
	ledger.Tx
	calls  *int
	failAt int
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	calls := 0
	return s.Memory.WithinTx(ctx, func(tx ledger.Tx) error {
		return fn(&failingTx{Tx: tx, calls: &calls, failAt: s.failAt})
	})
}

var errTransferDown = errors.New("token program unavailable")

func (t *failingTx) Transfer(ctx context.Context, amount uint64, from, to ledger.Address) error {
	*t.calls++
	if *t.calls == t.failAt {
		return errTransferDown
	}
	return t.Tx.Transfer(ctx, amount, from, to)
}

func TestSettleBetRollsBackOnTransferFailure(t *testing.T) {
	ctx := context.Background()
	mem := repo.NewMemory()
	store := &failingStore{Memory: mem}
	eng := ledger.NewEngine(store, ledger.Options{})

	for _, owner := range []string{authority, alice} {
		w, err := eng.OpenWallet(ctx, owner)
		require.NoError(t, err)
		_, err = eng.Mint(ctx, w.Address, 1_000)
		require.NoError(t, err)
	}
	h, err := eng.InitializeHouse(ctx, authority, "default")
	require.NoError(t, err)
	_, err = eng.DepositHouse(ctx, authority, h.Address, "", 500)
	require.NoError(t, err)
	b, err := eng.PlaceBet(ctx, alice, h.Address, ledger.PlaceBetParams{UserSeed: 42, Amount: 100, UserGuess: true})
	require.NoError(t, err)

	// usuário ganha: a primeira transferência (escrow -> usuário) passa, a segunda (bankroll -> usuário) falha
	store.failAt = 2
	_, err = eng.SettleBet(ctx, authority, b.Address, houseSeedFor(b.Address, 42, true))
	require.ErrorIs(t, err, ledger.ErrTransferFailed)
	require.ErrorIs(t, err, errTransferDown)

	store.failAt = 0
	stored, err := eng.Bet(ctx, b.Address)
	require.NoError(t, err)
	assert.False(t, stored.Settled)
	assert.Nil(t, stored.Result)

	escrow, err := eng.Account(ctx, b.Escrow)
	require.NoError(t, err)
	assert.EqualValues(t, 100, escrow.Balance)
	assert.False(t, escrow.Closed)

	wallet, err := eng.Account(ctx, ledger.WalletAddress(alice))
	require.NoError(t, err)
	assert.EqualValues(t, 900, wallet.Balance)

	hs, err := eng.House(ctx, h.Address)
	require.NoError(t, err)
	assert.EqualValues(t, 500, hs.BankrollBalance)
	assert.Zero(t, hs.Settled())
	assert.Equal(t, mem.Minted(), mem.TotalSupply())
}

func TestCountersAndConservationOverManyBets(t *testing.T) {
	f := newFixture(t, ledger.Options{})
	_, err := f.engine.DepositHouse(f.ctx, authority, f.house.Address, "", 500)
	require.NoError(t, err)

	const n = 40
	bets := make([]ledger.Bet, 0, n)
	for i := uint64(0); i < n; i++ {
		bets = append(bets, f.place(alice, 1_000+i, 10, i%3 == 0))
	}
	f.requireConservation()

	var userWins uint64
	for i, b := range bets {
		s, err := f.engine.SettleBet(f.ctx, authority, b.Address, uint64(i)*7919)
		require.NoError(t, err)
		if s.UserWon {
			userWins++
		}
		assert.Zero(t, f.balance(b.Escrow))
		f.requireConservation()
	}

	h := f.houseState()
	assert.EqualValues(t, n, h.WinCount+h.LossCount)
	assert.Equal(t, userWins, h.LossCount)
	houseWins := uint64(n) - userWins
	assert.Equal(t, 1_000+10*houseWins-10*userWins, h.BankrollBalance)
	assert.Equal(t, 1_000-10*houseWins+10*userWins, f.balance(ledger.WalletAddress(alice)))
}

func TestHooksFireAfterCommitOnly(t *testing.T) {
	var placed, settled int
	var rejected []string
	f := newFixture(t, ledger.Options{Hooks: ledger.Hooks{
		OnBetPlaced:  func(ledger.Bet) { placed++ },
		OnBetSettled: func(ledger.Settlement) { settled++ },
		OnRejected:   func(op string, _ error) { rejected = append(rejected, op) },
	}})

	b := f.place(alice, 1, 10, true)
	_, err := f.engine.PlaceBet(f.ctx, alice, f.house.Address, ledger.PlaceBetParams{UserSeed: 1, Amount: 10})
	require.Error(t, err)
	_, err = f.engine.SettleBet(f.ctx, authority, b.Address, 3)
	require.NoError(t, err)
	_, err = f.engine.SettleBet(f.ctx, authority, b.Address, 3)
	require.Error(t, err)

	assert.Equal(t, 1, placed)
	assert.Equal(t, 1, settled)
	assert.Equal(t, []string{ledger.OpPlaceBet, ledger.OpSettleBet}, rejected)
}
