package repo

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
)

// Memory implementa ledger.Store em memória.
// Um único mutex serializa as transações; cada transação grava num overlay
// que só é aplicado no commit, então um erro descarta tudo.
type Memory struct {
	mu       sync.Mutex
	houses   map[ledger.Address]ledger.House
	bets     map[ledger.Address]ledger.Bet
	accounts map[ledger.Address]ledger.Account
	minted   uint64
}

func NewMemory() *Memory {
	return &Memory{
		houses:   map[ledger.Address]ledger.House{},
		bets:     map[ledger.Address]ledger.Bet{},
		accounts: map[ledger.Address]ledger.Account{},
	}
}

// WithinTx executa fn de forma isolada e serializável
func (m *Memory) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memTx{
		m:        m,
		houses:   map[ledger.Address]ledger.House{},
		bets:     map[ledger.Address]ledger.Bet{},
		accounts: map[ledger.Address]ledger.Account{},
	}
	if err := fn(tx); err != nil {
		return err
	}

	for k, v := range tx.houses {
		m.houses[k] = v
	}
	for k, v := range tx.bets {
		m.bets[k] = v
	}
	for k, v := range tx.accounts {
		m.accounts[k] = v
	}
	m.minted += tx.minted
	return nil
}

// TotalSupply soma todos os saldos (abertos ou não); deve ser sempre igual a Minted
func (m *Memory) TotalSupply() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total uint64
	for _, a := range m.accounts {
		total += a.Balance
	}
	return total
}

// Minted é o total de valor que entrou no sistema via Mint
func (m *Memory) Minted() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minted
}

type memTx struct {
	m        *Memory
	houses   map[ledger.Address]ledger.House
	bets     map[ledger.Address]ledger.Bet
	accounts map[ledger.Address]ledger.Account
	minted   uint64
}

func cloneBet(b ledger.Bet) ledger.Bet {
	if b.HouseSeed != nil {
		v := *b.HouseSeed
		b.HouseSeed = &v
	}
	if b.Result != nil {
		v := *b.Result
		b.Result = &v
	}
	if b.SettledAt != nil {
		v := *b.SettledAt
		b.SettledAt = &v
	}
	return b
}

func (t *memTx) house(addr ledger.Address) (ledger.House, bool) {
	if h, ok := t.houses[addr]; ok {
		return h, true
	}
	h, ok := t.m.houses[addr]
	return h, ok
}

func (t *memTx) bet(addr ledger.Address) (ledger.Bet, bool) {
	if b, ok := t.bets[addr]; ok {
		return b, true
	}
	b, ok := t.m.bets[addr]
	return b, ok
}

func (t *memTx) account(addr ledger.Address) (ledger.Account, bool) {
	if a, ok := t.accounts[addr]; ok {
		return a, true
	}
	a, ok := t.m.accounts[addr]
	return a, ok
}

// lock é ignorado: o mutex do Memory já dá exclusividade à transação inteira
func (t *memTx) LoadHouse(_ context.Context, addr ledger.Address, _ bool) (*ledger.House, error) {
	h, ok := t.house(addr)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &h, nil
}

func (t *memTx) InsertHouse(_ context.Context, h *ledger.House) error {
	if _, ok := t.house(h.Address); ok {
		return ledger.ErrRecordExists
	}
	t.houses[h.Address] = *h
	return nil
}

func (t *memTx) UpdateHouse(_ context.Context, h *ledger.House) error {
	if _, ok := t.house(h.Address); !ok {
		return ledger.ErrNotFound
	}
	t.houses[h.Address] = *h
	return nil
}

func (t *memTx) LoadBet(_ context.Context, addr ledger.Address, _ bool) (*ledger.Bet, error) {
	b, ok := t.bet(addr)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	b = cloneBet(b)
	return &b, nil
}

func (t *memTx) InsertBet(_ context.Context, b *ledger.Bet) error {
	if _, ok := t.bet(b.Address); ok {
		return ledger.ErrRecordExists
	}
	t.bets[b.Address] = cloneBet(*b)
	return nil
}

func (t *memTx) UpdateBet(_ context.Context, b *ledger.Bet) error {
	if _, ok := t.bet(b.Address); !ok {
		return ledger.ErrNotFound
	}
	t.bets[b.Address] = cloneBet(*b)
	return nil
}

func (t *memTx) LoadAccount(_ context.Context, addr ledger.Address, _ bool) (*ledger.Account, error) {
	a, ok := t.account(addr)
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return &a, nil
}

func (t *memTx) OpenAccount(_ context.Context, addr ledger.Address, owner string) error {
	if _, ok := t.account(addr); ok {
		return ledger.ErrRecordExists
	}
	t.accounts[addr] = ledger.Account{Address: addr, Owner: owner}
	return nil
}

// Transfer debita from e credita to; qualquer falha acontece antes de tocar nos saldos
func (t *memTx) Transfer(_ context.Context, amount uint64, from, to ledger.Address) error {
	src, ok := t.account(from)
	if !ok {
		return fmt.Errorf("%w: account %s", ledger.ErrNotFound, from)
	}
	dst, ok := t.account(to)
	if !ok {
		return fmt.Errorf("%w: account %s", ledger.ErrNotFound, to)
	}
	if src.Closed {
		return fmt.Errorf("%w: %s", ledger.ErrAccountClosed, from)
	}
	if dst.Closed {
		return fmt.Errorf("%w: %s", ledger.ErrAccountClosed, to)
	}
	if src.Balance < amount {
		return fmt.Errorf("%w: %s holds %d, need %d", ledger.ErrInsufficientFunds, from, src.Balance, amount)
	}
	if from == to {
		return nil
	}
	if dst.Balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: balance of %s would overflow", ledger.ErrInvalidAmount, to)
	}
	src.Balance -= amount
	dst.Balance += amount
	t.accounts[from] = src
	t.accounts[to] = dst
	return nil
}

func (t *memTx) CloseAccount(_ context.Context, addr ledger.Address) error {
	a, ok := t.account(addr)
	if !ok {
		return fmt.Errorf("%w: account %s", ledger.ErrNotFound, addr)
	}
	if a.Balance != 0 {
		return fmt.Errorf("close %s: balance %d is not zero", addr, a.Balance)
	}
	a.Closed = true
	t.accounts[addr] = a
	return nil
}

func (t *memTx) Mint(_ context.Context, to ledger.Address, amount uint64) error {
	a, ok := t.account(to)
	if !ok {
		return fmt.Errorf("%w: account %s", ledger.ErrNotFound, to)
	}
	if a.Closed {
		return fmt.Errorf("%w: %s", ledger.ErrAccountClosed, to)
	}
	if a.Balance > math.MaxUint64-amount {
		return fmt.Errorf("%w: balance of %s would overflow", ledger.ErrInvalidAmount, to)
	}
	// o supply total nunca passa de MaxUint64, então nenhum saldo pode estourar depois
	if t.m.minted+t.minted > math.MaxUint64-amount {
		return fmt.Errorf("%w: total supply would overflow", ledger.ErrInvalidAmount)
	}
	a.Balance += amount
	t.accounts[to] = a
	t.minted += amount
	return nil
}
