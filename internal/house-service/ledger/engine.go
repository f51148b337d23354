package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/radieske/coinflip-house/internal/shared/seed"
)

// Nomes das operações, usados em logs, métricas e OnRejected
const (
	OpInitializeHouse = "initializeHouse"
	OpDepositHouse    = "depositHouse"
	OpWithdrawHouse   = "withdrawHouse"
	OpPlaceBet        = "placeBet"
	OpSettleBet       = "settleBet"
	OpOpenWallet      = "openWallet"
	OpMint            = "mint"
)

// SettlePermission define quem pode liquidar apostas
type SettlePermission string

const (
	SettleAuthorityOnly SettlePermission = "authority_only"
	SettleAnyone        SettlePermission = "anyone"
)

func ParseSettlePermission(s string) (SettlePermission, error) {
	switch SettlePermission(s) {
	case SettleAuthorityOnly, SettleAnyone:
		return SettlePermission(s), nil
	case "":
		return SettleAuthorityOnly, nil
	}
	return "", fmt.Errorf("unknown settle permission %q", s)
}

// Hooks são chamados somente depois do commit; trabalho desfeito nunca é reportado.
type Hooks struct {
	OnHouseInitialized func(HouseState)
	OnBankrollChanged  func(op string, amount uint64, h HouseState)
	OnBetPlaced        func(Bet)
	OnBetSettled       func(Settlement)
	OnRejected         func(op string, err error)
}

// SeedSource sorteia house seeds (crypto/rand em produção)
type SeedSource interface {
	Next() (uint64, error)
}

type Options struct {
	SettlePermission SettlePermission
	Seeds            SeedSource // default: seed.New()
	Now              func() time.Time
	Hooks            Hooks
}

// Engine orquestra o ciclo de vida house/bet sobre um Store transacional.
// Cada chamada pública é exatamente uma transação: ou aplica tudo ou nada.
type Engine struct {
	store Store
	perm  SettlePermission
	seeds SeedSource
	now   func() time.Time
	hooks Hooks
}

func NewEngine(store Store, opts Options) *Engine {
	if opts.SettlePermission == "" {
		opts.SettlePermission = SettleAuthorityOnly
	}
	if opts.Seeds == nil {
		opts.Seeds = seed.New()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{store: store, perm: opts.SettlePermission, seeds: opts.Seeds, now: opts.Now, hooks: opts.Hooks}
}

// SettlePermission retorna a política configurada
func (e *Engine) SettlePermission() SettlePermission { return e.perm }

func (e *Engine) reject(op string, err error) error {
	if err != nil && e.hooks.OnRejected != nil {
		e.hooks.OnRejected(op, err)
	}
	return err
}

func transferFailed(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrTransferFailed, what, err)
}

func loadHouse(ctx context.Context, tx Tx, addr Address, lock bool) (*House, error) {
	h, err := tx.LoadHouse(ctx, addr, lock)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: house %s", ErrNotFound, addr)
	}
	return h, err
}

func bankrollBalance(ctx context.Context, tx Tx, h *House, lock bool) (uint64, error) {
	acc, err := tx.LoadAccount(ctx, h.Bankroll, lock)
	if err != nil {
		return 0, fmt.Errorf("load bankroll %s: %w", h.Bankroll, err)
	}
	return acc.Balance, nil
}

// InitializeHouse cria a House do pool com contadores zerados e abre o bankroll
// (conta custodiada pelo endereço da house).
func (e *Engine) InitializeHouse(ctx context.Context, authority, pool string) (HouseState, error) {
	if authority == "" {
		return HouseState{}, e.reject(OpInitializeHouse, fmt.Errorf("%w: authority required", ErrUnauthorized))
	}
	addr := HouseAddress(pool)

	var out HouseState
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		_, err := tx.LoadHouse(ctx, addr, true)
		if err == nil {
			return fmt.Errorf("%w: house %s (pool %q)", ErrAlreadyInitialized, addr, pool)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		now := e.now()
		h := &House{
			Address:   addr,
			Pool:      pool,
			Authority: authority,
			Bankroll:  BankrollAddress(addr),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.OpenAccount(ctx, h.Bankroll, string(addr)); err != nil {
			if errors.Is(err, ErrRecordExists) {
				return fmt.Errorf("%w: bankroll %s", ErrAlreadyInitialized, h.Bankroll)
			}
			return err
		}
		if err := tx.InsertHouse(ctx, h); err != nil {
			if errors.Is(err, ErrRecordExists) {
				return fmt.Errorf("%w: house %s (pool %q)", ErrAlreadyInitialized, addr, pool)
			}
			return err
		}
		out = HouseState{House: *h}
		return nil
	})
	if err != nil {
		return HouseState{}, e.reject(OpInitializeHouse, err)
	}
	if e.hooks.OnHouseInitialized != nil {
		e.hooks.OnHouseInitialized(out)
	}
	return out, nil
}

// DepositHouse move amount de source (conta do chamador; vazio = carteira do chamador) para o bankroll.
// Só a autoridade pode depositar. Nenhum campo da House além do saldo muda.
func (e *Engine) DepositHouse(ctx context.Context, caller string, house, source Address, amount uint64) (HouseState, error) {
	if amount == 0 {
		return HouseState{}, e.reject(OpDepositHouse, fmt.Errorf("%w: deposit must be positive", ErrInvalidAmount))
	}
	if source == "" {
		source = WalletAddress(caller)
	}

	var out HouseState
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		h, err := loadHouse(ctx, tx, house, true)
		if err != nil {
			return err
		}
		if caller == "" || caller != h.Authority {
			return fmt.Errorf("%w: %q is not the authority of house %s", ErrUnauthorized, caller, house)
		}
		src, err := tx.LoadAccount(ctx, source, true)
		if err != nil {
			return transferFailed(fmt.Sprintf("source %s", source), err)
		}
		if src.Owner != caller {
			return fmt.Errorf("%w: source %s is not owned by %q", ErrUnauthorized, source, caller)
		}
		if err := tx.Transfer(ctx, amount, source, h.Bankroll); err != nil {
			return transferFailed(fmt.Sprintf("deposit %d from %s", amount, source), err)
		}
		bal, err := bankrollBalance(ctx, tx, h, false)
		if err != nil {
			return err
		}
		out = HouseState{House: *h, BankrollBalance: bal}
		return nil
	})
	if err != nil {
		return HouseState{}, e.reject(OpDepositHouse, err)
	}
	if e.hooks.OnBankrollChanged != nil {
		e.hooks.OnBankrollChanged(OpDepositHouse, amount, out)
	}
	return out, nil
}

// WithdrawHouse move amount do bankroll para destination (vazio = carteira do chamador).
// O saldo é verificado com o lock da house, então dois saques concorrentes nunca
// passam pela checagem com saldo desatualizado.
func (e *Engine) WithdrawHouse(ctx context.Context, caller string, house, destination Address, amount uint64) (HouseState, error) {
	if amount == 0 {
		return HouseState{}, e.reject(OpWithdrawHouse, fmt.Errorf("%w: withdrawal must be positive", ErrInvalidAmount))
	}
	if destination == "" {
		destination = WalletAddress(caller)
	}

	var out HouseState
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		h, err := loadHouse(ctx, tx, house, true)
		if err != nil {
			return err
		}
		if caller == "" || caller != h.Authority {
			return fmt.Errorf("%w: %q is not the authority of house %s", ErrUnauthorized, caller, house)
		}
		bal, err := bankrollBalance(ctx, tx, h, true)
		if err != nil {
			return err
		}
		if amount > bal {
			return fmt.Errorf("%w: withdraw %d, bankroll holds %d", ErrInsufficientBankroll, amount, bal)
		}
		if _, err := tx.LoadAccount(ctx, destination, false); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: destination %s", ErrNotFound, destination)
			}
			return err
		}
		if err := tx.Transfer(ctx, amount, h.Bankroll, destination); err != nil {
			return transferFailed(fmt.Sprintf("withdraw %d to %s", amount, destination), err)
		}
		out = HouseState{House: *h, BankrollBalance: bal - amount}
		return nil
	})
	if err != nil {
		return HouseState{}, e.reject(OpWithdrawHouse, err)
	}
	if e.hooks.OnBankrollChanged != nil {
		e.hooks.OnBankrollChanged(OpWithdrawHouse, amount, out)
	}
	return out, nil
}

// PlaceBet cria a aposta e trava o stake no escrow. A aposta é gravada na mesma
// transação da transferência: depois do retorno o stake está inteiro no escrow.
func (e *Engine) PlaceBet(ctx context.Context, caller string, house Address, p PlaceBetParams) (Bet, error) {
	if p.Amount == 0 {
		return Bet{}, e.reject(OpPlaceBet, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount))
	}
	if caller == "" {
		return Bet{}, e.reject(OpPlaceBet, fmt.Errorf("%w: user required", ErrUnauthorized))
	}
	betAddr := BetAddress(caller, p.UserSeed)
	wallet := WalletAddress(caller)

	var out Bet
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		h, err := loadHouse(ctx, tx, house, false)
		if err != nil {
			return err
		}

		_, err = tx.LoadBet(ctx, betAddr, true)
		if err == nil {
			return fmt.Errorf("%w: user %q already used seed %d (bet %s)", ErrDuplicateBet, caller, p.UserSeed, betAddr)
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}

		w, err := tx.LoadAccount(ctx, wallet, true)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: user %q has no wallet", ErrInsufficientUserFunds, caller)
		}
		if err != nil {
			return err
		}
		if w.Closed || w.Balance < p.Amount {
			return fmt.Errorf("%w: stake %d, wallet holds %d", ErrInsufficientUserFunds, p.Amount, w.Balance)
		}

		bal, err := bankrollBalance(ctx, tx, h, false)
		if err != nil {
			return err
		}
		if bal < p.Amount {
			return fmt.Errorf("%w: stake %d, bankroll holds %d", ErrInsufficientBankroll, p.Amount, bal)
		}

		escrow := EscrowAddress(betAddr)
		if err := tx.OpenAccount(ctx, escrow, string(betAddr)); err != nil {
			if errors.Is(err, ErrRecordExists) {
				return fmt.Errorf("%w: escrow %s already exists", ErrDuplicateBet, escrow)
			}
			return err
		}
		if err := tx.Transfer(ctx, p.Amount, wallet, escrow); err != nil {
			return transferFailed(fmt.Sprintf("stake %d from %s", p.Amount, wallet), err)
		}

		b := &Bet{
			Address:     betAddr,
			User:        caller,
			House:       h.Address,
			Amount:      p.Amount,
			UserGuess:   p.UserGuess,
			UserSeed:    p.UserSeed,
			Escrow:      escrow,
			UserAccount: wallet,
			CreatedAt:   e.now(),
		}
		if err := tx.InsertBet(ctx, b); err != nil {
			if errors.Is(err, ErrRecordExists) {
				return fmt.Errorf("%w: bet %s", ErrDuplicateBet, betAddr)
			}
			return err
		}
		out = *b
		return nil
	})
	if err != nil {
		return Bet{}, e.reject(OpPlaceBet, err)
	}
	if e.hooks.OnBetPlaced != nil {
		e.hooks.OnBetPlaced(out)
	}
	return out, nil
}

// SettleBet resolve a aposta com o house seed e move os fundos:
//   - usuário acertou: escrow -> usuário e bankroll -> usuário (stake de volta + prêmio), loss_count++
//   - usuário errou: escrow -> bankroll, win_count++
//
// Em seguida fecha o escrow e grava seed/resultado. Tudo numa transação só.
//
// Só a autoridade da house pode informar o house seed, qualquer que seja a
// SettlePermission. Outros chamadores usam SettleBetRandom.
func (e *Engine) SettleBet(ctx context.Context, caller string, bet Address, houseSeed uint64) (Settlement, error) {
	return e.settle(ctx, caller, bet, &houseSeed)
}

// SettleBetRandom liquida com um house seed sorteado pelo próprio Engine.
// É o caminho de quem não é a autoridade quando a política é SettleAnyone.
func (e *Engine) SettleBetRandom(ctx context.Context, caller string, bet Address) (Settlement, error) {
	return e.settle(ctx, caller, bet, nil)
}

// settle usa explicit quando informado; senão sorteia o seed depois das checagens de permissão
func (e *Engine) settle(ctx context.Context, caller string, bet Address, explicit *uint64) (Settlement, error) {
	var out Settlement
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		b, err := tx.LoadBet(ctx, bet, true)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: bet %s", ErrNotFound, bet)
		}
		if err != nil {
			return err
		}
		if b.Settled {
			return fmt.Errorf("%w: bet %s", ErrAlreadySettled, bet)
		}
		h, err := loadHouse(ctx, tx, b.House, true)
		if err != nil {
			return err
		}
		isAuthority := caller != "" && caller == h.Authority
		if e.perm == SettleAuthorityOnly && !isAuthority {
			return fmt.Errorf("%w: %q may not settle bets of house %s", ErrUnauthorized, caller, h.Address)
		}
		if explicit != nil && !isAuthority {
			return fmt.Errorf("%w: only the authority of house %s may supply a house seed", ErrUnauthorized, h.Address)
		}
		if caller == "" {
			return fmt.Errorf("%w: caller required", ErrUnauthorized)
		}
		var houseSeed uint64
		if explicit != nil {
			houseSeed = *explicit
		} else if houseSeed, err = e.seeds.Next(); err != nil {
			return fmt.Errorf("draw house seed: %w", err)
		}
		escrow, err := tx.LoadAccount(ctx, b.Escrow, true)
		if err != nil {
			return fmt.Errorf("load escrow %s: %w", b.Escrow, err)
		}
		if escrow.Balance != b.Amount {
			return fmt.Errorf("escrow %s holds %d, bet amount is %d", b.Escrow, escrow.Balance, b.Amount)
		}

		result := Resolve(b.UserSeed, houseSeed, b.Address)
		userWon := result == b.UserGuess

		var payout uint64
		if userWon {
			bal, err := bankrollBalance(ctx, tx, h, true)
			if err != nil {
				return err
			}
			if bal < b.Amount {
				return fmt.Errorf("%w: payout %d, bankroll holds %d", ErrInsufficientBankroll, b.Amount, bal)
			}
			if b.Amount > math.MaxUint64-b.Amount {
				return fmt.Errorf("%w: payout of bet %s overflows", ErrInvalidAmount, b.Address)
			}
			if h.LossCount == math.MaxUint64 {
				return fmt.Errorf("house %s loss counter overflow", h.Address)
			}
			if err := tx.Transfer(ctx, b.Amount, b.Escrow, b.UserAccount); err != nil {
				return transferFailed(fmt.Sprintf("refund stake of bet %s", b.Address), err)
			}
			if err := tx.Transfer(ctx, b.Amount, h.Bankroll, b.UserAccount); err != nil {
				return transferFailed(fmt.Sprintf("pay winnings of bet %s", b.Address), err)
			}
			h.LossCount++
			payout = 2 * b.Amount
		} else {
			if h.WinCount == math.MaxUint64 {
				return fmt.Errorf("house %s win counter overflow", h.Address)
			}
			if err := tx.Transfer(ctx, b.Amount, b.Escrow, h.Bankroll); err != nil {
				return transferFailed(fmt.Sprintf("collect stake of bet %s", b.Address), err)
			}
			h.WinCount++
		}

		if err := tx.CloseAccount(ctx, b.Escrow); err != nil {
			return fmt.Errorf("close escrow %s: %w", b.Escrow, err)
		}

		now := e.now()
		seed := houseSeed
		b.HouseSeed = &seed
		b.Result = &result
		b.Settled = true
		b.SettledAt = &now
		if err := tx.UpdateBet(ctx, b); err != nil {
			return err
		}
		h.UpdatedAt = now
		if err := tx.UpdateHouse(ctx, h); err != nil {
			return err
		}

		bal, err := bankrollBalance(ctx, tx, h, false)
		if err != nil {
			return err
		}
		out = Settlement{
			Bet:     *b,
			House:   HouseState{House: *h, BankrollBalance: bal},
			UserWon: userWon,
			Payout:  payout,
			Digest:  OutcomeDigestHex(b.UserSeed, houseSeed, b.Address),
		}
		return nil
	})
	if err != nil {
		return Settlement{}, e.reject(OpSettleBet, err)
	}
	if e.hooks.OnBetSettled != nil {
		e.hooks.OnBetSettled(out)
	}
	return out, nil
}

// House retorna a House com o saldo atual do bankroll
func (e *Engine) House(ctx context.Context, addr Address) (HouseState, error) {
	var out HouseState
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		h, err := loadHouse(ctx, tx, addr, false)
		if err != nil {
			return err
		}
		bal, err := bankrollBalance(ctx, tx, h, false)
		if err != nil {
			return err
		}
		out = HouseState{House: *h, BankrollBalance: bal}
		return nil
	})
	return out, err
}

func (e *Engine) Bet(ctx context.Context, addr Address) (Bet, error) {
	var out Bet
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		b, err := tx.LoadBet(ctx, addr, false)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: bet %s", ErrNotFound, addr)
		}
		if err != nil {
			return err
		}
		out = *b
		return nil
	})
	return out, err
}

func (e *Engine) Account(ctx context.Context, addr Address) (Account, error) {
	var out Account
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.LoadAccount(ctx, addr, false)
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("%w: account %s", ErrNotFound, addr)
		}
		if err != nil {
			return err
		}
		out = *a
		return nil
	})
	return out, err
}

// OpenWallet abre (ou retorna, se já existir) a carteira de tokens de owner
func (e *Engine) OpenWallet(ctx context.Context, owner string) (Account, error) {
	if owner == "" {
		return Account{}, e.reject(OpOpenWallet, fmt.Errorf("%w: owner required", ErrUnauthorized))
	}
	addr := WalletAddress(owner)

	var out Account
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		a, err := tx.LoadAccount(ctx, addr, false)
		if err == nil {
			out = *a
			return nil
		}
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		if err := tx.OpenAccount(ctx, addr, owner); err != nil {
			return err
		}
		out = Account{Address: addr, Owner: owner}
		return nil
	})
	if err != nil {
		return Account{}, e.reject(OpOpenWallet, err)
	}
	return out, nil
}

// Mint credita tokens vindos de fora do sistema (faucet / funding).
// É a única operação que cria valor.
func (e *Engine) Mint(ctx context.Context, to Address, amount uint64) (Account, error) {
	if amount == 0 {
		return Account{}, e.reject(OpMint, fmt.Errorf("%w: mint must be positive", ErrInvalidAmount))
	}

	var out Account
	err := e.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.Mint(ctx, to, amount); err != nil {
			if errors.Is(err, ErrNotFound) {
				return fmt.Errorf("%w: account %s", ErrNotFound, to)
			}
			return transferFailed(fmt.Sprintf("mint %d to %s", amount, to), err)
		}
		a, err := tx.LoadAccount(ctx, to, false)
		if err != nil {
			return err
		}
		out = *a
		return nil
	})
	if err != nil {
		return Account{}, e.reject(OpMint, err)
	}
	return out, nil
}
