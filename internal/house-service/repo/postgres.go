package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
)

// Postgres implementa ledger.Store em banco Postgres
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// WithinTx abre uma transação, executa fn e faz commit; qualquer erro faz rollback.
// A serialização vem dos locks de linha (FOR UPDATE) pedidos pelo Engine.
func (p *Postgres) WithinTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(&pgTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

type pgTx struct{ tx *sql.Tx }

const uniqueViolation = "23505"

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ledger.ErrRecordExists, pqErr.Constraint)
	}
	return err
}

// toDB converte valores uint64 para BIGINT; acima de MaxInt64 não cabe no banco
func toDB(v uint64) (int64, error) {
	if v > math.MaxInt64 {
		return 0, fmt.Errorf("%w: %d exceeds storage range", ledger.ErrInvalidAmount, v)
	}
	return int64(v), nil
}

func forUpdate(lock bool) string {
	if lock {
		return " FOR UPDATE"
	}
	return ""
}

func (t *pgTx) LoadHouse(ctx context.Context, addr ledger.Address, lock bool) (*ledger.House, error) {
	var h ledger.House
	var win, loss int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT address, pool, authority, bankroll_account, win_count, loss_count, created_at, updated_at
		FROM houses WHERE address=$1`+forUpdate(lock), addr).
		Scan(&h.Address, &h.Pool, &h.Authority, &h.Bankroll, &win, &loss, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	h.WinCount, h.LossCount = uint64(win), uint64(loss)
	return &h, nil
}

func (t *pgTx) InsertHouse(ctx context.Context, h *ledger.House) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO houses(address, pool, authority, bankroll_account, win_count, loss_count, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8)`,
		h.Address, h.Pool, h.Authority, h.Bankroll, int64(h.WinCount), int64(h.LossCount), h.CreatedAt, h.UpdatedAt)
	return mapErr(err)
}

func (t *pgTx) UpdateHouse(ctx context.Context, h *ledger.House) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE houses SET win_count=$1, loss_count=$2, updated_at=$3 WHERE address=$4`,
		int64(h.WinCount), int64(h.LossCount), h.UpdatedAt, h.Address)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (t *pgTx) LoadBet(ctx context.Context, addr ledger.Address, lock bool) (*ledger.Bet, error) {
	var (
		b         ledger.Bet
		amount    int64
		userSeed  int64
		houseSeed sql.NullInt64
		result    sql.NullBool
		settledAt sql.NullTime
	)
	err := t.tx.QueryRowContext(ctx, `
		SELECT address, user_id, house, amount, user_guess, user_seed, escrow_account, user_account,
		       settled, house_seed, result, created_at, settled_at
		FROM bets WHERE address=$1`+forUpdate(lock), addr).
		Scan(&b.Address, &b.User, &b.House, &amount, &b.UserGuess, &userSeed, &b.Escrow, &b.UserAccount,
			&b.Settled, &houseSeed, &result, &b.CreatedAt, &settledAt)
	if err != nil {
		return nil, mapErr(err)
	}
	b.Amount = uint64(amount)
	b.UserSeed = uint64(userSeed)
	if houseSeed.Valid {
		v := uint64(houseSeed.Int64)
		b.HouseSeed = &v
	}
	if result.Valid {
		v := result.Bool
		b.Result = &v
	}
	if settledAt.Valid {
		v := settledAt.Time
		b.SettledAt = &v
	}
	return &b, nil
}

func (t *pgTx) InsertBet(ctx context.Context, b *ledger.Bet) error {
	amount, err := toDB(b.Amount)
	if err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO bets(address, user_id, house, amount, user_guess, user_seed, escrow_account, user_account, settled, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,FALSE,$9)`,
		b.Address, b.User, b.House, amount, b.UserGuess, int64(b.UserSeed), b.Escrow, b.UserAccount, b.CreatedAt)
	return mapErr(err)
}

func (t *pgTx) UpdateBet(ctx context.Context, b *ledger.Bet) error {
	var houseSeed sql.NullInt64
	if b.HouseSeed != nil {
		houseSeed = sql.NullInt64{Int64: int64(*b.HouseSeed), Valid: true}
	}
	var result sql.NullBool
	if b.Result != nil {
		result = sql.NullBool{Bool: *b.Result, Valid: true}
	}
	var settledAt sql.NullTime
	if b.SettledAt != nil {
		settledAt = sql.NullTime{Time: *b.SettledAt, Valid: true}
	}
	res, err := t.tx.ExecContext(ctx, `
		UPDATE bets SET settled=$1, house_seed=$2, result=$3, settled_at=$4 WHERE address=$5`,
		b.Settled, houseSeed, result, settledAt, b.Address)
	if err != nil {
		return mapErr(err)
	}
	return requireRow(res)
}

func (t *pgTx) LoadAccount(ctx context.Context, addr ledger.Address, lock bool) (*ledger.Account, error) {
	var a ledger.Account
	var bal int64
	err := t.tx.QueryRowContext(ctx, `
		SELECT address, owner, balance, closed FROM token_accounts WHERE address=$1`+forUpdate(lock), addr).
		Scan(&a.Address, &a.Owner, &bal, &a.Closed)
	if err != nil {
		return nil, mapErr(err)
	}
	a.Balance = uint64(bal)
	return &a, nil
}

func (t *pgTx) OpenAccount(ctx context.Context, addr ledger.Address, owner string) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO token_accounts(address, owner, balance, closed, version) VALUES($1,$2,0,FALSE,1)`, addr, owner)
	return mapErr(err)
}

// Transfer trava as duas contas em ordem de endereço (evita deadlock entre
// transferências cruzadas), valida, move o saldo e registra no token_ledger.
func (t *pgTx) Transfer(ctx context.Context, amount uint64, from, to ledger.Address) error {
	amt, err := toDB(amount)
	if err != nil {
		return err
	}
	first, second := from, to
	if second < first {
		first, second = second, first
	}
	locked := map[ledger.Address]*ledger.Account{}
	for _, addr := range []ledger.Address{first, second} {
		if _, ok := locked[addr]; ok {
			continue
		}
		a, err := t.LoadAccount(ctx, addr, true)
		if err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				return fmt.Errorf("%w: account %s", ledger.ErrNotFound, addr)
			}
			return err
		}
		locked[addr] = a
	}

	src, dst := locked[from], locked[to]
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

	if _, err := t.tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance - $1, version = version + 1 WHERE address=$2`, amt, from); err != nil {
		return err
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1, version = version + 1 WHERE address=$2`, amt, to); err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO token_ledger(id, from_account, to_account, amount, kind) VALUES($1,$2,$3,$4,'TRANSFER')`,
		uuid.New(), from, to, amt)
	return err
}

func (t *pgTx) CloseAccount(ctx context.Context, addr ledger.Address) error {
	a, err := t.LoadAccount(ctx, addr, true)
	if err != nil {
		return err
	}
	if a.Balance != 0 {
		return fmt.Errorf("close %s: balance %d is not zero", addr, a.Balance)
	}
	_, err = t.tx.ExecContext(ctx,
		`UPDATE token_accounts SET closed = TRUE, version = version + 1 WHERE address=$1`, addr)
	return err
}

func (t *pgTx) Mint(ctx context.Context, to ledger.Address, amount uint64) error {
	amt, err := toDB(amount)
	if err != nil {
		return err
	}
	a, err := t.LoadAccount(ctx, to, true)
	if err != nil {
		return err
	}
	if a.Closed {
		return fmt.Errorf("%w: %s", ledger.ErrAccountClosed, to)
	}
	if a.Balance > math.MaxInt64-amount {
		return fmt.Errorf("%w: balance of %s would exceed storage range", ledger.ErrInvalidAmount, to)
	}
	if _, err := t.tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1, version = version + 1 WHERE address=$2`, amt, to); err != nil {
		return err
	}
	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO token_ledger(id, from_account, to_account, amount, kind) VALUES($1,NULL,$2,$3,'MINT')`,
		uuid.New(), to, amt)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}
