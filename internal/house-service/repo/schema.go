package repo

import (
	"context"
	"fmt"
)

// schema cria as tabelas usadas pelo Postgres store.
// Saldos e valores são BIGINT >= 0; seeds uint64 ficam com o mesmo padrão de bits em BIGINT.
const schema = `
CREATE TABLE IF NOT EXISTS token_accounts (
	address     TEXT PRIMARY KEY,
	owner       TEXT NOT NULL,
	balance     BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	closed      BOOLEAN NOT NULL DEFAULT FALSE,
	version     BIGINT NOT NULL DEFAULT 1,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS token_ledger (
	id            UUID PRIMARY KEY,
	from_account  TEXT REFERENCES token_accounts(address),
	to_account    TEXT NOT NULL REFERENCES token_accounts(address),
	amount        BIGINT NOT NULL CHECK (amount > 0),
	kind          TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS houses (
	address           TEXT PRIMARY KEY,
	pool              TEXT NOT NULL UNIQUE,
	authority         TEXT NOT NULL,
	bankroll_account  TEXT NOT NULL REFERENCES token_accounts(address),
	win_count         BIGINT NOT NULL DEFAULT 0,
	loss_count        BIGINT NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS bets (
	address         TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	house           TEXT NOT NULL REFERENCES houses(address),
	amount          BIGINT NOT NULL CHECK (amount > 0),
	user_guess      BOOLEAN NOT NULL,
	user_seed       BIGINT NOT NULL,
	escrow_account  TEXT NOT NULL REFERENCES token_accounts(address),
	user_account    TEXT NOT NULL REFERENCES token_accounts(address),
	settled         BOOLEAN NOT NULL DEFAULT FALSE,
	house_seed      BIGINT,
	result          BOOLEAN,
	created_at      TIMESTAMPTZ NOT NULL,
	settled_at      TIMESTAMPTZ,
	UNIQUE (user_id, user_seed),
	CHECK (settled = (house_seed IS NOT NULL AND result IS NOT NULL))
);

CREATE INDEX IF NOT EXISTS bets_house_open_idx ON bets(house) WHERE NOT settled;
`

// Migrate aplica o schema (idempotente)
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
