package ledger

import "context"

// Store executa cada operação do Engine como uma unidade isolada e serializável.
// Se fn retornar erro, nada do que foi feito dentro dela fica visível.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx é a visão transacional dos registros. lock=true pede lock exclusivo
// (SELECT ... FOR UPDATE no Postgres) até o fim da transação.
type Tx interface {
	Accounts

	LoadHouse(ctx context.Context, addr Address, lock bool) (*House, error)
	InsertHouse(ctx context.Context, h *House) error
	UpdateHouse(ctx context.Context, h *House) error

	LoadBet(ctx context.Context, addr Address, lock bool) (*Bet, error)
	InsertBet(ctx context.Context, b *Bet) error
	UpdateBet(ctx context.Context, b *Bet) error
}

// Accounts é o contrato do serviço de transferência de tokens.
// Transfer é tudo-ou-nada: em caso de falha os dois saldos ficam intactos.
type Accounts interface {
	LoadAccount(ctx context.Context, addr Address, lock bool) (*Account, error)
	OpenAccount(ctx context.Context, addr Address, owner string) error
	Transfer(ctx context.Context, amount uint64, from, to Address) error
	CloseAccount(ctx context.Context, addr Address) error
	Mint(ctx context.Context, to Address, amount uint64) error
}
