package dto

// InitializeHouseRequest cria a house do pool; a autoridade é o chamador (sub do JWT)
type InitializeHouseRequest struct {
	Pool string `json:"pool"`
}

// BankrollRequest serve para depósito (Account = origem) e saque (Account = destino).
// Account vazio usa a carteira do chamador.
type BankrollRequest struct {
	Amount  uint64 `json:"amount"`
	Account string `json:"account,omitempty"`
}

type PlaceBetRequest struct {
	UserSeed  uint64 `json:"user_seed"`
	Amount    uint64 `json:"amount"`
	UserGuess *bool  `json:"user_guess"` // true = heads, false = tails
}

// SettleBetRequest: sem house_seed o serviço sorteia uma
type SettleBetRequest struct {
	HouseSeed *uint64 `json:"house_seed,omitempty"`
}

type MintRequest struct {
	Amount uint64 `json:"amount"`
}
