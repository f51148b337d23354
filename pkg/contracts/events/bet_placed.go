package events

// BetPlaced é publicado pelo house-service depois que o stake está no escrow.
// O settlement-worker consome este evento para liquidar a aposta.
type BetPlaced struct {
	BetAddress string `json:"bet_address"`
	House      string `json:"house"`
	UserID     string `json:"user_id"`
	Amount     uint64 `json:"amount"`
	UserGuess  bool   `json:"user_guess"` // true = heads
	UserSeed   uint64 `json:"user_seed"`
	Escrow     string `json:"escrow"`
	TsUnixMs   int64  `json:"ts_unix_ms"`
}
