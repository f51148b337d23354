package events

import "time"

// Evento emitido após a liquidação de uma aposta (house-service ou settlement-worker).
type BetSettled struct {
	BetAddress string    `json:"bet_address"`
	House      string    `json:"house"`
	UserID     string    `json:"user_id"`
	Amount     uint64    `json:"amount"`
	UserGuess  bool      `json:"user_guess"`
	UserSeed   uint64    `json:"user_seed"`
	HouseSeed  uint64    `json:"house_seed"`
	Result     bool      `json:"result"`
	UserWon    bool      `json:"user_won"`
	Payout     uint64    `json:"payout"`
	Digest     string    `json:"digest"`
	WinCount   uint64    `json:"win_count"`
	LossCount  uint64    `json:"loss_count"`
	SettledBy  string    `json:"settled_by"`
	Ts         time.Time `json:"ts"`
}
