package events

import "time"

// HouseBankroll registra depósitos e saques no bankroll da house
type HouseBankroll struct {
	House     string    `json:"house"`
	Operation string    `json:"operation"` // "depositHouse" | "withdrawHouse"
	Amount    uint64    `json:"amount"`
	Balance   uint64    `json:"balance"`
	Ts        time.Time `json:"ts"`
}
