package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// House
	HouseBankroll = "house_bankroll"

	// DLQs
	BetPlacedDLQ = "bet_placed_dlq"
)
