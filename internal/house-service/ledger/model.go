package ledger

import "time"

// House é a conta do pool: autoridade, bankroll e contadores (perspectiva da house).
type House struct {
	Address   Address
	Pool      string
	Authority string
	Bankroll  Address
	WinCount  uint64 // house ganhou (usuário perdeu)
	LossCount uint64 // house perdeu (usuário ganhou)
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Settled retorna o total de apostas liquidadas por esta house
func (h House) Settled() uint64 { return h.WinCount + h.LossCount }

// HouseState junta a House com o saldo atual do bankroll
type HouseState struct {
	House
	BankrollBalance uint64
}

// Status de uma aposta, derivado de Settled/Result
const (
	BetStatusOpen     = "OPEN"
	BetStatusUserWon  = "USER_WON"
	BetStatusHouseWon = "HOUSE_WON"
)

// Bet é o registro de escrow de uma aposta em andamento ou liquidada.
// Settled == true se e somente se HouseSeed e Result estão presentes.
type Bet struct {
	Address     Address
	User        string
	House       Address
	Amount      uint64
	UserGuess   bool // true = heads, false = tails
	UserSeed    uint64
	Escrow      Address
	UserAccount Address
	Settled     bool
	HouseSeed   *uint64
	Result      *bool
	CreatedAt   time.Time
	SettledAt   *time.Time
}

// UserWon só faz sentido para apostas liquidadas
func (b Bet) UserWon() bool {
	return b.Settled && b.Result != nil && *b.Result == b.UserGuess
}

func (b Bet) Status() string {
	switch {
	case !b.Settled:
		return BetStatusOpen
	case b.UserWon():
		return BetStatusUserWon
	default:
		return BetStatusHouseWon
	}
}

// Account é um saldo de tokens. Owner é uma identidade (usuário/autoridade)
// ou o endereço de programa que custodia a conta (house para bankroll, bet para escrow).
type Account struct {
	Address Address
	Owner   string
	Balance uint64
	Closed  bool
}

// PlaceBetParams são os dados que o usuário compromete antes de conhecer o house seed
type PlaceBetParams struct {
	UserSeed  uint64
	Amount    uint64
	UserGuess bool
}

// Settlement descreve o resultado de SettleBet
type Settlement struct {
	Bet     Bet
	House   HouseState
	UserWon bool
	Payout  uint64 // o que o usuário recebeu (stake + prêmio), 0 se perdeu
	Digest  string
}
