package dto

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type HouseResponse struct {
	Address         string    `json:"address"`
	Pool            string    `json:"pool"`
	Authority       string    `json:"authority"`
	Bankroll        string    `json:"bankroll"`
	BankrollBalance uint64    `json:"bankroll_balance"`
	BankrollDisplay string    `json:"bankroll_display"`
	WinCount        uint64    `json:"win_count"`
	LossCount       uint64    `json:"loss_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// StatsResponse é o resumo cacheado em Redis (GET /houses/{house}/stats)
type StatsResponse struct {
	House           string `json:"house"`
	WinCount        uint64 `json:"win_count"`
	LossCount       uint64 `json:"loss_count"`
	Settled         uint64 `json:"settled"`
	HouseWinRate    string `json:"house_win_rate"`
	BankrollBalance uint64 `json:"bankroll_balance"`
	BankrollDisplay string `json:"bankroll_display"`
}

type BetResponse struct {
	Address       string     `json:"address"`
	User          string     `json:"user"`
	House         string     `json:"house"`
	Amount        uint64     `json:"amount"`
	AmountDisplay string     `json:"amount_display"`
	UserGuess     bool       `json:"user_guess"`
	UserSeed      uint64     `json:"user_seed"`
	Escrow        string     `json:"escrow"`
	Status        string     `json:"status"`
	Settled       bool       `json:"settled"`
	HouseSeed     *uint64    `json:"house_seed,omitempty"`
	Result        *bool      `json:"result,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

type SettlementResponse struct {
	Bet           BetResponse   `json:"bet"`
	House         HouseResponse `json:"house"`
	UserWon       bool          `json:"user_won"`
	Payout        uint64        `json:"payout"`
	PayoutDisplay string        `json:"payout_display"`
	Digest        string        `json:"digest"`
}

type AccountResponse struct {
	Address        string `json:"address"`
	Owner          string `json:"owner"`
	Balance        uint64 `json:"balance"`
	BalanceDisplay string `json:"balance_display"`
	Closed         bool   `json:"closed"`
}

// Display formata unidades base como decimal com a quantidade de casas do token
func Display(v uint64, decimals int32) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), -decimals).StringFixed(decimals)
}

// WinRate é win_count / settled com 4 casas ("0.0000" quando não há liquidações)
func WinRate(win, settled uint64) string {
	if settled == 0 {
		return decimal.Zero.StringFixed(4)
	}
	w := decimal.NewFromBigInt(new(big.Int).SetUint64(win), 0)
	s := decimal.NewFromBigInt(new(big.Int).SetUint64(settled), 0)
	return w.DivRound(s, 4).StringFixed(4)
}

func FromHouse(h ledger.HouseState, decimals int32) HouseResponse {
	return HouseResponse{
		Address:         h.Address.String(),
		Pool:            h.Pool,
		Authority:       h.Authority,
		Bankroll:        h.Bankroll.String(),
		BankrollBalance: h.BankrollBalance,
		BankrollDisplay: Display(h.BankrollBalance, decimals),
		WinCount:        h.WinCount,
		LossCount:       h.LossCount,
		UpdatedAt:       h.UpdatedAt,
	}
}

func StatsFromHouse(h ledger.HouseState, decimals int32) StatsResponse {
	settled := h.Settled()
	return StatsResponse{
		House:           h.Address.String(),
		WinCount:        h.WinCount,
		LossCount:       h.LossCount,
		Settled:         settled,
		HouseWinRate:    WinRate(h.WinCount, settled),
		BankrollBalance: h.BankrollBalance,
		BankrollDisplay: Display(h.BankrollBalance, decimals),
	}
}

func FromBet(b ledger.Bet, decimals int32) BetResponse {
	return BetResponse{
		Address:       b.Address.String(),
		User:          b.User,
		House:         b.House.String(),
		Amount:        b.Amount,
		AmountDisplay: Display(b.Amount, decimals),
		UserGuess:     b.UserGuess,
		UserSeed:      b.UserSeed,
		Escrow:        b.Escrow.String(),
		Status:        b.Status(),
		Settled:       b.Settled,
		HouseSeed:     b.HouseSeed,
		Result:        b.Result,
		CreatedAt:     b.CreatedAt,
		SettledAt:     b.SettledAt,
	}
}

func FromSettlement(s ledger.Settlement, decimals int32) SettlementResponse {
	return SettlementResponse{
		Bet:           FromBet(s.Bet, decimals),
		House:         FromHouse(s.House, decimals),
		UserWon:       s.UserWon,
		Payout:        s.Payout,
		PayoutDisplay: Display(s.Payout, decimals),
		Digest:        s.Digest,
	}
}

func FromAccount(a ledger.Account, decimals int32) AccountResponse {
	return AccountResponse{
		Address:        a.Address.String(),
		Owner:          a.Owner,
		Balance:        a.Balance,
		BalanceDisplay: Display(a.Balance, decimals),
		Closed:         a.Closed,
	}
}
