package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/radieske/coinflip-house/internal/house-service/ledger"
)

// Metrics agrupa os coletores do ledger. Os valores vêm dos hooks do Engine,
// que só disparam depois do commit.
type Metrics struct {
	HousesInitialized prometheus.Counter
	BetsPlaced        prometheus.Counter
	StakedTokens      prometheus.Counter
	BetsSettled       *prometheus.CounterVec // outcome = user_won | house_won
	PayoutTokens      prometheus.Counter
	BankrollMoves     *prometheus.CounterVec // op = depositHouse | withdrawHouse
	BankrollBalance   *prometheus.GaugeVec   // house
	Rejections        *prometheus.CounterVec // op, kind
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HousesInitialized: prometheus.NewCounter(prometheus.CounterOpts{Name: "house_initialized_total", Help: "houses criadas"}),
		BetsPlaced:        prometheus.NewCounter(prometheus.CounterOpts{Name: "house_bets_placed_total", Help: "apostas aceitas"}),
		StakedTokens:      prometheus.NewCounter(prometheus.CounterOpts{Name: "house_staked_tokens_total", Help: "tokens travados em escrow"}),
		BetsSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_bets_settled_total", Help: "apostas liquidadas por resultado",
		}, []string{"outcome"}),
		PayoutTokens: prometheus.NewCounter(prometheus.CounterOpts{Name: "house_payout_tokens_total", Help: "tokens pagos a usuários vencedores"}),
		BankrollMoves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_bankroll_moves_total", Help: "depósitos e saques do bankroll",
		}, []string{"op"}),
		BankrollBalance: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "house_bankroll_balance_tokens", Help: "saldo do bankroll após a última operação",
		}, []string{"house"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "house_rejections_total", Help: "operações rejeitadas por tipo de erro",
		}, []string{"op", "kind"}),
	}
	reg.MustRegister(m.HousesInitialized, m.BetsPlaced, m.StakedTokens, m.BetsSettled,
		m.PayoutTokens, m.BankrollMoves, m.BankrollBalance, m.Rejections)
	return m
}

// Hooks liga as métricas ao Engine; next (opcional) é chamado depois de cada métrica
func (m *Metrics) Hooks(next ledger.Hooks) ledger.Hooks {
	return ledger.Hooks{
		OnHouseInitialized: func(h ledger.HouseState) {
			m.HousesInitialized.Inc()
			m.BankrollBalance.WithLabelValues(h.Address.String()).Set(float64(h.BankrollBalance))
			if next.OnHouseInitialized != nil {
				next.OnHouseInitialized(h)
			}
		},
		OnBankrollChanged: func(op string, amount uint64, h ledger.HouseState) {
			m.BankrollMoves.WithLabelValues(op).Inc()
			m.BankrollBalance.WithLabelValues(h.Address.String()).Set(float64(h.BankrollBalance))
			if next.OnBankrollChanged != nil {
				next.OnBankrollChanged(op, amount, h)
			}
		},
		OnBetPlaced: func(b ledger.Bet) {
			m.BetsPlaced.Inc()
			m.StakedTokens.Add(float64(b.Amount))
			if next.OnBetPlaced != nil {
				next.OnBetPlaced(b)
			}
		},
		OnBetSettled: func(s ledger.Settlement) {
			outcome := "house_won"
			if s.UserWon {
				outcome = "user_won"
			}
			m.BetsSettled.WithLabelValues(outcome).Inc()
			m.PayoutTokens.Add(float64(s.Payout))
			m.BankrollBalance.WithLabelValues(s.House.Address.String()).Set(float64(s.House.BankrollBalance))
			if next.OnBetSettled != nil {
				next.OnBetSettled(s)
			}
		},
		OnRejected: func(op string, err error) {
			m.Rejections.WithLabelValues(op, ledger.Kind(err)).Inc()
			if next.OnRejected != nil {
				next.OnRejected(op, err)
			}
		},
	}
}
