package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/radieske/coinflip-house/internal/house-service/dto"
	"github.com/radieske/coinflip-house/internal/house-service/ledger"
	"github.com/radieske/coinflip-house/internal/house-service/producer"
	"github.com/radieske/coinflip-house/internal/shared/auth"
	"github.com/radieske/coinflip-house/internal/shared/logger"
	"github.com/radieske/coinflip-house/pkg/contracts/events"
)

// Engine é o que os handlers usam do ledger.Engine
type Engine interface {
	InitializeHouse(ctx context.Context, authority, pool string) (ledger.HouseState, error)
	DepositHouse(ctx context.Context, caller string, house, source ledger.Address, amount uint64) (ledger.HouseState, error)
	WithdrawHouse(ctx context.Context, caller string, house, destination ledger.Address, amount uint64) (ledger.HouseState, error)
	PlaceBet(ctx context.Context, caller string, house ledger.Address, p ledger.PlaceBetParams) (ledger.Bet, error)
	SettleBet(ctx context.Context, caller string, bet ledger.Address, houseSeed uint64) (ledger.Settlement, error)
	SettleBetRandom(ctx context.Context, caller string, bet ledger.Address) (ledger.Settlement, error)
	House(ctx context.Context, addr ledger.Address) (ledger.HouseState, error)
	Bet(ctx context.Context, addr ledger.Address) (ledger.Bet, error)
	Account(ctx context.Context, addr ledger.Address) (ledger.Account, error)
	OpenWallet(ctx context.Context, owner string) (ledger.Account, error)
	Mint(ctx context.Context, to ledger.Address, amount uint64) (ledger.Account, error)
}

type Publisher interface {
	PublishBetPlaced(context.Context, events.BetPlaced) error
	PublishBetSettled(context.Context, events.BetSettled) error
	PublishHouseBankroll(context.Context, events.HouseBankroll) error
}

type StatsCache interface {
	Get(ctx context.Context, house string) (dto.StatsResponse, bool, error)
	Set(ctx context.Context, st dto.StatsResponse) error
	Invalidate(ctx context.Context, house string) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, e events.BetSettled) error
}

type Authenticator interface {
	Middleware(next http.Handler) http.Handler
}

// Server expõe a API REST da house. Publisher, Cache e Broadcaster são opcionais.
type Server struct {
	Log           *zap.Logger
	Engine        Engine
	Auth          Authenticator
	Publisher     Publisher
	Cache         StatsCache
	Broadcaster   Broadcaster
	Feed          http.Handler // WebSocket de liquidações ao vivo (público)
	MintAuthority string       // vazio desliga o mint
	Decimals      int32
}

// Router retorna o roteador chi; tudo exceto /feed exige bearer token
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.Recoverer)

	if s.Feed != nil {
		r.Handle("/feed", s.Feed)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.Auth.Middleware)

		r.Post("/houses", s.initializeHouse)
		r.Get("/houses/{house}", s.getHouse)
		r.Get("/houses/{house}/stats", s.getStats)
		r.Post("/houses/{house}/deposit", s.deposit)
		r.Post("/houses/{house}/withdraw", s.withdraw)
		r.Post("/houses/{house}/bets", s.placeBet)

		r.Get("/bets/{bet}", s.getBet)
		r.Post("/bets/{bet}/settle", s.settleBet)

		r.Post("/wallets", s.openWallet)
		r.Get("/wallets/{address}", s.getWallet)
		r.Post("/wallets/{address}/mint", s.mint)
	})
	return r
}

const headerRequestID = "X-Request-ID"

// requestID propaga (ou gera) o X-Request-ID de cada chamada
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) initializeHouse(w http.ResponseWriter, r *http.Request) {
	var req dto.InitializeHouseRequest
	if !s.decode(w, r, &req) {
		return
	}
	caller := auth.Identity(r.Context())
	h, err := s.Engine.InitializeHouse(r.Context(), caller, req.Pool)
	if err != nil {
		s.fail(w, r, ledger.OpInitializeHouse, err)
		return
	}
	s.Log.Info("house initialized", zap.String("house", h.Address.String()), zap.String("pool", h.Pool),
		zap.String("authority", caller))
	writeJSON(w, http.StatusCreated, dto.FromHouse(h, s.Decimals))
}

func (s *Server) getHouse(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "house"))
	if err != nil {
		s.fail(w, r, "getHouse", err)
		return
	}
	h, err := s.Engine.House(r.Context(), addr)
	if err != nil {
		s.fail(w, r, "getHouse", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromHouse(h, s.Decimals))
}

// getStats lê do cache e, em miss, consulta o ledger e preenche o cache
func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "house"))
	if err != nil {
		s.fail(w, r, "getStats", err)
		return
	}
	if s.Cache != nil {
		st, ok, err := s.Cache.Get(r.Context(), addr.String())
		if err != nil {
			s.Log.Warn("stats cache get failed", zap.Error(err))
		}
		if ok {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	h, err := s.Engine.House(r.Context(), addr)
	if err != nil {
		s.fail(w, r, "getStats", err)
		return
	}
	st := dto.StatsFromHouse(h, s.Decimals)
	if s.Cache != nil {
		if err := s.Cache.Set(r.Context(), st); err != nil {
			s.Log.Warn("stats cache set failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deposit(w http.ResponseWriter, r *http.Request) {
	s.moveBankroll(w, r, ledger.OpDepositHouse, s.Engine.DepositHouse)
}

func (s *Server) withdraw(w http.ResponseWriter, r *http.Request) {
	s.moveBankroll(w, r, ledger.OpWithdrawHouse, s.Engine.WithdrawHouse)
}

type bankrollFunc func(ctx context.Context, caller string, house, account ledger.Address, amount uint64) (ledger.HouseState, error)

// moveBankroll trata depósito e saque, que só diferem no sentido da transferência
func (s *Server) moveBankroll(w http.ResponseWriter, r *http.Request, op string, fn bankrollFunc) {
	house, err := ledger.ParseAddress(chi.URLParam(r, "house"))
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	var req dto.BankrollRequest
	if !s.decode(w, r, &req) {
		return
	}
	var account ledger.Address
	if req.Account != "" {
		if account, err = ledger.ParseAddress(req.Account); err != nil {
			s.fail(w, r, op, err)
			return
		}
	}

	h, err := fn(r.Context(), auth.Identity(r.Context()), house, account, req.Amount)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.Log.Info("bankroll moved", logger.Op(op), logger.Amount(req.Amount),
		zap.String("house", h.Address.String()), zap.Uint64("balance", h.BankrollBalance))
	s.invalidate(r.Context(), h.Address)
	if s.Publisher != nil {
		if err := s.Publisher.PublishHouseBankroll(r.Context(), producer.HouseBankrollEvent(op, req.Amount, h)); err != nil {
			s.Log.Warn("publish house_bankroll failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, dto.FromHouse(h, s.Decimals))
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	house, err := ledger.ParseAddress(chi.URLParam(r, "house"))
	if err != nil {
		s.fail(w, r, ledger.OpPlaceBet, err)
		return
	}
	var req dto.PlaceBetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.UserGuess == nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "BadRequest", Message: "user_guess required"})
		return
	}

	b, err := s.Engine.PlaceBet(r.Context(), auth.Identity(r.Context()), house, ledger.PlaceBetParams{
		UserSeed:  req.UserSeed,
		Amount:    req.Amount,
		UserGuess: *req.UserGuess,
	})
	if err != nil {
		s.fail(w, r, ledger.OpPlaceBet, err)
		return
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishBetPlaced(r.Context(), producer.BetPlacedEvent(b)); err != nil {
			s.Log.Warn("publish bet_placed failed", zap.String("bet", b.Address.String()), zap.Error(err))
		}
	}
	writeJSON(w, http.StatusCreated, dto.FromBet(b, s.Decimals))
}

func (s *Server) getBet(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "bet"))
	if err != nil {
		s.fail(w, r, "getBet", err)
		return
	}
	b, err := s.Engine.Bet(r.Context(), addr)
	if err != nil {
		s.fail(w, r, "getBet", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromBet(b, s.Decimals))
}

func (s *Server) settleBet(w http.ResponseWriter, r *http.Request) {
	bet, err := ledger.ParseAddress(chi.URLParam(r, "bet"))
	if err != nil {
		s.fail(w, r, ledger.OpSettleBet, err)
		return
	}
	// corpo vazio é aceito
	var req dto.SettleBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "BadRequest", Message: "bad json: " + err.Error()})
		return
	}

	// house_seed explícito é exclusivo da autoridade; sem ele o Engine sorteia
	caller := auth.Identity(r.Context())
	var st ledger.Settlement
	if req.HouseSeed != nil {
		st, err = s.Engine.SettleBet(r.Context(), caller, bet, *req.HouseSeed)
	} else {
		st, err = s.Engine.SettleBetRandom(r.Context(), caller, bet)
	}
	if err != nil {
		s.fail(w, r, ledger.OpSettleBet, err)
		return
	}
	s.Log.Info("bet settled", zap.String("bet", bet.String()), zap.Bool("user_won", st.UserWon),
		zap.Uint64("payout", st.Payout), zap.String("settled_by", caller))

	s.invalidate(r.Context(), st.House.Address)
	ev := producer.BetSettledEvent(st, caller)
	if s.Publisher != nil {
		if err := s.Publisher.PublishBetSettled(r.Context(), ev); err != nil {
			s.Log.Warn("publish bet_settled failed", zap.String("bet", bet.String()), zap.Error(err))
		}
	}
	if s.Broadcaster != nil {
		if err := s.Broadcaster.Broadcast(r.Context(), ev); err != nil {
			s.Log.Warn("settlement broadcast failed", zap.Error(err))
		}
	}
	writeJSON(w, http.StatusOK, dto.FromSettlement(st, s.Decimals))
}

func (s *Server) openWallet(w http.ResponseWriter, r *http.Request) {
	a, err := s.Engine.OpenWallet(r.Context(), auth.Identity(r.Context()))
	if err != nil {
		s.fail(w, r, ledger.OpOpenWallet, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromAccount(a, s.Decimals))
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	addr, err := ledger.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, "getWallet", err)
		return
	}
	a, err := s.Engine.Account(r.Context(), addr)
	if err != nil {
		s.fail(w, r, "getWallet", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromAccount(a, s.Decimals))
}

// mint credita tokens novos; só a identidade configurada em MINT_AUTHORITY pode chamar
func (s *Server) mint(w http.ResponseWriter, r *http.Request) {
	caller := auth.Identity(r.Context())
	if s.MintAuthority == "" || caller != s.MintAuthority {
		s.fail(w, r, ledger.OpMint, ledger.ErrUnauthorized)
		return
	}
	addr, err := ledger.ParseAddress(chi.URLParam(r, "address"))
	if err != nil {
		s.fail(w, r, ledger.OpMint, err)
		return
	}
	var req dto.MintRequest
	if !s.decode(w, r, &req) {
		return
	}
	a, err := s.Engine.Mint(r.Context(), addr, req.Amount)
	if err != nil {
		s.fail(w, r, ledger.OpMint, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.FromAccount(a, s.Decimals))
}

func (s *Server) invalidate(ctx context.Context, house ledger.Address) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, house.String()); err != nil {
		s.Log.Warn("stats cache invalidate failed", zap.String("house", house.String()), zap.Error(err))
	}
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "BadRequest", Message: "bad json: " + err.Error()})
		return false
	}
	return true
}

// StatusFor mapeia a categoria do erro de domínio para o status HTTP
func StatusFor(kind string) int {
	switch kind {
	case "InvalidAmount":
		return http.StatusBadRequest
	case "Unauthorized":
		return http.StatusForbidden
	case "NotFound":
		return http.StatusNotFound
	case "AlreadyInitialized", "DuplicateBet", "AlreadySettled":
		return http.StatusConflict
	case "InsufficientBankroll", "InsufficientUserFunds", "TransferFailed":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := ledger.Kind(err)
	status := StatusFor(kind)
	fields := []zap.Field{
		logger.Op(op),
		zap.String("kind", kind),
		zap.String("request_id", w.Header().Get(headerRequestID)),
		zap.Error(err),
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.Log.Error("operation failed", fields...)
		msg = "internal error"
		if errors.Is(r.Context().Err(), context.Canceled) {
			msg = "request canceled"
		}
	} else {
		s.Log.Info("operation rejected", fields...)
	}
	writeJSON(w, status, dto.ErrorResponse{Error: kind, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
