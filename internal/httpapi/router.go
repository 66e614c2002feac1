package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/httpapi/auth"
	"github.com/attaboy/ledger/internal/market"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/wallet"
)

// RouterDeps holds everything NewRouter needs to assemble the contract
// layer over the actor services.
type RouterDeps struct {
	Wallet             *wallet.Service
	Bet                *bet.Service
	BetIndex           *bet.IndexService
	Odds               *odds.Service
	Market             *market.Service
	AuthManager        *auth.Manager
	Logger             *slog.Logger
	CORSAllowedOrigins string
}

// NewRouter assembles the chi.Router serving the ledger's HTTP contract
// (§6), wiring every domain service behind its thin handler and a single
// bearer-auth realm.
func NewRouter(deps RouterDeps) chi.Router {
	walletHandler := NewWalletHandler(deps.Wallet)
	betHandler := NewBetHandler(deps.Bet, deps.BetIndex)
	oddsHandler := NewOddsHandler(deps.Odds)
	marketHandler := NewMarketHandler(deps.Market)

	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))
	r.Use(RequestID)
	r.Use(RequestLogger(deps.Logger))
	r.Use(CORSWithOrigins(deps.CORSAllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Authenticate(deps.AuthManager))

		r.Route("/wallet/{userId}", func(r chi.Router) {
			r.Post("/deposit", walletHandler.Deposit)
			r.Post("/withdraw", walletHandler.Withdraw)
			r.Get("/balance", walletHandler.Balance)
			r.Get("/transactions", walletHandler.TransactionHistory)
			r.Get("/ledger", walletHandler.LedgerEntries)
		})

		r.Route("/bets", func(r chi.Router) {
			r.With(RateLimitByUser(30, time.Minute)).Post("/", betHandler.PlaceBet)
			r.Route("/{betId}", func(r chi.Router) {
				r.Get("/", betHandler.GetBet)
				r.Post("/void", betHandler.VoidBet)
				r.Post("/cashout", betHandler.CashOut)
			})
		})

		r.Get("/users/{userId}/bets", betHandler.UserBets)

		r.Route("/odds/{marketId}", func(r chi.Router) {
			r.Post("/initialize", oddsHandler.InitializeMarket)
			r.Get("/", oddsHandler.GetOdds)
			r.Put("/", oddsHandler.UpdateOdds)
			r.Post("/suspend", oddsHandler.Suspend)
			r.Post("/resume", oddsHandler.Resume)
			r.Post("/lock", oddsHandler.Lock)
			r.Post("/unlock", oddsHandler.Unlock)
		})

		r.Route("/events", func(r chi.Router) {
			r.Post("/", marketHandler.CreateEvent)
			r.Route("/{eventId}", func(r chi.Router) {
				r.Get("/", marketHandler.GetEvent)
				r.Post("/transition", marketHandler.TransitionEvent)
				r.Post("/markets", marketHandler.AddMarket)
				r.Route("/markets/{marketId}", func(r chi.Router) {
					r.Post("/transition", marketHandler.TransitionMarket)
					r.Post("/result", marketHandler.SetMarketResult)
				})
			})
		})
	})

	return r
}
