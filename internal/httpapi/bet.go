package httpapi

import (
	"crypto/sha256"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/domain"
)

// BetHandler serves /api/bets... and /api/users/{userId}/bets.
type BetHandler struct {
	svc   *bet.Service
	index *bet.IndexService
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(svc *bet.Service, index *bet.IndexService) *BetHandler {
	return &BetHandler{svc: svc, index: index}
}

type placeBetRequest struct {
	UserID         uuid.UUID `json:"userId"`
	EventID        uuid.UUID `json:"eventId"`
	MarketID       uuid.UUID `json:"marketId"`
	SelectionID    string    `json:"selectionId"`
	Stake          int64     `json:"stake"`
	Currency       string    `json:"currency"`
	AcceptableOdds string    `json:"acceptableOdds"`
	IdempotencyKey string    `json:"idempotencyKey,omitempty"`
}

type placeBetResponse struct {
	BetID           uuid.UUID        `json:"betId"`
	Status          domain.BetStatus `json:"status"`
	PotentialPayout domain.Money     `json:"potentialPayout"`
	ActualOdds      decimal.Decimal  `json:"actualOdds"`
}

// idempotentBetID derives a stable betId from an idempotency key, per the
// first-16-bytes-of-SHA-256(key) rule.
func idempotentBetID(key string) uuid.UUID {
	sum := sha256.Sum256([]byte(key))
	var id uuid.UUID
	copy(id[:], sum[:16])
	return id
}

// PlaceBet handles POST /api/bets.
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	var req placeBetRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	stake, err := domain.NewMoney(req.Stake, req.Currency)
	if err != nil {
		RespondError(w, err)
		return
	}
	acceptableOdds, err := decimal.NewFromString(req.AcceptableOdds)
	if err != nil {
		RespondError(w, domain.ErrValidation("invalid acceptableOdds"))
		return
	}

	betID := uuid.New()
	if req.IdempotencyKey != "" {
		betID = idempotentBetID(req.IdempotencyKey)
	}

	result, err := h.svc.PlaceBet(r.Context(), domain.PlaceBetRequest{
		BetID:          betID,
		UserID:         req.UserID,
		EventID:        req.EventID,
		MarketID:       req.MarketID,
		SelectionID:    req.SelectionID,
		Amount:         stake,
		AcceptableOdds: acceptableOdds,
		Type:           domain.BetTypeSingle,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	if !result.Idempotent {
		if err := h.index.AddBet(r.Context(), req.UserID, betID); err != nil {
			RespondError(w, err)
			return
		}
	}

	payout, err := result.Bet.PotentialPayout()
	if err != nil {
		RespondError(w, err)
		return
	}

	status := http.StatusCreated
	if result.Idempotent {
		status = http.StatusOK
	}
	RespondJSON(w, status, placeBetResponse{
		BetID:           result.Bet.ID,
		Status:          result.Bet.Status,
		PotentialPayout: payout,
		ActualOdds:      result.Bet.Odds,
	})
}

func betIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "betId"))
	if err != nil {
		return uuid.UUID{}, domain.ErrValidation("invalid bet id")
	}
	return id, nil
}

// GetBet handles GET /api/bets/{betId}.
func (h *BetHandler) GetBet(w http.ResponseWriter, r *http.Request) {
	betID, err := betIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	b, err := h.svc.GetBet(r.Context(), betID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, b)
}

type voidBetRequest struct {
	Reason string `json:"reason"`
}

// VoidBet handles POST /api/bets/{betId}/void.
func (h *BetHandler) VoidBet(w http.ResponseWriter, r *http.Request) {
	betID, err := betIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	var req voidBetRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	b, err := h.svc.VoidBet(r.Context(), betID, req.Reason)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, b)
}

type cashOutResponse struct {
	PayoutAmount domain.Money `json:"payoutAmount"`
	Fees         domain.Money `json:"fees"`
	CashedOutAt  string       `json:"cashedOutAt"`
}

// CashOut handles POST /api/bets/{betId}/cashout.
func (h *BetHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	betID, err := betIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	result, err := h.svc.CashOut(r.Context(), betID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, cashOutResponse{
		PayoutAmount: result.Payout,
		Fees:         result.Fees,
		CashedOutAt:  result.CashedOutAt.Format(time.RFC3339Nano),
	})
}

type userBetsResponse struct {
	Bets        []domain.Bet `json:"bets"`
	TotalCount  int          `json:"totalCount"`
	Page        int          `json:"page"`
	HasNextPage bool         `json:"hasNextPage"`
}

// UserBets handles GET /api/users/{userId}/bets?page=&pageSize=.
func (h *BetHandler) UserBets(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := 20
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}

	all, err := h.index.GetBetHistory(r.Context(), userID, page*pageSize+1)
	if err != nil {
		RespondError(w, err)
		return
	}

	start := (page - 1) * pageSize
	if start > len(all) {
		start = len(all)
	}
	end := start + pageSize
	hasNext := false
	if end < len(all) {
		hasNext = true
	}
	if end > len(all) {
		end = len(all)
	}

	RespondJSON(w, http.StatusOK, userBetsResponse{
		Bets:        all[start:end],
		TotalCount:  len(all),
		Page:        page,
		HasNextPage: hasNext,
	})
}
