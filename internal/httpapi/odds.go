package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/odds"
)

// OddsHandler serves /api/odds/{marketId}....
type OddsHandler struct {
	svc *odds.Service
}

// NewOddsHandler creates an OddsHandler.
func NewOddsHandler(svc *odds.Service) *OddsHandler {
	return &OddsHandler{svc: svc}
}

func marketIDParam(r *http.Request) string {
	return chi.URLParam(r, "marketId")
}

// GetOdds handles GET /api/odds/{marketId}.
func (h *OddsHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.svc.GetSnapshot(r.Context(), marketIDParam(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, snapshot)
}

type initializeMarketRequest struct {
	InitialOdds map[string]string `json:"initialOdds"`
	Source      string            `json:"source"`
}

// InitializeMarket handles POST /api/odds/{marketId}/initialize, the
// mandatory first call on a market's odds before any updateOdds call is
// accepted (§4.5).
func (h *OddsHandler) InitializeMarket(w http.ResponseWriter, r *http.Request) {
	marketID := marketIDParam(r)

	var req initializeMarketRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	initialOdds := make(map[string]decimal.Decimal, len(req.InitialOdds))
	for selection, raw := range req.InitialOdds {
		dec, err := decimal.NewFromString(raw)
		if err != nil {
			RespondError(w, domain.ErrValidation("invalid odds value for selection "+selection))
			return
		}
		initialOdds[selection] = dec
	}

	snapshot, err := h.svc.InitializeMarket(r.Context(), marketID, initialOdds, req.Source)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, snapshot)
}

type updateOddsRequest struct {
	SelectionOdds map[string]string `json:"selectionOdds"`
	Source        string            `json:"source"`
	Reason        string            `json:"reason"`
	UpdatedBy     string            `json:"updatedBy"`
}

// UpdateOdds handles PUT /api/odds/{marketId}.
func (h *OddsHandler) UpdateOdds(w http.ResponseWriter, r *http.Request) {
	marketID := marketIDParam(r)

	var req updateOddsRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}

	selectionOdds := make(map[string]decimal.Decimal, len(req.SelectionOdds))
	for selection, raw := range req.SelectionOdds {
		dec, err := decimal.NewFromString(raw)
		if err != nil {
			RespondError(w, domain.ErrValidation("invalid odds value for selection "+selection))
			return
		}
		selectionOdds[selection] = dec
	}

	snapshot, err := h.svc.UpdateOdds(r.Context(), marketID, domain.UpdateOddsRequest{
		MarketID:      marketID,
		SelectionOdds: selectionOdds,
		Source:        req.Source,
		Reason:        req.Reason,
		UpdatedBy:     req.UpdatedBy,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, snapshot)
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

// Suspend handles POST /api/odds/{marketId}/suspend.
func (h *OddsHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	marketID := marketIDParam(r)
	var req suspendRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	snapshot, err := h.svc.Suspend(r.Context(), marketID, req.Reason)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, snapshot)
}

// Resume handles POST /api/odds/{marketId}/resume.
func (h *OddsHandler) Resume(w http.ResponseWriter, r *http.Request) {
	marketID := marketIDParam(r)
	var req suspendRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	snapshot, err := h.svc.Resume(r.Context(), marketID, req.Reason)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, snapshot)
}

type selectionLockRequest struct {
	SelectionID string    `json:"selectionId"`
	BetID       uuid.UUID `json:"betId"`
}

// Lock handles POST /api/odds/{marketId}/lock, locking one selection's
// current price against a specific bet, per the reservation protocol used
// during bet placement (§4.5, §4.6).
func (h *OddsHandler) Lock(w http.ResponseWriter, r *http.Request) {
	marketID := marketIDParam(r)
	var req selectionLockRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	locked, err := h.svc.LockSelection(r.Context(), marketID, req.SelectionID, req.BetID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, locked)
}

// Unlock handles POST /api/odds/{marketId}/unlock.
func (h *OddsHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	marketID := marketIDParam(r)
	var req selectionLockRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if err := h.svc.UnlockSelection(r.Context(), marketID, req.SelectionID, req.BetID); err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, nil)
}
