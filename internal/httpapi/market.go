package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/market"
)

// MarketHandler serves /api/events/....
type MarketHandler struct {
	svc *market.Service
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(svc *market.Service) *MarketHandler {
	return &MarketHandler{svc: svc}
}

func eventIDParam(r *http.Request) string {
	return chi.URLParam(r, "eventId")
}

type createEventRequest struct {
	EventID      string    `json:"eventId"`
	Name         string    `json:"name"`
	Sport        string    `json:"sport"`
	Competition  string    `json:"competition"`
	StartTime    time.Time `json:"startTime"`
	Participants []string  `json:"participants"`
}

// CreateEvent handles POST /api/events.
func (h *MarketHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	if req.EventID == "" {
		RespondError(w, domain.ErrValidation("eventId is required"))
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req.EventID, market.CreateEventRequest{
		Name:         req.Name,
		Sport:        req.Sport,
		Competition:  req.Competition,
		StartTime:    req.StartTime,
		Participants: req.Participants,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, event)
}

// GetEvent handles GET /api/events/{eventId}.
func (h *MarketHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), eventIDParam(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, event)
}

type addMarketRequest struct {
	MarketID    string `json:"marketId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AddMarket handles POST /api/events/{eventId}/markets.
func (h *MarketHandler) AddMarket(w http.ResponseWriter, r *http.Request) {
	var req addMarketRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event, err := h.svc.AddMarket(r.Context(), eventIDParam(r), req.MarketID, req.Name, req.Description)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusCreated, event)
}

type transitionEventRequest struct {
	Status domain.EventStatus `json:"status"`
}

// TransitionEvent handles POST /api/events/{eventId}/transition.
func (h *MarketHandler) TransitionEvent(w http.ResponseWriter, r *http.Request) {
	var req transitionEventRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event, err := h.svc.TransitionEvent(r.Context(), eventIDParam(r), req.Status)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, event)
}

type transitionMarketRequest struct {
	Status domain.MarketStatus `json:"status"`
}

// TransitionMarket handles POST /api/events/{eventId}/markets/{marketId}/transition.
func (h *MarketHandler) TransitionMarket(w http.ResponseWriter, r *http.Request) {
	var req transitionMarketRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event, err := h.svc.TransitionMarket(r.Context(), eventIDParam(r), marketIDParam(r), req.Status)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, event)
}

type setMarketResultRequest struct {
	WinningSelectionID string `json:"winningSelectionId"`
	Voided             bool   `json:"voided"`
}

// SetMarketResult handles POST /api/events/{eventId}/markets/{marketId}/result.
func (h *MarketHandler) SetMarketResult(w http.ResponseWriter, r *http.Request) {
	var req setMarketResultRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	event, err := h.svc.SetMarketResult(r.Context(), eventIDParam(r), marketIDParam(r), req.WinningSelectionID, req.Voided)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, event)
}
