package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/wallet"
)

// WalletHandler serves /api/wallet/{userId}/....
type WalletHandler struct {
	svc *wallet.Service
}

// NewWalletHandler creates a WalletHandler.
func NewWalletHandler(svc *wallet.Service) *WalletHandler {
	return &WalletHandler{svc: svc}
}

type moneyRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transactionId"`
}

type walletMoveResponse struct {
	Transaction domain.WalletTransaction `json:"transaction"`
	NewBalance  domain.WalletSnapshot    `json:"newBalance"`
}

func userIDParam(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "userId"))
	if err != nil {
		return uuid.UUID{}, domain.ErrValidation("invalid user id")
	}
	return id, nil
}

// Deposit handles POST /api/wallet/{userId}/deposit.
func (h *WalletHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req moneyRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	amount, err := domain.NewMoney(req.Amount, req.Currency)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.svc.Deposit(r.Context(), userID, domain.DepositParams{
		Amount:      amount,
		ReferenceID: req.TransactionID,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, walletMoveResponse{Transaction: result.Transaction, NewBalance: result.Snapshot})
}

// Withdraw handles POST /api/wallet/{userId}/withdraw.
func (h *WalletHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	var req moneyRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondError(w, domain.ErrValidation("invalid request body"))
		return
	}
	amount, err := domain.NewMoney(req.Amount, req.Currency)
	if err != nil {
		RespondError(w, err)
		return
	}

	result, err := h.svc.Withdraw(r.Context(), userID, domain.WithdrawParams{
		Amount:      amount,
		ReferenceID: req.TransactionID,
	})
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, walletMoveResponse{Transaction: result.Transaction, NewBalance: result.Snapshot})
}

type balanceResponse struct {
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
	AvailableAmount int64  `json:"availableAmount"`
}

// Balance handles GET /api/wallet/{userId}/balance.
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}

	snapshot, err := h.svc.GetBalance(r.Context(), userID)
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, balanceResponse{
		Amount:          snapshot.Balance.Amount(),
		Currency:        snapshot.Currency,
		AvailableAmount: snapshot.Available.Amount(),
	})
}

// historyLimit parses the optional ?limit= query parameter, defaulting to
// unlimited when absent or invalid.
func historyLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil {
		return 0
	}
	return limit
}

// TransactionHistory handles GET /api/wallet/{userId}/transactions.
func (h *WalletHandler) TransactionHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	history, err := h.svc.GetTransactionHistory(r.Context(), userID, historyLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, history)
}

// LedgerEntries handles GET /api/wallet/{userId}/ledger.
func (h *WalletHandler) LedgerEntries(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDParam(r)
	if err != nil {
		RespondError(w, err)
		return
	}
	entries, err := h.svc.GetLedgerEntries(r.Context(), userID, historyLimit(r))
	if err != nil {
		RespondError(w, err)
		return
	}
	RespondJSON(w, http.StatusOK, entries)
}
