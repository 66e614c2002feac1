package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attaboy/ledger/internal/actor"
	"github.com/attaboy/ledger/internal/bet"
	"github.com/attaboy/ledger/internal/broker"
	"github.com/attaboy/ledger/internal/domain"
	"github.com/attaboy/ledger/internal/eventlog"
	"github.com/attaboy/ledger/internal/httpapi/auth"
	"github.com/attaboy/ledger/internal/market"
	"github.com/attaboy/ledger/internal/odds"
	"github.com/attaboy/ledger/internal/wallet"
)

type testServer struct {
	handler http.Handler
	authMgr *auth.Manager
}

func newTestServer() *testServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := actor.NewRegistry(logger)
	store := eventlog.NewMemoryStore()
	outbox := broker.NewMemoryOutbox()

	walletSvc := wallet.NewService(registry, store, outbox)
	oddsSvc := odds.NewService(registry, store, outbox)
	betSvc := bet.NewService(registry, store, outbox, walletSvc, oddsSvc)
	indexSvc := bet.NewIndexService(registry, store, outbox, betSvc)
	marketSvc := market.NewService(registry, store, outbox)
	authMgr := auth.NewManager("test-secret-at-least-32-bytes-long", time.Hour)

	router := NewRouter(RouterDeps{
		Wallet:             walletSvc,
		Bet:                betSvc,
		BetIndex:           indexSvc,
		Odds:               oddsSvc,
		Market:             marketSvc,
		AuthManager:        authMgr,
		Logger:             logger,
		CORSAllowedOrigins: "*",
	})
	return &testServer{handler: router, authMgr: authMgr}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	token, err := s.authMgr.GenerateToken(uuid.New())
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func TestHealthRequiresNoAuth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRoutesRejectMissingAuth(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodGet, "/api/wallet/"+uuid.New().String()+"/balance", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWalletDepositAndBalance(t *testing.T) {
	s := newTestServer()
	userID := uuid.New()

	w := s.do(t, http.MethodPost, "/api/wallet/"+userID.String()+"/deposit", map[string]any{
		"amount": 5000, "currency": "USD", "transactionId": "tx-1",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var deposit envelope
	require.NoError(t, json.NewDecoder(w.Body).Decode(&deposit))
	assert.True(t, deposit.IsSuccess)

	w = s.do(t, http.MethodGet, "/api/wallet/"+userID.String()+"/balance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var balance struct {
		IsSuccess bool `json:"isSuccess"`
		Data      struct {
			Amount          int64  `json:"amount"`
			AvailableAmount int64  `json:"availableAmount"`
			Currency        string `json:"currency"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&balance))
	assert.Equal(t, int64(5000), balance.Data.Amount)
	assert.Equal(t, int64(5000), balance.Data.AvailableAmount)
}

func TestPlaceBetEndToEnd(t *testing.T) {
	s := newTestServer()
	userID := uuid.New()
	eventID := uuid.New()
	marketID := uuid.New()

	w := s.do(t, http.MethodPost, "/api/wallet/"+userID.String()+"/deposit", map[string]any{
		"amount": 10000, "currency": "USD", "transactionId": "seed",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodPost, "/api/odds/"+marketID.String()+"/initialize", map[string]any{
		"initialOdds": map[string]string{"home": "2.00"},
		"source":      "trader",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/bets", map[string]any{
		"userId": userID, "eventId": eventID, "marketId": marketID,
		"selectionId": "home", "stake": 1000, "currency": "USD",
		"acceptableOdds": "1.80",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var placed struct {
		IsSuccess bool `json:"isSuccess"`
		Data      struct {
			BetID  uuid.UUID        `json:"betId"`
			Status domain.BetStatus `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&placed))
	assert.Equal(t, domain.BetStatusAccepted, placed.Data.Status)

	w = s.do(t, http.MethodGet, "/api/bets/"+placed.Data.BetID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/api/users/"+userID.String()+"/bets", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var listed struct {
		Data struct {
			TotalCount int `json:"totalCount"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&listed))
	assert.Equal(t, 1, listed.Data.TotalCount)
}
