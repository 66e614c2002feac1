package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBet(status BetStatus) *Bet {
	return &Bet{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		EventID:     uuid.New(),
		MarketID:    uuid.New(),
		SelectionID: "home",
		Amount:      MustMoney(10000, "USD"),
		Odds:        decimal.NewFromFloat(2.0),
		Status:      status,
		Type:        BetTypeSingle,
		PlacedAt:    time.Now(),
	}
}

func TestBetPotentialPayout(t *testing.T) {
	b := newTestBet(BetStatusAccepted)
	payout, err := b.PotentialPayout()
	require.NoError(t, err)
	assert.Equal(t, int64(20000), payout.Amount())
}

func TestBetIsSettled(t *testing.T) {
	cases := []struct {
		status BetStatus
		want   bool
	}{
		{BetStatusPending, false},
		{BetStatusAccepted, false},
		{BetStatusRejected, false},
		{BetStatusWon, true},
		{BetStatusLost, true},
		{BetStatusVoid, true},
		{BetStatusCashedOut, false},
	}
	for _, c := range cases {
		b := newTestBet(c.status)
		assert.Equal(t, c.want, b.IsSettled(), "status %s", c.status)
	}
}

func TestBetCanBeVoided(t *testing.T) {
	cases := []struct {
		status BetStatus
		want   bool
	}{
		{BetStatusPending, true},
		{BetStatusAccepted, true},
		{BetStatusRejected, false},
		{BetStatusWon, false},
		{BetStatusLost, false},
		{BetStatusVoid, false},
		{BetStatusCashedOut, false},
	}
	for _, c := range cases {
		b := newTestBet(c.status)
		assert.Equal(t, c.want, b.CanBeVoided(), "status %s", c.status)
	}
}

func TestBetCanBeCashedOut(t *testing.T) {
	cases := []struct {
		status BetStatus
		want   bool
	}{
		{BetStatusPending, false},
		{BetStatusAccepted, true},
		{BetStatusWon, false},
		{BetStatusLost, false},
		{BetStatusVoid, false},
		{BetStatusCashedOut, false},
	}
	for _, c := range cases {
		b := newTestBet(c.status)
		assert.Equal(t, c.want, b.CanBeCashedOut(), "status %s", c.status)
	}
}

func TestMoneyTimesDecimalRounding(t *testing.T) {
	m := MustMoney(333, "USD")
	result, err := moneyTimesDecimal(m, decimal.NewFromFloat(1.5))
	require.NoError(t, err)
	// 333 * 1.5 = 499.5 -> rounds to 500 (half away from zero)
	assert.Equal(t, int64(500), result.Amount())
}
