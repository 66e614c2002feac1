package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VolatilityLevel classifies a volatility score into a human-meaningful
// bucket (§3).
type VolatilityLevel string

const (
	VolatilityLow      VolatilityLevel = "low"
	VolatilityMedium   VolatilityLevel = "medium"
	VolatilityHigh     VolatilityLevel = "high"
	VolatilityExtreme  VolatilityLevel = "extreme"
)

// LevelForScore maps a volatility score to its level per §3's thresholds.
func LevelForScore(score decimal.Decimal) VolatilityLevel {
	switch {
	case score.LessThan(decimal.NewFromInt(10)):
		return VolatilityLow
	case score.LessThan(decimal.NewFromInt(25)):
		return VolatilityMedium
	case score.LessThan(decimal.NewFromInt(50)):
		return VolatilityHigh
	default:
		return VolatilityExtreme
	}
}

// VolatilityThreshold is the score at or above which a market auto-suspends
// (§4.5): level Extreme begins at 50.
var VolatilityThreshold = decimal.NewFromInt(50)

// DefaultVolatilityWindow is the window used for volatility scoring (§3).
const DefaultVolatilityWindow = time.Hour

// Odds is one priced selection on a market at a point in time (§3).
type Odds struct {
	Decimal     decimal.Decimal
	MarketID    string
	Selection   string
	Source      string
	Timestamp   time.Time
}

// ToFractional converts decimal odds to fractional form (decimal - 1).
func (o Odds) ToFractional() decimal.Decimal {
	return o.Decimal.Sub(decimal.NewFromInt(1))
}

// ToAmerican converts decimal odds to American form:
// (d-1)*100 if d >= 2, else -100/(d-1).
func (o Odds) ToAmerican() decimal.Decimal {
	two := decimal.NewFromInt(2)
	hundred := decimal.NewFromInt(100)
	one := decimal.NewFromInt(1)
	if o.Decimal.GreaterThanOrEqual(two) {
		return o.Decimal.Sub(one).Mul(hundred)
	}
	return hundred.Neg().Div(o.Decimal.Sub(one))
}

// FromFractional builds Odds from a fractional value.
func FromFractional(fractional decimal.Decimal, marketID, selection, source string, now time.Time) Odds {
	return Odds{
		Decimal:   fractional.Add(decimal.NewFromInt(1)).Round(2),
		MarketID:  marketID,
		Selection: selection,
		Source:    source,
		Timestamp: now,
	}
}

// FromAmerican builds Odds from an American value.
func FromAmerican(american decimal.Decimal, marketID, selection, source string, now time.Time) Odds {
	var d decimal.Decimal
	if american.GreaterThanOrEqual(decimal.Zero) {
		d = american.Div(decimal.NewFromInt(100)).Add(decimal.NewFromInt(1))
	} else {
		d = decimal.NewFromInt(100).Div(american.Neg()).Add(decimal.NewFromInt(1))
	}
	return Odds{
		Decimal:   d.Round(2),
		MarketID:  marketID,
		Selection: selection,
		Source:    source,
		Timestamp: now,
	}
}

// ImpliedProbability returns 1/decimal.
func (o Odds) ImpliedProbability() decimal.Decimal {
	return decimal.NewFromInt(1).Div(o.Decimal)
}

// OddsUpdate records one change to a selection's odds (§3).
type OddsUpdate struct {
	Previous   decimal.Decimal
	New        decimal.Decimal
	Source     string
	Reason     string
	UpdatedBy  string
	UpdatedAt  time.Time
}

// PercentageChange returns |new-previous|/previous * 100.
func (u OddsUpdate) PercentageChange() decimal.Decimal {
	if u.Previous.IsZero() {
		return decimal.Zero
	}
	diff := u.New.Sub(u.Previous).Abs()
	return diff.Div(u.Previous).Mul(decimal.NewFromInt(100))
}

// OddsHistory is the ordered sequence of updates for one (market, selection).
type OddsHistory struct {
	Selection string
	Updates   []OddsUpdate
}

// VolatilityScore computes the score over window w, ending at "now", per
// §3: sum(percentageChanges within window) * (count within window / window.Hours).
func (h *OddsHistory) VolatilityScore(window time.Duration, now time.Time) decimal.Decimal {
	cutoff := now.Add(-window)
	var sum decimal.Decimal
	count := 0
	for _, u := range h.Updates {
		if u.UpdatedAt.After(cutoff) && !u.UpdatedAt.After(now) {
			sum = sum.Add(u.PercentageChange())
			count++
		}
	}
	if count == 0 {
		return decimal.Zero
	}
	hours := decimal.NewFromFloat(window.Hours())
	if hours.IsZero() {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(int64(count)).Div(hours)
	return sum.Mul(factor)
}

// OddsSnapshot is the read-only view returned by getCurrentOdds (§4.5).
type OddsSnapshot struct {
	MarketID           string
	Selections         map[string]Odds
	Timestamp          time.Time
	Volatility         decimal.Decimal
	VolatilityLevel    VolatilityLevel
	IsSuspended        bool
	SuspensionReason   string
	TotalMargin        decimal.Decimal
}

// OddsState is the full persisted state of one odds/market entity (§3).
type OddsState struct {
	MarketID           string
	Initialized        bool
	CurrentOdds        map[string]Odds
	Histories          map[string]*OddsHistory
	IsSuspended        bool
	SuspensionReason   string
	SuspensionTime     *time.Time
	CurrentVolatility  decimal.Decimal
	LockedSelections   map[string]map[string]bool // selection -> set<betId>
	VolatilityWindow   time.Duration
	VolatilityThreshold decimal.Decimal
}

// NewOddsState creates an empty, uninitialized odds entity state.
func NewOddsState(marketID string) OddsState {
	return OddsState{
		MarketID:            marketID,
		CurrentOdds:         make(map[string]Odds),
		Histories:           make(map[string]*OddsHistory),
		LockedSelections:    make(map[string]map[string]bool),
		VolatilityWindow:    DefaultVolatilityWindow,
		VolatilityThreshold: VolatilityThreshold,
	}
}

// Snapshot returns the current read-only view, including the market-wide
// volatility (max across selections) and margin.
func (s *OddsState) Snapshot(now time.Time) OddsSnapshot {
	maxScore := decimal.Zero
	for sel, hist := range s.Histories {
		score := hist.VolatilityScore(s.VolatilityWindow, now)
		if score.GreaterThan(maxScore) {
			maxScore = score
		}
		_ = sel
	}

	probSum := decimal.Zero
	for _, o := range s.CurrentOdds {
		probSum = probSum.Add(o.ImpliedProbability())
	}
	margin := probSum.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100))

	return OddsSnapshot{
		MarketID:         s.MarketID,
		Selections:       s.CurrentOdds,
		Timestamp:        now,
		Volatility:       maxScore,
		VolatilityLevel:  LevelForScore(maxScore),
		IsSuspended:      s.IsSuspended,
		SuspensionReason: s.SuspensionReason,
		TotalMargin:      margin,
	}
}

// UpdateOddsRequest is the input to Odds.UpdateOdds (§4.5).
type UpdateOddsRequest struct {
	MarketID      string
	SelectionOdds map[string]decimal.Decimal
	Source        string
	Reason        string
	UpdatedBy     string
}
