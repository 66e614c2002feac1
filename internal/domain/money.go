package domain

import (
	"encoding/json"
	"fmt"
)

// Money is a fixed-point amount in minor units (cents) of a single currency.
// Arithmetic never uses floating point, per the ledger's money-safety rule.
type Money struct {
	amount   int64 // minor units, always >= 0
	currency string
}

// NewMoney constructs a Money value. amount is in minor units (cents) and
// must be non-negative; currency must be a 3-letter ISO 4217 code.
func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, ErrValidation("money amount must be non-negative")
	}
	if err := ValidateCurrency(currency); err != nil {
		return Money{}, ErrValidation(err.Error())
	}
	return Money{amount: amount, currency: currency}, nil
}

// MustMoney is like NewMoney but panics on error. Reserved for literals in
// tests and constant construction, never for caller input.
func MustMoney(amount int64, currency string) Money {
	m, err := NewMoney(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero-value Money in the given currency.
func Zero(currency string) Money {
	return Money{amount: 0, currency: currency}
}

// Amount returns the minor-unit amount.
func (m Money) Amount() int64 { return m.amount }

// Currency returns the 3-letter currency code.
func (m Money) Currency() string { return m.currency }

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool { return m.amount == 0 }

func (m Money) checkCurrency(other Money) error {
	if m.currency != other.currency {
		return ErrValidation(fmt.Sprintf("currency mismatch: %s vs %s", m.currency, other.currency))
	}
	return nil
}

// Add returns m + other. Fails if currencies differ.
func (m Money) Add(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{amount: m.amount + other.amount, currency: m.currency}, nil
}

// Subtract returns m - other. Fails if currencies differ or the result
// would be negative.
func (m Money) Subtract(other Money) (Money, error) {
	if err := m.checkCurrency(other); err != nil {
		return Money{}, err
	}
	if other.amount > m.amount {
		return Money{}, ErrValidation("subtraction would produce a negative amount")
	}
	return Money{amount: m.amount - other.amount, currency: m.currency}, nil
}

// Compare returns -1, 0, or 1 if m is less than, equal to, or greater than
// other. Fails if currencies differ.
func (m Money) Compare(other Money) (int, error) {
	if err := m.checkCurrency(other); err != nil {
		return 0, err
	}
	switch {
	case m.amount < other.amount:
		return -1, nil
	case m.amount > other.amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// MultiplyByRatio scales the amount by a decimal factor expressed as
// (numerator, denominator) in integer arithmetic, rounding half away from
// zero, so callers never introduce float error into money math.
func (m Money) MultiplyByRatio(numerator, denominator int64) (Money, error) {
	if denominator == 0 {
		return Money{}, ErrValidation("denominator must not be zero")
	}
	product := m.amount * numerator
	half := denominator / 2
	result := (product + half) / denominator
	if result < 0 {
		return Money{}, ErrValidation("multiplication would produce a negative amount")
	}
	return Money{amount: result, currency: m.currency}, nil
}

type moneyWire struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes Money by its minor-unit amount and currency code,
// since its fields are unexported and would otherwise round-trip as `{}`
// through every persisted event payload and HTTP response.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(moneyWire{Amount: m.amount, Currency: m.currency})
}

// UnmarshalJSON decodes Money from its wire form.
func (m *Money) UnmarshalJSON(data []byte) error {
	var w moneyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.amount = w.Amount
	m.currency = w.Currency
	return nil
}

func (m Money) String() string {
	return fmt.Sprintf("%d.%02d %s", m.amount/100, abs(m.amount%100), m.currency)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
