package handlers

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// FormError is a validation failure caught before any request is sent.
type FormError string

func (e FormError) Error() string { return string(e) }

const (
	ErrMissingTopUpFields FormError = "Please enter amount and PIN"
	ErrAmountNotNumber    FormError = "Amount must be a number"
	ErrAmountNotPositive  FormError = "Amount must be greater than 0"
	ErrAmountTooPrecise   FormError = "Amount can have at most 2 decimal places"
)

type TopUpForm struct {
	Amount string
	PIN    string
}

// Validate returns the parsed amount, which is always strictly positive and
// exact to the cent, so what is sent is what is shown.
func (f TopUpForm) Validate() (decimal.Decimal, error) {
	amount := strings.TrimSpace(f.Amount)
	if amount == "" || f.PIN == "" {
		return decimal.Zero, ErrMissingTopUpFields
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return decimal.Zero, ErrAmountNotNumber
	}
	if d.Sign() <= 0 {
		return decimal.Zero, ErrAmountNotPositive
	}
	if !d.Equal(d.Round(2)) {
		return decimal.Zero, ErrAmountTooPrecise
	}
	return d, nil
}

// inflight admits one running action per key.
type inflight struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{busy: make(map[string]struct{})}
}

func (f *inflight) acquire(key string) (release func(), ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, taken := f.busy[key]; taken {
		return nil, false
	}
	f.busy[key] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.busy, key)
		f.mu.Unlock()
	}, true
}
