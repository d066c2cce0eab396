package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TypeWithdraw TransactionType = "withdraw"
	TypeTopup    TransactionType = "topup"
)

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Transaction is a read-only ledger entry as reported by the account service.
type Transaction struct {
	ID           int64           `json:"id"`
	CardNumber   string          `json:"cardNumber"`
	CustomerName string          `json:"customerName"`
	Type         TransactionType `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	Timestamp    Timestamp       `json:"timestamp"`
	Status       Status          `json:"status"`
	Reason       string          `json:"reason"`
}

// Balance is the account service's view of one card.
type Balance struct {
	Exists       bool            `json:"exists"`
	Balance      decimal.Decimal `json:"balance"`
	CustomerName string          `json:"customerName"`
	CardNumber   string          `json:"cardNumber"`
}

type TransactionRequest struct {
	CardNumber string          `json:"cardNumber"`
	PIN        string          `json:"pin"`
	Amount     float64         `json:"amount"`
	Type       TransactionType `json:"type"`
}

// String never includes the PIN.
func (r TransactionRequest) String() string {
	return fmt.Sprintf("%s %.2f on %s", r.Type, r.Amount, r.CardNumber)
}

type TransactionResponse struct {
	Status     Status           `json:"status"`
	Message    string           `json:"message"`
	NewBalance *decimal.Decimal `json:"newBalance,omitempty"`
}

// Timestamp accepts RFC 3339 as well as the zone-less ISO-8601 form the
// account service emits for local date-times.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}
