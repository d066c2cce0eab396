// Package ledger derives read-only views of a transaction set: the admin
// aggregates and downloadable reports.
package ledger

import (
	"strings"

	"github.com/shopspring/decimal"

	"banking-ui/models"
)

// Summary holds aggregates over one transaction set. Withdrawals and top-ups
// only count successful entries.
type Summary struct {
	Total            int
	Successful       int
	Failed           int
	TotalWithdrawals decimal.Decimal
	TotalTopups      decimal.Decimal
}

func Summarize(txs []models.Transaction) Summary {
	s := Summary{
		Total:            len(txs),
		TotalWithdrawals: decimal.Zero,
		TotalTopups:      decimal.Zero,
	}
	for _, tx := range txs {
		switch tx.Status {
		case models.StatusSuccess:
			s.Successful++
		case models.StatusFailed:
			s.Failed++
		}
		if tx.Status != models.StatusSuccess {
			continue
		}
		switch tx.Type {
		case models.TypeWithdraw:
			s.TotalWithdrawals = s.TotalWithdrawals.Add(tx.Amount)
		case models.TypeTopup:
			s.TotalTopups = s.TotalTopups.Add(tx.Amount)
		}
	}
	return s
}

// Money renders an amount with two decimals and a dollar sign.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// SignedMoney prefixes top-ups with + and withdrawals with -.
func SignedMoney(tx models.Transaction) string {
	if tx.Type == models.TypeTopup {
		return "+" + Money(tx.Amount)
	}
	return "-" + Money(tx.Amount)
}

// GroupCard splits a card number into blocks of four digits.
func GroupCard(card string) string {
	var b strings.Builder
	for i, r := range card {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
