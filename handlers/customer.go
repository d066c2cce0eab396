package handlers

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"banking-ui/metrics"
	"banking-ui/models"
)

const (
	msgBalanceFailed   = "Failed to load balance"
	msgHistoryFailed   = "Failed to load transactions"
	msgTopUpFailed     = "Transaction failed"
	msgTopUpError      = "Error processing transaction"
	msgTopUpInProgress = "A top-up is already being processed"
)

type CustomerPage struct {
	models.Principal
	Balance      *decimal.Decimal
	CardMissing  bool
	BalanceError string
	HistoryError string
	Transactions []models.Transaction
	Flash        string
}

type TopUpPage struct {
	models.Principal
	Amount string
	Error  string
}

func (h *Handler) CustomerDashboard(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	page := h.loadCustomer(r.Context(), p)
	if h.abandoned(r, "customer") {
		return
	}

	page.Flash = h.flashes.Pop(w, r, p)
	h.render(w, http.StatusOK, "customer.html", page)
}

// loadCustomer fetches balance and history concurrently. Each fetch fails on
// its own and only sets its own message.
func (h *Handler) loadCustomer(ctx context.Context, p models.Principal) CustomerPage {
	page := CustomerPage{Principal: p}

	var g errgroup.Group
	g.Go(func() error {
		b, err := h.api.GetBalance(ctx, p.CardNumber)
		if err != nil {
			h.logFetchError(ctx, "balance", p, err)
			page.BalanceError = msgBalanceFailed
			return nil
		}
		if !b.Exists {
			page.CardMissing = true
			return nil
		}
		page.Balance = &b.Balance
		return nil
	})
	g.Go(func() error {
		txs, err := h.api.GetCustomerTransactions(ctx, p.CardNumber)
		if err != nil {
			h.logFetchError(ctx, "transactions", p, err)
			page.HistoryError = msgHistoryFailed
			return nil
		}
		page.Transactions = txs
		return nil
	})
	_ = g.Wait()
	return page
}

func (h *Handler) logFetchError(ctx context.Context, what string, p models.Principal, err error) {
	if ctx.Err() != nil {
		return
	}
	h.logger.Error("failed to load "+what,
		zap.String("username", p.Username),
		zap.String("card_number", p.CardNumber),
		zap.Error(err))
}

func (h *Handler) TopUpDialog(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "topup.html", TopUpPage{Principal: principal(r)})
}

func (h *Handler) TopUp(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	form := TopUpForm{Amount: r.PostFormValue("amount"), PIN: r.PostFormValue("pin")}
	page := TopUpPage{Principal: p, Amount: form.Amount}

	amount, err := form.Validate()
	if err != nil {
		metrics.TopupsTotal.WithLabelValues("invalid").Inc()
		page.Error = err.Error()
		h.render(w, http.StatusUnprocessableEntity, "topup.html", page)
		return
	}

	release, ok := h.topups.acquire(p.ID + ":" + p.CardNumber)
	if !ok {
		metrics.TopupsTotal.WithLabelValues("duplicate").Inc()
		page.Error = msgTopUpInProgress
		h.render(w, http.StatusConflict, "topup.html", page)
		return
	}
	defer release()

	resp, err := h.api.SubmitTransaction(r.Context(), models.TransactionRequest{
		CardNumber: p.CardNumber,
		PIN:        form.PIN,
		Amount:     amount.InexactFloat64(),
		Type:       models.TypeTopup,
	})
	if h.abandoned(r, "topup") {
		return
	}
	if err != nil {
		metrics.TopupsTotal.WithLabelValues("error").Inc()
		h.logger.Error("top-up request failed",
			zap.String("username", p.Username),
			zap.String("card_number", p.CardNumber),
			zap.Error(err))
		page.Error = msgTopUpError
		h.render(w, http.StatusBadGateway, "topup.html", page)
		return
	}

	if resp.Status != models.StatusSuccess {
		metrics.TopupsTotal.WithLabelValues("failed").Inc()
		page.Error = resp.Message
		if page.Error == "" {
			page.Error = msgTopUpFailed
		}
		h.render(w, http.StatusOK, "topup.html", page)
		return
	}

	metrics.TopupsTotal.WithLabelValues("ok").Inc()
	h.logger.Info("top-up succeeded",
		zap.String("username", p.Username),
		zap.String("card_number", p.CardNumber),
		zap.String("amount", amount.StringFixed(2)))
	if err := h.flashes.Set(w, p, "Top-up of $"+amount.StringFixed(2)+" successful!"); err != nil {
		h.logger.Error("failed to set flash", zap.Error(err))
	}
	http.Redirect(w, r, "/customer", http.StatusSeeOther)
}
