package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"banking-ui/ledger"
	"banking-ui/models"
)

type AdminPage struct {
	models.Principal
	Transactions []models.Transaction
	Error        string
}

// Summary is derived from the current transaction set on every render.
func (p AdminPage) Summary() ledger.Summary {
	return ledger.Summarize(p.Transactions)
}

func (h *Handler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	page := AdminPage{Principal: principal(r)}

	txs, err := h.api.GetAllTransactions(r.Context())
	if h.abandoned(r, "admin") {
		return
	}
	if err != nil {
		h.logger.Error("failed to load transactions", zap.Error(err))
		page.Error = msgHistoryFailed
	} else {
		page.Transactions = txs
	}
	h.render(w, http.StatusOK, "admin.html", page)
}

var exporters = map[string]struct {
	contentType string
	write       func(io.Writer, []models.Transaction) error
}{
	"pdf":  {"application/pdf", ledger.WritePDF},
	"xlsx": {"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", ledger.WriteXLSX},
}

// ExportTransactions streams the full ledger as a PDF or XLSX report.
func (h *Handler) ExportTransactions(w http.ResponseWriter, r *http.Request) {
	format := mux.Vars(r)["format"]
	exp, ok := exporters[format]
	if !ok {
		http.NotFound(w, r)
		return
	}

	txs, err := h.api.GetAllTransactions(r.Context())
	if h.abandoned(r, "export") {
		return
	}
	if err != nil {
		h.logger.Error("failed to load transactions for export", zap.String("format", format), zap.Error(err))
		http.Error(w, msgHistoryFailed, http.StatusBadGateway)
		return
	}

	var buf bytes.Buffer
	if err := exp.write(&buf, txs); err != nil {
		h.logger.Error("failed to build report", zap.String("format", format), zap.Error(err))
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", exp.contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="transactions_report.`+format+`"`)
	_, _ = buf.WriteTo(w)
}
