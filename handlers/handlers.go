package handlers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"banking-ui/auth"
	"banking-ui/ledger"
	"banking-ui/models"
	"banking-ui/session"
)

// Backend is the subset of the API client the views call.
type Backend interface {
	SubmitTransaction(ctx context.Context, req models.TransactionRequest) (models.TransactionResponse, error)
	GetBalance(ctx context.Context, cardNumber string) (models.Balance, error)
	GetCustomerTransactions(ctx context.Context, cardNumber string) ([]models.Transaction, error)
	GetAllTransactions(ctx context.Context) ([]models.Transaction, error)
}

type Handler struct {
	auth     auth.Authenticator
	sessions session.Store
	flashes  *session.Flashes
	api      Backend
	logger   *zap.Logger
	pages    map[string]*template.Template
	topups   *inflight
}

func New(authn auth.Authenticator, sessions session.Store, flashes *session.Flashes, api Backend, logger *zap.Logger) (*Handler, error) {
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	return &Handler{
		auth:     authn,
		sessions: sessions,
		flashes:  flashes,
		api:      api,
		logger:   logger,
		pages:    pages,
		topups:   newInflight(),
	}, nil
}

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login.html", "customer.html", "topup.html", "admin.html"}

var templateFuncs = template.FuncMap{
	"money": ledger.Money,
	"moneyPtr": func(d *decimal.Decimal) string {
		if d == nil {
			return ledger.Money(decimal.Zero)
		}
		return ledger.Money(*d)
	},
	"signed": ledger.SignedMoney,
	"card":   ledger.GroupCard,
	"when": func(ts models.Timestamp) string {
		return ts.Format("2006-01-02 15:04:05")
	},
	"upper": func(v any) string {
		return strings.ToUpper(fmt.Sprint(v))
	},
}

func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// render executes the page into a buffer first so a template failure never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout.html", data); err != nil {
		h.logger.Error("failed to render page", zap.String("page", page), zap.Error(err))
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// principal returns the principal placed on the context by the session middleware.
func principal(r *http.Request) models.Principal {
	p, _ := session.FromContext(r.Context())
	return p
}

// abandoned reports whether the browser went away while a fetch was in
// flight; the late result is then dropped instead of rendered.
func (h *Handler) abandoned(r *http.Request, view string) bool {
	if err := r.Context().Err(); err != nil {
		h.logger.Debug("request abandoned, dropping response",
			zap.String("view", view),
			zap.Error(err))
		return true
	}
	return false
}
