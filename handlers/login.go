package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"banking-ui/auth"
	"banking-ui/metrics"
)

const (
	msgInvalidCredentials = "Invalid credentials"
	msgLoginUnavailable   = "Login is temporarily unavailable"
)

type LoginPage struct {
	Username string
	Error    string
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "login.html", LoginPage{})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	page := LoginPage{Username: username}

	p, err := h.auth.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			h.logger.Info("login rejected", zap.String("username", username))
			page.Error = msgInvalidCredentials
			h.render(w, http.StatusUnauthorized, "login.html", page)
			return
		}
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		h.logger.Error("identity lookup failed", zap.String("username", username), zap.Error(err))
		page.Error = msgLoginUnavailable
		h.render(w, http.StatusServiceUnavailable, "login.html", page)
		return
	}

	if err := h.sessions.Save(w, r, p); err != nil {
		metrics.LoginsTotal.WithLabelValues("error").Inc()
		h.logger.Error("failed to save session", zap.String("username", username), zap.Error(err))
		page.Error = msgLoginUnavailable
		h.render(w, http.StatusInternalServerError, "login.html", page)
		return
	}

	metrics.LoginsTotal.WithLabelValues("ok").Inc()
	h.logger.Info("login succeeded",
		zap.String("username", p.Username),
		zap.String("role", string(p.Role)))
	http.Redirect(w, r, p.Role.Home(), http.StatusSeeOther)
}

// Logout clears the stored principal unconditionally and returns to the login page.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Clear(w, r); err != nil {
		h.logger.Error("failed to clear session", zap.Error(err))
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
