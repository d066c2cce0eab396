package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"banking-ui/auth"
	"banking-ui/models"
)

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.requestLogger)
	r.Use(auth.LoadSession(h.sessions))

	r.Handle("/", http.RedirectHandler("/login", http.StatusFound)).Methods("GET")
	r.HandleFunc("/login", h.LoginPage).Methods("GET")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/logout", h.Logout).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	c := r.PathPrefix("/customer").Subrouter()
	c.Use(auth.RequireRole(models.RoleCustomer, h.logger))
	c.HandleFunc("", h.CustomerDashboard).Methods("GET")
	c.HandleFunc("/topup", h.TopUpDialog).Methods("GET")
	c.HandleFunc("/topup", h.TopUp).Methods("POST")

	a := r.PathPrefix("/admin").Subrouter()
	a.Use(auth.RequireRole(models.RoleAdmin, h.logger))
	a.HandleFunc("", h.AdminDashboard).Methods("GET")
	a.HandleFunc("/export/{format:pdf|xlsx}", h.ExportTransactions).Methods("GET")

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		h.logger.Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}
