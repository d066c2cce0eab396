package auth

import (
	"net/http"

	"go.uber.org/zap"

	"banking-ui/models"
	"banking-ui/session"
)

// LoadSession resolves the stored principal once per request and places it
// on the request context for the views.
func LoadSession(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if p, ok := store.Load(r); ok {
				r = r.WithContext(session.NewContext(r.Context(), p))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole sends the browser to the login page unless the request
// carries a principal with the given role.
func RequireRole(role models.Role, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := session.FromContext(r.Context())
			if !ok {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			if p.Role != role {
				logger.Info("role mismatch, redirecting to login",
					zap.String("username", p.Username),
					zap.String("role", string(p.Role)),
					zap.String("required", string(role)),
					zap.String("path", r.URL.Path))
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
