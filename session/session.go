// Package session keeps the logged-in principal for the lifetime of a
// browser session. Stores are written at login, read once per request by
// middleware, and cleared at logout.
package session

import (
	"context"
	"net/http"

	"banking-ui/models"
)

// CookieName is the single well-known key the principal is stored under.
const CookieName = "user"

type Store interface {
	Save(w http.ResponseWriter, r *http.Request, p models.Principal) error
	// Load returns false when nothing is stored or the stored payload is not a valid principal.
	Load(r *http.Request) (models.Principal, bool)
	Clear(w http.ResponseWriter, r *http.Request) error
}

type CookieOptions struct {
	Secure bool
}

// newCookie builds a browser-session cookie: no Expires and no Max-Age, so
// the browser drops it when the session ends.
func newCookie(value string, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func expiredCookie(opts CookieOptions) *http.Cookie {
	c := newCookie("", opts)
	c.MaxAge = -1
	return c
}

type contextKey struct{}

func NewContext(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(models.Principal)
	return p, ok
}
