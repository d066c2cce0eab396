package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"

	"banking-ui/models"
)

const (
	FlashCookieName = "flash"
	flashTTL        = time.Minute
)

type flashClaims struct {
	Message string `json:"message"`
	jwt.StandardClaims
}

// Flashes carries a one-shot notice across a redirect. The notice is signed,
// bound to the principal it was issued for, and expired on first read.
type Flashes struct {
	key    []byte
	opts   CookieOptions
	logger *zap.Logger
}

func NewFlashes(secret string, opts CookieOptions, logger *zap.Logger) *Flashes {
	return &Flashes{key: []byte(secret), opts: opts, logger: logger}
}

func (f *Flashes) Set(w http.ResponseWriter, p models.Principal, message string) error {
	now := time.Now()
	claims := &flashClaims{
		Message: message,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(flashTTL).Unix(),
			Subject:   p.ID,
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(f.key)
	if err != nil {
		return fmt.Errorf("session: sign flash: %w", err)
	}
	http.SetCookie(w, f.cookie(signed, int(flashTTL/time.Second)))
	return nil
}

// Pop returns the pending notice for p, if any, and always expires the cookie.
func (f *Flashes) Pop(w http.ResponseWriter, r *http.Request, p models.Principal) string {
	c, err := r.Cookie(FlashCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, f.cookie("", -1))

	claims := &flashClaims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return f.key, nil
	})
	if err != nil || !token.Valid {
		f.logger.Debug("dropping unreadable flash", zap.Error(err))
		return ""
	}
	if claims.Subject != p.ID {
		return ""
	}
	return claims.Message
}

func (f *Flashes) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     FlashCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   f.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
