package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"

	"banking-ui/models"
)

// Claims flattens the principal into the token payload so it reads as
// {id, username, role, cardNumber?, customerName?} next to the standard claims.
type Claims struct {
	models.Principal
	jwt.StandardClaims
}

// CookieStore keeps the principal client-side in an HS256-signed token.
type CookieStore struct {
	key    []byte
	opts   CookieOptions
	logger *zap.Logger
}

func NewCookieStore(secret string, opts CookieOptions, logger *zap.Logger) *CookieStore {
	return &CookieStore{key: []byte(secret), opts: opts, logger: logger}
}

func (s *CookieStore) Save(w http.ResponseWriter, r *http.Request, p models.Principal) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	claims := &Claims{
		Principal: p,
		StandardClaims: jwt.StandardClaims{
			IssuedAt: time.Now().Unix(),
			Subject:  p.Username,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return fmt.Errorf("session: sign token: %w", err)
	}
	http.SetCookie(w, newCookie(signed, s.opts))
	return nil
}

func (s *CookieStore) Load(r *http.Request) (models.Principal, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return models.Principal{}, false
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(c.Value, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil || !token.Valid {
		var verr *jwt.ValidationError
		if errors.As(err, &verr) && verr.Errors&jwt.ValidationErrorSignatureInvalid != 0 {
			s.logger.Warn("session cookie with invalid signature")
		}
		return models.Principal{}, false
	}
	if err := claims.Principal.Validate(); err != nil {
		s.logger.Debug("session cookie holds invalid principal", zap.Error(err))
		return models.Principal{}, false
	}
	return claims.Principal, true
}

func (s *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, expiredCookie(s.opts))
	return nil
}
