package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"banking-ui/models"
)

const redisNamespace = "session"

// RedisStore keeps the principal server-side; the cookie only carries an
// opaque session id. A zero ttl stores the entry without expiry.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	opts   CookieOptions
	logger *zap.Logger
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration, opts CookieOptions, logger *zap.Logger) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, opts: opts, logger: logger}
}

func redisKey(id string) string {
	return redisNamespace + ":" + id
}

func (s *RedisStore) Save(w http.ResponseWriter, r *http.Request, p models.Principal) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("session: %w", err)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("session: marshal principal: %w", err)
	}
	id := uuid.NewString()
	if err := s.client.Set(r.Context(), redisKey(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("session: store principal: %w", err)
	}
	http.SetCookie(w, newCookie(id, s.opts))
	return nil
}

func (s *RedisStore) Load(r *http.Request) (models.Principal, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return models.Principal{}, false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return models.Principal{}, false
	}

	data, err := s.client.Get(r.Context(), redisKey(c.Value)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Error("failed to read session", zap.Error(err))
		}
		return models.Principal{}, false
	}

	var p models.Principal
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("stored session is not a principal", zap.Error(err))
		return models.Principal{}, false
	}
	if err := p.Validate(); err != nil {
		s.logger.Warn("stored session holds invalid principal", zap.Error(err))
		return models.Principal{}, false
	}
	return p, true
}

// Clear always expires the cookie, even when the server-side entry cannot be deleted.
func (s *RedisStore) Clear(w http.ResponseWriter, r *http.Request) error {
	http.SetCookie(w, expiredCookie(s.opts))

	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	if err := s.client.Del(r.Context(), redisKey(c.Value)).Err(); err != nil {
		return fmt.Errorf("session: delete %s: %w", c.Value, err)
	}
	return nil
}
