package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Services ServicesConfig
	Session  SessionConfig
	Identity IdentityConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

// ServicesConfig holds the base URLs of the two backends. Paths such as
// /api/transaction are appended by the client.
type ServicesConfig struct {
	TransactionURL string
	AccountURL     string
}

type SessionConfig struct {
	Backend      string // cookie or redis
	Secret       string
	CookieSecure bool
	RedisAddr    string
	RedisPass    string
	RedisDB      int
	TTL          time.Duration
}

type IdentityConfig struct {
	Backend  string // demo or mysql
	MySQLDSN string
}

const devSessionSecret = "banking-ui-dev-secret"

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, relying on system env vars")
	}

	cookieSecure, err := strconv.ParseBool(getEnv("COOKIE_SECURE", "false"))
	if err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	ttl, err := time.ParseDuration(getEnv("SESSION_TTL", "0s"))
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENVIRONMENT", "development"),
		},
		Services: ServicesConfig{
			TransactionURL: getEnv("TRANSACTION_SERVICE_URL", "http://localhost:8081"),
			AccountURL:     getEnv("ACCOUNT_SERVICE_URL", "http://localhost:8082"),
		},
		Session: SessionConfig{
			Backend:      getEnv("SESSION_BACKEND", "cookie"),
			Secret:       getEnv("SESSION_SECRET", devSessionSecret),
			CookieSecure: cookieSecure,
			RedisAddr:    getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPass:    getEnv("REDIS_PASS", ""),
			RedisDB:      redisDB,
			TTL:          ttl,
		},
		Identity: IdentityConfig{
			Backend:  getEnv("IDENTITY_BACKEND", "demo"),
			MySQLDSN: getEnv("MYSQL_DSN", "root:@tcp(localhost:3306)/banking_db"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

func (c *Config) validate() error {
	for name, raw := range map[string]string{
		"TRANSACTION_SERVICE_URL": c.Services.TransactionURL,
		"ACCOUNT_SERVICE_URL":     c.Services.AccountURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s: invalid url %q", name, raw)
		}
	}

	switch c.Session.Backend {
	case "cookie", "redis":
	default:
		return fmt.Errorf("SESSION_BACKEND: unknown backend %q", c.Session.Backend)
	}
	if c.Session.Secret == devSessionSecret && !c.IsDevelopment() {
		return errors.New("SESSION_SECRET must be set outside development")
	}
	if c.Session.TTL < 0 {
		return errors.New("SESSION_TTL must not be negative")
	}

	switch c.Identity.Backend {
	case "demo", "mysql":
	default:
		return fmt.Errorf("IDENTITY_BACKEND: unknown backend %q", c.Identity.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
