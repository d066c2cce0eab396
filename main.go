package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"banking-ui/auth"
	"banking-ui/client"
	"banking-ui/config"
	"banking-ui/database"
	"banking-ui/handlers"
	"banking-ui/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("session_backend", cfg.Session.Backend),
		zap.String("identity_backend", cfg.Identity.Backend))

	ctx := context.Background()

	var directory auth.Authenticator
	switch cfg.Identity.Backend {
	case "mysql":
		db, err := database.Connect(ctx, cfg.Identity.MySQLDSN, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		directory = auth.NewSQLDirectory(db, logger)
	default:
		demo, err := auth.NewDemoDirectory()
		if err != nil {
			logger.Fatal("failed to build demo directory", zap.Error(err))
		}
		directory = demo
	}

	cookieOpts := session.CookieOptions{Secure: cfg.Session.CookieSecure}
	var store session.Store
	switch cfg.Session.Backend {
	case "redis":
		rdb := session.NewRedisClient(cfg.Session.RedisAddr, cfg.Session.RedisPass, cfg.Session.RedisDB)
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.String("addr", cfg.Session.RedisAddr), zap.Error(err))
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb, cfg.Session.TTL, cookieOpts, logger)
	default:
		store = session.NewCookieStore(cfg.Session.Secret, cookieOpts, logger)
	}

	api := client.New(cfg.Services.TransactionURL, cfg.Services.AccountURL, logger)

	flashes := session.NewFlashes(cfg.Session.Secret, cookieOpts, logger)

	h, err := handlers.New(directory, store, flashes, api, logger)
	if err != nil {
		logger.Fatal("failed to initialize handlers", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      h.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("transaction_service", cfg.Services.TransactionURL),
			zap.String("account_service", cfg.Services.AccountURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsDevelopment() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
