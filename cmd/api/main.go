package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"shelfie/internal/book"
	"shelfie/internal/config"
	"shelfie/internal/httpx"
	"shelfie/internal/platform/database"
	"shelfie/internal/platform/logger"
	"shelfie/internal/platform/openlibrary"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("development", "info")
		log.Fatal().Err(err).Msg("load config")
	}
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.Open(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatal().Err(err).Str("dsn", redactDSN(cfg.Database.DSN)).Msg("cannot open database")
	}
	defer dbPool.Close()
	log.Info().Msg("database connection OK")

	checks := []readinessCheck{{name: "db", check: dbPool.Ping}}

	var repo book.Repository = book.NewPostgresRepo(dbPool, cfg.Database.QueryTimeout)
	if cfg.Redis.Addr != "" {
		rdb := mustOpenRedis(ctx, cfg.Redis)
		defer rdb.Close()
		repo = book.NewCachedRepo(repo, rdb, cfg.Redis.TTL)
		checks = append(checks, readinessCheck{name: "redis", check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	metadata := openlibrary.NewClient(
		cfg.OpenLibrary.BaseURL,
		cfg.OpenLibrary.UserAgent,
		cfg.OpenLibrary.RPS,
		cfg.OpenLibrary.Timeout,
	)
	bookService := book.NewService(repo, metadata, cfg.OpenLibrary.CoversURL)
	bookHandler := book.NewHTTPHandler(bookService)

	var limiter *httpx.RateLimitMiddleware
	if cfg.HTTP.RateLimitRPS > 0 {
		limiter = httpx.NewRateLimitMiddleware(ctx, cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst)
	}

	handler := newRouter(routerConfig{
		JWTSecret:      cfg.JWT.Secret,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		EnableHSTS:     cfg.HTTP.EnableHSTS,
		RateLimiter:    limiter,
	}, bookHandler, checks)

	// WriteTimeout leaves room for a full Open Library lookup.
	httpServer := &http.Server{
		Addr:              cfg.App.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.OpenLibrary.Timeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.App.Addr).Str("env", cfg.App.Environment).Msg("starting server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func mustOpenRedis(ctx context.Context, cfg config.RedisConfig) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		log.Fatal().Err(err).Str("addr", cfg.Addr).Msg("cannot reach redis")
	}
	log.Info().Str("addr", cfg.Addr).Msg("redis cache enabled")
	return rdb
}

func redactDSN(dsn string) string {
	const marker = "://"
	start := strings.Index(dsn, marker)
	if start < 0 {
		return dsn
	}
	start += len(marker)
	end := strings.Index(dsn[start:], "@")
	if end < 0 {
		return dsn
	}
	return dsn[:start] + "***" + dsn[start+end:]
}
