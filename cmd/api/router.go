package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"shelfie/internal/book"
	"shelfie/internal/httpx"
	"shelfie/internal/platform/token"
)

// readinessCheck reports whether a dependency can serve traffic.
type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
}

type routerConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	MaxBodyBytes   int64
	EnableHSTS     bool
	RateLimiter    *httpx.RateLimitMiddleware // nil disables rate limiting
}

func newRouter(cfg routerConfig, books *book.HTTPHandler, checks []readinessCheck) http.Handler {
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				log.Warn().Err(err).Str("dependency", c.name).Msg("readiness check failed")
				http.Error(w, c.name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	authed := httpx.AuthMiddleware(cfg.JWTSecret)
	router.Handle("POST /v1/books", authed(http.HandlerFunc(books.Create)))
	router.Handle("GET /v1/books", authed(http.HandlerFunc(books.List)))
	router.Handle("GET /v1/books/{id}", authed(http.HandlerFunc(books.Get)))
	router.Handle("DELETE /v1/books/{id}", httpx.Chain(http.HandlerFunc(books.Delete),
		authed,
		httpx.RequireRole(token.RoleAdmin),
	))

	mw := []func(http.Handler) http.Handler{
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware,
		httpx.RecoveryMiddleware,
		httpx.SecurityHeadersMiddleware(cfg.EnableHSTS),
		httpx.CORSMiddleware(cfg.AllowedOrigins),
	}
	if cfg.RateLimiter != nil {
		mw = append(mw, cfg.RateLimiter.Middleware)
	}
	mw = append(mw, httpx.RequestSizeLimitMiddleware(cfg.MaxBodyBytes))

	return httpx.Chain(router, mw...)
}
