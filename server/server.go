// Package server exposes the operator HTTP API: health, readiness, metrics,
// and admin views over live verification sessions. It injects correlation IDs
// into request contexts for consistent logging.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewMux returns the HTTP handler with all routes.
// The provided context bounds the rate limiter cleanup goroutine.
func NewMux(ctx context.Context, deps Deps) http.Handler {
	return newRouter(ctx, deps, loadAuthConfig(), loadRateLimiterConfig())
}

func newRouter(ctx context.Context, deps Deps, authCfg *authConfig, rlCfg *rateLimiterConfig) http.Handler {
	h := NewHandlers(deps)
	limiter := newIPRateLimiter(ctx, rlCfg)

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HandleHealthz).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.HandleReadyz).Methods(http.MethodGet, http.MethodHead)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(
		func(next http.Handler) http.Handler { return adminAuth(next, authCfg) },
		func(next http.Handler) http.Handler { return rateLimitMiddleware(next, limiter) },
	)
	admin.HandleFunc("/sessions", h.HandleAdminSessions).Methods(http.MethodGet)
	admin.HandleFunc("/sessions/{userID}/cancel", h.HandleAdminCancelSession).Methods(http.MethodPost)
	admin.HandleFunc("/outcomes", h.HandleAdminOutcomes).Methods(http.MethodGet)

	return withTracing(r)
}

// Start runs the HTTP server and shuts down gracefully on context cancellation.
func Start(ctx context.Context, addr string, deps Deps) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      NewMux(ctx, deps),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		// Use WithoutCancel to inherit context values but allow shutdown to complete
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", slog.Any("err", err))
		}
	}()

	slog.Info("http server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server error", slog.Any("err", err))
		return err
	}
	return nil
}
