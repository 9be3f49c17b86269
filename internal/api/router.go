package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/promptlib/promptlib/internal/auth"
)

// Dependencies wires the handlers to their stores.
type Dependencies struct {
	Users     UserStore
	Prompts   PromptStore
	History   HistoryReader
	UsageLogs UsageLogReader
	Optimizer Optimizer
	Auth      auth.Config
	// Health reports whether the backing store is reachable.
	Health func(ctx context.Context) error
	// PoolStats, when set, is included in healthy responses.
	PoolStats func() map[string]interface{}
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// SetupRoutes configures all API routes
func SetupRoutes(mux *http.ServeMux, deps Dependencies) {
	logger := deps.Logger

	authHandler := NewAuthHandler(deps.Users, deps.Auth, logger)
	promptHandler := NewPromptHandler(deps.Prompts, deps.History, logger)
	optimizationHandler := NewOptimizationHandler(deps.Prompts, deps.Optimizer, logger)
	usageHandler := NewUsageHandler(deps.UsageLogs, logger)

	requireAuth := auth.AuthMiddleware(deps.Auth)
	optionalAuth := auth.OptionalAuthMiddleware(deps.Auth)
	protected := func(h http.HandlerFunc) http.Handler { return requireAuth(h) }

	// Authentication routes (public)
	mux.HandleFunc("POST /auth/register", authHandler.Register)
	mux.HandleFunc("POST /auth/login", authHandler.Login)
	mux.Handle("GET /auth/me", protected(authHandler.Me))

	// Prompt routes
	mux.Handle("POST /prompts", protected(promptHandler.Create))
	mux.Handle("GET /prompts", protected(promptHandler.List))
	mux.Handle("GET /prompts/{id}", optionalAuth(http.HandlerFunc(promptHandler.Get)))
	mux.Handle("PUT /prompts/{id}", protected(promptHandler.Update))
	mux.Handle("DELETE /prompts/{id}", protected(promptHandler.Delete))
	mux.Handle("GET /prompts/{id}/optimizations", protected(promptHandler.History))
	mux.Handle("POST /prompts/{id}/optimizations/{version}/apply", protected(promptHandler.ApplyVersion))
	mux.HandleFunc("GET /public/prompts", promptHandler.ListPublic)

	// Optimization routes
	mux.Handle("POST /optimizations/compare", protected(optimizationHandler.Compare))
	mux.Handle("POST /optimizations", protected(optimizationHandler.Optimize))

	// Usage routes
	mux.Handle("GET /usage-logs", protected(usageHandler.ListLogs))
	mux.Handle("GET /analytics/usage", protected(usageHandler.Analytics))

	// Operational routes
	mux.HandleFunc("GET /healthz", healthHandler(deps.Health, deps.PoolStats, logger))
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}
}

func healthHandler(check func(ctx context.Context) error, poolStats func() map[string]interface{}, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			if err := check(r.Context()); err != nil {
				logger.Error("health check failed", "error", err)
				writeJSON(w, logger, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		body := map[string]interface{}{"status": "ok"}
		if poolStats != nil {
			body["database"] = poolStats()
		}
		writeJSON(w, logger, http.StatusOK, body)
	}
}
