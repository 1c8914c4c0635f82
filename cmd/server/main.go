// Package main is the entrypoint for the FeedbackHub API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/kiranshivaraju/feedbackhub/internal/ai"
	"github.com/kiranshivaraju/feedbackhub/internal/api"
	"github.com/kiranshivaraju/feedbackhub/internal/api/handler"
	mw "github.com/kiranshivaraju/feedbackhub/internal/api/middleware"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/auth"
	"github.com/kiranshivaraju/feedbackhub/internal/cache"
	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/internal/feedback"
	"github.com/kiranshivaraju/feedbackhub/internal/store"
	"github.com/kiranshivaraju/feedbackhub/internal/user"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

const (
	shutdownTimeout = 30 * time.Second
	// writeHeadroom covers request decoding, auth and rate limiting around Answer.
	writeHeadroom = 15 * time.Second
)

// writeTimeout must outlast the slowest Answer, or the client loses its
// fallback text to a dropped connection.
func writeTimeout(inference time.Duration) time.Duration {
	return ai.AnswerBudget(inference) + writeHeadroom
}

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config. Fail fast on invalid config.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Server.LogLevel,
	})))
	slog.Info("config loaded", "ai_provider", cfg.AI.Provider, "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create AI provider
	aiProvider, err := ai.NewProvider(ctx, cfg.AI)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	slog.Info("AI provider initialized", "provider", aiProvider.Name(), "model", aiProvider.Model())

	// 6. Create store and services
	pgStore := store.NewPostgresStore(pool)

	orchestrator := ai.NewOrchestrator(
		aiProvider,
		ai.NewContextBuilder(pgStore),
		ai.NewValidator(cfg.AI.ValidationPolicy),
		cfg.AI.InferenceTimeout,
	)
	annotator := ai.NewAnnotator(orchestrator, pgStore, cfg.AI.AnnotationRPS, cfg.AI.AnnotationTimeout)
	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.ExpiresIn)

	svc := services{
		users:        user.NewService(pgStore, issuer),
		feedback:     feedback.NewService(pgStore, redisCache, annotator),
		orchestrator: orchestrator,
		provider:     aiProvider,
	}

	// 7. Build router with dependencies
	router := api.NewRouter(dependencies(cfg, svc, mw.NewAuth(issuer, pgStore), redisCache,
		healthHandler(pgStore, redisCache)))

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout(cfg.AI.InferenceTimeout),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("waiting for in-flight feedback summaries")
	annotator.Wait()

	slog.Info("server stopped gracefully")
	return nil
}

type services struct {
	users        handler.UserService
	feedback     handler.FeedbackService
	orchestrator ai.Answerer
	provider     models.AIProvider
}

// dependencies wires handlers and middleware into the router's dependency set.
func dependencies(cfg *config.Config, svc services, authn *mw.Auth, c cache.Cache, health http.HandlerFunc) api.Dependencies {
	return api.Dependencies{
		Auth:           authn,
		APILimit:       mw.NewRateLimit(c, "api", cfg.RateLimit.API, "Too many requests, please try again later."),
		AuthLimit:      mw.NewRateLimit(c, "auth", cfg.RateLimit.Auth, "Too many login attempts, please try again later."),
		AILimit:        mw.NewRateLimit(c, "ai", cfg.RateLimit.AI, "AI query limit reached, please try again later."),
		AllowedOrigins: cfg.CORS.AllowedOrigins,

		HealthHandler: health,

		RegisterHandler:      handler.NewRegisterHandler(svc.users),
		LoginHandler:         handler.NewLoginHandler(svc.users),
		ProfileHandler:       handler.NewProfileHandler(),
		UpdateProfileHandler: handler.NewUpdateProfileHandler(svc.users),

		ListFeedback:   handler.NewListFeedbackHandler(svc.feedback),
		CreateFeedback: handler.NewCreateFeedbackHandler(svc.feedback),
		FeedbackStats:  handler.NewFeedbackStatsHandler(svc.feedback),
		GetFeedback:    handler.NewGetFeedbackHandler(svc.feedback),
		UpdateFeedback: handler.NewUpdateFeedbackHandler(svc.feedback),
		DeleteFeedback: handler.NewDeleteFeedbackHandler(svc.feedback),
		UpvoteFeedback: handler.NewUpvoteFeedbackHandler(svc.feedback),

		QueryHandler:        handler.NewQueryHandler(svc.orchestrator),
		ProviderInfoHandler: handler.NewProviderInfoHandler(svc.provider),
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler checks database and cache connectivity.
func healthHandler(db, c pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := db.Ping(r.Context()); err != nil {
			slog.Warn("health check: database unreachable", "error", err)
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			slog.Warn("health check: cache unreachable", "error", err)
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
