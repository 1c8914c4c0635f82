package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	mw "github.com/kiranshivaraju/feedbackhub/internal/api/middleware"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth           *mw.Auth
	APILimit       *mw.RateLimit
	AuthLimit      *mw.RateLimit
	AILimit        *mw.RateLimit
	AllowedOrigins []string

	HealthHandler http.HandlerFunc

	RegisterHandler      http.HandlerFunc
	LoginHandler         http.HandlerFunc
	ProfileHandler       http.HandlerFunc
	UpdateProfileHandler http.HandlerFunc

	ListFeedback   http.HandlerFunc
	CreateFeedback http.HandlerFunc
	FeedbackStats  http.HandlerFunc
	GetFeedback    http.HandlerFunc
	UpdateFeedback http.HandlerFunc
	DeleteFeedback http.HandlerFunc
	UpvoteFeedback http.HandlerFunc

	QueryHandler        http.HandlerFunc
	ProviderInfoHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Public health check
		r.Get("/health", orNotImplemented(deps.HealthHandler))

		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(deps.AuthLimit.Limit)
				r.Post("/register", orNotImplemented(deps.RegisterHandler))
				r.Post("/login", orNotImplemented(deps.LoginHandler))
			})
			r.Group(func(r chi.Router) {
				r.Use(deps.Auth.Authenticate)
				r.Get("/profile", orNotImplemented(deps.ProfileHandler))
				r.Put("/profile", orNotImplemented(deps.UpdateProfileHandler))
			})
		})

		r.Route("/feedback", func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)
			r.Use(deps.APILimit.Limit)

			r.Get("/", orNotImplemented(deps.ListFeedback))
			r.Post("/", orNotImplemented(deps.CreateFeedback))
			r.Get("/stats", orNotImplemented(deps.FeedbackStats))
			r.Get("/{id}", orNotImplemented(deps.GetFeedback))
			r.Put("/{id}", orNotImplemented(deps.UpdateFeedback))
			r.Delete("/{id}", orNotImplemented(deps.DeleteFeedback))
			r.Patch("/{id}/upvote", orNotImplemented(deps.UpvoteFeedback))
		})

		r.Route("/ai", func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)
			r.Use(deps.AILimit.Limit)
			r.Post("/query", orNotImplemented(deps.QueryHandler))
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.Auth.Authenticate)
			r.Use(deps.Auth.RequireRole(models.RoleAdmin))
			r.Get("/ai/provider", orNotImplemented(deps.ProviderInfoHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
