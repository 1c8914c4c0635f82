package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/auth"
	"github.com/kiranshivaraju/feedbackhub/internal/store"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// TokenParser resolves a bearer token to a user id.
type TokenParser interface {
	Parse(token string) (uuid.UUID, error)
}

// UserLoader looks up the user named by a token.
type UserLoader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Auth provides authentication and role-checking middleware.
type Auth struct {
	tokens TokenParser
	users  UserLoader
}

// NewAuth creates a new Auth middleware.
func NewAuth(tokens TokenParser, users UserLoader) *Auth {
	return &Auth{tokens: tokens, users: users}
}

// Authenticate validates the Bearer token, loads its user and stores the
// user in the request context.
func (a *Auth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			response.Error(w, http.StatusUnauthorized,
				"INVALID_TOKEN", "Authentication required", nil)
			return
		}

		userID, err := a.tokens.Parse(token)
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				slog.Warn("authentication failed: token expired")
				response.Error(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "Token expired", nil)
				return
			}
			slog.Warn("authentication failed: invalid token")
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token", nil)
			return
		}

		user, err := a.users.GetUserByID(r.Context(), userID)
		if errors.Is(err, store.ErrNotFound) {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "User not found", nil)
			return
		}
		if err != nil {
			response.Internal(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(SetUser(r.Context(), user)))
	})
}

// RequireRole returns middleware that only admits users with role.
func (a *Auth) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := GetUser(r)
			if !ok || user.Role != role {
				if ok {
					slog.Warn("access denied", "user_id", user.ID, "required_role", role)
				}
				response.Error(w, http.StatusForbidden,
					"FORBIDDEN", "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
