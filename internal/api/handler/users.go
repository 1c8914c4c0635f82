package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/user"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// UserService defines the account operations the handlers depend on.
type UserService interface {
	Register(ctx context.Context, name, email, password string) (*user.Session, error)
	Login(ctx context.Context, email, password string) (*user.Session, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, upd user.ProfileUpdate) (*models.User, error)
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// NewRegisterHandler returns an http.HandlerFunc for POST /api/v1/users/register.
func NewRegisterHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name     string `json:"name"`
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		sess, err := svc.Register(r.Context(), req.Name, req.Email, req.Password)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Info("user registered", "user_id", sess.User.ID)
		response.Created(w, sessionResponse{User: sess.User, Token: sess.Token})
	}
}

// NewLoginHandler returns an http.HandlerFunc for POST /api/v1/users/login.
func NewLoginHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Email == "" || req.Password == "" {
			validationFailed(w, "email", "email and password are required")
			return
		}

		sess, err := svc.Login(r.Context(), req.Email, req.Password)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		slog.Info("user logged in", "user_id", sess.User.ID)
		response.JSON(w, sessionResponse{User: sess.User, Token: sess.Token})
	}
}

// NewProfileHandler returns an http.HandlerFunc for GET /api/v1/users/profile.
func NewProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(w, r)
		if !ok {
			return
		}
		response.JSON(w, u)
	}
}

// NewUpdateProfileHandler returns an http.HandlerFunc for PUT /api/v1/users/profile.
func NewUpdateProfileHandler(svc UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, ok := currentUser(w, r)
		if !ok {
			return
		}
		var req struct {
			Name  *string `json:"name"`
			Email *string `json:"email"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}

		updated, err := svc.UpdateProfile(r.Context(), u.ID, user.ProfileUpdate{Name: req.Name, Email: req.Email})
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		response.JSON(w, updated)
	}
}
