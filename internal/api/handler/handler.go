// Package handler holds the HTTP handlers for the v1 API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/feedbackhub/internal/api/middleware"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/feedback"
	"github.com/kiranshivaraju/feedbackhub/internal/user"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into v. It writes the error response
// itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u, ok := mw.GetUser(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Authentication required", nil)
	}
	return u, ok
}

func feedbackID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid feedback ID", nil)
		return uuid.Nil, false
	}
	return id, true
}

func validationFailed(w http.ResponseWriter, field, message string) {
	response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", message,
		map[string]string{field: message})
}

// writeServiceError maps service errors onto the error envelope.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var fverr *feedback.ValidationError
	var uverr *user.ValidationError
	switch {
	case errors.As(err, &fverr):
		validationFailed(w, fverr.Field, fverr.Field+" "+fverr.Message)
	case errors.As(err, &uverr):
		validationFailed(w, uverr.Field, uverr.Field+" "+uverr.Message)
	case errors.Is(err, feedback.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "Feedback not found", nil)
	case errors.Is(err, feedback.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Not authorized to modify this feedback", nil)
	case errors.Is(err, user.ErrNotFound):
		response.Error(w, http.StatusNotFound, "RESOURCE_NOT_FOUND", "User not found", nil)
	case errors.Is(err, user.ErrEmailTaken):
		response.Error(w, http.StatusConflict, "EMAIL_TAKEN", "User already exists with this email", nil)
	case errors.Is(err, user.ErrInvalidCredentials):
		response.Error(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	default:
		response.Internal(w, r, err)
	}
}
