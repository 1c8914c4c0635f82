package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

type contextKey string

const (
	userKey   contextKey = "user"
	callerKey contextKey = "caller"
)

// SetUser stores the authenticated user in ctx. Outer middleware that
// installed a caller slot also learns the user id.
func SetUser(ctx context.Context, u *models.User) context.Context {
	if c, ok := ctx.Value(callerKey).(*caller); ok && u != nil {
		c.set(u.ID)
	}
	return context.WithValue(ctx, userKey, u)
}

// GetUser returns the user set by Authenticate.
func GetUser(r *http.Request) (*models.User, bool) {
	u, ok := r.Context().Value(userKey).(*models.User)
	return u, ok && u != nil
}

// caller lets Logger and Recovery, which wrap Authenticate, see who made the
// request after the inner chain has run.
type caller struct {
	mu sync.Mutex
	id uuid.UUID
	ok bool
}

func (c *caller) set(id uuid.UUID) {
	c.mu.Lock()
	c.id, c.ok = id, true
	c.mu.Unlock()
}

func (c *caller) get() (uuid.UUID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id, c.ok
}

// withCaller returns ctx carrying a caller slot, reusing one already present.
func withCaller(ctx context.Context) (context.Context, *caller) {
	if c, ok := ctx.Value(callerKey).(*caller); ok {
		return ctx, c
	}
	c := &caller{}
	return context.WithValue(ctx, callerKey, c), c
}

func callerAttrs(ctx context.Context) []any {
	if c, ok := ctx.Value(callerKey).(*caller); ok {
		if id, ok := c.get(); ok {
			return []any{"user_id", id}
		}
	}
	return nil
}
