package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/internal/api"
	mw "github.com/kiranshivaraju/feedbackhub/internal/api/middleware"
	"github.com/kiranshivaraju/feedbackhub/internal/auth"
	"github.com/kiranshivaraju/feedbackhub/internal/cache"
	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/internal/store"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- stub user loader ---

type stubUsers struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUsers) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, store.ErrNotFound
}

// --- stub cache ---

type stubCache struct{}

func (c *stubCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (c *stubCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (c *stubCache) Delete(_ context.Context, _ string) error                         { return nil }
func (c *stubCache) Ping(_ context.Context) error                                     { return nil }
func (c *stubCache) IncrWithExpiry(_ context.Context, _ string, expiry time.Duration) (int64, time.Duration, error) {
	return 1, expiry, nil
}

// --- router tests ---

const testSecret = "router-test-secret"

type fixture struct {
	router     http.Handler
	userToken  string
	adminToken string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	issuer := auth.NewIssuer(testSecret, time.Hour)
	member := &models.User{ID: uuid.New(), Role: models.RoleUser}
	admin := &models.User{ID: uuid.New(), Role: models.RoleAdmin}
	users := &stubUsers{users: map[uuid.UUID]*models.User{member.ID: member, admin.ID: admin}}

	userToken, err := issuer.Issue(member.ID)
	require.NoError(t, err)
	adminToken, err := issuer.Issue(admin.ID)
	require.NoError(t, err)

	window := config.Window{Limit: 100, Period: time.Minute}
	ok := func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"data":{}}`))
	}
	router := api.NewRouter(api.Dependencies{
		Auth:                mw.NewAuth(issuer, users),
		APILimit:            mw.NewRateLimit(&stubCache{}, "api", window, "slow down"),
		AuthLimit:           mw.NewRateLimit(&stubCache{}, "auth", window, "slow down"),
		AILimit:             mw.NewRateLimit(&stubCache{}, "ai", window, "slow down"),
		AllowedOrigins:      []string{"http://localhost:3000"},
		HealthHandler:       ok,
		RegisterHandler:     ok,
		ListFeedback:        ok,
		ProviderInfoHandler: ok,
	})
	return fixture{router: router, userToken: userToken, adminToken: adminToken}
}

func do(router http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"].(map[string]any)["code"].(string)
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	f := newFixture(t)
	w := do(f.router, "GET", "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_RegisterIsPublic(t *testing.T) {
	f := newFixture(t)
	w := do(f.router, "POST", "/api/v1/users/register", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "100", w.Header().Get("X-RateLimit-Limit"))
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	f := newFixture(t)
	id := uuid.NewString()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/users/profile"},
		{"PUT", "/api/v1/users/profile"},
		{"GET", "/api/v1/feedback"},
		{"POST", "/api/v1/feedback"},
		{"GET", "/api/v1/feedback/stats"},
		{"GET", "/api/v1/feedback/" + id},
		{"PUT", "/api/v1/feedback/" + id},
		{"DELETE", "/api/v1/feedback/" + id},
		{"PATCH", "/api/v1/feedback/" + id + "/upvote"},
		{"POST", "/api/v1/ai/query"},
		{"GET", "/api/v1/admin/ai/provider"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			w := do(f.router, ep.method, ep.path, "")
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "INVALID_TOKEN", errCode(t, w))
		})
	}
}

func TestRouter_AuthenticatedReachesHandler(t *testing.T) {
	f := newFixture(t)
	w := do(f.router, "GET", "/api/v1/feedback", f.userToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_UnwiredHandlerIsNotImplemented(t *testing.T) {
	f := newFixture(t)
	w := do(f.router, "GET", "/api/v1/feedback/stats", f.userToken)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_AdminRoutes(t *testing.T) {
	f := newFixture(t)

	w := do(f.router, "GET", "/api/v1/admin/ai/provider", f.userToken)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(f.router, "GET", "/api/v1/admin/ai/provider", f.adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	f := newFixture(t)
	w := do(f.router, "GET", "/api/v1/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errCode(t, w))
}

func TestRouter_CORSPreflight(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/feedback", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("OPTIONS", "/api/v1/feedback", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

var _ cache.Cache = (*stubCache)(nil)
