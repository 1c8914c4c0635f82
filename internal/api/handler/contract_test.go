package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/feedbackhub/internal/ai"
	"github.com/kiranshivaraju/feedbackhub/internal/ai/mock"
	"github.com/kiranshivaraju/feedbackhub/internal/api"
	"github.com/kiranshivaraju/feedbackhub/internal/api/handler"
	mw "github.com/kiranshivaraju/feedbackhub/internal/api/middleware"
	"github.com/kiranshivaraju/feedbackhub/internal/api/response"
	"github.com/kiranshivaraju/feedbackhub/internal/auth"
	"github.com/kiranshivaraju/feedbackhub/internal/config"
	"github.com/kiranshivaraju/feedbackhub/internal/feedback"
	"github.com/kiranshivaraju/feedbackhub/internal/store"
	"github.com/kiranshivaraju/feedbackhub/internal/user"
	"github.com/kiranshivaraju/feedbackhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ─── in-memory store ─────────────────────────────────────────────────────────

type memStore struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*models.User
	feedback map[uuid.UUID]*models.Feedback
}

func newMemStore() *memStore {
	return &memStore{
		users:    make(map[uuid.UUID]*models.User),
		feedback: make(map[uuid.UUID]*models.Feedback),
	}
}

func (s *memStore) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return store.ErrDuplicateKey
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *memStore) UpdateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email && existing.ID != u.ID {
			return store.ErrDuplicateKey
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *memStore) CreateFeedback(_ context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.feedback[f.ID] = &cp
	return nil
}

func (s *memStore) GetFeedback(_ context.Context, id uuid.UUID) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feedback[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *memStore) ListFeedback(_ context.Context, filter store.FeedbackFilter) ([]*models.Feedback, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*models.Feedback
	for _, f := range s.feedback {
		if (filter.Status == "" || f.Status == filter.Status) && (filter.Category == "" || f.Category == filter.Category) {
			cp := *f
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := min((filter.Page-1)*filter.Limit, len(all))
	end := min(start+filter.Limit, len(all))
	return all[start:end], len(all), nil
}

func (s *memStore) ListRecentFeedback(ctx context.Context, limit int) ([]*models.Feedback, error) {
	items, _, err := s.ListFeedback(ctx, store.FeedbackFilter{Page: 1, Limit: limit})
	return items, err
}

func (s *memStore) UpdateFeedback(_ context.Context, f *models.Feedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *f
	s.feedback[f.ID] = &cp
	return nil
}

func (s *memStore) DeleteFeedback(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.feedback[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.feedback, id)
	return nil
}

func (s *memStore) UpvoteFeedback(_ context.Context, id uuid.UUID) (*models.Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feedback[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	f.Upvotes++
	cp := *f
	return &cp, nil
}

func (s *memStore) UpdateFeedbackSummary(_ context.Context, id uuid.UUID, summary string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.feedback[id]
	if !ok || f.AISummary != nil {
		return store.ErrNotFound
	}
	f.AISummary = &summary
	return nil
}

func (s *memStore) FeedbackStats(_ context.Context) (*models.FeedbackStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := &models.FeedbackStats{ByStatus: map[string]int{}, ByCategory: map[string]int{}}
	for _, f := range s.feedback {
		stats.Total++
		stats.ByStatus[f.Status]++
		stats.ByCategory[f.Category]++
	}
	return stats, nil
}

// ─── in-memory cache ─────────────────────────────────────────────────────────

type memCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	counters map[string]int64
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte), counters: make(map[string]int64)}
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Ping(_ context.Context) error { return nil }

func (c *memCache) IncrWithExpiry(_ context.Context, key string, expiry time.Duration) (int64, time.Duration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counters[key]++
	return c.counters[key], expiry, nil
}

// ─── test server ─────────────────────────────────────────────────────────────

const (
	testSecret     = "contract-test-secret"
	testAnswer     = "You can track feedback status and category from the dashboard view."
	aiLimitPerHour = 3
)

type testServer struct {
	server    *httptest.Server
	store     *memStore
	provider  *mock.MockProvider
	annotator *ai.Annotator
	issuer    *auth.Issuer
}

func newTestServer(t *testing.T, provider *mock.MockProvider) *testServer {
	t.Helper()

	ms := newMemStore()
	mc := newMemCache()
	issuer := auth.NewIssuer(testSecret, time.Hour)

	orchestrator := ai.NewOrchestrator(provider, ai.NewContextBuilder(ms), ai.DefaultValidator{}, time.Second)
	annotator := ai.NewAnnotator(orchestrator, ms, 0, time.Second)
	users := user.NewService(ms, issuer)
	items := feedback.NewService(ms, mc, annotator)

	wide := config.Window{Limit: 1000, Period: time.Hour}
	deps := api.Dependencies{
		Auth:           mw.NewAuth(issuer, ms),
		APILimit:       mw.NewRateLimit(mc, "api", wide, "Too many requests, please try again later."),
		AuthLimit:      mw.NewRateLimit(mc, "auth", wide, "Too many login attempts, please try again later."),
		AILimit:        mw.NewRateLimit(mc, "ai", config.Window{Limit: aiLimitPerHour, Period: time.Hour}, "AI query limit reached, please try again later."),
		AllowedOrigins: []string{"http://localhost:3000"},

		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			response.JSON(w, map[string]string{"status": "ok"})
		},

		RegisterHandler:      handler.NewRegisterHandler(users),
		LoginHandler:         handler.NewLoginHandler(users),
		ProfileHandler:       handler.NewProfileHandler(),
		UpdateProfileHandler: handler.NewUpdateProfileHandler(users),

		ListFeedback:   handler.NewListFeedbackHandler(items),
		CreateFeedback: handler.NewCreateFeedbackHandler(items),
		FeedbackStats:  handler.NewFeedbackStatsHandler(items),
		GetFeedback:    handler.NewGetFeedbackHandler(items),
		UpdateFeedback: handler.NewUpdateFeedbackHandler(items),
		DeleteFeedback: handler.NewDeleteFeedbackHandler(items),
		UpvoteFeedback: handler.NewUpvoteFeedbackHandler(items),

		QueryHandler:        handler.NewQueryHandler(orchestrator),
		ProviderInfoHandler: handler.NewProviderInfoHandler(provider),
	}

	srv := httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(func() {
		annotator.Wait()
		srv.Close()
	})

	return &testServer{server: srv, store: ms, provider: provider, annotator: annotator, issuer: issuer}
}

func (ts *testServer) request(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &buf)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// register creates an account through the API and returns its token and id.
func (ts *testServer) register(t *testing.T, name, email string) (string, string) {
	t.Helper()
	resp := ts.request(t, "POST", "/api/v1/users/register", "", map[string]string{
		"name": name, "email": email, "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	return data["token"].(string), data["user"].(map[string]any)["id"].(string)
}

// adminToken seeds an admin account directly in the store.
func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	admin := &models.User{ID: uuid.New(), Name: "Root", Email: "root@example.com", Role: models.RoleAdmin}
	require.NoError(t, ts.store.CreateUser(context.Background(), admin))
	token, err := ts.issuer.Issue(admin.ID)
	require.NoError(t, err)
	return token
}

func (ts *testServer) createFeedback(t *testing.T, token, title string) map[string]any {
	t.Helper()
	resp := ts.request(t, "POST", "/api/v1/feedback", token, map[string]any{
		"title":       title,
		"description": "The export button does nothing on large reports.",
		"category":    "bug",
		"rating":      2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return parseBody(t, resp)["data"].(map[string]any)
}

func parseBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func errorCode(t *testing.T, resp *http.Response) string {
	t.Helper()
	return parseBody(t, resp)["error"].(map[string]any)["code"].(string)
}

// ═══════════════════════════════════════════════════════════════════════════════
// CONTRACT TESTS
// ═══════════════════════════════════════════════════════════════════════════════

// ─── users ───────────────────────────────────────────────────────────────────

func TestRegister_201_ReturnsTokenWithoutHash(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))

	resp := ts.request(t, "POST", "/api/v1/users/register", "", map[string]string{
		"name": "Ada", "email": "Ada@Example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	data := parseBody(t, resp)["data"].(map[string]any)
	assert.NotEmpty(t, data["token"])
	u := data["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", u["email"])
	assert.Equal(t, "user", u["role"])
	assert.NotContains(t, u, "password_hash")
}

func TestRegister_409_DuplicateEmail(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "POST", "/api/v1/users/register", "", map[string]string{
		"name": "Ada Two", "email": "ada@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "EMAIL_TAKEN", errorCode(t, resp))
}

func TestRegister_400_Validation(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))

	resp := ts.request(t, "POST", "/api/v1/users/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "short",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["details"], "password")
}

func TestRegister_400_PasswordTooLong(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))

	resp := ts.request(t, "POST", "/api/v1/users/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": strings.Repeat("p", 73),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := parseBody(t, resp)["error"].(map[string]any)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["details"], "password")
}

func TestRegister_400_InvalidJSON(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))

	req, err := http.NewRequest("POST", ts.server.URL+"/api/v1/users/register", strings.NewReader("{"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, resp))
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "POST", "/api/v1/users/login", "", map[string]string{
		"email": "ada@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, parseBody(t, resp)["data"].(map[string]any)["token"])

	resp = ts.request(t, "POST", "/api/v1/users/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", errorCode(t, resp))
}

func TestProfile_GetAndUpdate(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "GET", "/api/v1/users/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada", parseBody(t, resp)["data"].(map[string]any)["name"])

	resp = ts.request(t, "PUT", "/api/v1/users/profile", token, map[string]string{"name": "Ada Lovelace"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ada Lovelace", parseBody(t, resp)["data"].(map[string]any)["name"])

	ts.register(t, "Bob", "bob@example.com")
	resp = ts.request(t, "PUT", "/api/v1/users/profile", token, map[string]string{"email": "bob@example.com"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// ─── feedback ────────────────────────────────────────────────────────────────

func TestCreateFeedback_201(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, userID := ts.register(t, "Ada", "ada@example.com")

	data := ts.createFeedback(t, token, "Export broken")
	assert.Equal(t, "open", data["status"])
	assert.Equal(t, userID, data["user_id"])
	assert.Equal(t, float64(2), data["rating"])
	assert.Equal(t, "ada@example.com", data["author"].(map[string]any)["email"])
}

func TestCreateFeedback_400_Validation(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "POST", "/api/v1/feedback", token, map[string]any{
		"title": "ok title", "description": "long enough description", "category": "question",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", errorCode(t, resp))
}

func TestCreateFeedback_SummaryAttached(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider("Users report that the export feature fails on large reports."))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	created := ts.createFeedback(t, token, "Export broken")
	assert.NotContains(t, created, "ai_summary")

	ts.annotator.Wait()

	resp := ts.request(t, "GET", "/api/v1/feedback/"+created["id"].(string), token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, "Users report that the export feature fails on large reports.", data["ai_summary"])
}

func TestListFeedback_Paginated(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")
	for _, title := range []string{"First item", "Second item", "Third item"} {
		ts.createFeedback(t, token, title)
	}

	resp := ts.request(t, "GET", "/api/v1/feedback?page=1&limit=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := parseBody(t, resp)

	assert.Len(t, body["data"].([]any), 2)
	meta := body["meta"].(map[string]any)
	assert.Equal(t, float64(1), meta["page"])
	assert.Equal(t, float64(2), meta["limit"])
	assert.Equal(t, float64(3), meta["total"])
	assert.Equal(t, float64(2), meta["pages"])
}

func TestListFeedback_EmptyIsArray(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "GET", "/api/v1/feedback?status=resolved", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{}, parseBody(t, resp)["data"])
}

func TestListFeedback_400_BadQuery(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	for _, q := range []string{"?page=zero", "?limit=-1", "?status=closed", "?category=question"} {
		t.Run(q, func(t *testing.T) {
			resp := ts.request(t, "GET", "/api/v1/feedback"+q, token, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestGetFeedback_Errors(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "GET", "/api/v1/feedback/not-a-uuid", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.request(t, "GET", "/api/v1/feedback/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "RESOURCE_NOT_FOUND", errorCode(t, resp))
}

func TestUpdateFeedback_Ownership(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	owner, _ := ts.register(t, "Ada", "ada@example.com")
	other, _ := ts.register(t, "Bob", "bob@example.com")
	id := ts.createFeedback(t, owner, "Export broken")["id"].(string)

	resp := ts.request(t, "PUT", "/api/v1/feedback/"+id, other, map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorCode(t, resp))

	resp = ts.request(t, "PUT", "/api/v1/feedback/"+id, owner, map[string]string{"status": "in-progress"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in-progress", parseBody(t, resp)["data"].(map[string]any)["status"])

	resp = ts.request(t, "PUT", "/api/v1/feedback/"+id, ts.adminToken(t), map[string]string{"status": "resolved"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeleteFeedback(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	owner, _ := ts.register(t, "Ada", "ada@example.com")
	other, _ := ts.register(t, "Bob", "bob@example.com")
	id := ts.createFeedback(t, owner, "Export broken")["id"].(string)

	resp := ts.request(t, "DELETE", "/api/v1/feedback/"+id, other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.request(t, "DELETE", "/api/v1/feedback/"+id, owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.request(t, "GET", "/api/v1/feedback/"+id, owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpvoteFeedback(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	owner, _ := ts.register(t, "Ada", "ada@example.com")
	other, _ := ts.register(t, "Bob", "bob@example.com")
	id := ts.createFeedback(t, owner, "Export broken")["id"].(string)

	ts.request(t, "PATCH", "/api/v1/feedback/"+id+"/upvote", owner, nil)
	resp := ts.request(t, "PATCH", "/api/v1/feedback/"+id+"/upvote", other, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), parseBody(t, resp)["data"].(map[string]any)["upvotes"])
}

func TestFeedbackStats(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")
	ts.createFeedback(t, token, "Export broken")
	ts.createFeedback(t, token, "Import broken")

	resp := ts.request(t, "GET", "/api/v1/feedback/stats", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, float64(2), data["total"])
	assert.Equal(t, float64(2), data["by_category"].(map[string]any)["bug"])
}

// ─── ai ──────────────────────────────────────────────────────────────────────

func TestAIQuery_200(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "POST", "/api/v1/ai/query", token, map[string]string{"prompt": "How do I track bug status?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, testAnswer, data["answer"])
	assert.Equal(t, "How do I track bug status?", data["prompt"])
}

func TestAIQuery_ProviderDownStillAnswers(t *testing.T) {
	ts := newTestServer(t, mock.NewFailingProvider(errors.New("connection refused")))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "POST", "/api/v1/ai/query", token, map[string]string{"prompt": "How do I track bug status?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	answer := parseBody(t, resp)["data"].(map[string]any)["answer"].(string)
	assert.Contains(t, answer, `"How do I track bug status?"`)
}

func TestAIQuery_400_PromptValidation(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	tests := map[string]string{
		"empty":    "",
		"blank":    "   ",
		"too long": strings.Repeat("é", handler.MaxPromptLength+1),
	}
	for name, prompt := range tests {
		t.Run(name, func(t *testing.T) {
			resp := ts.request(t, "POST", "/api/v1/ai/query", token, map[string]string{"prompt": prompt})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
	assert.Zero(t, ts.provider.Calls())
}

func TestAIQuery_MaxLengthAccepted(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "POST", "/api/v1/ai/query", token, map[string]string{
		"prompt": strings.Repeat("é", handler.MaxPromptLength),
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAIQuery_429_RateLimited(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	for range aiLimitPerHour {
		resp := ts.request(t, "POST", "/api/v1/ai/query", token, map[string]string{"prompt": "status?"})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := ts.request(t, "POST", "/api/v1/ai/query", token, map[string]string{"prompt": "status?"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errorCode(t, resp))
}

// ─── admin ───────────────────────────────────────────────────────────────────

func TestProviderInfo_AdminOnly(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))
	token, _ := ts.register(t, "Ada", "ada@example.com")

	resp := ts.request(t, "GET", "/api/v1/admin/ai/provider", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.request(t, "GET", "/api/v1/admin/ai/provider", ts.adminToken(t), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := parseBody(t, resp)["data"].(map[string]any)
	assert.Equal(t, ts.provider.Name(), data["provider"])
	assert.Equal(t, ts.provider.Model(), data["model"])
}

// ─── Response format contract ───────────────────────────────────────────────

func TestResponseFormat_ErrorEnvelope(t *testing.T) {
	ts := newTestServer(t, mock.NewScriptedProvider(testAnswer))

	resp := ts.request(t, "POST", "/api/v1/feedback", "", nil)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	body := parseBody(t, resp)
	errObj := body["error"].(map[string]any)
	assert.NotEmpty(t, errObj["code"])
	assert.NotEmpty(t, errObj["message"])
}
