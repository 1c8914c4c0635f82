package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/feedbackhub/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing. It records every request.
type MockProvider struct {
	Name_        string
	Model_       string
	GenerateFunc func(ctx context.Context, req models.GenerationRequest) (string, error)

	mu       sync.Mutex
	requests []models.GenerationRequest
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Model() string { return m.Model_ }

func (m *MockProvider) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, req)
	}
	return "", nil
}

// Requests returns a copy of the requests received so far.
func (m *MockProvider) Requests() []models.GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.GenerationRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// Calls returns how many times Generate was called.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// NewMockProvider returns a MockProvider with a sensible default response.
func NewMockProvider() *MockProvider {
	return NewScriptedProvider("You can track feedback status from open to in-progress to resolved, and upvote the items that matter most.")
}

// NewScriptedProvider answers successive calls with the given responses in
// order, repeating the last one once exhausted.
func NewScriptedProvider(responses ...string) *MockProvider {
	var (
		mu sync.Mutex
		i  int
	)
	return &MockProvider{
		Name_:  "mock",
		Model_: "mock-v1",
		GenerateFunc: func(_ context.Context, _ models.GenerationRequest) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(responses) == 0 {
				return "", nil
			}
			r := responses[min(i, len(responses)-1)]
			i++
			return r, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_:  "mock-failing",
		Model_: "mock-v1",
		GenerateFunc: func(_ context.Context, _ models.GenerationRequest) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock-timeout",
		Model_: "mock-v1",
		GenerateFunc: func(ctx context.Context, _ models.GenerationRequest) (string, error) {
			<-ctx.Done()
			return "", models.WrapProviderError(ctx, "mock-timeout", ctx.Err())
		},
	}
}

// NewPanickingProvider returns a MockProvider whose Generate panics.
func NewPanickingProvider() *MockProvider {
	return &MockProvider{
		Name_:  "mock-panic",
		Model_: "mock-v1",
		GenerateFunc: func(_ context.Context, _ models.GenerationRequest) (string, error) {
			panic("provider exploded")
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
