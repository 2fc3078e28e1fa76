package llm

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

// MockProvider is a test provider that records calls and returns canned
// responses.
type MockProvider struct {
	mu       sync.Mutex
	Calls    []CompletionRequest
	Response *CompletionResponse
	Err      error
	ProvName string
}

func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		ProvName: name,
		Response: &CompletionResponse{
			Content:      "mock response",
			InputTokens:  10,
			OutputTokens: 20,
		},
	}
}

func (m *MockProvider) Name() string {
	return m.ProvName
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, req)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}

func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

func TestMockProviderRecordsCalls(t *testing.T) {
	mock := NewMockProvider("test")
	ctx := context.Background()

	req := CompletionRequest{
		System: "you are a diagnostic engine",
		Prompt: "Symptom: grinding noise",
	}

	resp, err := mock.Complete(ctx, req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if mock.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", mock.CallCount())
	}
	if !strings.HasPrefix(mock.Calls[0].Prompt, "Symptom:") {
		t.Errorf("recorded prompt = %q", mock.Calls[0].Prompt)
	}
}

func TestNewOpenAIProviderRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := NewOpenAIProvider("", "gpt-4o-mini"); err == nil {
		t.Error("expected error with missing API key")
	}
	if _, err := EmbeddingFunc("", "text-embedding-3-small"); err == nil {
		t.Error("expected error with missing API key for embeddings")
	}
}

func TestNewOpenAIProviderWithKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "test-key")

	provider, err := NewOpenAIProvider("http://localhost:8081/v1", "gpt-4o-mini")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.Name() != "openai" {
		t.Errorf("expected name 'openai', got %q", provider.Name())
	}
}

func TestRateLimiterPassesThrough(t *testing.T) {
	mock := NewMockProvider("test")
	rl := NewRateLimitedProvider(mock, 60)

	resp, err := rl.Complete(context.Background(), CompletionRequest{Prompt: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if rl.Name() != "test" {
		t.Errorf("expected name 'test', got %q", rl.Name())
	}
}

func TestRateLimiterLimitsRequests(t *testing.T) {
	mock := NewMockProvider("test")
	// Allow only 2 requests per minute.
	rl := NewRateLimitedProvider(mock, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	req := CompletionRequest{Prompt: "hello"}

	// First two should succeed immediately.
	for i := 0; i < 2; i++ {
		if _, err := rl.Complete(ctx, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}

	// Third should block and eventually fail due to context timeout.
	if _, err := rl.Complete(ctx, req); err == nil {
		t.Error("expected error due to rate limiting + context timeout")
	}
}

func TestRateLimiterWaitMatchesRate(t *testing.T) {
	rl, ok := NewRateLimitedProvider(NewMockProvider("test"), 2).(*RateLimitedProvider)
	if !ok {
		t.Fatal("expected wrapped provider for positive rpm")
	}

	// Drain the initial capacity.
	for i := 0; i < 2; i++ {
		if wait := rl.take(); wait != 0 {
			t.Fatalf("take %d blocked for %v with capacity available", i, wait)
		}
	}

	// At 2 rpm the next slot accrues in at most 30 seconds.
	wait := rl.take()
	if wait <= 0 || wait > 30*time.Second {
		t.Errorf("wait = %v, want within (0, 30s]", wait)
	}
}

func TestRateLimiterDisabledReturnsUnwrapped(t *testing.T) {
	mock := NewMockProvider("test")
	if got := NewRateLimitedProvider(mock, 0); got != Provider(mock) {
		t.Error("rpm 0 should return the provider unwrapped")
	}
}
