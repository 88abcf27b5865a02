package search

import (
	"context"
	"sync"
)

// MockProvider is a test double for search providers.
type MockProvider struct {
	Result Result
	Err    error
	// Block, when set, makes Search wait until it is closed or ctx is done.
	Block chan struct{}

	mu        sync.Mutex
	lastQuery string
	calls     int
}

// NewMockProvider creates a MockProvider that returns the given result.
func NewMockProvider(result Result) *MockProvider {
	return &MockProvider{Result: result}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) Search(ctx context.Context, query string) (Result, error) {
	m.mu.Lock()
	m.lastQuery = query
	m.calls++
	m.mu.Unlock()

	if m.Block != nil {
		select {
		case <-m.Block:
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return Result{}, m.Err
	}
	return m.Result, nil
}

// LastQuery returns the query of the most recent Search call.
func (m *MockProvider) LastQuery() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastQuery
}

// Calls returns how many times Search was called.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
