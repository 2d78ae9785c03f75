package testutil

import (
	"context"
	"sync"
)

// MockResource is a transactional resource for coordinator tests. It
// counts calls and returns the configured errors.
type MockResource struct {
	mu sync.Mutex

	ResourceName string
	BeginErr     error
	CommitErr    error
	RollbackErr  error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int

	// Committed is the number of successful commits.
	Committed int
}

// NewMockResource creates a resource that always succeeds.
func NewMockResource(name string) *MockResource {
	return &MockResource{ResourceName: name}
}

// Name returns the resource name.
func (m *MockResource) Name() string { return m.ResourceName }

// Begin records the call.
func (m *MockResource) Begin(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.BeginCalls++
	return m.BeginErr
}

// Commit records the call.
func (m *MockResource) Commit(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CommitCalls++
	if m.CommitErr != nil {
		return m.CommitErr
	}
	m.Committed++
	return nil
}

// Rollback records the call.
func (m *MockResource) Rollback(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RollbackCalls++
	return m.RollbackErr
}

// Calls returns the begin, commit and rollback counts.
func (m *MockResource) Calls() (begin, commit, rollback int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.BeginCalls, m.CommitCalls, m.RollbackCalls
}

// SetCommitErr changes the commit error.
func (m *MockResource) SetCommitErr(err error) {
	m.mu.Lock()
	m.CommitErr = err
	m.mu.Unlock()
}
