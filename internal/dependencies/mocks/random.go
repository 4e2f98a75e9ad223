package mocks

import (
	"sync"

	"github.com/mcoot/fiteval/internal/dependencies/random"
)

// MockRandom is a mock implementation of Random for testing.
// Once a queue is exhausted it falls back to a real generator.
type MockRandom struct {
	mu sync.Mutex

	// IDResults is a queue of results to return from ID
	IDResults []string
	idIndex   int

	// TokenResults is a queue of results to return from Token
	TokenResults []string
	tokenIndex   int

	fallback random.CryptoRandom
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

// ID returns the next queued result, or a real UUID if none remaining
func (r *MockRandom) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idIndex >= len(r.IDResults) {
		return r.fallback.ID()
	}
	result := r.IDResults[r.idIndex]
	r.idIndex++
	return result
}

// Token returns the next queued result, or a real token if none remaining
func (r *MockRandom) Token(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tokenIndex >= len(r.TokenResults) {
		return r.fallback.Token(n)
	}
	result := r.TokenResults[r.tokenIndex]
	r.tokenIndex++
	return result
}

// QueueID adds values to the ID result queue
func (r *MockRandom) QueueID(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IDResults = append(r.IDResults, values...)
}

// QueueToken adds values to the Token result queue
func (r *MockRandom) QueueToken(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.TokenResults = append(r.TokenResults, values...)
}

// Reset clears all queued results
func (r *MockRandom) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.IDResults = nil
	r.idIndex = 0
	r.TokenResults = nil
	r.tokenIndex = 0
}
