// Package testutil provides shared test infrastructure: a scripted model
// provider and a disposable PostgreSQL instance.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/akgolf/aicoach/internal/claude"
)

// MockProvider returns scripted responses in order, one per Chat call, and
// records every call so tests can assert on transcripts and options.
//
// Thread-safe for concurrent use.
type MockProvider struct {
	mu        sync.Mutex
	available bool
	model     string
	responses []claude.ChatResponse
	err       error
	calls     []MockCall
}

// MockCall records one Chat invocation.
type MockCall struct {
	Messages []claude.Message
	Options  claude.ChatOptions
}

// NewMockProvider creates an available provider that will play back the
// given responses in order.
func NewMockProvider(responses ...claude.ChatResponse) *MockProvider {
	return &MockProvider{available: true, model: "mock-model", responses: responses}
}

// NewUnavailableProvider creates a provider whose Available() is false.
// Chat panics if called, which is exactly what the orchestrator's
// fast path must prevent.
func NewUnavailableProvider() *MockProvider {
	return &MockProvider{available: false, model: "mock-model"}
}

// FailWith makes every Chat call return err instead of a scripted response.
func (m *MockProvider) FailWith(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// Available reports the scripted availability.
func (m *MockProvider) Available() bool { return m.available }

// Model returns the mock model name.
func (m *MockProvider) Model() string { return m.model }

// Chat records the call and returns the next scripted response. The last
// response repeats once the script is exhausted.
func (m *MockProvider) Chat(_ context.Context, messages []claude.Message, opts claude.ChatOptions) (claude.ChatResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.available {
		panic("Chat called on unavailable provider")
	}

	msgCopy := make([]claude.Message, len(messages))
	copy(msgCopy, messages)
	m.calls = append(m.calls, MockCall{Messages: msgCopy, Options: opts})

	if m.err != nil {
		return claude.ChatResponse{}, m.err
	}
	if len(m.responses) == 0 {
		return claude.ChatResponse{}, fmt.Errorf("mock provider has no scripted responses")
	}

	idx := len(m.calls) - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

// Calls returns a copy of all recorded calls.
func (m *MockProvider) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// CallCount returns how many times Chat was invoked.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}
