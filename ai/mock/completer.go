package mock

import (
	"context"

	"github.com/plenumhq/plenum/ai"
)

// MockCompleter is a test double for ai.Completer.
// It allows custom behavior injection via function fields.
type MockCompleter struct {
	// CompleteFunc is called by Complete if set.
	// If nil, returns a fixed completion.
	CompleteFunc func(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (*ai.Completion, error)

	callCount int
}

// NewMockCompleter creates a mock completer with default fixed behavior.
func NewMockCompleter() *MockCompleter {
	return &MockCompleter{}
}

// Complete returns a fixed completion unless CompleteFunc is set.
func (m *MockCompleter) Complete(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (*ai.Completion, error) {
	m.callCount++

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages, opts)
	}

	return &ai.Completion{Text: "mock completion", TokensUsed: 10}, nil
}

// CallCount returns the number of times Complete was called.
func (m *MockCompleter) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockCompleter) Reset() {
	m.callCount = 0
	m.CompleteFunc = nil
}
