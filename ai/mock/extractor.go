package mock

import (
	"context"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
)

// MockEntityExtractor is a test double for ai.EntityExtractor.
// It allows custom behavior injection via function fields.
type MockEntityExtractor struct {
	// ExtractEntitiesFunc is called by ExtractEntities if set.
	// If nil, returns a small fixed bundle.
	ExtractEntitiesFunc func(ctx context.Context, transcript, title string) (*core.EntityBundle, error)

	// SummarizeFunc is called by Summarize if set.
	// If nil, returns a fixed summary.
	SummarizeFunc func(ctx context.Context, transcript, title string, entities *core.EntityBundle) (string, error)

	callCount int
}

// NewMockEntityExtractor creates a mock extractor with default fixed behavior.
func NewMockEntityExtractor() *MockEntityExtractor {
	return &MockEntityExtractor{}
}

// ExtractEntities returns a fixed bundle unless ExtractEntitiesFunc is set.
func (m *MockEntityExtractor) ExtractEntities(ctx context.Context, transcript, title string) (*core.EntityBundle, error) {
	m.callCount++

	if m.ExtractEntitiesFunc != nil {
		return m.ExtractEntitiesFunc(ctx, transcript, title)
	}

	return &core.EntityBundle{
		Speakers:               []core.Speaker{{Name: "SPEAKER_00", Country: "Nigeria"}},
		Countries:              []string{"Nigeria"},
		SDGs:                   []core.SDGRef{{Goal: 13, Context: "climate finance"}},
		Topics:                 []string{"climate"},
		Organizations:          []string{},
		Treaties:               []string{},
		KeyDecisions:           []string{},
		InterventionsByCountry: map[string]int{"Nigeria": 1},
	}, nil
}

// Summarize returns a fixed summary unless SummarizeFunc is set.
func (m *MockEntityExtractor) Summarize(ctx context.Context, transcript, title string, entities *core.EntityBundle) (string, error) {
	m.callCount++

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, transcript, title, entities)
	}

	return "A mock summary of the session.", nil
}

// CallCount returns the number of times any method was called.
func (m *MockEntityExtractor) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockEntityExtractor) Reset() {
	m.callCount = 0
	m.ExtractEntitiesFunc = nil
	m.SummarizeFunc = nil
}

var _ ai.EntityExtractor = (*MockEntityExtractor)(nil)
