package mock

import (
	"context"

	"github.com/plenumhq/plenum/ai"
)

// MockTranscriber is a test double for ai.Transcriber.
// It allows custom behavior injection via function fields.
type MockTranscriber struct {
	// TranscribeFunc is called by Transcribe if set.
	// If nil, returns a fixed two-segment transcription.
	TranscribeFunc func(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error)

	callCount int
}

// NewMockTranscriber creates a mock transcriber with default fixed behavior.
func NewMockTranscriber() *MockTranscriber {
	return &MockTranscriber{}
}

// Transcribe returns a fixed transcription unless TranscribeFunc is set.
func (m *MockTranscriber) Transcribe(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
	m.callCount++

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, audioPath, language)
	}

	return &ai.TranscriptionResult{
		Text:     "Order, please. We reaffirm our commitment.",
		Language: "en",
		Duration: 12,
		Segments: []ai.TranscriptionSegment{
			{Speaker: "SPEAKER_00", Start: 0, End: 4.5, Text: "Order, please.", Confidence: 0.98},
			{Speaker: "SPEAKER_01", Start: 4.5, End: 12, Text: "We reaffirm our commitment.", Confidence: 0.95},
		},
	}, nil
}

// CallCount returns the number of times Transcribe was called.
func (m *MockTranscriber) CallCount() int {
	return m.callCount
}

// Reset clears the call count and injected behavior.
func (m *MockTranscriber) Reset() {
	m.callCount = 0
	m.TranscribeFunc = nil
}
