package ai

// MessageRole identifies the author of a chat message sent to a Completer.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one turn of a conversation sent to a Completer.
type Message struct {
	Role    MessageRole
	Content string
}

// CompletionOptions tunes a single completion request.
type CompletionOptions struct {
	// Temperature controls sampling randomness. Zero requests deterministic
	// output.
	Temperature float64

	// MaxTokens caps the reply length. Zero means the model default.
	MaxTokens int

	// JSONMode asks the model to emit a single JSON object.
	JSONMode bool
}

// Completion is the model's reply to a Complete call.
type Completion struct {
	Text       string
	TokensUsed int
}

// TranscriptionSegment is one diarized span of transcribed speech. Start and
// End are seconds relative to the start of the transcribed file.
type TranscriptionSegment struct {
	Speaker    string
	Start      float64
	End        float64
	Text       string
	Confidence float32
}

// TranscriptionResult is the full output of transcribing one audio file.
type TranscriptionResult struct {
	Text     string
	Segments []TranscriptionSegment
	Language string
	Duration float64
}
