package ai

import (
	"context"

	"github.com/plenumhq/plenum/core"
)

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice contains embeddings in the same order as the
	// input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer generates chat completions.
// Implementations must be thread-safe for concurrent use.
type Completer interface {
	// Complete sends the conversation to the model and returns its reply.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (*Completion, error)
}

// Transcriber converts one audio file into diarized, time-aligned text.
// Implementations must be thread-safe for concurrent use.
//
// Transcribe operates on a single file; chunking of long recordings is the
// caller's concern. Timestamps in the result are relative to the start of
// the given file. An empty language requests auto-detection.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string) (*TranscriptionResult, error)
}

// EntityExtractor extracts structured entities from transcripts and writes
// session summaries. Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities analyzes a transcript and returns the entities found
	// in it. Missing categories come back empty, never nil bundle fields
	// with partial data dropped.
	ExtractEntities(ctx context.Context, transcript, title string) (*core.EntityBundle, error)

	// Summarize writes a 200-300 word prose summary of the transcript,
	// informed by the already-extracted entities.
	Summarize(ctx context.Context, transcript, title string, entities *core.EntityBundle) (string, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. All returned services share the provider's
// configuration and are safe for concurrent use.
type Provider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// Completer returns the chat completion service.
	Completer() Completer

	// Transcriber returns the audio transcription service.
	Transcriber() Transcriber

	// EntityExtractor returns the entity extraction service.
	EntityExtractor() EntityExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
