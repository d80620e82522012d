package storage

import (
	"context"
	"time"

	"github.com/plenumhq/plenum/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// SessionRepository provides operations for managing sessions.
type SessionRepository interface {
	Repository

	// CreateSession stores a new session.
	// Sets CreatedAt and UpdatedAt timestamps if not already set.
	// Returns ErrDuplicateKey if a session with the same key exists.
	CreateSession(ctx context.Context, session *core.Session) (*core.Session, error)

	// UpdateSession updates an existing session.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if the session doesn't exist.
	UpdateSession(ctx context.Context, session *core.Session) (*core.Session, error)

	// DeleteSession removes a session by key.
	// Also removes associated indices.
	// Returns ErrNotFound if the session doesn't exist.
	DeleteSession(ctx context.Context, key string) error

	// GetSession retrieves a single session by key.
	// Returns ErrNotFound if the session doesn't exist.
	GetSession(ctx context.Context, key string) (*core.Session, error)

	// ListSessions retrieves all sessions ordered by date descending.
	// Returns up to limit sessions; limit <= 0 means no limit.
	ListSessions(ctx context.Context, limit int) ([]*core.Session, error)

	// ListSessionsByStatus retrieves sessions with the given status,
	// ordered by date descending.
	ListSessionsByStatus(ctx context.Context, status core.Status) ([]*core.Session, error)

	// ListSessionsByDateRange retrieves sessions where
	// start <= Date < end, ordered by date ascending.
	ListSessionsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Session, error)
}

// TranscriptRepository provides operations for managing transcripts.
type TranscriptRepository interface {
	Repository

	// CreateTranscript stores a transcript, replacing any existing one for
	// the same session key.
	// Sets the CreatedAt timestamp if not already set.
	CreateTranscript(ctx context.Context, transcript *core.Transcript) (*core.Transcript, error)

	// DeleteTranscript removes the transcript for a session key.
	// Returns ErrNotFound if no transcript exists.
	DeleteTranscript(ctx context.Context, sessionKey string) error

	// GetTranscript retrieves the transcript for a session key.
	// Returns ErrNotFound if no transcript exists.
	GetTranscript(ctx context.Context, sessionKey string) (*core.Transcript, error)
}

// ChatRepository provides operations for managing per-session chat logs.
type ChatRepository interface {
	Repository

	// AppendChatMessages appends messages to a session's chat log.
	// For messages with empty ID, generates a new UUID.
	// Sets the CreatedAt timestamp if not already set.
	// Returns the messages with generated IDs and timestamps populated.
	AppendChatMessages(ctx context.Context, messages ...*core.ChatMessage) ([]*core.ChatMessage, error)

	// GetChatMessages retrieves a session's chat log in insertion order.
	// Returns up to limit messages from the end of the log; limit <= 0
	// means the full log.
	GetChatMessages(ctx context.Context, sessionKey string, limit int) ([]*core.ChatMessage, error)

	// DeleteChatMessages removes a session's entire chat log.
	DeleteChatMessages(ctx context.Context, sessionKey string) error
}
