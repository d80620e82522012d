package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
)

// TranscriptRepository implements storage.TranscriptRepository for BadgerDB.
type TranscriptRepository struct {
	backend *Backend
}

var _ storage.TranscriptRepository = (*TranscriptRepository)(nil)

// NewTranscriptRepository creates a new TranscriptRepository.
func NewTranscriptRepository(backend *Backend) *TranscriptRepository {
	return &TranscriptRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *TranscriptRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *TranscriptRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// CreateTranscript stores a transcript, replacing any existing one for the
// same session key.
func (r *TranscriptRepository) CreateTranscript(ctx context.Context, transcript *core.Transcript) (*core.Transcript, error) {
	if err := core.ValidateTranscript(transcript); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if transcript.CreatedAt.IsZero() {
			transcript.CreatedAt = time.Now().UTC()
		}
		key := makeTranscriptKey(transcript.SessionKey)
		if err := tx.Set(key, storage.MarshalTranscript(transcript)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return transcript, err
}

// DeleteTranscript removes the transcript for a session key.
func (r *TranscriptRepository) DeleteTranscript(ctx context.Context, sessionKey string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeTranscriptKey(sessionKey)
		if _, err := tx.Get(key); err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetTranscript retrieves the transcript for a session key.
func (r *TranscriptRepository) GetTranscript(ctx context.Context, sessionKey string) (*core.Transcript, error) {
	var result *core.Transcript
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeTranscriptKey(sessionKey))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalTranscript(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}
