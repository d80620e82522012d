package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
)

// ChatRepository implements storage.ChatRepository for BadgerDB.
// Each session owns an append-only chat log; entries are keyed by a
// monotonic sequence so iteration yields insertion order.
type ChatRepository struct {
	backend *Backend
	seq     *badger.Sequence
}

var _ storage.ChatRepository = (*ChatRepository)(nil)

// NewChatRepository creates a new ChatRepository.
func NewChatRepository(backend *Backend) (*ChatRepository, error) {
	seq, err := backend.GetSequence(chatLogSeq)
	if err != nil {
		return nil, err
	}

	return &ChatRepository{
		backend: backend,
		seq:     seq,
	}, nil
}

// Close releases the sequence.
func (r *ChatRepository) Close() error {
	return r.seq.Release()
}

// WithTransaction delegates to the backend.
func (r *ChatRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AppendChatMessages appends messages to a session's chat log.
func (r *ChatRepository) AppendChatMessages(ctx context.Context, messages ...*core.ChatMessage) ([]*core.ChatMessage, error) {
	for _, message := range messages {
		if err := core.ValidateChatMessage(message); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, message := range messages {
			if message.ID == "" {
				message.ID = uuid.NewString()
			}
			if message.CreatedAt.IsZero() {
				message.CreatedAt = time.Now().UTC()
			}

			seq, err := r.seq.Next()
			if err != nil {
				return err
			}

			key := makeChatMessageKey(message.SessionKey, seq)
			if err := tx.Set(key, storage.MarshalChatMessage(message)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return messages, err
}

// GetChatMessages retrieves a session's chat log in insertion order.
// A positive limit returns only the last limit messages.
func (r *ChatRepository) GetChatMessages(ctx context.Context, sessionKey string, limit int) ([]*core.ChatMessage, error) {
	var results []*core.ChatMessage
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChatLogPrefix(sessionKey)

		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var message *core.ChatMessage
			if err := iter.Item().Value(func(val []byte) error {
				var unmarshalErr error
				message, unmarshalErr = storage.UnmarshalChatMessage(val)
				return unmarshalErr
			}); err != nil {
				return err
			}
			results = append(results, message)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(results) > limit {
		results = results[len(results)-limit:]
	}
	return results, nil
}

// DeleteChatMessages removes a session's entire chat log.
func (r *ChatRepository) DeleteChatMessages(ctx context.Context, sessionKey string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeChatLogPrefix(sessionKey)
		opts.PrefetchValues = false

		iter := tx.NewIterator(opts)
		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		// Close before writing; badger disallows writes with an open iterator
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}
