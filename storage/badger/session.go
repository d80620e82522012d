// Copyright 2025 Plenum Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
type SessionRepository struct {
	backend *Backend
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) *SessionRepository {
	return &SessionRepository{backend: backend}
}

// Close is a no-op; the backend owns the database handle.
func (r *SessionRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *SessionRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// indexDate picks the timestamp a session is indexed under. Sessions whose
// recording date is unknown sort by creation time instead.
func indexDate(session *core.Session) time.Time {
	if session.Date.IsZero() {
		return session.CreatedAt
	}
	return session.Date
}

// CreateSession stores a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session *core.Session) (*core.Session, error) {
	if err := core.ValidateSession(session); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(session.Key)

		existing, err := r.readSession(tx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			return storage.ErrDuplicateKey
		}

		now := time.Now().UTC()
		if session.CreatedAt.IsZero() {
			session.CreatedAt = now
		}
		session.UpdatedAt = session.CreatedAt

		if err := tx.Set(key, storage.MarshalSession(session)); err != nil {
			return err
		}

		dateKey := makeSessionDateKey(indexDate(session), session.Key)
		if err := tx.Set(dateKey, []byte(session.Key)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	return session, err
}

// UpdateSession updates an existing session.
func (r *SessionRepository) UpdateSession(ctx context.Context, session *core.Session) (*core.Session, error) {
	if err := core.ValidateSession(session); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeSessionKey(session.Key)

		old, err := r.readSession(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		session.CreatedAt = old.CreatedAt
		session.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalSession(session)); err != nil {
			return err
		}

		// Move the date index entry if the indexed date changed
		oldDate, newDate := indexDate(old), indexDate(session)
		if !oldDate.Equal(newDate) {
			if err := tx.Delete(makeSessionDateKey(oldDate, old.Key)); err != nil {
				return err
			}
			if err := tx.Set(makeSessionDateKey(newDate, session.Key), []byte(session.Key)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return session, err
}

// DeleteSession removes a session by key.
func (r *SessionRepository) DeleteSession(ctx context.Context, key string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		recordKey := makeSessionKey(key)

		session, err := r.readSession(tx, recordKey)
		if err != nil {
			return err
		}
		if session == nil {
			return storage.ErrNotFound
		}

		if err := tx.Delete(makeSessionDateKey(indexDate(session), session.Key)); err != nil {
			return err
		}
		if err := tx.Delete(recordKey); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetSession retrieves a single session by key.
func (r *SessionRepository) GetSession(ctx context.Context, key string) (*core.Session, error) {
	var result *core.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = r.readSession(tx, makeSessionKey(key))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListSessions retrieves all sessions ordered by date descending.
func (r *SessionRepository) ListSessions(ctx context.Context, limit int) ([]*core.Session, error) {
	var results []*core.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Seek past the last possible date index entry
		startKey := makePartialSessionDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC))
		prefix := []byte(sessionDatePrefix + ":")

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			if limit > 0 && len(results) >= limit {
				break
			}
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}

			session, err := r.readIndexedSession(tx, iter.Item())
			if err != nil {
				return err
			}
			if session != nil {
				results = append(results, session)
			}
		}
		return nil
	}, false)

	return results, err
}

// ListSessionsByStatus retrieves sessions with the given status, ordered by
// date descending.
func (r *SessionRepository) ListSessionsByStatus(ctx context.Context, status core.Status) ([]*core.Session, error) {
	if err := core.ValidateStatus(status); err != nil {
		return nil, err
	}

	all, err := r.ListSessions(ctx, 0)
	if err != nil {
		return nil, err
	}

	results := make([]*core.Session, 0, len(all))
	for _, session := range all {
		if session.Status == status {
			results = append(results, session)
		}
	}
	return results, nil
}

// ListSessionsByDateRange retrieves sessions where start <= Date < end,
// ordered by date ascending.
func (r *SessionRepository) ListSessionsByDateRange(ctx context.Context, start, end time.Time) ([]*core.Session, error) {
	if start.Equal(end) {
		end = start.Add(1 * time.Microsecond)
	}

	var results []*core.Session
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialSessionDateKey(start)
		endKey := makePartialSessionDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) >= 0 {
				break
			}

			session, err := r.readIndexedSession(tx, iter.Item())
			if err != nil {
				return err
			}
			if session != nil {
				results = append(results, session)
			}
		}
		return nil
	}, false)

	return results, err
}

// readIndexedSession resolves a date index entry to its full session record.
func (r *SessionRepository) readIndexedSession(tx *badger.Txn, item *badger.Item) (*core.Session, error) {
	var sessionKey string
	if err := item.Value(func(val []byte) error {
		sessionKey = string(val)
		return nil
	}); err != nil {
		return nil, err
	}
	return r.readSession(tx, makeSessionKey(sessionKey))
}

// readSession reads a session, returning nil (not an error) when missing.
func (r *SessionRepository) readSession(tx *badger.Txn, key []byte) (*core.Session, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var session *core.Session
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		session, unmarshalErr = storage.UnmarshalSession(val)
		return unmarshalErr
	})
	return session, err
}
