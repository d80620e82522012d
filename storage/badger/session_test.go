package badger

import (
	"context"
	"testing"
	"time"

	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) (storage.SessionRepository, storage.TranscriptRepository, storage.ChatRepository) {
	t.Helper()

	sessions, transcripts, chats, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		chats.Close()
		backend.Close()
	})
	return sessions, transcripts, chats
}

func testSession(url string, date time.Time) *core.Session {
	return &core.Session{
		Key:    core.SessionKeyFromURL(url),
		URL:    url,
		Title:  "Session at " + url,
		Date:   date,
		Status: core.StatusPending,
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		created, err := sessions.CreateSession(ctx, testSession("https://e.org/1", day))
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())
		assert.Equal(t, created.CreatedAt, created.UpdatedAt)

		got, err := sessions.GetSession(ctx, created.Key)
		require.NoError(t, err)
		assert.Equal(t, created.URL, got.URL)
		assert.Equal(t, core.StatusPending, got.Status)
	})

	t.Run("duplicate key rejected", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		_, err := sessions.CreateSession(ctx, testSession("https://e.org/1", day))
		require.NoError(t, err)

		_, err = sessions.CreateSession(ctx, testSession("https://e.org/1", day))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("get missing", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		_, err := sessions.GetSession(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		created, err := sessions.CreateSession(ctx, testSession("https://e.org/1", day))
		require.NoError(t, err)

		created.Status = core.StatusCompleted
		created.Summary = "Done."
		updated, err := sessions.UpdateSession(ctx, created)
		require.NoError(t, err)
		assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

		got, err := sessions.GetSession(ctx, created.Key)
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, got.Status)
		assert.Equal(t, "Done.", got.Summary)
	})

	t.Run("update missing", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		_, err := sessions.UpdateSession(ctx, testSession("https://e.org/1", day))
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		created, err := sessions.CreateSession(ctx, testSession("https://e.org/1", day))
		require.NoError(t, err)

		require.NoError(t, sessions.DeleteSession(ctx, created.Key))

		_, err = sessions.GetSession(ctx, created.Key)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, sessions.DeleteSession(ctx, created.Key), storage.ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		for i := 0; i < 3; i++ {
			s := testSession("https://e.org/"+string(rune('a'+i)), day.AddDate(0, 0, i))
			_, err := sessions.CreateSession(ctx, s)
			require.NoError(t, err)
		}

		listed, err := sessions.ListSessions(ctx, 0)
		require.NoError(t, err)
		require.Len(t, listed, 3)
		assert.True(t, listed[0].Date.After(listed[1].Date))
		assert.True(t, listed[1].Date.After(listed[2].Date))

		limited, err := sessions.ListSessions(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("list by status", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		a, err := sessions.CreateSession(ctx, testSession("https://e.org/a", day))
		require.NoError(t, err)
		_, err = sessions.CreateSession(ctx, testSession("https://e.org/b", day.AddDate(0, 0, 1)))
		require.NoError(t, err)

		a.Status = core.StatusFailed
		a.ErrorMessage = "boom"
		_, err = sessions.UpdateSession(ctx, a)
		require.NoError(t, err)

		failed, err := sessions.ListSessionsByStatus(ctx, core.StatusFailed)
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, a.Key, failed[0].Key)
	})

	t.Run("list by date range", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		for i := 0; i < 5; i++ {
			s := testSession("https://e.org/"+string(rune('a'+i)), day.AddDate(0, 0, i))
			_, err := sessions.CreateSession(ctx, s)
			require.NoError(t, err)
		}

		ranged, err := sessions.ListSessionsByDateRange(ctx, day.AddDate(0, 0, 1), day.AddDate(0, 0, 4))
		require.NoError(t, err)
		require.Len(t, ranged, 3)
		assert.True(t, ranged[0].Date.Before(ranged[1].Date))
	})

	t.Run("round trips entities", func(t *testing.T) {
		sessions, _, _ := newTestRepos(t)

		s := testSession("https://e.org/1", day)
		s.Entities = &core.EntityBundle{
			Speakers:               []core.Speaker{{Name: "Chair"}},
			Countries:              []string{"Kenya"},
			Topics:                 []string{"water"},
			InterventionsByCountry: map[string]int{"Kenya": 1},
		}
		_, err := sessions.CreateSession(ctx, s)
		require.NoError(t, err)

		got, err := sessions.GetSession(ctx, s.Key)
		require.NoError(t, err)
		require.NotNil(t, got.Entities)
		assert.Equal(t, []string{"Kenya"}, got.Entities.Countries)
	})
}
