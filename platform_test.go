package plenum

import (
	"context"
	"testing"

	"github.com/plenumhq/plenum/ai/mock"
	"github.com/plenumhq/plenum/config"
	"github.com/plenumhq/plenum/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPlatform(t *testing.T) *Platform {
	t.Helper()

	p, err := NewPlatform(config.Default(),
		WithInMemoryStore(),
		WithProvider(mock.NewMockProvider()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func storeCompletedSession(t *testing.T, p *Platform, key, title string, texts ...string) {
	t.Helper()
	ctx := context.Background()

	_, err := p.SessionRepository().CreateSession(ctx, &core.Session{
		Key:    key,
		URL:    "https://webtv.example.org/" + key,
		Title:  title,
		Status: core.StatusCompleted,
	})
	require.NoError(t, err)

	segments := make([]core.Segment, len(texts))
	full := ""
	for i, text := range texts {
		segments[i] = core.Segment{Index: i, Speaker: "SPEAKER_00", Start: float64(i * 10), End: float64(i*10 + 5), Text: text}
		if i > 0 {
			full += " "
		}
		full += text
	}
	_, err = p.TranscriptRepository().CreateTranscript(ctx, &core.Transcript{
		SessionKey:   key,
		FullText:     full,
		Segments:     segments,
		WordCount:    core.CountWords(full),
		SpeakerCount: 1,
		Duration:     float64(len(texts) * 10),
	})
	require.NoError(t, err)
}

func TestNewPlatform(t *testing.T) {
	t.Run("builds the service graph", func(t *testing.T) {
		p := newTestPlatform(t)

		assert.NotNil(t, p.SessionRepository())
		assert.NotNil(t, p.TranscriptRepository())
		assert.NotNil(t, p.ChatRepository())
		assert.NotNil(t, p.Index())
		assert.NotNil(t, p.Cache())
		assert.NotNil(t, p.NewProcessor(nil))
		assert.NotNil(t, p.NewCoordinator(nil, nil))
		assert.NotNil(t, p.NewEngine())
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		cfg := config.Default()
		cfg.Batch.Concurrency = 0

		_, err := NewPlatform(cfg, WithInMemoryStore(), WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
	})
}

func TestReindex(t *testing.T) {
	ctx := context.Background()

	t.Run("replays completed transcripts into the index", func(t *testing.T) {
		p := newTestPlatform(t)
		storeCompletedSession(t, p, "ses1", "Plenary One", "Order, please.", "We begin.")
		storeCompletedSession(t, p, "ses2", "Plenary Two", "The floor is open.")

		indexed, err := p.Reindex(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, indexed)

		stats := p.Index().Stats()
		assert.Equal(t, 3, stats.Segments)
		assert.Equal(t, 2, stats.Sessions)
	})

	t.Run("skips non-completed sessions", func(t *testing.T) {
		p := newTestPlatform(t)

		_, err := p.SessionRepository().CreateSession(ctx, &core.Session{
			Key:    "pending1",
			URL:    "https://webtv.example.org/pending1",
			Status: core.StatusFailed,
		})
		require.NoError(t, err)

		indexed, err := p.Reindex(ctx)
		require.NoError(t, err)
		assert.Zero(t, indexed)
	})

	t.Run("empty store", func(t *testing.T) {
		p := newTestPlatform(t)

		indexed, err := p.Reindex(ctx)
		require.NoError(t, err)
		assert.Zero(t, indexed)
	})
}
