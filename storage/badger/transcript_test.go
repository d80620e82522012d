package badger

import (
	"context"
	"testing"

	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptRepository(t *testing.T) {
	ctx := context.Background()

	transcript := func() *core.Transcript {
		return &core.Transcript{
			SessionKey: "k1",
			FullText:   "Order, please.",
			Segments: []core.Segment{
				{Index: 0, Speaker: "SPEAKER_00", Start: 0, End: 4.5, Text: "Order, please."},
			},
			WordCount:    2,
			SpeakerCount: 1,
			Language:     "en",
			Duration:     4.5,
		}
	}

	t.Run("create and get", func(t *testing.T) {
		_, transcripts, _ := newTestRepos(t)

		created, err := transcripts.CreateTranscript(ctx, transcript())
		require.NoError(t, err)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := transcripts.GetTranscript(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "Order, please.", got.FullText)
		require.Len(t, got.Segments, 1)
		assert.Equal(t, "SPEAKER_00", got.Segments[0].Speaker)
	})

	t.Run("create replaces existing", func(t *testing.T) {
		_, transcripts, _ := newTestRepos(t)

		_, err := transcripts.CreateTranscript(ctx, transcript())
		require.NoError(t, err)

		second := transcript()
		second.FullText = "Replacement text."
		_, err = transcripts.CreateTranscript(ctx, second)
		require.NoError(t, err)

		got, err := transcripts.GetTranscript(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "Replacement text.", got.FullText)
	})

	t.Run("get missing", func(t *testing.T) {
		_, transcripts, _ := newTestRepos(t)

		_, err := transcripts.GetTranscript(ctx, "nope")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		_, transcripts, _ := newTestRepos(t)

		_, err := transcripts.CreateTranscript(ctx, transcript())
		require.NoError(t, err)

		require.NoError(t, transcripts.DeleteTranscript(ctx, "k1"))

		_, err = transcripts.GetTranscript(ctx, "k1")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		assert.ErrorIs(t, transcripts.DeleteTranscript(ctx, "k1"), storage.ErrNotFound)
	})

	t.Run("invalid transcript rejected", func(t *testing.T) {
		_, transcripts, _ := newTestRepos(t)

		_, err := transcripts.CreateTranscript(ctx, &core.Transcript{})
		assert.ErrorIs(t, err, core.ErrInvalidTranscript)
	})
}
