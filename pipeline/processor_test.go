package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/plenumhq/plenum/ai/mock"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
	badgerstore "github.com/plenumhq/plenum/storage/badger"
	"github.com/plenumhq/plenum/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	meta *Metadata
	err  error
}

func (f *fakeResolver) Resolve(ctx context.Context, url string) (*Metadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.meta != nil {
		return f.meta, nil
	}
	return &Metadata{Title: "Plenary Session", Duration: 120, Languages: []string{"en"}}, nil
}

type fakeAudio struct {
	acquireErr  error
	validateErr error
	acquired    []string
	removed     []string
}

func (f *fakeAudio) Acquire(ctx context.Context, url, sessionKey string) (string, error) {
	if f.acquireErr != nil {
		return "", f.acquireErr
	}
	path := "/tmp/" + sessionKey + ".mp3"
	f.acquired = append(f.acquired, path)
	return path, nil
}

func (f *fakeAudio) Validate(ctx context.Context, path string) error { return f.validateErr }

func (f *fakeAudio) Remove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

type fakeTranscriber struct {
	err   error
	calls int
}

func (f *fakeTranscriber) TranscribeSession(ctx context.Context, audioPath, language, sessionKey string) (*core.Transcript, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &core.Transcript{
		SessionKey: sessionKey,
		FullText:   "Order, please. We begin.",
		Segments: []core.Segment{
			{Index: 0, Speaker: "SPEAKER_00", Start: 0, End: 4, Text: "Order, please."},
			{Index: 1, Speaker: "SPEAKER_00", Start: 4, End: 8, Text: "We begin."},
		},
		WordCount:    4,
		SpeakerCount: 1,
		Language:     language,
		Duration:     8,
	}, nil
}

type testHarness struct {
	sessions    storage.SessionRepository
	transcripts storage.TranscriptRepository
	chats       storage.ChatRepository
	resolver    *fakeResolver
	audio       *fakeAudio
	transcriber *fakeTranscriber
	extractor   *mock.MockEntityExtractor
	index       *vectorindex.Index
	progress    []Progress
	processor   *Processor
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()

	sessions, transcripts, chats, backend, err := badgerstore.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	h := &testHarness{
		sessions:    sessions,
		transcripts: transcripts,
		chats:       chats,
		resolver:    &fakeResolver{},
		audio:       &fakeAudio{},
		transcriber: &fakeTranscriber{},
		extractor:   mock.NewMockEntityExtractor(),
		index:       vectorindex.New(),
	}
	h.processor = NewProcessor(
		sessions, transcripts, chats,
		h.resolver, h.audio, h.transcriber, h.extractor,
		mock.NewMockEmbedder(), h.index,
		func(key string, p Progress) { h.progress = append(h.progress, p) },
	)
	return h
}

func TestProcess(t *testing.T) {
	ctx := context.Background()
	const sourceURL = "https://webtv.example.org/session/101"

	t.Run("full pipeline", func(t *testing.T) {
		h := newHarness(t)

		session, err := h.processor.Process(ctx, sourceURL)
		require.NoError(t, err)

		assert.Equal(t, core.StatusCompleted, session.Status)
		assert.Equal(t, "Plenary Session", session.Title)
		assert.Equal(t, "A mock summary of the session.", session.Summary)
		require.NotNil(t, session.Entities)
		assert.Equal(t, []string{"Nigeria"}, session.Entities.Countries)

		transcript, err := h.transcripts.GetTranscript(ctx, session.Key)
		require.NoError(t, err)
		assert.Equal(t, "Order, please. We begin.", transcript.FullText)

		stats := h.index.Stats()
		assert.Equal(t, 2, stats.Segments)
		assert.Equal(t, 1, stats.Sessions)

		// audio artifact removed on the success path
		require.Len(t, h.audio.removed, 1)
		assert.Equal(t, h.audio.acquired[0], h.audio.removed[0])

		// statuses advance strictly forward
		var statuses []core.Status
		for _, p := range h.progress {
			statuses = append(statuses, p.Status)
		}
		assert.Equal(t, []core.Status{
			core.StatusPending,
			core.StatusDownloading,
			core.StatusTranscribing,
			core.StatusExtracting,
			core.StatusEmbedding,
			core.StatusCompleted,
			core.StatusCompleted,
		}, statuses)
	})

	t.Run("completed session short-circuits", func(t *testing.T) {
		h := newHarness(t)

		first, err := h.processor.Process(ctx, sourceURL)
		require.NoError(t, err)
		second, err := h.processor.Process(ctx, sourceURL)
		require.NoError(t, err)

		assert.Equal(t, first.Key, second.Key)
		assert.Equal(t, 1, h.transcriber.calls)
	})

	t.Run("failed session retried on resubmission", func(t *testing.T) {
		h := newHarness(t)
		h.transcriber.err = core.Fatal(errors.New("decode failure"))

		session, err := h.processor.Process(ctx, sourceURL)
		require.Error(t, err)
		assert.Equal(t, core.StatusFailed, session.Status)
		assert.Contains(t, session.ErrorMessage, "decode failure")

		// failed state is persisted, not just returned
		stored, err := h.sessions.GetSession(ctx, session.Key)
		require.NoError(t, err)
		assert.Equal(t, core.StatusFailed, stored.Status)

		h.transcriber.err = nil
		retried, err := h.processor.Process(ctx, sourceURL)
		require.NoError(t, err)
		assert.Equal(t, core.StatusCompleted, retried.Status)
		assert.Empty(t, retried.ErrorMessage)
		assert.Equal(t, 2, h.transcriber.calls)
	})

	t.Run("audio validation failure aborts before transcription", func(t *testing.T) {
		h := newHarness(t)
		h.audio.validateErr = core.Fatal(errors.New("zero duration"))

		session, err := h.processor.Process(ctx, sourceURL)
		require.Error(t, err)
		assert.Equal(t, core.StatusFailed, session.Status)
		assert.Zero(t, h.transcriber.calls)

		// artifact removed even on the failure path
		assert.Len(t, h.audio.removed, 1)
	})

	t.Run("extraction failure fails the session", func(t *testing.T) {
		h := newHarness(t)
		h.extractor.ExtractEntitiesFunc = func(ctx context.Context, transcript, title string) (*core.EntityBundle, error) {
			return nil, errors.New("model refused")
		}

		session, err := h.processor.Process(ctx, sourceURL)
		require.Error(t, err)
		assert.Equal(t, core.StatusFailed, session.Status)
		assert.Contains(t, session.ErrorMessage, "model refused")
		assert.Zero(t, h.index.Stats().Segments)
	})

	t.Run("malformed URL rejected", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.processor.Process(ctx, "not a url")
		require.Error(t, err)
		assert.Equal(t, core.FaultInputInvalid, core.KindOf(err))

		_, err = h.processor.Process(ctx, "")
		require.Error(t, err)
		assert.Equal(t, core.FaultInputInvalid, core.KindOf(err))
	})
}
