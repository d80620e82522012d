package transcribe

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/ai/mock"
	"github.com/plenumhq/plenum/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSlicer is an in-memory AudioSlicer.
type fakeSlicer struct {
	size      int64
	duration  float64
	extracted []Window
	removed   []string
}

func (f *fakeSlicer) FileSize(path string) (int64, error) { return f.size, nil }

func (f *fakeSlicer) ProbeDuration(ctx context.Context, path string) (float64, error) {
	return f.duration, nil
}

func (f *fakeSlicer) ExtractWindow(ctx context.Context, source string, start, duration float64, dest string) error {
	f.extracted = append(f.extracted, Window{Index: len(f.extracted), Start: start, Duration: duration})
	return nil
}

func (f *fakeSlicer) Remove(path string) error {
	f.removed = append(f.removed, path)
	return nil
}

func fastConfig() Config {
	return Config{
		ChunkThresholdBytes: 20 * 1024 * 1024,
		WindowSeconds:       600,
		RetryDelays:         []time.Duration{time.Millisecond, time.Millisecond, time.Millisecond},
	}
}

func TestTranscribeSessionWholeFile(t *testing.T) {
	ctx := context.Background()

	slicer := &fakeSlicer{size: 5 * 1024 * 1024}
	service := mock.NewMockTranscriber()
	tr := New(service, slicer, fastConfig())

	transcript, err := tr.TranscribeSession(ctx, "/tmp/a.mp3", "en", "k1")
	require.NoError(t, err)

	assert.Equal(t, "k1", transcript.SessionKey)
	assert.Equal(t, "Order, please. We reaffirm our commitment.", transcript.FullText)
	require.Len(t, transcript.Segments, 2)
	assert.Equal(t, 0, transcript.Segments[0].Index)
	assert.Equal(t, 1, transcript.Segments[1].Index)
	assert.Equal(t, 2, transcript.SpeakerCount)
	assert.Equal(t, 1, service.CallCount())
	assert.Empty(t, slicer.extracted)
}

func TestTranscribeSessionChunked(t *testing.T) {
	ctx := context.Background()

	// 45 minutes, over the size threshold: five windows of 600s, last 300s
	slicer := &fakeSlicer{size: 80 * 1024 * 1024, duration: 2700}
	service := mock.NewMockTranscriber()
	service.TranscribeFunc = func(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
		return &ai.TranscriptionResult{
			Text:     "chunk text",
			Language: "en",
			Segments: []ai.TranscriptionSegment{
				{Speaker: "SPEAKER_00", Start: 0, End: 5, Text: fmt.Sprintf("part %d", service.CallCount())},
			},
		}, nil
	}
	tr := New(service, slicer, fastConfig())

	transcript, err := tr.TranscribeSession(ctx, "/tmp/a.mp3", "", "k1")
	require.NoError(t, err)

	assert.Equal(t, 5, service.CallCount())
	require.Len(t, slicer.extracted, 5)
	assert.Equal(t, 2400.0, slicer.extracted[4].Start)
	assert.Equal(t, 300.0, slicer.extracted[4].Duration)

	// every scratch chunk removed
	assert.Len(t, slicer.removed, 5)

	// timestamps shifted to absolute time and indices contiguous
	require.Len(t, transcript.Segments, 5)
	for i, seg := range transcript.Segments {
		assert.Equal(t, i, seg.Index)
		assert.Equal(t, float64(i)*600, seg.Start)
		assert.Equal(t, float64(i)*600+5, seg.End)
	}
	assert.Equal(t, 2700.0, transcript.Duration)
	assert.Equal(t, "en", transcript.Language)
	require.NoError(t, core.ValidateTranscript(transcript))
}

func TestTranscribeSessionRetry(t *testing.T) {
	ctx := context.Background()

	t.Run("transient failures retried", func(t *testing.T) {
		slicer := &fakeSlicer{size: 1024}
		service := mock.NewMockTranscriber()
		failures := 2
		service.TranscribeFunc = func(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
			if failures > 0 {
				failures--
				return nil, core.Transient(errors.New("rate limited"))
			}
			return &ai.TranscriptionResult{
				Text:     "ok",
				Segments: []ai.TranscriptionSegment{{Start: 0, End: 1, Text: "ok"}},
			}, nil
		}
		tr := New(service, slicer, fastConfig())

		transcript, err := tr.TranscribeSession(ctx, "/tmp/a.mp3", "", "k1")
		require.NoError(t, err)
		assert.Equal(t, "ok", transcript.FullText)
		assert.Equal(t, 3, service.CallCount())
	})

	t.Run("fatal failure not retried", func(t *testing.T) {
		slicer := &fakeSlicer{size: 1024}
		service := mock.NewMockTranscriber()
		service.TranscribeFunc = func(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
			return nil, core.Fatal(errors.New("bad request"))
		}
		tr := New(service, slicer, fastConfig())

		_, err := tr.TranscribeSession(ctx, "/tmp/a.mp3", "", "k1")
		require.Error(t, err)
		assert.Equal(t, 1, service.CallCount())
	})

	t.Run("exhausted retries fail the session", func(t *testing.T) {
		slicer := &fakeSlicer{size: 1024}
		service := mock.NewMockTranscriber()
		service.TranscribeFunc = func(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
			return nil, core.Transient(errors.New("still down"))
		}
		tr := New(service, slicer, fastConfig())

		_, err := tr.TranscribeSession(ctx, "/tmp/a.mp3", "", "k1")
		require.Error(t, err)
		assert.Equal(t, 3, service.CallCount())
		assert.Contains(t, err.Error(), "still down")
	})
}

func TestTranscribeSessionChunkFailureDiscardsAll(t *testing.T) {
	ctx := context.Background()

	slicer := &fakeSlicer{size: 80 * 1024 * 1024, duration: 1800}
	service := mock.NewMockTranscriber()
	service.TranscribeFunc = func(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
		if service.CallCount() >= 2 {
			return nil, core.Fatal(errors.New("decode failure"))
		}
		return &ai.TranscriptionResult{
			Text:     "first chunk",
			Segments: []ai.TranscriptionSegment{{Start: 0, End: 5, Text: "first chunk"}},
		}, nil
	}
	tr := New(service, slicer, fastConfig())

	_, err := tr.TranscribeSession(ctx, "/tmp/a.mp3", "", "k1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "window 1")

	// scratch files for both attempted windows cleaned up
	assert.Len(t, slicer.removed, 2)
}

func TestRetryTransient(t *testing.T) {
	t.Run("empty ladder rejected", func(t *testing.T) {
		err := RetryTransient(context.Background(), func() error { return nil }, nil)
		assert.ErrorIs(t, err, ErrNoRetryDelays)
	})

	t.Run("cancelled context stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := RetryTransient(ctx, func() error {
			return core.Transient(errors.New("x"))
		}, []time.Duration{time.Millisecond})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
