package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const verboseResponse = `{
	"text": "Order, please. We reaffirm our commitment.",
	"language": "english",
	"duration": 12.0,
	"segments": [
		{"start": 0.0, "end": 4.5, "text": " Order, please.", "speaker": "SPEAKER_00", "avg_logprob": -0.1},
		{"start": 4.5, "end": 12.0, "text": " We reaffirm our commitment.", "speaker": "SPEAKER_01"}
	]
}`

func newTestTranscriber(t *testing.T, handler http.HandlerFunc) (*Transcriber, string) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tr, err := newTranscriber(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	audioPath := filepath.Join(t.TempDir(), "chunk.mp3")
	require.NoError(t, os.WriteFile(audioPath, []byte("not really audio"), 0o644))
	return tr, audioPath
}

func TestTranscribe(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		var gotModel, gotFormat string
		tr, audioPath := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			gotModel = r.FormValue("model")
			gotFormat = r.FormValue("response_format")

			_, _, err := r.FormFile("file")
			require.NoError(t, err)

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(verboseResponse))
		})

		result, err := tr.Transcribe(context.Background(), audioPath, "en")
		require.NoError(t, err)

		assert.Equal(t, "whisper-1", gotModel)
		assert.Equal(t, "verbose_json", gotFormat)
		assert.Equal(t, "Order, please. We reaffirm our commitment.", result.Text)
		assert.Equal(t, "english", result.Language)
		assert.Equal(t, 12.0, result.Duration)

		require.Len(t, result.Segments, 2)
		assert.Equal(t, "SPEAKER_00", result.Segments[0].Speaker)
		assert.Equal(t, "Order, please.", result.Segments[0].Text)
		assert.InDelta(t, 0.90, result.Segments[0].Confidence, 0.01)
		assert.Zero(t, result.Segments[1].Confidence)
	})

	t.Run("rate limit is transient", func(t *testing.T) {
		tr, audioPath := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})

		_, err := tr.Transcribe(context.Background(), audioPath, "")
		require.Error(t, err)
		assert.True(t, core.IsTransient(err))
	})

	t.Run("server error is transient", func(t *testing.T) {
		tr, audioPath := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream failure", http.StatusBadGateway)
		})

		_, err := tr.Transcribe(context.Background(), audioPath, "")
		require.Error(t, err)
		assert.True(t, core.IsTransient(err))
	})

	t.Run("auth failure is fatal", func(t *testing.T) {
		tr, audioPath := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid api key", http.StatusUnauthorized)
		})

		_, err := tr.Transcribe(context.Background(), audioPath, "")
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})

	t.Run("malformed segment times are fatal", func(t *testing.T) {
		tr, audioPath := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"text":"x","segments":[{"start":9,"end":1,"text":"x"}]}`))
		})

		_, err := tr.Transcribe(context.Background(), audioPath, "")
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})

	t.Run("missing audio file is fatal", func(t *testing.T) {
		tr, _ := newTestTranscriber(t, func(w http.ResponseWriter, r *http.Request) {})

		_, err := tr.Transcribe(context.Background(), "/nonexistent/audio.mp3", "")
		require.Error(t, err)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})
}
