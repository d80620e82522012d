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


// Package transcribe turns session audio into time-aligned transcripts.
// Recordings above a size threshold are sliced into fixed windows,
// transcribed window by window with transient-failure retry, and merged
// back into one transcript with absolute timestamps. A session either gets
// a complete transcript or an error; no partial merges.
package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
)

// AudioSlicer is the subset of the media tool chunked transcription needs.
type AudioSlicer interface {
	FileSize(path string) (int64, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractWindow(ctx context.Context, source string, start, duration float64, dest string) error
	Remove(path string) error
}

// DefaultChunkThresholdBytes is the file size above which a recording is
// transcribed in windows rather than in one request.
const DefaultChunkThresholdBytes = 20 * 1024 * 1024

// DefaultWindowSeconds is the length of one transcription window.
const DefaultWindowSeconds = 600.0

// Config tunes the chunked transcriber.
type Config struct {
	// ChunkThresholdBytes is the size above which audio is windowed.
	ChunkThresholdBytes int64

	// WindowSeconds is the window length for chunked transcription.
	WindowSeconds float64

	// RetryDelays is the wait ladder between transient-failure attempts.
	RetryDelays []time.Duration
}

// DefaultConfig returns the standard transcription settings.
func DefaultConfig() Config {
	return Config{
		ChunkThresholdBytes: DefaultChunkThresholdBytes,
		WindowSeconds:       DefaultWindowSeconds,
		RetryDelays:         DefaultRetryDelays,
	}
}

// Transcriber produces complete session transcripts from audio files.
type Transcriber struct {
	service ai.Transcriber
	slicer  AudioSlicer
	config  Config
	logger  *slog.Logger
}

// New creates a Transcriber over the given transcription service and media
// slicer. Zero config fields fall back to defaults.
func New(service ai.Transcriber, slicer AudioSlicer, config Config) *Transcriber {
	if config.ChunkThresholdBytes <= 0 {
		config.ChunkThresholdBytes = DefaultChunkThresholdBytes
	}
	if config.WindowSeconds <= 0 {
		config.WindowSeconds = DefaultWindowSeconds
	}
	if len(config.RetryDelays) == 0 {
		config.RetryDelays = DefaultRetryDelays
	}

	return &Transcriber{
		service: service,
		slicer:  slicer,
		config:  config,
		logger:  slog.Default().With("component", "transcriber"),
	}
}

// TranscribeSession transcribes the audio file at audioPath into a
// transcript for sessionKey. Small files go up in one request; larger ones
// are windowed, transcribed chunk by chunk, and merged with timestamps
// shifted to be absolute.
func (t *Transcriber) TranscribeSession(ctx context.Context, audioPath, language, sessionKey string) (*core.Transcript, error) {
	size, err := t.slicer.FileSize(audioPath)
	if err != nil {
		return nil, fmt.Errorf("sizing audio: %w", err)
	}

	if size <= t.config.ChunkThresholdBytes {
		t.logger.Debug("transcribing whole file", "path", audioPath, "bytes", size)
		result, err := t.transcribeWithRetry(ctx, audioPath, language)
		if err != nil {
			return nil, err
		}
		return t.buildTranscript(sessionKey, result.Segments, result.Language, result.Duration)
	}

	return t.transcribeChunked(ctx, audioPath, language, sessionKey, size)
}

func (t *Transcriber) transcribeChunked(ctx context.Context, audioPath, language, sessionKey string, size int64) (*core.Transcript, error) {
	duration, err := t.slicer.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("probing audio duration: %w", err)
	}

	windows, err := Plan(duration, t.config.WindowSeconds)
	if err != nil {
		return nil, err
	}

	t.logger.Info("transcribing in windows",
		"path", audioPath, "bytes", size,
		"duration", duration, "windows", len(windows))

	var merged []ai.TranscriptionSegment
	detectedLanguage := language

	for _, window := range windows {
		chunkPath := fmt.Sprintf("%s.chunk%03d.mp3", audioPath, window.Index)

		if err := t.slicer.ExtractWindow(ctx, audioPath, window.Start, window.Duration, chunkPath); err != nil {
			t.removeQuietly(chunkPath)
			return nil, fmt.Errorf("extracting window %d: %w", window.Index, err)
		}

		result, err := t.transcribeWithRetry(ctx, chunkPath, language)
		t.removeQuietly(chunkPath)
		if err != nil {
			return nil, fmt.Errorf("transcribing window %d: %w", window.Index, err)
		}

		if detectedLanguage == "" {
			detectedLanguage = result.Language
		}

		// Shift chunk-relative timestamps to absolute session time
		for _, seg := range result.Segments {
			seg.Start += window.Start
			seg.End += window.Start
			merged = append(merged, seg)
		}
	}

	return t.buildTranscript(sessionKey, merged, detectedLanguage, duration)
}

func (t *Transcriber) transcribeWithRetry(ctx context.Context, path, language string) (*ai.TranscriptionResult, error) {
	var result *ai.TranscriptionResult
	err := RetryTransient(ctx, func() error {
		var callErr error
		result, callErr = t.service.Transcribe(ctx, path, language)
		return callErr
	}, t.config.RetryDelays)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// buildTranscript assembles the final transcript: segments renumbered
// contiguously, full text joined with single spaces, and derived counts.
func (t *Transcriber) buildTranscript(sessionKey string, segments []ai.TranscriptionSegment, language string, duration float64) (*core.Transcript, error) {
	converted := make([]core.Segment, 0, len(segments))
	texts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if seg.Text == "" {
			continue
		}
		converted = append(converted, core.Segment{
			Index:      i,
			Speaker:    seg.Speaker,
			Start:      seg.Start,
			End:        seg.End,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		})
		texts = append(texts, seg.Text)
	}
	// Renumber after dropping empties so indices stay contiguous
	for i := range converted {
		converted[i].Index = i
	}

	fullText := strings.Join(texts, " ")
	if strings.TrimSpace(fullText) == "" {
		return nil, ErrEmptyTranscription
	}

	transcript := &core.Transcript{
		SessionKey:   sessionKey,
		FullText:     fullText,
		Segments:     converted,
		WordCount:    core.CountWords(fullText),
		SpeakerCount: core.CountSpeakers(converted),
		Language:     language,
		Duration:     duration,
	}
	if err := core.ValidateTranscript(transcript); err != nil {
		return nil, err
	}
	return transcript, nil
}

func (t *Transcriber) removeQuietly(path string) {
	if err := t.slicer.Remove(path); err != nil {
		t.logger.Warn("failed to remove scratch chunk", "path", path, "err", err)
	}
}
