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


package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
)

// Transcriber implements ai.Transcriber against the OpenAI-compatible
// /audio/transcriptions endpoint. langchaingo does not cover the audio API,
// so this client is written directly against net/http.
type Transcriber struct {
	host   string
	apiKey string
	model  string
	client *http.Client
	logger *slog.Logger
}

// newTranscriber is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newTranscriber(config *ai.Config) (*Transcriber, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Transcriber{
		host:   config.Host,
		apiKey: config.APIKey,
		model:  config.TranscriptionModel,
		// Transcribing a ten-minute chunk routinely takes minutes on its
		// own; cancellation beyond that is the caller's context.
		client: &http.Client{Timeout: 15 * time.Minute},
		logger: slog.Default().With("component", "openai-transcriber"),
	}, nil
}

// NewTranscriber creates a new transcriber using the provided configuration.
//
// Returns ai.Transcriber interface to enforce abstraction.
func NewTranscriber(config *ai.Config) (ai.Transcriber, error) {
	return newTranscriber(config)
}

// verboseTranscription matches the verbose_json response format.
type verboseTranscription struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []verboseSegment `json:"segments"`
}

type verboseSegment struct {
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	Speaker    string   `json:"speaker,omitempty"`
	AvgLogprob *float64 `json:"avg_logprob,omitempty"`
}

// Transcribe uploads one audio file and returns its diarized transcription.
// Timestamps in the result are relative to the start of the file. Failures
// are classified: rate limiting and server errors are transient, everything
// else is fatal.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string) (*ai.TranscriptionResult, error) {
	t.logger.Debug("transcribing audio file", "path", audioPath, "language", language)

	body, contentType, err := t.buildRequestBody(audioPath, language)
	if err != nil {
		return nil, core.Fatal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.host+"/audio/transcriptions", body)
	if err != nil {
		return nil, core.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		// Connection-level failures are worth retrying.
		return nil, core.Transient(fmt.Errorf("transcription request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp)
	}

	var parsed verboseTranscription
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, core.Fatal(fmt.Errorf("decoding transcription response: %w", err))
	}

	result, err := convertTranscription(&parsed)
	if err != nil {
		return nil, core.Fatal(err)
	}

	t.logger.Debug("transcription complete",
		"segments", len(result.Segments),
		"duration", result.Duration,
		"language", result.Language)
	return result, nil
}

// buildRequestBody assembles the multipart form with the audio file and
// request parameters.
func (t *Transcriber) buildRequestBody(audioPath, language string) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("opening audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("reading audio file: %w", err)
	}

	fields := map[string]string{
		"model":           t.model,
		"response_format": "verbose_json",
	}
	if language != "" {
		fields["language"] = language
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// classifyStatus maps an HTTP error status to a retry classification.
// 429 and 5xx indicate rate limiting or a server-side outage and are
// transient; any other status will not succeed on retry.
func classifyStatus(resp *http.Response) error {
	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err := fmt.Errorf("transcription API status %d: %s",
		resp.StatusCode, strings.TrimSpace(string(detail)))

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return core.Transient(err)
	}
	return core.Fatal(err)
}

// convertTranscription validates the decoded response and converts it to
// the domain result type.
func convertTranscription(parsed *verboseTranscription) (*ai.TranscriptionResult, error) {
	result := &ai.TranscriptionResult{
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Duration: parsed.Duration,
		Segments: make([]ai.TranscriptionSegment, 0, len(parsed.Segments)),
	}

	for i, seg := range parsed.Segments {
		if seg.Start > seg.End {
			return nil, fmt.Errorf("transcription segment %d: start %.2f after end %.2f",
				i, seg.Start, seg.End)
		}
		result.Segments = append(result.Segments, ai.TranscriptionSegment{
			Speaker:    seg.Speaker,
			Start:      seg.Start,
			End:        seg.End,
			Text:       strings.TrimSpace(seg.Text),
			Confidence: segmentConfidence(seg.AvgLogprob),
		})
	}
	return result, nil
}

// segmentConfidence converts the average log probability reported by
// Whisper-style backends to a confidence in [0, 1].
func segmentConfidence(avgLogprob *float64) float32 {
	if avgLogprob == nil {
		return 0
	}
	c := math.Exp(*avgLogprob)
	if c > 1 {
		c = 1
	}
	return float32(c)
}
