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


// Package pipeline drives a session from source URL to completed record:
// metadata, audio, transcript, entities, summary, embeddings, index. Each
// session moves strictly forward through its statuses; any failure lands
// it in failed with a human-readable message, never dropped silently.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/storage"
	"github.com/plenumhq/plenum/vectorindex"
)

// Metadata describes a source recording before any processing.
type Metadata struct {
	Title     string
	Date      time.Time
	Duration  float64
	Languages []string
}

// MetadataResolver resolves source metadata for a URL.
type MetadataResolver interface {
	Resolve(ctx context.Context, url string) (*Metadata, error)
}

// AudioTool is the subset of the media layer the pipeline needs.
type AudioTool interface {
	Acquire(ctx context.Context, url, sessionKey string) (string, error)
	Validate(ctx context.Context, path string) error
	Remove(path string) error
}

// SessionTranscriber produces a complete transcript for a session's audio.
type SessionTranscriber interface {
	TranscribeSession(ctx context.Context, audioPath, language, sessionKey string) (*core.Transcript, error)
}

// SegmentIndex receives embedded segments and evicts stale sessions.
type SegmentIndex interface {
	Add(segments ...*core.VectorSegment) error
	DeleteSession(sessionKey string) int
}

// Progress reports a session's advance through the pipeline.
type Progress struct {
	Status  core.Status
	Percent int
	Message string
}

// ProgressFunc observes session progress. Called synchronously; keep it
// cheap.
type ProgressFunc func(sessionKey string, p Progress)

// Processor runs the per-session pipeline.
type Processor struct {
	sessions    storage.SessionRepository
	transcripts storage.TranscriptRepository
	chats       storage.ChatRepository
	resolver    MetadataResolver
	audio       AudioTool
	transcriber SessionTranscriber
	extractor   ai.EntityExtractor
	embedder    ai.Embedder
	index       SegmentIndex
	progress    ProgressFunc
	logger      *slog.Logger
}

// NewProcessor wires the pipeline's collaborators together. progress may be
// nil.
func NewProcessor(
	sessions storage.SessionRepository,
	transcripts storage.TranscriptRepository,
	chats storage.ChatRepository,
	resolver MetadataResolver,
	audio AudioTool,
	transcriber SessionTranscriber,
	extractor ai.EntityExtractor,
	embedder ai.Embedder,
	index SegmentIndex,
	progress ProgressFunc,
) *Processor {
	return &Processor{
		sessions:    sessions,
		transcripts: transcripts,
		chats:       chats,
		resolver:    resolver,
		audio:       audio,
		transcriber: transcriber,
		extractor:   extractor,
		embedder:    embedder,
		index:       index,
		progress:    progress,
		logger:      slog.Default().With("component", "pipeline"),
	}
}

// Process runs the full pipeline for one source URL. Resubmitting a
// completed or in-flight session returns the existing record unchanged; a
// failed session is wiped and reprocessed from scratch. On failure the
// returned session is persisted in failed state together with the error.
func (p *Processor) Process(ctx context.Context, rawURL string) (*core.Session, error) {
	key, err := sessionKey(rawURL)
	if err != nil {
		return nil, err
	}

	existing, err := p.sessions.GetSession(ctx, key)
	switch {
	case err == nil && existing.Status != core.StatusFailed:
		p.logger.Info("session already known, skipping",
			"key", key, "status", existing.Status.String())
		return existing, nil
	case err == nil:
		// Failed sessions retry on resubmission; drop the stale records first
		if err := p.wipeSession(ctx, key); err != nil {
			return nil, fmt.Errorf("clearing failed session %s: %w", key, err)
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("looking up session %s: %w", key, err)
	}

	session := &core.Session{Key: key, URL: rawURL, Status: core.StatusPending}
	session, err = p.sessions.CreateSession(ctx, session)
	if err != nil {
		return nil, fmt.Errorf("creating session %s: %w", key, err)
	}
	p.report(session, 0, "session created")

	if err := p.run(ctx, session); err != nil {
		session.Status = core.StatusFailed
		session.ErrorMessage = err.Error()
		if updated, uerr := p.sessions.UpdateSession(ctx, session); uerr != nil {
			p.logger.Error("failed to persist failed session", "key", key, "err", uerr)
		} else {
			session = updated
		}
		p.report(session, 100, err.Error())
		p.logger.Error("session failed", "key", key, "err", err)
		return session, err
	}

	p.report(session, 100, "completed")
	return session, nil
}

// run executes pipeline steps 2 through 8 and returns the first failure.
// The audio artifact is removed on every exit path.
func (p *Processor) run(ctx context.Context, session *core.Session) error {
	meta, err := p.resolver.Resolve(ctx, session.URL)
	if err != nil {
		return fmt.Errorf("resolving metadata: %w", err)
	}
	session.Title = meta.Title
	session.Date = meta.Date
	session.Duration = meta.Duration
	session.Languages = meta.Languages

	if err := p.setStatus(ctx, session, core.StatusDownloading, 10); err != nil {
		return err
	}
	audioPath, err := p.audio.Acquire(ctx, session.URL, session.Key)
	if err != nil {
		return fmt.Errorf("acquiring audio: %w", err)
	}
	defer func() {
		if err := p.audio.Remove(audioPath); err != nil {
			p.logger.Warn("failed to remove audio artifact", "path", audioPath, "err", err)
		}
	}()

	if err := p.audio.Validate(ctx, audioPath); err != nil {
		return fmt.Errorf("validating audio: %w", err)
	}

	if err := p.setStatus(ctx, session, core.StatusTranscribing, 30); err != nil {
		return err
	}
	language := ""
	if len(session.Languages) > 0 {
		language = session.Languages[0]
	}
	transcript, err := p.transcriber.TranscribeSession(ctx, audioPath, language, session.Key)
	if err != nil {
		return fmt.Errorf("transcribing: %w", err)
	}
	if _, err := p.transcripts.CreateTranscript(ctx, transcript); err != nil {
		return fmt.Errorf("persisting transcript: %w", err)
	}

	if err := p.setStatus(ctx, session, core.StatusExtracting, 60); err != nil {
		return err
	}
	entities, err := p.extractor.ExtractEntities(ctx, transcript.FullText, session.Title)
	if err != nil {
		return fmt.Errorf("extracting entities: %w", err)
	}
	summary, err := p.extractor.Summarize(ctx, transcript.FullText, session.Title, entities)
	if err != nil {
		return fmt.Errorf("summarizing: %w", err)
	}
	session.Entities = entities
	session.Summary = summary

	if err := p.setStatus(ctx, session, core.StatusEmbedding, 80); err != nil {
		return err
	}
	if err := p.indexTranscript(ctx, session, transcript); err != nil {
		return fmt.Errorf("indexing segments: %w", err)
	}

	return p.setStatus(ctx, session, core.StatusCompleted, 100)
}

// indexTranscript embeds every segment and adds the vectors to the index.
func (p *Processor) indexTranscript(ctx context.Context, session *core.Session, transcript *core.Transcript) error {
	if len(transcript.Segments) == 0 {
		return nil
	}

	texts := make([]string, len(transcript.Segments))
	for i, seg := range transcript.Segments {
		texts[i] = seg.Text
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("got %d vectors for %d segments", len(vectors), len(texts))
	}

	segments := make([]*core.VectorSegment, len(transcript.Segments))
	for i, seg := range transcript.Segments {
		segments[i] = &core.VectorSegment{
			ID:           core.VectorSegmentID(session.Key, seg.Index),
			SessionKey:   session.Key,
			SessionTitle: session.Title,
			SessionDate:  session.Date,
			Index:        seg.Index,
			Speaker:      seg.Speaker,
			Start:        seg.Start,
			End:          seg.End,
			Text:         seg.Text,
			Vector:       vectors[i],
		}
	}
	if err := p.index.Add(segments...); err != nil {
		return err
	}

	p.logger.Info("indexed transcript segments",
		"key", session.Key, "segments", len(segments))
	return nil
}

// wipeSession removes a failed session's records so reprocessing starts
// clean. Missing transcript or chat records are fine.
func (p *Processor) wipeSession(ctx context.Context, key string) error {
	if err := p.transcripts.DeleteTranscript(ctx, key); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	if err := p.chats.DeleteChatMessages(ctx, key); err != nil {
		return err
	}
	p.index.DeleteSession(key)
	if err := p.sessions.DeleteSession(ctx, key); err != nil {
		return err
	}
	p.logger.Info("cleared failed session for reprocessing", "key", key)
	return nil
}

func (p *Processor) setStatus(ctx context.Context, session *core.Session, status core.Status, percent int) error {
	session.Status = status
	updated, err := p.sessions.UpdateSession(ctx, session)
	if err != nil {
		return fmt.Errorf("updating session to %s: %w", status.String(), err)
	}
	*session = *updated
	p.report(session, percent, status.String())
	p.logger.Debug("session advanced", "key", session.Key, "status", status.String())
	return nil
}

func (p *Processor) report(session *core.Session, percent int, message string) {
	if p.progress == nil {
		return
	}
	p.progress(session.Key, Progress{
		Status:  session.Status,
		Percent: percent,
		Message: message,
	})
}

func sessionKey(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", core.InputInvalid(errors.New("empty source URL"))
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", core.InputInvalid(fmt.Errorf("malformed source URL %q", rawURL))
	}
	return core.SessionKeyFromURL(rawURL), nil
}

var _ SegmentIndex = (*vectorindex.Index)(nil)
