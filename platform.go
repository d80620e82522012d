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


// Package plenum processes recorded multilateral proceedings into
// searchable, queryable session records.
package plenum

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/ai/openai"
	"github.com/plenumhq/plenum/config"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/embedcache"
	"github.com/plenumhq/plenum/media"
	"github.com/plenumhq/plenum/pipeline"
	"github.com/plenumhq/plenum/rag"
	"github.com/plenumhq/plenum/storage"
	"github.com/plenumhq/plenum/storage/badger"
	"github.com/plenumhq/plenum/transcribe"
	"github.com/plenumhq/plenum/vectorindex"
)

// Platform owns every shared service: storage, the model provider, the
// embedding cache, the similarity index, and the media tool. Components
// get their collaborators from here instead of reaching for globals.
type Platform struct {
	backend     *badger.Backend
	sessions    storage.SessionRepository
	transcripts storage.TranscriptRepository
	chats       storage.ChatRepository
	provider    ai.Provider
	cache       *embedcache.Cache
	index       *vectorindex.Index
	media       *media.Tool
	cfg         *config.Config
	logger      *slog.Logger
}

// PlatformOption configures a Platform.
type PlatformOption func(*platformOptions)

type platformOptions struct {
	provider ai.Provider
	inMemory bool
}

// WithProvider injects a pre-built model provider instead of constructing
// one from config. Used by tests.
func WithProvider(provider ai.Provider) PlatformOption {
	return func(o *platformOptions) { o.provider = provider }
}

// WithInMemoryStore uses an in-memory database instead of cfg.DataDir.
func WithInMemoryStore() PlatformOption {
	return func(o *platformOptions) { o.inMemory = true }
}

// NewPlatform builds the service graph from configuration.
func NewPlatform(cfg *config.Config, opts ...PlatformOption) (*Platform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &platformOptions{}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(cfg.DataDir, options.inMemory)
	if err != nil {
		return nil, err
	}

	sessions := badger.NewSessionRepository(backend)
	transcripts := badger.NewTranscriptRepository(backend)
	chats, err := badger.NewChatRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	provider := options.provider
	if provider == nil {
		aiConfig := ai.NewConfig(
			ai.WithHost(cfg.AI.Host),
			ai.WithAPIKey(cfg.AI.APIKey),
			ai.WithEmbeddingModel(cfg.AI.EmbeddingModel),
			ai.WithCompletionModel(cfg.AI.CompletionModel),
			ai.WithTranscriptionModel(cfg.AI.TranscriptionModel),
			ai.WithEmbeddingBatchSize(cfg.AI.EmbeddingBatchSize),
		)
		provider, err = openai.NewProvider(aiConfig)
		if err != nil {
			backend.Close()
			return nil, err
		}
	}

	return &Platform{
		backend:     backend,
		sessions:    sessions,
		transcripts: transcripts,
		chats:       chats,
		provider:    provider,
		cache:       embedcache.New(provider.Embedder(), cfg.AI.EmbeddingBatchSize),
		index:       vectorindex.New(),
		media:       media.NewTool(media.WithWorkDir(cfg.WorkDir)),
		cfg:         cfg,
		logger:      slog.Default().With("component", "platform"),
	}, nil
}

// Close releases the provider and storage.
func (p *Platform) Close() error {
	if err := p.provider.Close(); err != nil {
		p.logger.Error("error closing model provider", "err", err)
	}
	return p.backend.Close()
}

// SessionRepository exposes session storage.
func (p *Platform) SessionRepository() storage.SessionRepository {
	return p.sessions
}

// TranscriptRepository exposes transcript storage.
func (p *Platform) TranscriptRepository() storage.TranscriptRepository {
	return p.transcripts
}

// ChatRepository exposes per-session chat log storage.
func (p *Platform) ChatRepository() storage.ChatRepository {
	return p.chats
}

// Index exposes the similarity index.
func (p *Platform) Index() *vectorindex.Index {
	return p.index
}

// Cache exposes the embedding cache.
func (p *Platform) Cache() *embedcache.Cache {
	return p.cache
}

// NewProcessor builds the per-session pipeline. progress may be nil.
func (p *Platform) NewProcessor(progress pipeline.ProgressFunc) *Processor {
	transcriber := transcribe.New(p.provider.Transcriber(), p.media, transcribe.Config{
		ChunkThresholdBytes: p.cfg.Transcribe.ChunkThresholdBytes,
		WindowSeconds:       p.cfg.Transcribe.WindowSeconds,
	})
	return pipeline.NewProcessor(
		p.sessions, p.transcripts, p.chats,
		&metadataResolver{tool: p.media},
		p.media, transcriber, p.provider.EntityExtractor(),
		p.cache, p.index, progress,
	)
}

// Processor aliases the pipeline processor for callers of the aggregate.
type Processor = pipeline.Processor

// NewCoordinator builds a batch coordinator over a fresh processor.
// progress observes per-session steps; batchProgress observes per-URL
// completion. Both may be nil.
func (p *Platform) NewCoordinator(progress pipeline.ProgressFunc, batchProgress pipeline.BatchProgressFunc) *pipeline.Coordinator {
	return pipeline.NewCoordinator(p.NewProcessor(progress), p.cfg.Batch.Concurrency, batchProgress)
}

// NewEngine builds the question-answering engine over the shared cache and
// index.
func (p *Platform) NewEngine() *rag.Engine {
	return rag.NewEngine(p.provider.Completer(), p.cache, p.index)
}

// Reindex rebuilds the similarity index from every stored transcript.
// The index lives in memory, so a fresh process must replay transcripts
// through the embedding cache before answering questions. Returns the
// number of segments indexed.
func (p *Platform) Reindex(ctx context.Context) (int, error) {
	sessions, err := p.sessions.ListSessions(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("listing sessions: %w", err)
	}

	indexed := 0
	for _, session := range sessions {
		if session.Status != core.StatusCompleted {
			continue
		}
		transcript, err := p.transcripts.GetTranscript(ctx, session.Key)
		if err != nil {
			p.logger.Warn("completed session missing transcript", "key", session.Key)
			continue
		}
		if len(transcript.Segments) == 0 {
			continue
		}

		texts := make([]string, len(transcript.Segments))
		for i, seg := range transcript.Segments {
			texts[i] = seg.Text
		}
		vectors, err := p.cache.EmbedTexts(ctx, texts)
		if err != nil {
			return indexed, fmt.Errorf("embedding session %s: %w", session.Key, err)
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
			return indexed, fmt.Errorf("indexing session %s: %w", session.Key, err)
		}
		indexed += len(segments)
	}

	p.logger.Info("reindexed transcripts", "segments", indexed)
	return indexed, nil
}

// metadataResolver adapts the media tool to the pipeline's resolver
// contract.
type metadataResolver struct {
	tool *media.Tool
}

func (r *metadataResolver) Resolve(ctx context.Context, url string) (*pipeline.Metadata, error) {
	meta, err := r.tool.ResolveMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	return &pipeline.Metadata{
		Title:     meta.Title,
		Date:      meta.Date,
		Duration:  meta.Duration,
		Languages: meta.Languages,
	}, nil
}
