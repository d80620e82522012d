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


// Package embedcache memoizes embedding calls. Texts are keyed by a
// content hash of their normalized form, so re-embedding a transcript after
// a restart or reindex costs nothing for unchanged segments.
package embedcache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
)

// DefaultMaxBatch caps how many uncached texts go to the embedder per call.
const DefaultMaxBatch = 100

// Stats is a point-in-time snapshot of cache effectiveness.
type Stats struct {
	Entries         int
	Hits            int64
	Misses          int64
	TokensEstimated int64
}

// HitRate returns the fraction of lookups served from cache.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache wraps an ai.Embedder with content-addressed memoization.
// Safe for concurrent use.
type Cache struct {
	embedder ai.Embedder
	maxBatch int
	logger   *slog.Logger

	mu      sync.RWMutex
	entries map[string][]float32
	hits    int64
	misses  int64
	tokens  int64
}

// New creates a cache over the given embedder. maxBatch <= 0 falls back to
// DefaultMaxBatch.
func New(embedder ai.Embedder, maxBatch int) *Cache {
	if maxBatch <= 0 {
		maxBatch = DefaultMaxBatch
	}
	return &Cache{
		embedder: embedder,
		maxBatch: maxBatch,
		entries:  make(map[string][]float32),
		logger:   slog.Default().With("component", "embedcache"),
	}
}

// cacheKey derives the content hash for a text. Whitespace runs collapse so
// formatting differences don't defeat the cache.
func cacheKey(text string) string {
	return core.KeyFromContent(strings.Join(strings.Fields(text), " "))
}

// EmbedText returns the embedding for one text, from cache when possible.
func (c *Cache) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts returns embeddings for texts in input order. Cached texts are
// served locally; the rest go to the embedder in batches of at most
// maxBatch and are spliced back into their original positions.
func (c *Cache) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, core.InputInvalid(fmt.Errorf("embed texts: position %d: %w", i, core.ErrEmptyText))
		}
		keys[i] = cacheKey(text)
	}

	results := make([][]float32, len(texts))

	// Partition into cache hits and misses. Duplicate texts within one
	// call miss only once.
	missText := make([]string, 0)
	missKeys := make([]string, 0)
	seen := make(map[string]bool)
	var hitCount, missCount int64

	c.mu.RLock()
	for i, key := range keys {
		if vector, ok := c.entries[key]; ok {
			results[i] = vector
			hitCount++
			continue
		}
		missCount++
		if !seen[key] {
			seen[key] = true
			missText = append(missText, texts[i])
			missKeys = append(missKeys, key)
		}
	}
	c.mu.RUnlock()

	if len(missText) == 0 {
		c.mu.Lock()
		c.hits += hitCount
		c.mu.Unlock()
		return results, nil
	}

	fresh := make(map[string][]float32, len(missText))
	for start := 0; start < len(missText); start += c.maxBatch {
		end := start + c.maxBatch
		if end > len(missText) {
			end = len(missText)
		}

		vectors, err := c.embedder.EmbedTexts(ctx, missText[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), end-start)
		}

		for i, vector := range vectors {
			fresh[missKeys[start+i]] = vector
		}
	}

	c.mu.Lock()
	for key, vector := range fresh {
		c.entries[key] = vector
	}
	for _, text := range missText {
		c.tokens += int64(len(text) / 4)
	}
	c.hits += hitCount
	c.misses += missCount
	c.mu.Unlock()

	// Splice fresh vectors into their original positions
	for i, key := range keys {
		if results[i] == nil {
			results[i] = fresh[key]
		}
	}

	c.logger.Debug("embedded batch",
		"total", len(texts), "misses", len(missText), "batchLimit", c.maxBatch)
	return results, nil
}

// Stats returns a snapshot of cache counters.
func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Entries:         len(c.entries),
		Hits:            c.hits,
		Misses:          c.misses,
		TokensEstimated: c.tokens,
	}
}

// Clear drops all cached vectors and resets counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]float32)
	c.hits, c.misses, c.tokens = 0, 0, 0
}
