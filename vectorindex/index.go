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


// Package vectorindex is an in-memory exhaustive-scan similarity index over
// transcript segments. Cosine scores are computed against a dense matrix
// that is rebuilt lazily: mutations only mark the index dirty and the next
// search pays the rebuild. Exhaustive scan is fine at the target scale of
// thousands of segments.
package vectorindex

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/plenumhq/plenum/core"
)

// overfetchFactor widens the candidate pool before metadata filters apply,
// so filtered searches still fill topK in the common case.
const overfetchFactor = 3

// Filters narrows search results by segment metadata. Zero values match
// everything.
type Filters struct {
	SessionKey string
	Speaker    string
	Country    string
	MinScore   float32
}

func (f Filters) match(seg *core.VectorSegment) bool {
	if f.SessionKey != "" && seg.SessionKey != f.SessionKey {
		return false
	}
	if f.Speaker != "" && seg.Speaker != f.Speaker {
		return false
	}
	if f.Country != "" && seg.Country != f.Country {
		return false
	}
	return true
}

// Stats is a point-in-time snapshot of index shape.
type Stats struct {
	Segments  int
	Sessions  int
	Dimension int
	Dirty     bool
}

// Index stores vector segments and answers cosine-similarity queries.
// One mutex guards mutation, rebuild, and search; expected concurrency is
// low enough that finer locking isn't worth a reader seeing a half-rebuilt
// matrix.
type Index struct {
	logger *slog.Logger

	mu        sync.Mutex
	segments  []*core.VectorSegment
	dimension int
	dirty     bool
	matrix    [][]float32
	norms     []float32
}

// New creates an empty index. The vector dimension is fixed by the first
// segment added.
func New() *Index {
	return &Index{
		logger: slog.Default().With("component", "vectorindex"),
	}
}

// Add appends segments to the index and marks it dirty. Every vector must
// match the index dimension; the first added segment fixes it.
func (x *Index) Add(segments ...*core.VectorSegment) error {
	if len(segments) == 0 {
		return nil
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	for _, seg := range segments {
		if len(seg.Vector) == 0 {
			return fmt.Errorf("%w: segment %s", ErrEmptyVector, seg.ID)
		}
		if x.dimension == 0 {
			x.dimension = len(seg.Vector)
		}
		if len(seg.Vector) != x.dimension {
			return fmt.Errorf("%w: segment %s has dimension %d, index has %d",
				ErrDimensionMismatch, seg.ID, len(seg.Vector), x.dimension)
		}
	}

	x.segments = append(x.segments, segments...)
	x.dirty = true

	x.logger.Debug("added segments", "count", len(segments), "total", len(x.segments))
	return nil
}

// DeleteSession removes every segment belonging to sessionKey and returns
// how many were dropped. Segments of other sessions keep their insertion
// order.
func (x *Index) DeleteSession(sessionKey string) int {
	x.mu.Lock()
	defer x.mu.Unlock()

	kept := x.segments[:0]
	for _, seg := range x.segments {
		if seg.SessionKey != sessionKey {
			kept = append(kept, seg)
		}
	}
	removed := len(x.segments) - len(kept)
	x.segments = kept
	if removed > 0 {
		x.dirty = true
		x.logger.Debug("deleted session segments", "sessionKey", sessionKey, "removed", removed)
	}
	return removed
}

// Search returns the topK most similar segments to query, descending by
// cosine score with ties broken by insertion order. Metadata filters apply
// after an over-fetched candidate pass.
func (x *Index) Search(query []float32, topK int, filters Filters) ([]core.SearchResult, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	scored, err := x.searchLocked(query, topK, filters)
	if err != nil {
		return nil, err
	}
	return rank(scored), nil
}

// SearchMulti runs one search per query vector and merges the results,
// deduplicating by segment identity and keeping the maximum score a
// segment earned across all queries.
func (x *Index) SearchMulti(queries [][]float32, topK int, filters Filters) ([]core.SearchResult, error) {
	if len(queries) == 0 {
		return nil, ErrNoQueryVectors
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	best := make(map[string]scoredSegment)
	for _, query := range queries {
		scored, err := x.searchLocked(query, topK, filters)
		if err != nil {
			return nil, err
		}
		for _, s := range scored {
			if prev, ok := best[s.segment.ID]; !ok || s.score > prev.score {
				best[s.segment.ID] = s
			}
		}
	}

	merged := make([]scoredSegment, 0, len(best))
	for _, s := range best {
		merged = append(merged, s)
	}
	sortByScore(merged)
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return rank(merged), nil
}

// Stats returns a snapshot of the index.
func (x *Index) Stats() Stats {
	x.mu.Lock()
	defer x.mu.Unlock()

	sessions := make(map[string]bool)
	for _, seg := range x.segments {
		sessions[seg.SessionKey] = true
	}
	return Stats{
		Segments:  len(x.segments),
		Sessions:  len(sessions),
		Dimension: x.dimension,
		Dirty:     x.dirty,
	}
}

type scoredSegment struct {
	segment *core.VectorSegment
	order   int // insertion position, the tie-break
	score   float32
}

// searchLocked scores every stored vector against query and returns up to
// topK filtered candidates. Caller holds the mutex.
func (x *Index) searchLocked(query []float32, topK int, filters Filters) ([]scoredSegment, error) {
	if topK <= 0 {
		return nil, ErrInvalidTopK
	}
	if len(x.segments) == 0 {
		return nil, nil
	}
	if len(query) != x.dimension {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			ErrDimensionMismatch, len(query), x.dimension)
	}

	if x.dirty {
		x.rebuildLocked()
	}

	queryNorm := Norm(query)
	if queryNorm == 0 {
		return nil, ErrEmptyVector
	}

	scored := make([]scoredSegment, 0, len(x.segments))
	for i, row := range x.matrix {
		if x.norms[i] == 0 {
			continue
		}
		var dot float64
		for j := range query {
			dot += float64(query[j]) * float64(row[j])
		}
		scored = append(scored, scoredSegment{
			segment: x.segments[i],
			order:   i,
			score:   float32(dot / (float64(queryNorm) * float64(x.norms[i]))),
		})
	}
	sortByScore(scored)

	// Over-fetch, then filter, then truncate
	limit := topK * overfetchFactor
	if len(scored) > limit {
		scored = scored[:limit]
	}

	filtered := scored[:0]
	for _, s := range scored {
		if s.score < filters.MinScore {
			break // sorted descending, nothing further qualifies
		}
		if filters.match(s.segment) {
			filtered = append(filtered, s)
		}
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	return filtered, nil
}

func (x *Index) rebuildLocked() {
	x.matrix = make([][]float32, len(x.segments))
	x.norms = make([]float32, len(x.segments))
	for i, seg := range x.segments {
		x.matrix[i] = seg.Vector
		x.norms[i] = Norm(seg.Vector)
	}
	x.dirty = false
	x.logger.Debug("rebuilt similarity matrix", "segments", len(x.segments), "dimension", x.dimension)
}

func sortByScore(scored []scoredSegment) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].order < scored[j].order
	})
}

func rank(scored []scoredSegment) []core.SearchResult {
	results := make([]core.SearchResult, len(scored))
	for i, s := range scored {
		results[i] = core.SearchResult{
			Segment: s.segment,
			Score:   s.score,
			Rank:    i + 1,
		}
	}
	return results
}
