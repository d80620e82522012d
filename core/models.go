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


package core

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// KeyFromContent generates a deterministic hex key from text content using
// BLAKE2b hashing. Identical content always produces the same key.
func KeyFromContent(text string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// SessionKeyFromURL derives the session identity key from a source URL.
// The key depends only on the canonicalized URL, so resubmitting the same
// URL always resolves to the same session.
func SessionKeyFromURL(rawURL string) string {
	canonical := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	return KeyFromContent(canonical)
}

// Status is the processing state of a session.
type Status int

const (
	// StatusPending means the session has been created but not started.
	StatusPending Status = iota + 1
	// StatusDownloading means audio acquisition is in progress.
	StatusDownloading
	// StatusTranscribing means chunked transcription is in progress.
	StatusTranscribing
	// StatusExtracting means entity extraction and summarization are in progress.
	StatusExtracting
	// StatusEmbedding means segment embedding and indexing are in progress.
	StatusEmbedding
	// StatusCompleted is the terminal success state.
	StatusCompleted
	// StatusFailed is the terminal failure state.
	StatusFailed
)

// String returns the lowercase name of the status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusTranscribing:
		return "transcribing"
	case StatusExtracting:
		return "extracting"
	case StatusEmbedding:
		return "embedding"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Session represents one recorded proceeding and its processing state.
// Exactly one Session exists per distinct source URL; it is created on first
// encounter and mutated in place as the pipeline advances.
type Session struct {
	Key          string // derived from the source URL, see SessionKeyFromURL
	URL          string
	Title        string
	Date         time.Time
	Duration     float64 // seconds
	Languages    []string
	Status       Status
	ErrorMessage string
	Summary      string
	Entities     *EntityBundle
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Speaker is one identified speaker from entity extraction.
type Speaker struct {
	Name         string
	Country      string
	Role         string
	Organization string
}

// SDGRef is a reference to a Sustainable Development Goal (1-17) with the
// context in which it was mentioned.
type SDGRef struct {
	Goal    int
	Context string
}

// EntityBundle holds the structured entities extracted from a transcript.
type EntityBundle struct {
	Speakers               []Speaker
	Countries              []string
	SDGs                   []SDGRef
	Topics                 []string
	Organizations          []string
	Treaties               []string
	KeyDecisions           []string
	InterventionsByCountry map[string]int
}

// Segment is one time-bounded, speaker-attributed span of transcript text.
type Segment struct {
	Index      int
	Speaker    string
	Start      float64 // seconds from session start
	End        float64
	Text       string
	Confidence float32
}

// Transcript is the full time-aligned transcript of one session.
// It is created once after transcription completes and never updated in
// place; reprocessing a session creates a new transcript.
type Transcript struct {
	SessionKey   string
	FullText     string
	Segments     []Segment
	WordCount    int
	SpeakerCount int
	Language     string
	Duration     float64
	CreatedAt    time.Time
}

// CountSpeakers returns the number of distinct speaker labels in segments.
func CountSpeakers(segments []Segment) int {
	seen := make(map[string]bool, 8)
	for _, seg := range segments {
		if seg.Speaker != "" {
			seen[seg.Speaker] = true
		}
	}
	return len(seen)
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// VectorSegment is a transcript segment projected for retrieval. It carries
// a denormalized copy of session title and date plus its embedding vector,
// so search results are self-describing without a session lookup.
type VectorSegment struct {
	ID           string // {sessionKey}_seg_{index}
	SessionKey   string
	SessionTitle string
	SessionDate  time.Time
	Index        int
	Speaker      string
	Country      string
	Start        float64
	End          float64
	Text         string
	Vector       []float32
	Metadata     map[string]string
}

// VectorSegmentID builds the identity of a vector segment.
func VectorSegmentID(sessionKey string, index int) string {
	return fmt.Sprintf("%s_seg_%d", sessionKey, index)
}

// SearchResult is a query-scoped match: a vector segment with its cosine
// similarity score and a 1-based rank assigned at query time.
type SearchResult struct {
	Segment *VectorSegment
	Score   float32
	Rank    int
}

// Citation formats the result as a human-readable citation string.
func (r *SearchResult) Citation() string {
	speaker := r.Segment.Speaker
	if speaker == "" {
		speaker = "Unknown Speaker"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", r.Rank, speaker)
	if r.Segment.Country != "" {
		fmt.Fprintf(&b, " (%s)", r.Segment.Country)
	}
	fmt.Fprintf(&b, ", '%s' at %s: ", r.Segment.SessionTitle, FormatTimestamp(r.Segment.Start))
	text := r.Segment.Text
	if len(text) > 100 {
		text = text[:100] + "..."
	}
	fmt.Fprintf(&b, "%q", text)
	return b.String()
}

// FormatTimestamp converts seconds to HH:MM:SS.
func FormatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// ChatRole identifies who authored a chat message.
type ChatRole int

const (
	// ChatRoleUser is a question from a human user.
	ChatRoleUser ChatRole = iota + 1
	// ChatRoleAssistant is a generated answer.
	ChatRoleAssistant
)

// ChatMessage is one message in a session's question-answering log.
type ChatMessage struct {
	ID         string // uuid
	SessionKey string
	Role       ChatRole
	Content    string
	CreatedAt  time.Time
}
