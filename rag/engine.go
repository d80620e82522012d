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


// Package rag answers questions over indexed session transcripts. A
// question is optionally expanded into alternative phrasings, every
// phrasing is embedded and searched, and the merged top segments become the
// only context the completion model may answer from.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
	"github.com/plenumhq/plenum/vectorindex"
)

const (
	// DefaultTopK is the number of segments retrieved per question.
	DefaultTopK = 10

	// DefaultExpansionCount is how many alternative phrasings expansion
	// requests on top of the original question.
	DefaultExpansionCount = 3

	// NoInformationAnswer is returned verbatim when retrieval finds nothing.
	NoInformationAnswer = "No relevant information was found in the indexed sessions for this question."

	historyWindow = 6
)

var citationPattern = regexp.MustCompile(`\[Source (\d+)\]`)

// Metadata describes how an answer was produced.
type Metadata struct {
	SegmentsRetrieved int
	SourcesCited      int
	TokensUsed        int
	MultiQuery        bool
	QuerySuccess      bool
}

// Answer is the result of one question over the index.
type Answer struct {
	Text     string
	Sources  []core.SearchResult
	Metadata Metadata
}

// Request carries a question plus optional retrieval scope.
type Request struct {
	Question   string
	SessionKey string
	Speaker    string
	Country    string
	TopK       int
	History    []core.ChatMessage

	// DisableExpansion skips multi-query expansion and retrieves with the
	// question alone.
	DisableExpansion bool
}

// Engine orchestrates retrieval-augmented answering.
type Engine struct {
	completer ai.Completer
	embedder  ai.Embedder
	index     *vectorindex.Index
	logger    *slog.Logger
}

// NewEngine creates an engine over the given completion model, embedder
// (normally the embedding cache), and similarity index.
func NewEngine(completer ai.Completer, embedder ai.Embedder, index *vectorindex.Index) *Engine {
	return &Engine{
		completer: completer,
		embedder:  embedder,
		index:     index,
		logger:    slog.Default().With("component", "rag"),
	}
}

// ExpandQueries asks the model for count alternative phrasings of question.
// The original question is always the first query returned. Expansion
// failure degrades to the original question alone.
func (e *Engine) ExpandQueries(ctx context.Context, question string, count int) []string {
	if count <= 0 {
		count = DefaultExpansionCount
	}
	queries := []string{question}

	completion, err := e.completer.Complete(ctx, []ai.Message{
		{Role: ai.RoleUser, Content: buildExpandPrompt(question, count)},
	}, ai.CompletionOptions{Temperature: 0.7, MaxTokens: 300})
	if err != nil {
		e.logger.Warn("query expansion failed, using original question only", "err", err)
		return queries
	}

	for _, line := range splitLines(completion.Text) {
		if strings.EqualFold(line, question) {
			continue
		}
		queries = append(queries, line)
		if len(queries) > count {
			break
		}
	}
	return queries
}

// Decompose splits a complex question into 2 to 4 independently answerable
// sub-questions. A single-line model response means the question was simple
// enough already; the original is returned unchanged.
func (e *Engine) Decompose(ctx context.Context, question string) ([]string, error) {
	completion, err := e.completer.Complete(ctx, []ai.Message{
		{Role: ai.RoleUser, Content: buildDecomposePrompt(question)},
	}, ai.CompletionOptions{Temperature: 0.3, MaxTokens: 300})
	if err != nil {
		return nil, fmt.Errorf("decomposing question: %w", err)
	}

	lines := splitLines(completion.Text)
	if len(lines) < 2 {
		return []string{question}, nil
	}
	if len(lines) > 4 {
		lines = lines[:4]
	}
	return lines, nil
}

// Retrieve embeds every query, searches the index with all of them, and
// returns the merged segments ranked 1-based in final order.
func (e *Engine) Retrieve(ctx context.Context, queries []string, topK int, filters vectorindex.Filters) ([]core.SearchResult, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	vectors, err := e.embedder.EmbedTexts(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("embedding queries: %w", err)
	}

	results, err := e.index.SearchMulti(vectors, topK, filters)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	return results, nil
}

// Ask answers a question from indexed segments. Retrieval scope, history,
// and expansion behavior come from the request.
func (e *Engine) Ask(ctx context.Context, req Request) (*Answer, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, core.InputInvalid(fmt.Errorf("ask: %w", core.ErrEmptyText))
	}

	queries := []string{req.Question}
	if !req.DisableExpansion {
		queries = e.ExpandQueries(ctx, req.Question, DefaultExpansionCount)
	}

	results, err := e.Retrieve(ctx, queries, req.TopK, vectorindex.Filters{
		SessionKey: req.SessionKey,
		Speaker:    req.Speaker,
		Country:    req.Country,
	})
	if err != nil {
		return nil, err
	}

	e.logger.Debug("retrieved context",
		"question", req.Question, "queries", len(queries), "segments", len(results))

	return e.answerFromResults(ctx, req.Question, results, req.History, len(queries) > 1)
}

// CompareSessions answers one question across several sessions: retrieval
// runs independently per session, the per-session results are merged and
// globally re-ranked, and a single answer pass runs over the merged set.
func (e *Engine) CompareSessions(ctx context.Context, question string, sessionKeys []string, topK int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, core.InputInvalid(fmt.Errorf("compare sessions: %w", core.ErrEmptyText))
	}
	if len(sessionKeys) < 2 {
		return nil, fmt.Errorf("compare sessions: need at least 2 sessions, got %d", len(sessionKeys))
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	queries := e.ExpandQueries(ctx, question, DefaultExpansionCount)

	var merged []core.SearchResult
	for _, key := range sessionKeys {
		results, err := e.Retrieve(ctx, queries, topK, vectorindex.Filters{SessionKey: key})
		if err != nil {
			return nil, fmt.Errorf("retrieving session %s: %w", key, err)
		}
		merged = append(merged, results...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	for i := range merged {
		merged[i].Rank = i + 1
	}

	return e.answerFromResults(ctx, question, merged, nil, len(queries) > 1)
}

// answerFromResults runs the completion pass over already-retrieved
// segments. Zero results short-circuit to a fixed answer with no model
// call.
func (e *Engine) answerFromResults(ctx context.Context, question string, results []core.SearchResult, history []core.ChatMessage, multiQuery bool) (*Answer, error) {
	if len(results) == 0 {
		return &Answer{
			Text:    NoInformationAnswer,
			Sources: []core.SearchResult{},
			Metadata: Metadata{
				MultiQuery:   multiQuery,
				QuerySuccess: false,
			},
		}, nil
	}

	messages := make([]ai.Message, 0, historyWindow+2)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: answerSystemPrompt})
	messages = append(messages, historyMessages(history)...)
	messages = append(messages, ai.Message{
		Role:    ai.RoleUser,
		Content: buildAnswerPrompt(question, buildContext(results)),
	})

	completion, err := e.completer.Complete(ctx, messages, ai.CompletionOptions{
		Temperature: 0.2,
		MaxTokens:   1000,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	cited := countCitations(completion.Text, len(results))
	e.logger.Info("answered question",
		"segments", len(results), "cited", cited, "tokens", completion.TokensUsed)

	return &Answer{
		Text:    completion.Text,
		Sources: results,
		Metadata: Metadata{
			SegmentsRetrieved: len(results),
			SourcesCited:      cited,
			TokensUsed:        completion.TokensUsed,
			MultiQuery:        multiQuery,
			QuerySuccess:      true,
		},
	}, nil
}

// historyMessages converts the most recent chat turns to model messages.
func historyMessages(history []core.ChatMessage) []ai.Message {
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	messages := make([]ai.Message, 0, len(history))
	for _, m := range history {
		role := ai.RoleUser
		if m.Role == core.ChatRoleAssistant {
			role = ai.RoleAssistant
		}
		messages = append(messages, ai.Message{Role: role, Content: m.Content})
	}
	return messages
}

// countCitations counts the distinct in-range [Source k] markers in text.
func countCitations(text string, sourceCount int) int {
	seen := make(map[int]bool)
	for _, match := range citationPattern.FindAllStringSubmatch(text, -1) {
		k, err := strconv.Atoi(match[1])
		if err != nil || k < 1 || k > sourceCount {
			continue
		}
		seen[k] = true
	}
	return len(seen)
}
