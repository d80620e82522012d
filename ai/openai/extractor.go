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
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
)

// maxExtractionChars caps the transcript text sent to the model. Transcripts
// of multi-hour sessions exceed any context window; the opening portion
// carries the roll call, agenda, and most attributions.
const maxExtractionChars = 64000

// EntityExtractor implements ai.EntityExtractor on top of a chat completer.
type EntityExtractor struct {
	completer ai.Completer
	logger    *slog.Logger
}

// newEntityExtractor is an internal constructor that returns the concrete
// type. Used by Provider to manage the instance.
func newEntityExtractor(completer ai.Completer) *EntityExtractor {
	return &EntityExtractor{
		completer: completer,
		logger:    slog.Default().With("component", "openai-extractor"),
	}
}

// NewEntityExtractor creates an entity extractor backed by the given
// completer.
//
// Returns ai.EntityExtractor interface to enforce abstraction.
func NewEntityExtractor(completer ai.Completer) ai.EntityExtractor {
	return newEntityExtractor(completer)
}

// entitiesPayload matches the JSON structure requested from the model.
type entitiesPayload struct {
	Speakers []struct {
		Name         string `json:"name"`
		Country      string `json:"country"`
		Role         string `json:"role"`
		Organization string `json:"organization"`
	} `json:"speakers"`
	Countries []string `json:"countries"`
	SDGs      []struct {
		Goal    int    `json:"goal"`
		Context string `json:"context"`
	} `json:"sdgs_mentioned"`
	Topics                 []string       `json:"topics"`
	Organizations          []string       `json:"organizations"`
	Treaties               []string       `json:"treaties_and_agreements"`
	KeyDecisions           []string       `json:"key_decisions"`
	InterventionsByCountry map[string]int `json:"interventions_by_country"`
}

// ExtractEntities analyzes a transcript and returns the entities found in it.
func (e *EntityExtractor) ExtractEntities(ctx context.Context, transcript, title string) (*core.EntityBundle, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, core.InputInvalid(fmt.Errorf("extract entities: %w", core.ErrEmptyText))
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: buildEntityPrompt()},
		{Role: ai.RoleUser, Content: fmt.Sprintf("Session title: %s\n\nTranscript:\n%s",
			title, truncate(transcript, maxExtractionChars))},
	}

	// Try up to 3 times in case of malformed JSON
	var payload entitiesPayload
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		completion, err := e.completer.Complete(ctx, messages, ai.CompletionOptions{
			Temperature: 0.0,
			JSONMode:    true,
		})
		if err != nil {
			e.logger.Error("failed to generate extraction", "attempt", attempt+1, "err", err)
			return nil, err
		}

		responseText := stripCodeFences(completion.Text)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &payload); err != nil {
			lastErr = err
			e.logger.Warn("error parsing extraction response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extraction response after retries", "err", lastErr)
		return nil, core.Fatal(lastErr)
	}

	bundle := convertEntities(&payload)
	e.logger.Debug("extracted entities",
		"speakers", len(bundle.Speakers),
		"countries", len(bundle.Countries),
		"topics", len(bundle.Topics))
	return bundle, nil
}

// Summarize writes a 200-300 word prose summary of the transcript.
func (e *EntityExtractor) Summarize(ctx context.Context, transcript, title string, entities *core.EntityBundle) (string, error) {
	if strings.TrimSpace(transcript) == "" {
		return "", core.InputInvalid(fmt.Errorf("summarize: %w", core.ErrEmptyText))
	}

	messages := []ai.Message{
		{Role: ai.RoleSystem, Content: buildSummaryPrompt(title, entities)},
		{Role: ai.RoleUser, Content: truncate(transcript, maxExtractionChars)},
	}

	completion, err := e.completer.Complete(ctx, messages, ai.CompletionOptions{
		Temperature: 0.3,
		MaxTokens:   600,
	})
	if err != nil {
		e.logger.Error("failed to generate summary", "err", err)
		return "", err
	}

	return strings.TrimSpace(completion.Text), nil
}

// convertEntities maps the wire payload to the domain bundle, dropping SDG
// references outside the 1-17 range and ensuring no nil collections.
func convertEntities(payload *entitiesPayload) *core.EntityBundle {
	bundle := &core.EntityBundle{
		Speakers:               make([]core.Speaker, 0, len(payload.Speakers)),
		Countries:              emptyIfNil(payload.Countries),
		SDGs:                   make([]core.SDGRef, 0, len(payload.SDGs)),
		Topics:                 emptyIfNil(payload.Topics),
		Organizations:          emptyIfNil(payload.Organizations),
		Treaties:               emptyIfNil(payload.Treaties),
		KeyDecisions:           emptyIfNil(payload.KeyDecisions),
		InterventionsByCountry: payload.InterventionsByCountry,
	}
	if bundle.InterventionsByCountry == nil {
		bundle.InterventionsByCountry = map[string]int{}
	}

	for _, s := range payload.Speakers {
		if s.Name == "" {
			continue
		}
		bundle.Speakers = append(bundle.Speakers, core.Speaker{
			Name:         s.Name,
			Country:      s.Country,
			Role:         s.Role,
			Organization: s.Organization,
		})
	}
	for _, s := range payload.SDGs {
		if s.Goal < 1 || s.Goal > 17 {
			continue
		}
		bundle.SDGs = append(bundle.SDGs, core.SDGRef{Goal: s.Goal, Context: s.Context})
	}
	return bundle
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// stripCodeFences removes markdown code fences some models wrap around JSON.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
