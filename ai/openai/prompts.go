package openai

import (
	"fmt"
	"strings"

	"github.com/plenumhq/plenum/core"
)

const entityResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "speakers": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "country": {"type": "string"},
          "role": {"type": "string"},
          "organization": {"type": "string"}
        },
        "required": ["name"],
        "additionalProperties": false
      }
    },
    "countries": {"type": "array", "items": {"type": "string"}},
    "sdgs_mentioned": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "goal": {"type": "integer", "minimum": 1, "maximum": 17},
          "context": {"type": "string"}
        },
        "required": ["goal"],
        "additionalProperties": false
      }
    },
    "topics": {"type": "array", "items": {"type": "string"}},
    "organizations": {"type": "array", "items": {"type": "string"}},
    "treaties_and_agreements": {"type": "array", "items": {"type": "string"}},
    "key_decisions": {"type": "array", "items": {"type": "string"}},
    "interventions_by_country": {
      "type": "object",
      "additionalProperties": {"type": "integer"}
    }
  },
  "required": ["speakers", "countries", "sdgs_mentioned", "topics",
    "organizations", "treaties_and_agreements", "key_decisions",
    "interventions_by_country"],
  "additionalProperties": false
}`

const entityPromptTemplate = `You analyze transcripts of formal multilateral proceedings (UN-style sessions, plenary debates, committee meetings) and extract structured entities as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- speakers: every identified speaker with their country, role, and organization when stated. Use the diarization labels (e.g. "SPEAKER_00") as the name only when no real name can be determined.
- countries: every country mentioned or represented, in English short form.
- sdgs_mentioned: Sustainable Development Goals referenced by number or by name, with the context of the mention. Goal numbers run from 1 to 17.
- topics: the main subjects debated, lowercase, 1-4 words each.
- treaties_and_agreements: formal instruments named in the proceedings (e.g. "Paris Agreement").
- key_decisions: resolutions, decisions, or commitments announced, one concise sentence each.
- interventions_by_country: how many distinct interventions each country's delegate made.
- Include only entities that are explicitly present in the transcript. Do not hallucinate.
- Empty categories must be present as empty arrays (or an empty object for interventions_by_country).
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.`

const summaryPromptTemplate = `You summarize transcripts of formal multilateral proceedings.

Write a prose summary of the session transcript provided by the user. The summary must:
- be between 200 and 300 words
- open with the session title and its overall purpose
- cover the main topics debated, the positions taken by delegations, and any decisions or commitments announced
- name the most significant speakers and countries
- stay strictly faithful to the transcript; do not add information that is not in it

Session title: %s
%s
Respond with the summary text only, no headings or preamble.`

// buildEntityPrompt creates the system prompt for entity extraction.
func buildEntityPrompt() string {
	return fmt.Sprintf(entityPromptTemplate, entityResponseSchema)
}

// buildSummaryPrompt creates the system prompt for summarization. Extracted
// entities, when available, anchor the summary to names already identified.
func buildSummaryPrompt(title string, entities *core.EntityBundle) string {
	var hints string
	if entities != nil {
		var b strings.Builder
		if len(entities.Topics) > 0 {
			fmt.Fprintf(&b, "Topics already identified: %s.\n", strings.Join(entities.Topics, ", "))
		}
		if len(entities.Countries) > 0 {
			fmt.Fprintf(&b, "Countries represented: %s.\n", strings.Join(entities.Countries, ", "))
		}
		if len(entities.KeyDecisions) > 0 {
			fmt.Fprintf(&b, "Decisions recorded: %s.\n", strings.Join(entities.KeyDecisions, "; "))
		}
		hints = b.String()
	}
	return fmt.Sprintf(summaryPromptTemplate, title, hints)
}
