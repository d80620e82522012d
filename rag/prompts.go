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

package rag

import (
	"fmt"
	"strings"

	"github.com/plenumhq/plenum/core"
)

const answerSystemPrompt = `You are a research assistant for recorded multilateral proceedings.
Answer the user's question using ONLY the numbered source excerpts provided.
Cite every claim with its source marker, e.g. [Source 2]. If the excerpts do
not contain the answer, say so plainly. Do not invent speakers, countries,
or statements that are not in the excerpts.`

const expandPromptTemplate = `Rephrase the following question %d different ways to improve
semantic search recall over meeting transcripts. Keep each rephrasing on its
own line, preserve the question's intent, and vary the vocabulary. Return
only the rephrasings, no numbering or commentary.

Question: %s`

const decomposePromptTemplate = `Break the following question into 2 to 4 simpler sub-questions
that can each be answered independently from meeting transcripts. Return one
sub-question per line with no numbering or commentary. If the question is
already simple, return it unchanged as a single line.

Question: %s`

func buildExpandPrompt(question string, count int) string {
	return fmt.Sprintf(expandPromptTemplate, count, question)
}

func buildDecomposePrompt(question string) string {
	return fmt.Sprintf(decomposePromptTemplate, question)
}

// buildContext renders retrieved segments as numbered source excerpts.
func buildContext(results []core.SearchResult) string {
	var b strings.Builder
	for i, r := range results {
		seg := r.Segment
		fmt.Fprintf(&b, "[Source %d] ", i+1)
		if seg.Speaker != "" {
			b.WriteString(seg.Speaker)
			if seg.Country != "" {
				fmt.Fprintf(&b, " (%s)", seg.Country)
			}
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "'%s' at %s:\n%s\n\n",
			seg.SessionTitle, core.FormatTimestamp(seg.Start), seg.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

func buildAnswerPrompt(question, context string) string {
	var b strings.Builder
	b.WriteString("Source excerpts:\n\n")
	b.WriteString(context)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	return b.String()
}

// splitLines returns the non-empty trimmed lines of a completion, with any
// leading list numbering or bullets stripped.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*0123456789.) ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
