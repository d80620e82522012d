package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/plenumhq/plenum/ai"
	"github.com/plenumhq/plenum/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCompleter returns scripted responses in order.
type stubCompleter struct {
	responses []string
	err       error
	calls     int
	lastOpts  ai.CompletionOptions
}

func (s *stubCompleter) Complete(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (*ai.Completion, error) {
	s.lastOpts = opts
	if s.err != nil {
		return nil, s.err
	}
	i := s.calls
	if i >= len(s.responses) {
		i = len(s.responses) - 1
	}
	s.calls++
	return &ai.Completion{Text: s.responses[i]}, nil
}

const entitiesResponse = `{
	"speakers": [{"name": "Amb. Okafor", "country": "Nigeria", "role": "Ambassador", "organization": ""}],
	"countries": ["Nigeria", "Brazil"],
	"sdgs_mentioned": [{"goal": 13, "context": "climate finance"}, {"goal": 99, "context": "bogus"}],
	"topics": ["climate finance"],
	"organizations": ["UNDP"],
	"treaties_and_agreements": ["Paris Agreement"],
	"key_decisions": ["Adopted the draft resolution."],
	"interventions_by_country": {"Nigeria": 2, "Brazil": 1}
}`

func TestExtractEntities(t *testing.T) {
	t.Run("parses entities", func(t *testing.T) {
		stub := &stubCompleter{responses: []string{entitiesResponse}}
		extractor := newEntityExtractor(stub)

		bundle, err := extractor.ExtractEntities(context.Background(), "transcript text", "General Debate")
		require.NoError(t, err)

		require.Len(t, bundle.Speakers, 1)
		assert.Equal(t, "Amb. Okafor", bundle.Speakers[0].Name)
		assert.Equal(t, []string{"Nigeria", "Brazil"}, bundle.Countries)
		assert.Equal(t, []string{"Paris Agreement"}, bundle.Treaties)
		assert.Equal(t, 2, bundle.InterventionsByCountry["Nigeria"])

		// out-of-range SDG goal dropped
		require.Len(t, bundle.SDGs, 1)
		assert.Equal(t, 13, bundle.SDGs[0].Goal)

		assert.True(t, stub.lastOpts.JSONMode)
		assert.Zero(t, stub.lastOpts.Temperature)
	})

	t.Run("strips code fences", func(t *testing.T) {
		stub := &stubCompleter{responses: []string{"```json\n" + entitiesResponse + "\n```"}}
		extractor := newEntityExtractor(stub)

		bundle, err := extractor.ExtractEntities(context.Background(), "transcript text", "t")
		require.NoError(t, err)
		assert.Len(t, bundle.Countries, 2)
	})

	t.Run("retries malformed JSON", func(t *testing.T) {
		stub := &stubCompleter{responses: []string{"not json at all", entitiesResponse}}
		extractor := newEntityExtractor(stub)

		bundle, err := extractor.ExtractEntities(context.Background(), "transcript text", "t")
		require.NoError(t, err)
		assert.Equal(t, 2, stub.calls)
		assert.Len(t, bundle.Countries, 2)
	})

	t.Run("gives up after three malformed replies", func(t *testing.T) {
		stub := &stubCompleter{responses: []string{"nope"}}
		extractor := newEntityExtractor(stub)

		_, err := extractor.ExtractEntities(context.Background(), "transcript text", "t")
		require.Error(t, err)
		assert.Equal(t, 3, stub.calls)
		assert.Equal(t, core.FaultFatal, core.KindOf(err))
	})

	t.Run("empty categories come back non-nil", func(t *testing.T) {
		stub := &stubCompleter{responses: []string{`{}`}}
		extractor := newEntityExtractor(stub)

		bundle, err := extractor.ExtractEntities(context.Background(), "transcript text", "t")
		require.NoError(t, err)
		assert.NotNil(t, bundle.Speakers)
		assert.NotNil(t, bundle.Countries)
		assert.NotNil(t, bundle.InterventionsByCountry)
	})

	t.Run("empty transcript rejected", func(t *testing.T) {
		extractor := newEntityExtractor(&stubCompleter{responses: []string{entitiesResponse}})

		_, err := extractor.ExtractEntities(context.Background(), "   ", "t")
		require.Error(t, err)
		assert.Equal(t, core.FaultInputInvalid, core.KindOf(err))
	})

	t.Run("completer errors propagate", func(t *testing.T) {
		wantErr := errors.New("boom")
		extractor := newEntityExtractor(&stubCompleter{err: wantErr})

		_, err := extractor.ExtractEntities(context.Background(), "transcript text", "t")
		assert.ErrorIs(t, err, wantErr)
	})
}

func TestSummarize(t *testing.T) {
	t.Run("returns trimmed summary", func(t *testing.T) {
		stub := &stubCompleter{responses: []string{"  The session opened with...  "}}
		extractor := newEntityExtractor(stub)

		summary, err := extractor.Summarize(context.Background(), "transcript text", "General Debate", nil)
		require.NoError(t, err)
		assert.Equal(t, "The session opened with...", summary)
		assert.False(t, stub.lastOpts.JSONMode)
	})

	t.Run("empty transcript rejected", func(t *testing.T) {
		extractor := newEntityExtractor(&stubCompleter{responses: []string{"x"}})

		_, err := extractor.Summarize(context.Background(), "", "t", nil)
		require.Error(t, err)
		assert.Equal(t, core.FaultInputInvalid, core.KindOf(err))
	})
}

func TestRepairJSON(t *testing.T) {
	t.Run("fixes missing opening quote", func(t *testing.T) {
		assert.Equal(t, `{"goal": 13, "context": "x"}`, repairJSON(`{goal": 13, context": "x"}`))
	})

	t.Run("leaves valid JSON alone", func(t *testing.T) {
		valid := `{"goal": 13}`
		assert.Equal(t, valid, repairJSON(valid))
	})
}
