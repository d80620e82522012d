package openai

import (
	"context"
	"log/slog"

	"github.com/plenumhq/plenum/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client llms.Model
	logger *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client: client,
		logger: slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete sends the conversation to the model and returns its reply.
func (c *Completer) Complete(ctx context.Context, messages []ai.Message, opts ai.CompletionOptions) (*ai.Completion, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.MessageContent{
			Role:  chatMessageType(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}

	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}
	if opts.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}

	response, err := c.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.Error("failed to generate completion", "err", err)
		return nil, err
	}

	if len(response.Choices) < 1 {
		c.logger.Debug("no choices returned from model")
		return &ai.Completion{}, nil
	}

	choice := response.Choices[0]
	return &ai.Completion{
		Text:       choice.Content,
		TokensUsed: totalTokens(choice.GenerationInfo),
	}, nil
}

func chatMessageType(role ai.MessageRole) schema.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return schema.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return schema.ChatMessageTypeAI
	default:
		return schema.ChatMessageTypeHuman
	}
}

// totalTokens pulls the token count out of the generation info, which is
// populated by OpenAI-compatible servers but not guaranteed by all backends.
func totalTokens(info map[string]any) int {
	if info == nil {
		return 0
	}
	if v, ok := info["TotalTokens"].(int); ok {
		return v
	}
	return 0
}
