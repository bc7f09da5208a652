package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
)

const (
	// DefaultModel is the OpenAI chat model used when none is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature keeps answers close to the supplied context.
	DefaultTemperature = 0.2
)

// Generator produces a reply to a single-turn prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (Response, error)
}

// OpenAIGenerator produces replies with the OpenAI chat completions API.
type OpenAIGenerator struct {
	client      *openai.Client
	model       string
	temperature float64
}

// NewOpenAIGenerator creates a generator with the given OpenAI client.
// An empty model selects DefaultModel.
func NewOpenAIGenerator(client *openai.Client, model string, temperature float64) *OpenAIGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIGenerator{
		client:      client,
		model:       model,
		temperature: temperature,
	}
}

// Generate sends prompt as one user message. A reply with no choices yields a
// nil Response.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (Response, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(g.model),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, nil
	}
	return TextResponse(resp.Choices[0].Message.Content), nil
}
