package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangchainGenerator adapts any langchaingo model. Each choice in the reply
// becomes one content block.
type LangchainGenerator struct {
	model       llms.Model
	temperature float64
}

// NewLangchainGenerator wraps model.
func NewLangchainGenerator(model llms.Model, temperature float64) *LangchainGenerator {
	return &LangchainGenerator{model: model, temperature: temperature}
}

// DefaultOllamaModel is used when the Ollama generator is selected without a model.
const DefaultOllamaModel = "llama3.2"

// NewOllamaGenerator creates a generator backed by a local Ollama server.
func NewOllamaGenerator(serverURL, model string, temperature float64) (*LangchainGenerator, error) {
	if model == "" {
		model = DefaultOllamaModel
	}
	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init ollama: %w", err)
	}
	return NewLangchainGenerator(l, temperature), nil
}

func (g *LangchainGenerator) Generate(ctx context.Context, prompt string) (Response, error) {
	resp, err := g.model.GenerateContent(ctx,
		[]llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, prompt)},
		llms.WithTemperature(g.temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, nil
	}

	blocks := make([]Block, 0, len(resp.Choices))
	for _, c := range resp.Choices {
		if c == nil {
			continue
		}
		blocks = append(blocks, Block{Text: c.Content})
	}
	return BlockResponse{Blocks: blocks}, nil
}
