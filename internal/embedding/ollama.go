package embedding

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
)

// DefaultOllamaModel is used when the Ollama embedder is selected without a model.
const DefaultOllamaModel = "nomic-embed-text"

// LangchainEmbedder adapts a langchaingo embedder to Embedder.
type LangchainEmbedder struct {
	embeddings.Embedder
	model string
}

// Model returns the configured model name.
func (e *LangchainEmbedder) Model() string {
	return e.model
}

// NewOllama creates an embedder backed by a local Ollama server.
func NewOllama(serverURL, model string) (*LangchainEmbedder, error) {
	if model == "" {
		model = DefaultOllamaModel
	}

	opts := []ollama.Option{ollama.WithModel(model)}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}

	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("init ollama: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("create ollama embedder: %w", err)
	}

	return &LangchainEmbedder{Embedder: embedder, model: model}, nil
}
