package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/grounded-rag/internal/config"
)

func localConfig() *config.Config {
	cfg := config.Default()
	cfg.VectorBackend = config.BackendChromem
	cfg.EmbeddingProvider = config.ProviderOllama
	cfg.LLMProvider = config.ProviderOllama
	cfg.Collection = "app-test"
	return cfg
}

func TestNew_Chromem(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, localConfig(), nil)
	require.NoError(t, err)
	defer a.Close()

	st, err := a.Service.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "app-test", st.Collection)
	assert.True(t, st.Exists)
	assert.Zero(t, st.Chunks)
	assert.Equal(t, "nomic-embed-text", st.EmbeddingModel)
}

func TestNew_OpenAIWithoutKey(t *testing.T) {
	cfg := localConfig()
	cfg.LLMProvider = config.ProviderOpenAI
	cfg.OpenAIAPIKey = ""

	_, err := New(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := localConfig()
	cfg.VectorBackend = "pinecone"

	_, err := New(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "unknown vector backend")
}
