// Package answer composes grounded answers from retrieved chunks.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/llm"
)

// Fallback is the sentence the model is told to give when the context does
// not contain the answer.
const Fallback = "The answer is not available in the provided context."

const promptTemplate = `You are a helpful assistant.
Answer the user's question using ONLY the context below.

Context: %s

Guidelines:
- Keep the answer short but complete, in concise sentences.
- If the answer is not present in the context, reply exactly: "%s"
- Never add information that is not in the context.

User: %s`

// Source identifies where a match came from. URL is null when unknown.
type Source struct {
	Title string  `json:"title"`
	URL   *string `json:"url"`
}

// Answer is the composed reply and its sources, one per match.
type Answer struct {
	Text    string
	Sources []Source
}

// Composer turns a query and its matches into an Answer.
type Composer struct {
	generator llm.Generator
	logger    *slog.Logger
}

// NewComposer creates a Composer.
func NewComposer(generator llm.Generator, logger *slog.Logger) *Composer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composer{generator: generator, logger: logger}
}

// Compose makes one generation call. A failed call fails the composition
// with domain.ErrGeneration.
func (c *Composer) Compose(ctx context.Context, query string, matches []domain.Match) (*Answer, error) {
	prompt, err := BuildPrompt(query, matches)
	if err != nil {
		return nil, err
	}

	resp, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}

	text := llm.ExtractText(resp)
	c.logger.DebugContext(ctx, "Composed answer", "matches", len(matches), "chars", len(text))

	return &Answer{
		Text:    text,
		Sources: Sources(matches),
	}, nil
}

// BuildPrompt embeds the matches, serialized verbatim as JSON, and the query
// in the grounding instruction.
func BuildPrompt(query string, matches []domain.Match) (string, error) {
	if matches == nil {
		matches = []domain.Match{}
	}
	serialized, err := json.Marshal(matches)
	if err != nil {
		return "", fmt.Errorf("serialize context: %w", err)
	}
	return fmt.Sprintf(promptTemplate, serialized, Fallback, query), nil
}

// Sources returns one Source per match, in match order. The title falls back
// to the URL, then the source kind, then "Source".
func Sources(matches []domain.Match) []Source {
	sources := make([]Source, len(matches))
	for i, m := range matches {
		meta := m.Chunk.Metadata

		title := meta.Title
		if title == "" {
			title = meta.URL
		}
		if title == "" {
			title = string(meta.Source)
		}
		if title == "" {
			title = "Source"
		}

		var url *string
		if meta.URL != "" {
			u := meta.URL
			url = &u
		}
		sources[i] = Source{Title: title, URL: url}
	}
	return sources
}
