// Package mcp exposes the question-answering service as MCP tools.
package mcp

import "github.com/bull/grounded-rag/internal/answer"

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the ingested content"`
}

// AskQuestionOutput is a grounded answer and the chunks it was built from.
type AskQuestionOutput struct {
	Answer  string          `json:"answer"`
	Sources []answer.Source `json:"sources"`
}

// SearchChunksInput defines the input parameters for the search_chunks tool.
type SearchChunksInput struct {
	Query      string `json:"query" jsonschema:"the text to find similar chunks for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"maximum number of chunks to return (default 2, at most 20)"`
}

// SearchChunksOutput contains the matching chunks, best first.
type SearchChunksOutput struct {
	Results []ChunkResult `json:"results"`
	// Message is set when nothing matched.
	Message string `json:"message,omitempty"`
}

// ChunkResult is a single chunk returned by similarity search.
type ChunkResult struct {
	Content     string  `json:"content"`
	Score       float64 `json:"score"`
	Title       string  `json:"title,omitempty"`
	URL         string  `json:"url,omitempty"`
	Source      string  `json:"source"`
	Page        int     `json:"page,omitempty"`
	ChunkIndex  int     `json:"chunk_index"`
	TotalChunks int     `json:"total_chunks"`
}

// IngestURLInput defines the input parameters for the ingest_url tool.
type IngestURLInput struct {
	URL      string `json:"url" jsonschema:"absolute http(s) url to start crawling from"`
	MaxPages int    `json:"max_pages,omitempty" jsonschema:"maximum number of pages to visit (default 20)"`
}

// IngestURLOutput summarizes a crawl.
type IngestURLOutput struct {
	Pages  int          `json:"pages"`
	Chunks int          `json:"chunks"`
	Failed []FailedPage `json:"failed,omitempty"`
}

// FailedPage is a page that was visited but not indexed.
type FailedPage struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// GetIndexStatusInput takes no parameters.
type GetIndexStatusInput struct{}

// GetIndexStatusOutput describes the collection backing the server.
type GetIndexStatusOutput struct {
	Collection     string `json:"collection"`
	Exists         bool   `json:"exists"`
	Chunks         uint64 `json:"chunks"`
	EmbeddingModel string `json:"embedding_model"`
}
