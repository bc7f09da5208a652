package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/indexer"
	"github.com/bull/grounded-rag/internal/rag"
)

// Service is the part of rag.Service the tools call.
type Service interface {
	Query(ctx context.Context, input string) (*rag.QueryResult, error)
	Search(ctx context.Context, query string, k int) ([]domain.Match, error)
	IngestURL(ctx context.Context, seedURL string, maxPages int) (*indexer.IngestResult, error)
	Status(ctx context.Context) (*rag.Status, error)
}

// Server wraps the MCP server with its registered tools.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Service Service
	Version string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "grounded-rag",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using only the ingested documents and websites. Returns the answer and one source per retrieved chunk.",
	}, makeAskHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "search_chunks",
		Description: "Find the stored chunks most similar to a query, best first, without generating an answer.",
	}, makeSearchHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_url",
		Description: "Crawl a website breadth-first on its own host and index the pages found.",
	}, makeIngestURLHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_index_status",
		Description: "Report the collection name, whether it exists, how many chunks it holds and the embedding model used for queries.",
	}, makeStatusHandler(cfg.Service))

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
