package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/grounded-rag/internal/domain"
)

// maxSearchResults caps search_chunks regardless of the requested count.
const maxSearchResults = 20

// makeAskHandler creates the ask_question tool handler. Retrieval, prompt
// construction and the single generation call all happen in the service.
func makeAskHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		result, err := svc.Query(ctx, input.Question)
		if err != nil {
			return nil, AskQuestionOutput{}, fmt.Errorf("ask failed: %w", err)
		}
		return nil, AskQuestionOutput{
			Answer:  result.Answer,
			Sources: result.Sources,
		}, nil
	}
}

// makeSearchHandler creates the search_chunks tool handler.
func makeSearchHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, SearchChunksInput,
) (*mcp.CallToolResult, SearchChunksOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input SearchChunksInput) (
		*mcp.CallToolResult, SearchChunksOutput, error,
	) {
		k := min(input.MaxResults, maxSearchResults)

		matches, err := svc.Search(ctx, input.Query, k)
		if err != nil {
			return nil, SearchChunksOutput{}, fmt.Errorf("search failed: %w", err)
		}

		output := SearchChunksOutput{Results: make([]ChunkResult, 0, len(matches))}
		for _, m := range matches {
			output.Results = append(output.Results, chunkResult(m))
		}
		if len(output.Results) == 0 {
			output.Message = "No matching chunks found"
		}
		return nil, output, nil
	}
}

// makeIngestURLHandler creates the ingest_url tool handler. Individual page
// failures are reported in the output; only a failed ingestion is an error.
func makeIngestURLHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, IngestURLInput,
) (*mcp.CallToolResult, IngestURLOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestURLInput) (
		*mcp.CallToolResult, IngestURLOutput, error,
	) {
		result, err := svc.IngestURL(ctx, input.URL, input.MaxPages)
		if err != nil {
			return nil, IngestURLOutput{}, fmt.Errorf("ingest failed: %w", err)
		}

		output := IngestURLOutput{Pages: result.Documents, Chunks: result.Chunks}
		for _, f := range result.Failed {
			output.Failed = append(output.Failed, FailedPage{URL: f.URL, Reason: f.Reason})
		}
		return nil, output, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
func makeStatusHandler(svc Service) func(
	context.Context, *mcp.CallToolRequest, GetIndexStatusInput,
) (*mcp.CallToolResult, GetIndexStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetIndexStatusInput) (
		*mcp.CallToolResult, GetIndexStatusOutput, error,
	) {
		st, err := svc.Status(ctx)
		if err != nil {
			return nil, GetIndexStatusOutput{}, fmt.Errorf("failed to get status: %w", err)
		}
		return nil, GetIndexStatusOutput{
			Collection:     st.Collection,
			Exists:         st.Exists,
			Chunks:         st.Chunks,
			EmbeddingModel: st.EmbeddingModel,
		}, nil
	}
}

func chunkResult(m domain.Match) ChunkResult {
	md := m.Chunk.Metadata
	return ChunkResult{
		Content:     m.Chunk.Content,
		Score:       m.Score,
		Title:       md.Title,
		URL:         md.URL,
		Source:      string(md.Source),
		Page:        md.Page,
		ChunkIndex:  md.ChunkIndex,
		TotalChunks: md.TotalChunks,
	}
}
