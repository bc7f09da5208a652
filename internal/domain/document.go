// Package domain holds the types shared by the ingestion and query flows.
package domain

// Source identifies where a document came from.
type Source string

const (
	SourceURL  Source = "url"
	SourceFile Source = "file"
)

// Metadata is the provenance carried by a Document and inherited by its chunks.
type Metadata struct {
	Source Source `json:"source"`
	Title  string `json:"title,omitempty"`
	URL    string `json:"url,omitempty"`
	Page   int    `json:"page,omitempty"` // 1-based page for paged files, 0 otherwise
}

// Document is the uniform representation of file- and URL-derived content before chunking.
type Document struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
}

// ChunkMetadata extends the parent provenance with the chunk's position.
type ChunkMetadata struct {
	Metadata
	ChunkIndex  int `json:"chunkIndex"`
	TotalChunks int `json:"totalChunks"`
}

// Chunk is a bounded slice of a Document's text.
type Chunk struct {
	Content  string        `json:"content"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Match is a chunk returned by similarity search.
type Match struct {
	Score float64 `json:"score"`
	Chunk Chunk   `json:"chunk"`

	// EmbeddingModel is the model the chunk was embedded with, when the store recorded it.
	EmbeddingModel string `json:"-"`
}

// Page is a crawled page after parsing. It is discarded once chunked.
type Page struct {
	URL     string
	Title   string
	RawText string
	Host    string
}
