// Package embeddingtest provides a deterministic Embedder for tests.
package embeddingtest

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"
)

// Fake hashes lowercase words into a fixed number of buckets and normalizes
// the result, so texts sharing words score higher under cosine similarity.
type Fake struct {
	Dimension int
	ModelName string
	// Err, when set, is returned by every call.
	Err error

	mu            sync.Mutex
	documentCalls int
	queryCalls    int
}

// New returns a Fake with the given dimension.
func New(dimension int) *Fake {
	return &Fake{Dimension: dimension, ModelName: "fake-embedding"}
}

func (f *Fake) Model() string { return f.ModelName }

func (f *Fake) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.documentCalls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *Fake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	f.queryCalls++
	f.mu.Unlock()

	if f.Err != nil {
		return nil, f.Err
	}
	return f.vector(text), nil
}

// Calls reports how many document and query calls were made.
func (f *Fake) Calls() (documents, queries int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.documentCalls, f.queryCalls
}

func (f *Fake) vector(text string) []float32 {
	v := make([]float32, f.Dimension)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		h.Write([]byte(w))
		v[int(h.Sum32())%f.Dimension]++
	}

	var norm float64
	for _, x := range v {
		norm += float64(x * x)
	}
	if norm == 0 {
		// Empty text still gets a valid, non-zero vector.
		v[0] = 1
		return v
	}
	n := float32(math.Sqrt(norm))
	for i := range v {
		v[i] /= n
	}
	return v
}
