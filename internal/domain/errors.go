package domain

import "errors"

// Request-level failures. Components wrap these with fmt.Errorf("...: %w")
// so transports can classify them with errors.Is.
var (
	// ErrValidation indicates missing or empty required input (file, url, query).
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedFormat indicates an uploaded file the extractor cannot parse.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrUpstreamFetch indicates a single page fetch failed during a crawl.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	// ErrEmptyExtraction indicates the extractor produced zero documents.
	ErrEmptyExtraction = errors.New("no documents extracted")

	// ErrStoreUnavailable indicates the vector store is unreachable or misconfigured.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrGeneration indicates the text-generation call failed.
	ErrGeneration = errors.New("generation failed")
)

// IsClientError reports whether err is caused by the caller's input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrEmptyExtraction)
}
