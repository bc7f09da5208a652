// Package llm sends single-turn prompts to a text-generation model.
package llm

import "strings"

// NoResponse is the text extracted from a response that carries no text.
const NoResponse = "No response from model"

// Response is what a Generator returns: either TextResponse or BlockResponse.
type Response interface {
	isResponse()
}

// TextResponse is a model reply delivered as one string.
type TextResponse string

// BlockResponse is a model reply delivered as ordered content blocks.
type BlockResponse struct {
	Blocks []Block
}

// Block is one content block. Non-text blocks have an empty Text.
type Block struct {
	Text string
}

func (TextResponse) isResponse()  {}
func (BlockResponse) isResponse() {}

// ExtractText returns the plain text of r. Block texts are joined with a
// single space and the result trimmed. A nil response yields NoResponse.
func ExtractText(r Response) string {
	switch v := r.(type) {
	case TextResponse:
		return string(v)
	case BlockResponse:
		texts := make([]string, len(v.Blocks))
		for i, b := range v.Blocks {
			texts[i] = b.Text
		}
		return strings.TrimSpace(strings.Join(texts, " "))
	case *BlockResponse:
		if v == nil {
			return NoResponse
		}
		return ExtractText(*v)
	default:
		return NoResponse
	}
}
