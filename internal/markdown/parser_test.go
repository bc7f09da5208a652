package markdown

import (
	"strings"
	"testing"
)

// TestParse_TitleFromFirstHeading tests that the first H1 becomes the title.
func TestParse_TitleFromFirstHeading(t *testing.T) {
	input := `# Getting Started

Introduction text here.

## Installation

Install steps here.
`

	parsed, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Title != "Getting Started" {
		t.Errorf("Expected title 'Getting Started', got %q", parsed.Title)
	}
	if !strings.Contains(parsed.Text, "Introduction text here.") {
		t.Errorf("Text missing paragraph content: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "Install steps here.") {
		t.Errorf("Text missing section content: %q", parsed.Text)
	}
}

// TestParse_StripsMarkup verifies emphasis, links and heading markers are removed.
func TestParse_StripsMarkup(t *testing.T) {
	input := `# Title

Some **bold** and _italic_ text with a [link](https://example.com).
`

	parsed, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	want := "Title\nSome bold and italic text with a link."
	if parsed.Text != want {
		t.Errorf("Expected %q, got %q", want, parsed.Text)
	}
}

// TestParse_KeepsCodeBlocks verifies fenced code is kept verbatim.
func TestParse_KeepsCodeBlocks(t *testing.T) {
	input := "# API\n\n```go\nfunc DoSomething() error {\n    return nil\n}\n```\n\n- List item 1\n- List item 2\n"

	parsed, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if !strings.Contains(parsed.Text, "func DoSomething() error {") {
		t.Errorf("Text missing code block: %q", parsed.Text)
	}
	if !strings.Contains(parsed.Text, "List item 2") {
		t.Errorf("Text missing list content: %q", parsed.Text)
	}
}

// TestParse_LaterHeadingsStayInText tests that only the first heading becomes the title.
func TestParse_LaterHeadingsStayInText(t *testing.T) {
	input := `# Installation

General info.

## Prerequisites

Need these first.

# Usage

Do this next.
`

	parsed, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Title != "Installation" {
		t.Errorf("Expected title %q, got %q", "Installation", parsed.Title)
	}
	want := "Installation\nGeneral info.\nPrerequisites\nNeed these first.\nUsage\nDo this next."
	if parsed.Text != want {
		t.Errorf("Expected %q, got %q", want, parsed.Text)
	}
}

// TestParse_NoHeaders tests a document without headings.
func TestParse_NoHeaders(t *testing.T) {
	input := `This is a document with no headers.

Just plain text content.
`

	parsed, err := NewParser().Parse([]byte(input))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if parsed.Title != "" {
		t.Errorf("Expected empty title, got %q", parsed.Title)
	}
	want := "This is a document with no headers.\nJust plain text content."
	if parsed.Text != want {
		t.Errorf("Expected %q, got %q", want, parsed.Text)
	}
}
