package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"golang.org/x/net/html/charset"

	"github.com/bull/grounded-rag/internal/domain"
	"github.com/bull/grounded-rag/internal/markdown"
)

// Format is a supported upload format.
type Format string

const (
	FormatPDF      Format = "pdf"
	FormatDOCX     Format = "docx"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatText     Format = "text"
)

var (
	docxParagraphEnd = regexp.MustCompile(`(?i)</w:p>`)
	docxTab          = regexp.MustCompile(`(?i)<w:tab/>`)
	xmlTags          = regexp.MustCompile(`<[^>]+>`)
	xmlEntities      = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'")
)

// Extractor parses uploaded files into one or more Documents.
type Extractor struct {
	markdown *markdown.Parser
	logger   *slog.Logger
}

// NewExtractor creates a file extractor.
func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		markdown: markdown.NewParser(),
		logger:   logger,
	}
}

// DetectFormat picks a parser from the file extension, falling back to
// sniffing the content.
func DetectFormat(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".md", ".markdown":
		return FormatMarkdown, nil
	case ".html", ".htm", ".xhtml":
		return FormatHTML, nil
	case ".txt", ".text":
		return FormatText, nil
	}

	switch {
	case bytes.HasPrefix(data, []byte("%PDF-")):
		return FormatPDF, nil
	case bytes.HasPrefix(data, []byte("PK\x03\x04")) && bytes.Contains(data, []byte("word/document.xml")):
		return FormatDOCX, nil
	case utf8.Valid(data):
		head := strings.ToLower(string(data[:min(len(data), 512)]))
		if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") {
			return FormatHTML, nil
		}
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, filename)
}

// Extract parses data into Documents. The only content check performed is
// that at least one record was produced.
func (e *Extractor) Extract(ctx context.Context, filename string, data []byte) ([]domain.Document, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: file %q is empty", domain.ErrValidation, filename)
	}
	if filename == "" {
		filename = "upload"
	}

	format, err := DetectFormat(filename, data)
	if err != nil {
		return nil, err
	}

	var docs []domain.Document
	switch format {
	case FormatPDF:
		docs, err = e.extractPDF(filename, data)
	case FormatDOCX:
		docs, err = e.extractDOCX(filename, data)
	case FormatMarkdown:
		docs, err = e.extractMarkdown(filename, data)
	case FormatHTML:
		docs, err = e.extractHTML(filename, data)
	default:
		docs = []domain.Document{fileDocument(filename, decodeText(data), 0)}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s %q: %v", domain.ErrUnsupportedFormat, format, filename, err)
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrEmptyExtraction, filename)
	}

	e.logger.DebugContext(ctx, "Extracted file", "file", filename, "format", format, "records", len(docs))
	return docs, nil
}

// extractPDF returns one record per page, like a page-oriented PDF loader.
func (e *Extractor) extractPDF(filename string, data []byte) (docs []domain.Document, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			docs, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		docs = append(docs, fileDocument(filename, text, i))
	}
	return docs, nil
}

func (e *Extractor) extractDOCX(filename string, data []byte) ([]domain.Document, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	raw := r.Editable().GetContent()
	raw = docxParagraphEnd.ReplaceAllString(raw, "\n")
	raw = docxTab.ReplaceAllString(raw, "\t")
	raw = xmlEntities.Replace(xmlTags.ReplaceAllString(raw, ""))

	var paragraphs []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return []domain.Document{fileDocument(filename, strings.Join(paragraphs, "\n"), 0)}, nil
}

func (e *Extractor) extractMarkdown(filename string, data []byte) ([]domain.Document, error) {
	parsed, err := e.markdown.Parse(data)
	if err != nil {
		return nil, err
	}
	doc := fileDocument(filename, parsed.Text, 0)
	if parsed.Title != "" {
		doc.Metadata.Title = parsed.Title
	}
	return []domain.Document{doc}, nil
}

func (e *Extractor) extractHTML(filename string, data []byte) ([]domain.Document, error) {
	parsed, err := ParsePage(filename, "text/html", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	doc := fileDocument(filename, parsed.Page.RawText, 0)
	doc.Metadata.Title = parsed.Page.Title
	return []domain.Document{doc}, nil
}

// decodeText returns data as UTF-8. Invalid UTF-8 is read as windows-1252.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	enc, _, _ := charset.DetermineEncoding(data, "text/plain")
	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return strings.ToValidUTF8(string(data), "\uFFFD")
	}
	return string(decoded)
}

func fileDocument(filename, content string, page int) domain.Document {
	return domain.Document{
		Content: content,
		Metadata: domain.Metadata{
			Source: domain.SourceFile,
			Title:  filepath.Base(filename),
			Page:   page,
		},
	}
}
