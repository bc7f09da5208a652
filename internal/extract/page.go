// Package extract turns fetched markup and uploaded files into Documents.
package extract

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/bull/grounded-rag/internal/domain"
)

// nonContent lists elements whose text never counts as page content.
const nonContent = "script, style, noscript, template, [hidden]"

var whitespace = regexp.MustCompile(`\s+`)

// ParsedPage is the result of parsing one fetched page. Text and links come
// from the same document tree, so a page is only ever fetched once.
type ParsedPage struct {
	Page  domain.Page
	Links []string // raw href values in document order
}

// ParsePage parses an HTML body fetched from pageURL. The body is decoded to
// UTF-8 using the charset in contentType, a <meta> declaration or, failing
// both, windows-1252 for bytes that are not valid UTF-8.
func ParsePage(pageURL, contentType string, body io.Reader) (*ParsedPage, error) {
	utf8Body, err := charset.NewReader(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("decode charset: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(utf8Body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok && strings.TrimSpace(href) != "" {
			links = append(links, strings.TrimSpace(href))
		}
	})

	title := CollapseWhitespace(doc.Find("title").First().Text())
	if title == "" {
		title = pageURL
	}

	doc.Find(nonContent).Remove()
	text := CollapseWhitespace(doc.Find("body").Text())

	var host string
	if u, err := url.Parse(pageURL); err == nil {
		host = u.Host
	}

	return &ParsedPage{
		Page: domain.Page{
			URL:     pageURL,
			Title:   title,
			RawText: text,
			Host:    host,
		},
		Links: links,
	}, nil
}

// CollapseWhitespace replaces runs of whitespace with a single space and trims.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// ToDocument converts a crawled page into a Document.
func ToDocument(page domain.Page, source domain.Source) domain.Document {
	return domain.Document{
		Content: page.RawText,
		Metadata: domain.Metadata{
			Source: source,
			Title:  page.Title,
			URL:    page.URL,
		},
	}
}
