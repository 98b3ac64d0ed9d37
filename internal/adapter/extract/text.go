package extract

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"doclens/internal/domain"
)

// TextExtractor reads plain-text and markdown documents, splitting them into
// ordered paragraph segments and sniffing document-level metadata from the
// front matter.
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

var (
	headingRe = regexp.MustCompile(`(?m)^#{1,3}\s+(.+)$`)
	bylineRe  = regexp.MustCompile(`(?mi)^(?:author|by)[:\s]+(.{2,80})$`)
)

// Extract reads the file and returns paragraph segments plus sniffed
// metadata. Returns domain.ErrNoText when the file has no usable text.
func (e *TextExtractor) Extract(path string) ([]string, domain.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.Metadata{}, fmt.Errorf("failed to read document: %w", err)
	}

	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if strings.TrimSpace(text) == "" {
		return nil, domain.Metadata{}, domain.ErrNoText
	}

	segments := splitParagraphs(text)
	meta := sniffMetadata(text)

	return segments, meta, nil
}

// splitParagraphs splits on blank lines, dropping empty segments.
func splitParagraphs(text string) []string {
	var segments []string
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) != "" {
			segments = append(segments, para)
		}
	}
	return segments
}

// sniffMetadata extracts best-effort title, byline, and heading list from
// the raw text. All fields are optional.
func sniffMetadata(text string) domain.Metadata {
	var meta domain.Metadata

	headings := headingRe.FindAllStringSubmatch(text, -1)
	if len(headings) > 0 {
		meta.Title = strings.TrimSpace(headings[0][1])
	}
	if len(headings) > 1 {
		toc := make([]string, 0, len(headings)-1)
		for _, h := range headings[1:] {
			toc = append(toc, strings.TrimSpace(h[1]))
		}
		if len(toc) > 50 {
			toc = toc[:50]
		}
		meta.TOC = toc
	}

	// Only trust a byline near the top of the document.
	head := text
	if len(head) > 2000 {
		head = head[:2000]
	}
	if m := bylineRe.FindStringSubmatch(head); m != nil {
		meta.Author = strings.TrimSpace(m[1])
	}

	// A plain-text document's first non-empty line stands in for a title.
	if meta.Title == "" {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line != "" {
				if len(line) <= 120 {
					meta.Title = line
				}
				break
			}
		}
	}

	return meta
}
