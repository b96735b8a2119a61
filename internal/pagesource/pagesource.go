package pagesource

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source yields page count and per-page renderable text for a document.
type Source interface {
	// PageCount returns the total number of pages.
	PageCount() int
	// Pages returns the text of pages [start, end), in page order.
	Pages(start, end int) ([]string, error)
	// Raw returns the original document bytes and MIME type for multimodal
	// attachment, or nil when the format has no useful raw form.
	Raw() ([]byte, string)
}

// Document is an opened source with all page text materialized up front.
type Document struct {
	Name  string
	pages []string
	raw   []byte
	mime  string
}

func (d *Document) PageCount() int { return len(d.pages) }

func (d *Document) Pages(start, end int) ([]string, error) {
	if start < 0 || end > len(d.pages) || start >= end {
		return nil, fmt.Errorf("page range [%d,%d) out of bounds for %d pages", start, end, len(d.pages))
	}
	out := make([]string, end-start)
	copy(out, d.pages[start:end])
	return out, nil
}

func (d *Document) Raw() ([]byte, string) { return d.raw, d.mime }

// SupportedExtensions lists file extensions this service can convert.
var SupportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
	".html": true,
	".htm":  true,
	".txt":  true,
	".md":   true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Open materializes a page source for the given file contents.
func Open(filename string, data []byte) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".pdf":
		return openPDF(filename, data)
	case ".docx":
		return openDOCX(filename, data)
	case ".html", ".htm":
		return openHTML(filename, data)
	case ".txt", ".md":
		return openText(filename, data)
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", ext)
	}
}

// pseudoPageChars is the character budget used to group unpaginated formats
// into pseudo-pages, roughly the text volume of one printed page.
const pseudoPageChars = 3000

// paginate groups text blocks into pseudo-pages by character budget. A block
// larger than the budget becomes its own page rather than being split.
func paginate(blocks []string, budget int) []string {
	var pages []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			pages = append(pages, current.String())
			current.Reset()
		}
	}

	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if current.Len() > 0 && current.Len()+len(block) > budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(block)
	}
	flush()
	return pages
}
