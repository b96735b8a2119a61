package pagesource

import (
	"fmt"
	"strings"
)

// openText handles plain text and markdown. Form feeds are honored as page
// breaks when present; otherwise paragraphs are grouped into pseudo-pages.
func openText(filename string, data []byte) (*Document, error) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")

	var pages []string
	if strings.Contains(text, "\f") {
		for _, page := range strings.Split(text, "\f") {
			page = strings.TrimSpace(page)
			if page != "" {
				pages = append(pages, page)
			}
		}
	} else {
		pages = paginate(strings.Split(text, "\n\n"), pseudoPageChars)
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("file has no extractable text")
	}

	return &Document{Name: filename, pages: pages}, nil
}
