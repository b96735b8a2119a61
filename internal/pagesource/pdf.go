package pagesource

import (
	"fmt"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
)

// openPDF extracts per-page text. The raw bytes are kept so the extraction
// service can also see the rendered document.
func openPDF(filename string, data []byte) (*Document, error) {
	// ledongthuc/pdf needs a ReadSeeker with a known size, so use a temp file.
	tmp, err := os.CreateTemp("", "pdf2md-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	numPages := reader.NumPage()
	if numPages == 0 {
		return nil, fmt.Errorf("pdf has no pages")
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A page that fails text extraction still occupies its slot so
			// page numbering stays aligned with the source document.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, strings.TrimSpace(text))
	}

	return &Document{
		Name:  filename,
		pages: pages,
		raw:   data,
		mime:  "application/pdf",
	}, nil
}
