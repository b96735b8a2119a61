package extract

import (
	"fmt"
	"os"
	"strings"
)

// DefaultTemplate is the built-in conversion prompt. A custom template file
// may use the same placeholders, or the PREVIOUS_CONTEXT/CURRENT_PDF_CONTENT
// aliases.
const DefaultTemplate = `You are converting a paginated document into clean, well-formatted Markdown.

Previous context (the tail of the text already converted; do NOT repeat it):
{PREV_CONTEXT}

Convert the following pages to Markdown, continuing seamlessly from the
previous context. Preserve headings, lists and tables exactly as laid out in
the source. If a table or sentence continues from the previous context,
continue it without restating earlier rows or words. Output only the
converted Markdown, with no commentary and no code fences.

{PDF_CONTENT}`

const noContextPlaceholder = "(No previous context - this is the first chunk)"

// LoadTemplate reads a prompt template from path, falling back to
// DefaultTemplate when path is empty or unreadable.
func LoadTemplate(path string) string {
	if path == "" {
		return DefaultTemplate
	}
	b, err := os.ReadFile(path)
	if err != nil || len(strings.TrimSpace(string(b))) == 0 {
		return DefaultTemplate
	}
	return strings.TrimSpace(string(b))
}

// BuildPrompt substitutes the recognized placeholders into a template.
// Substitution is a pure string operation performed once per chunk.
func BuildPrompt(template, prevContext, pageContent string) string {
	if prevContext == "" {
		prevContext = noContextPlaceholder
	}
	r := strings.NewReplacer(
		"{PREV_CONTEXT}", prevContext,
		"{PREVIOUS_CONTEXT}", prevContext,
		"{PDF_CONTENT}", pageContent,
		"{CURRENT_PDF_CONTENT}", pageContent,
	)
	return r.Replace(template)
}

// RenderPages formats per-page text for the prompt, with 1-based page
// markers. startPage is the 0-based index of the first page in the slice.
// Blank pages are skipped.
func RenderPages(pages []string, startPage int) string {
	var sb strings.Builder
	for i, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n--- Page %d ---\n", startPage+i+1)
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return sb.String()
}
