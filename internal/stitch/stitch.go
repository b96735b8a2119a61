package stitch

import (
	"strings"
	"unicode"
)

// BoundaryRule decides how the boundary between two adjacent chunk outputs is
// merged. Join receives the accumulated text so far and the next fragment,
// both trimmed of surrounding blank space, and returns the combined text plus
// true when the rule applies. Rules are tried in order; the first match wins.
type BoundaryRule interface {
	Join(prev, next string) (string, bool)
}

// Stitcher concatenates ordered chunk outputs, repairing boundary defects.
// Stitching is a pure function of the fragment sequence: identical inputs
// always produce identical output.
type Stitcher struct {
	rules []BoundaryRule
}

// New returns a Stitcher with the given boundary rules. Pass DefaultRules()
// for the standard table-continuation and sentence-join repairs.
func New(rules ...BoundaryRule) *Stitcher {
	return &Stitcher{rules: rules}
}

// DefaultRules returns the standard repair set. Table continuation runs
// before sentence join so a row starting with a lowercase cell is not
// mistaken for a split sentence.
func DefaultRules() []BoundaryRule {
	return []BoundaryRule{TableContinuationRule{}, SentenceJoinRule{}}
}

// Stitch combines ordered, successful chunk outputs into one document.
// Fragments that fail no boundary rule are separated as paragraphs.
func (s *Stitcher) Stitch(fragments []string) string {
	if len(fragments) == 0 {
		return ""
	}
	out := strings.TrimSpace(fragments[0])
	for _, frag := range fragments[1:] {
		next := strings.TrimSpace(frag)
		if next == "" {
			continue
		}
		if out == "" {
			out = next
			continue
		}
		joined := false
		for _, rule := range s.rules {
			if merged, ok := rule.Join(out, next); ok {
				out = merged
				joined = true
				break
			}
		}
		if !joined {
			out = out + "\n\n" + next
		}
	}
	return out
}

// SentenceJoinRule repairs a sentence split across a chunk boundary: the
// previous fragment does not end with sentence-terminal punctuation and the
// next fragment begins with a lowercase letter, so the two halves are merged
// onto one line with a single space instead of starting a new paragraph.
type SentenceJoinRule struct{}

func (SentenceJoinRule) Join(prev, next string) (string, bool) {
	pr := []rune(prev)
	nr := []rune(next)
	if len(pr) == 0 || len(nr) == 0 {
		return "", false
	}
	if endsSentence(pr) {
		return "", false
	}
	if !unicode.IsLower(nr[0]) || !unicode.IsLetter(nr[0]) {
		return "", false
	}
	return prev + " " + next, true
}

// endsSentence reports whether the text ends with terminal punctuation,
// allowing one closing quote or bracket after the terminal mark.
func endsSentence(r []rune) bool {
	i := len(r) - 1
	if isClosing(r[i]) && i > 0 {
		i--
	}
	return isTerminal(r[i])
}

func isTerminal(c rune) bool {
	switch c {
	case '.', '!', '?', '。', '！', '？':
		return true
	}
	return false
}

func isClosing(c rune) bool {
	switch c {
	case '"', '\'', '”', '’', ')', ']', '»', '」', '』':
		return true
	}
	return false
}

// TableContinuationRule repairs a Markdown table split across a chunk
// boundary. When the previous fragment ends inside a table and the next
// fragment opens with table rows, the rows are attached directly so the table
// stays well-formed under the header emitted once at its start. A
// continuation that re-emits the previous table's exact header and separator
// has that duplicate stripped; data rows are never deduplicated.
type TableContinuationRule struct{}

func (TableContinuationRule) Join(prev, next string) (string, bool) {
	prevLines := strings.Split(prev, "\n")
	last := prevLines[len(prevLines)-1]
	if !isTableRow(last) {
		return "", false
	}

	nextLines := strings.Split(next, "\n")
	if !isTableRow(nextLines[0]) {
		return "", false
	}

	if len(nextLines) > 1 && isSeparatorRow(nextLines[1]) {
		// The continuation carries its own header. Only merge when it
		// repeats the previous table's header verbatim; otherwise this is
		// a genuinely new table and paragraph separation is correct.
		header, sep, ok := tableHeader(prevLines)
		if !ok || cellsOf(header) != cellsOf(nextLines[0]) || cellsOf(sep) != cellsOf(nextLines[1]) {
			return "", false
		}
		rest := strings.Join(nextLines[2:], "\n")
		if strings.TrimSpace(rest) == "" {
			return prev, true
		}
		return prev + "\n" + rest, true
	}

	// Headerless continuation rows extend the previous table directly.
	return prev + "\n" + next, true
}

// tableHeader walks back over the trailing table block of a fragment and
// returns its first two lines (header and separator).
func tableHeader(lines []string) (header, sep string, ok bool) {
	start := len(lines)
	for start > 0 && isTableRow(lines[start-1]) {
		start--
	}
	block := lines[start:]
	if len(block) < 2 || !isSeparatorRow(block[1]) {
		return "", "", false
	}
	return block[0], block[1], true
}

func isTableRow(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "|")
}

// isSeparatorRow matches Markdown header separators like |---|:---:|.
func isSeparatorRow(line string) bool {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "|") {
		return false
	}
	cells := strings.Split(strings.Trim(line, "|"), "|")
	for _, cell := range cells {
		cell = strings.TrimSpace(cell)
		cell = strings.TrimPrefix(cell, ":")
		cell = strings.TrimSuffix(cell, ":")
		if cell == "" || strings.Count(cell, "-") != len(cell) {
			return false
		}
	}
	return true
}

// cellsOf normalizes a table row for comparison, ignoring cell padding.
func cellsOf(line string) string {
	cells := strings.Split(strings.Trim(strings.TrimSpace(line), "|"), "|")
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return strings.Join(cells, "|")
}
