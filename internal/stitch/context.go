package stitch

// DefaultContextChars is the default cap on the carried context snippet.
const DefaultContextChars = 500

// TailSnippet returns the trailing snippet of a finished chunk's text, capped
// at max runes, for priming the next chunk's request. The whole text is
// returned when it is shorter than the cap. Counting runes rather than bytes
// keeps a multi-byte character from being split at the cut.
func TailSnippet(s string, max int) string {
	if max <= 0 || s == "" {
		return ""
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[len(r)-max:])
}
