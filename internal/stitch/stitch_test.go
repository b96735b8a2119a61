package stitch

import (
	"strings"
	"testing"
)

func TestTailSnippet_Cap(t *testing.T) {
	long := strings.Repeat("x", 1200)
	got := TailSnippet(long, 500)
	if len(got) != 500 {
		t.Errorf("expected 500 chars, got %d", len(got))
	}
	if got != long[700:] {
		t.Error("expected the trailing 500 characters")
	}
}

func TestTailSnippet_ShorterThanCap(t *testing.T) {
	s := "short text"
	if got := TailSnippet(s, 500); got != s {
		t.Errorf("expected full text back, got %q", got)
	}
}

func TestTailSnippet_Empty(t *testing.T) {
	if got := TailSnippet("", 500); got != "" {
		t.Errorf("expected empty snippet, got %q", got)
	}
}

func TestTailSnippet_MultiByteBoundary(t *testing.T) {
	s := strings.Repeat("é", 600)
	got := TailSnippet(s, 500)
	if n := len([]rune(got)); n != 500 {
		t.Errorf("expected 500 runes, got %d", n)
	}
	for _, r := range got {
		if r != 'é' {
			t.Fatalf("snippet corrupted a multi-byte rune: %q", r)
		}
	}
}

func TestStitch_SentenceJoin(t *testing.T) {
	s := New(DefaultRules()...)
	got := s.Stitch([]string{
		"The borrower agreed that the loan amount",
		"is $200,000. Payment is due monthly.",
	})
	want := "The borrower agreed that the loan amount is $200,000. Payment is due monthly."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Contains(got, "\n") {
		t.Error("expected no residual line break at the join")
	}
}

func TestStitch_NoJoinAfterTerminalPunctuation(t *testing.T) {
	s := New(DefaultRules()...)
	got := s.Stitch([]string{
		"The first section ends here.",
		"another paragraph follows.",
	})
	want := "The first section ends here.\n\nanother paragraph follows."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStitch_NoJoinBeforeUppercase(t *testing.T) {
	s := New(DefaultRules()...)
	got := s.Stitch([]string{
		"An unterminated fragment",
		"New heading starts the next chunk.",
	})
	want := "An unterminated fragment\n\nNew heading starts the next chunk."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStitch_ClosingQuoteAfterPeriodCountsAsTerminal(t *testing.T) {
	s := New(DefaultRules()...)
	got := s.Stitch([]string{
		`He said "it is done."`,
		"the next chunk begins lowercase anyway.",
	})
	if !strings.Contains(got, "\n\n") {
		t.Errorf("expected paragraph break after quoted sentence, got %q", got)
	}
}

func TestStitch_TableContinuation(t *testing.T) {
	s := New(DefaultRules()...)
	chunkA := "Rates by tier:\n\n| Tier | Rate |\n|---|---|\n| A | 5% |"
	chunkB := "| B | 6% |\n\nFurther terms follow."
	got := s.Stitch([]string{chunkA, chunkB})

	want := "Rates by tier:\n\n| Tier | Rate |\n|---|---|\n| A | 5% |\n| B | 6% |\n\nFurther terms follow."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Count(got, "| Tier | Rate |") != 1 {
		t.Error("expected the header to appear exactly once")
	}
	a := strings.Index(got, "| A | 5% |")
	b := strings.Index(got, "| B | 6% |")
	if a == -1 || b == -1 || b < a {
		t.Error("expected rows A then B in order")
	}
}

func TestStitch_TableContinuationDropsRepeatedHeader(t *testing.T) {
	s := New(DefaultRules()...)
	chunkA := "| Tier | Rate |\n|---|---|\n| A | 5% |"
	chunkB := "| Tier | Rate |\n|---|---|\n| B | 6% |"
	got := s.Stitch([]string{chunkA, chunkB})

	if strings.Count(got, "| Tier | Rate |") != 1 {
		t.Errorf("expected one header, got %q", got)
	}
	if !strings.Contains(got, "| A | 5% |") || !strings.Contains(got, "| B | 6% |") {
		t.Errorf("expected both data rows preserved, got %q", got)
	}
}

func TestStitch_DifferentTableStaysSeparate(t *testing.T) {
	s := New(DefaultRules()...)
	chunkA := "| Tier | Rate |\n|---|---|\n| A | 5% |"
	chunkB := "| Name | Age |\n|---|---|\n| Bob | 40 |"
	got := s.Stitch([]string{chunkA, chunkB})

	if !strings.Contains(got, "| A | 5% |\n\n| Name | Age |") {
		t.Errorf("expected a new table to start its own paragraph, got %q", got)
	}
}

func TestStitch_DataRowsNeverDeduplicated(t *testing.T) {
	s := New(DefaultRules()...)
	chunkA := "| Item | Qty |\n|---|---|\n| nail | 10 |"
	chunkB := "| nail | 10 |"
	got := s.Stitch([]string{chunkA, chunkB})
	if strings.Count(got, "| nail | 10 |") != 2 {
		t.Errorf("repeated data rows are legitimate content, got %q", got)
	}
}

func TestStitch_SingleFragment(t *testing.T) {
	s := New(DefaultRules()...)
	if got := s.Stitch([]string{"only one"}); got != "only one" {
		t.Errorf("got %q", got)
	}
}

func TestStitch_EmptyAndBlankFragments(t *testing.T) {
	s := New(DefaultRules()...)
	if got := s.Stitch(nil); got != "" {
		t.Errorf("expected empty result, got %q", got)
	}
	got := s.Stitch([]string{"first.", "   \n  ", "Second."})
	want := "first.\n\nSecond."
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStitch_Deterministic(t *testing.T) {
	s := New(DefaultRules()...)
	frags := []string{
		"The total comes to",
		"twelve units.\n\n| K | V |\n|---|---|\n| x | 1 |",
		"| y | 2 |",
	}
	first := s.Stitch(frags)
	for range 5 {
		if again := s.Stitch(frags); again != first {
			t.Fatal("stitching is not deterministic")
		}
	}
}

// A replacement rule, exercising the strategy seam.
type bannerRule struct{}

func (bannerRule) Join(prev, next string) (string, bool) {
	return prev + "\n<<<>>>\n" + next, true
}

func TestStitch_RulesAreReplaceable(t *testing.T) {
	s := New(bannerRule{})
	got := s.Stitch([]string{"a", "b"})
	if got != "a\n<<<>>>\nb" {
		t.Errorf("custom rule not applied: %q", got)
	}
}

func TestIsSeparatorRow(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"|---|---|", true},
		{"| --- | :---: |", true},
		{"|:--|--:|", true},
		{"| A | B |", false},
		{"---", false},
		{"| -x- |", false},
	}
	for _, tc := range cases {
		if got := isSeparatorRow(tc.line); got != tc.want {
			t.Errorf("isSeparatorRow(%q) = %v, want %v", tc.line, got, tc.want)
		}
	}
}
