package ingestion

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"
)

func wordCounter(text string) int {
	return len(strings.Fields(text))
}

func TestSplitShortDocumentSingleChunk(t *testing.T) {
	splitter := NewSplitter(100, 20, wordCounter)

	chunks := splitter.Split("A short note that fits comfortably in one chunk.")
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
}

func TestSplitEmptyDocumentNoChunks(t *testing.T) {
	splitter := NewSplitter(100, 20, wordCounter)

	for _, text := range []string{"", "   ", "\n\n\n"} {
		if chunks := splitter.Split(text); len(chunks) != 0 {
			t.Fatalf("expected no chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestSplitRespectsTokenBudget(t *testing.T) {
	words := make([]string, 0, 100)
	for i := 0; i < 100; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, " ")

	splitter := NewSplitter(10, 3, wordCounter)
	chunks := splitter.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if count := wordCounter(chunk); count > 10 {
			t.Fatalf("chunk %d exceeds budget: %d tokens", i, count)
		}
	}
}

func TestSplitAdjacentChunksOverlap(t *testing.T) {
	words := make([]string, 0, 60)
	for i := 0; i < 60; i++ {
		words = append(words, fmt.Sprintf("w%d", i))
	}
	text := strings.Join(words, " ")

	splitter := NewSplitter(10, 3, wordCounter)
	chunks := splitter.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		tail := strings.Fields(chunks[i])
		head := strings.Fields(chunks[i+1])
		if len(tail) < 3 || len(head) < 3 {
			t.Fatalf("chunks too small to check overlap: %d/%d words", len(tail), len(head))
		}
		want := strings.Join(tail[len(tail)-3:], " ")
		got := strings.Join(head[:3], " ")
		if want != got {
			t.Fatalf("chunks %d/%d do not share the configured overlap: tail %q, head %q", i, i+1, want, got)
		}
	}
}

func TestSplitFallsBackToCharacterLevel(t *testing.T) {
	// One unbroken run with no separators at all still has to come in under
	// budget via the empty-string separator.
	text := strings.Repeat("x", 55)

	splitter := NewSplitter(10, 2, utf8.RuneCountInString)
	chunks := splitter.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected the run to be split, got %d chunks", len(chunks))
	}
	for i, chunk := range chunks {
		if utf8.RuneCountInString(chunk) > 10 {
			t.Fatalf("chunk %d exceeds budget: %q", i, chunk)
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	text := "First paragraph with a handful of words here.\n\nSecond paragraph with a handful of words here.\n\nThird paragraph with a handful of words here."

	splitter := NewSplitter(10, 2, wordCounter)
	chunks := splitter.Split(text)

	for i, chunk := range chunks {
		if strings.Contains(chunk, "\n\n") {
			t.Fatalf("chunk %d spans a paragraph break despite the budget: %q", i, chunk)
		}
	}
}
