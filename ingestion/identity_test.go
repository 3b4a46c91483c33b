package ingestion

import (
	"strings"
	"testing"
)

func TestComputeIDDeterministic(t *testing.T) {
	metadata := map[string]string{"source": "notes.txt", "page": "3"}

	first := ComputeID("Paris is the capital of France.", metadata)
	second := ComputeID("Paris is the capital of France.", metadata)

	if first != second {
		t.Fatalf("expected identical IDs, got %q and %q", first, second)
	}
}

func TestComputeIDChangesWithContent(t *testing.T) {
	metadata := map[string]string{"source": "notes.txt"}

	a := ComputeID("first version", metadata)
	b := ComputeID("second version", metadata)

	if a == b {
		t.Fatal("expected different IDs for different content")
	}
}

func TestComputeIDChangesWithMetadata(t *testing.T) {
	content := "identical content"

	a := ComputeID(content, map[string]string{"page": "1"})
	b := ComputeID(content, map[string]string{"page": "2"})

	if a == b {
		t.Fatal("expected different IDs for different metadata")
	}
}

func TestComputeIDIgnoresMapOrder(t *testing.T) {
	// Maps iterate in random order; the canonical form must not.
	a := ComputeID("text", map[string]string{"a": "1", "b": "2", "c": "3"})
	for i := 0; i < 20; i++ {
		b := ComputeID("text", map[string]string{"c": "3", "b": "2", "a": "1"})
		if a != b {
			t.Fatalf("ID depends on map iteration order: %q vs %q", a, b)
		}
	}
}

func TestComputeIDEmptyContent(t *testing.T) {
	id := ComputeID("", nil)
	if id == "" {
		t.Fatal("expected a well-defined ID for empty content")
	}
	if !strings.Contains(id, "-") {
		t.Fatalf("expected content and metadata digests joined by a separator, got %q", id)
	}
}
