package vectorstore

import (
	"context"
	"testing"
)

func TestMemoryStoreUpsertOverwritesByID(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, 2); err != nil {
		t.Fatalf("create: %v", err)
	}

	first := Entry{ID: "chunk-1", Content: "old", Embedding: []float32{1, 0}}
	second := Entry{ID: "chunk-1", Content: "new", Embedding: []float32{0, 1}}

	if err := store.Upsert(ctx, []Entry{first}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := store.Upsert(ctx, []Entry{second}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if store.Len() != 1 {
		t.Fatalf("expected one entry after overwrite, got %d", store.Len())
	}

	matches, err := store.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 1 || matches[0].Content != "new" {
		t.Fatalf("expected the latest content to win, got %+v", matches)
	}
}

func TestMemoryStoreUpsertBeforeCreateFails(t *testing.T) {
	store := NewMemoryStore()

	err := store.Upsert(context.Background(), []Entry{{ID: "x", Embedding: []float32{1}}})
	if err == nil {
		t.Fatal("expected error when upserting before index creation")
	}
}

func TestMemoryStoreSearchOrdersBySimilarity(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, 2); err != nil {
		t.Fatalf("create: %v", err)
	}

	entries := []Entry{
		{ID: "aligned", Embedding: []float32{1, 0}},
		{ID: "diagonal", Embedding: []float32{1, 1}},
		{ID: "orthogonal", Embedding: []float32{0, 1}},
	}
	if err := store.Upsert(ctx, entries); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	matches, err := store.Search(ctx, []float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("expected three matches, got %d", len(matches))
	}

	want := []string{"aligned", "diagonal", "orthogonal"}
	for i, id := range want {
		if matches[i].ID != id {
			t.Fatalf("position %d: got %s, want %s", i, matches[i].ID, id)
		}
	}
	for i := 0; i < len(matches)-1; i++ {
		if matches[i].Score < matches[i+1].Score {
			t.Fatalf("scores not descending at %d: %f < %f", i, matches[i].Score, matches[i+1].Score)
		}
	}
}

func TestMemoryStoreSearchCapsResults(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if err := store.Create(ctx, 1); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, id := range []string{"a", "b", "c", "d"} {
		if err := store.Upsert(ctx, []Entry{{ID: id, Embedding: []float32{1}}}); err != nil {
			t.Fatalf("upsert %s: %v", id, err)
		}
	}

	matches, err := store.Search(ctx, []float32{1}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected capped result set of 2, got %d", len(matches))
	}
}

func TestCosine(t *testing.T) {
	cases := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Cosine(tc.a, tc.b)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Fatalf("cosine = %f, want %f", got, tc.want)
			}
		})
	}
}
