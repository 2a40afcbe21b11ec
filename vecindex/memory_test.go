package vecindex

import (
	"context"
	"errors"
	"testing"

	apperrors "legal-rag/errors"
)

func TestFilterMatches(t *testing.T) {
	meta := Metadata{
		"jurisdiction":    "state",
		"document_type":   "case_law",
		"statute_numbers": []string{"968.12", "968.13"},
	}

	tests := []struct {
		name   string
		filter *Filter
		want   bool
	}{
		{"nil_filter_matches_all", nil, true},
		{"scalar_equality", Eq("jurisdiction", "state"), true},
		{"scalar_mismatch", Eq("jurisdiction", "federal"), false},
		{"array_membership", Eq("statute_numbers", "968.13"), true},
		{"array_non_member", Eq("statute_numbers", "940.19"), false},
		{"missing_field", Eq("law_status", "current"), false},
		{
			"conjunction",
			&Filter{Equals: map[string]string{"jurisdiction": "state", "document_type": "case_law"}},
			true,
		},
		{
			"conjunction_partial_fail",
			&Filter{Equals: map[string]string{"jurisdiction": "state", "document_type": "policy"}},
			false,
		},
		{
			"or_first_branch",
			Or(Eq("jurisdiction", "federal"), Eq("jurisdiction", "state")),
			true,
		},
		{
			"or_no_branch",
			Or(Eq("jurisdiction", "federal"), Eq("document_type", "policy")),
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Matches(meta); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMemoryIndexDimensionCheck(t *testing.T) {
	index := NewMemoryIndex(3)
	err := index.Upsert(context.Background(), []Item{{ID: "bad", Values: []float32{1, 0}}})
	if err == nil {
		t.Fatal("Upsert() with wrong dimension should fail")
	}
	if !errors.Is(err, apperrors.ErrDimensionMismatch) {
		t.Errorf("Upsert() error = %v, want dimension mismatch", err)
	}
}

func TestMemoryIndexQueryRanksByCosine(t *testing.T) {
	index := NewMemoryIndex(3)
	ctx := context.Background()

	items := []Item{
		{ID: "near", Values: []float32{1, 0, 0}, Metadata: Metadata{"document_id": "a"}},
		{ID: "mid", Values: []float32{1, 1, 0}, Metadata: Metadata{"document_id": "a"}},
		{ID: "far", Values: []float32{0, 1, 0}, Metadata: Metadata{"document_id": "b"}},
	}
	if err := index.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	matches, err := index.Query(ctx, []float32{1, 0, 0}, 3, nil, true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	wantOrder := []string{"near", "mid", "far"}
	for i, want := range wantOrder {
		if matches[i].ID != want {
			t.Errorf("match %d = %s, want %s", i, matches[i].ID, want)
		}
	}
	if matches[0].Score <= matches[1].Score || matches[1].Score <= matches[2].Score {
		t.Errorf("scores are not strictly decreasing: %v %v %v",
			matches[0].Score, matches[1].Score, matches[2].Score)
	}
}

func TestMemoryIndexDeleteByDocumentRemovesExactlyThatDocument(t *testing.T) {
	index := NewMemoryIndex(2)
	ctx := context.Background()

	items := []Item{
		{ID: "docA_0", Values: []float32{1, 0}, Metadata: Metadata{"document_id": "docA"}},
		{ID: "docA_1", Values: []float32{0, 1}, Metadata: Metadata{"document_id": "docA"}},
		{ID: "docB_0", Values: []float32{1, 1}, Metadata: Metadata{"document_id": "docB"}},
	}
	if err := index.Upsert(ctx, items); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := index.Delete(ctx, Eq("document_id", "docA")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	stats, err := index.Describe(ctx)
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}
	if stats.Count != 1 {
		t.Errorf("count after delete = %d, want 1", stats.Count)
	}

	remaining, err := index.List(ctx, 10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "docB_0" {
		t.Errorf("remaining = %+v, want only docB_0", remaining)
	}
}

func TestMemoryIndexUpsertIsLastWriterWins(t *testing.T) {
	index := NewMemoryIndex(2)
	ctx := context.Background()

	first := Item{ID: "x", Values: []float32{1, 0}, Metadata: Metadata{"law_status": "current"}}
	second := Item{ID: "x", Values: []float32{0, 1}, Metadata: Metadata{"law_status": "superseded"}}
	if err := index.Upsert(ctx, []Item{first}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := index.Upsert(ctx, []Item{second}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	matches, err := index.Query(ctx, []float32{0, 1}, 1, nil, true)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(matches) != 1 || matches[0].Metadata["law_status"] != "superseded" {
		t.Errorf("matches = %+v, want the second write's metadata", matches)
	}
}
