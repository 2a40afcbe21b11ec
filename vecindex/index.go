// Package vecindex wraps the vector store behind a narrow contract: upsert,
// filtered query, delete, describe, list. Implementations exist for
// chromem-go (in-process, persisted), Postgres with pgvector, and an
// in-memory map used in tests and as a throwaway backend.
package vecindex

import (
	"context"
)

// Metadata is the scalar/string-array mapping stored alongside each vector.
type Metadata map[string]any

// Item is one vector plus its metadata, keyed by chunk id.
type Item struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// Match is a single query hit.
type Match struct {
	ID       string
	Score    float64
	Metadata Metadata
}

// Stats describes the index.
type Stats struct {
	Count     int     `json:"total_vector_count"`
	Dimension int     `json:"dimension"`
	Fullness  float64 `json:"index_fullness"`
}

// Filter selects vectors by metadata. All Equals entries must hold; scalar
// fields match by equality and array fields by membership. When Or branches
// are present, at least one branch must also hold. A nil filter matches
// everything.
type Filter struct {
	Equals map[string]string
	Or     []*Filter
}

// Eq builds a single-field equality/membership filter.
func Eq(field, value string) *Filter {
	return &Filter{Equals: map[string]string{field: value}}
}

// Or builds a filter matching any of the given branches.
func Or(branches ...*Filter) *Filter {
	return &Filter{Or: branches}
}

// Matches evaluates the filter against a metadata record.
func (f *Filter) Matches(meta Metadata) bool {
	if f == nil {
		return true
	}
	for field, want := range f.Equals {
		if !fieldMatches(meta[field], want) {
			return false
		}
	}
	if len(f.Or) == 0 {
		return true
	}
	for _, branch := range f.Or {
		if branch.Matches(meta) {
			return true
		}
	}
	return false
}

func fieldMatches(value any, want string) bool {
	switch v := value.(type) {
	case string:
		return v == want
	case []string:
		for _, s := range v {
			if s == want {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

// Index is the vector-store contract consumed by search and ingestion.
// Per-id upserts are last-writer-wins; queries see already-acknowledged
// upserts.
type Index interface {
	Upsert(ctx context.Context, items []Item) error
	Query(ctx context.Context, vector []float32, topK int, filter *Filter, includeMetadata bool) ([]Match, error)
	Delete(ctx context.Context, filter *Filter) error
	Describe(ctx context.Context) (Stats, error)
	List(ctx context.Context, topK int) ([]Match, error)
}
