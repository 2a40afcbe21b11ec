package vecindex

import (
	"context"
	"math"
	"sort"
	"sync"

	apperrors "legal-rag/errors"
)

// MemoryIndex is a process-local index backed by a map. It implements the
// full filter grammar and is the reference implementation the tests run
// against.
type MemoryIndex struct {
	mu        sync.RWMutex
	items     map[string]Item
	dimension int
}

func NewMemoryIndex(dimension int) *MemoryIndex {
	return &MemoryIndex{
		items:     make(map[string]Item),
		dimension: dimension,
	}
}

func (m *MemoryIndex) Upsert(ctx context.Context, items []Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		if m.dimension > 0 && len(item.Values) != m.dimension {
			return apperrors.WrapErrorf(apperrors.ErrDimensionMismatch,
				"item %s has %d values, index expects %d", item.ID, len(item.Values), m.dimension)
		}
		m.items[item.ID] = item
	}
	return nil
}

func (m *MemoryIndex) Query(ctx context.Context, vector []float32, topK int, filter *Filter, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.items))
	for _, item := range m.items {
		if !filter.Matches(item.Metadata) {
			continue
		}
		match := Match{ID: item.ID, Score: cosineSimilarity(vector, item.Values)}
		if includeMetadata {
			match.Metadata = item.Metadata
		}
		matches = append(matches, match)
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score == matches[j].Score {
			return matches[i].ID < matches[j].ID
		}
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (m *MemoryIndex) Delete(ctx context.Context, filter *Filter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, item := range m.items {
		if filter.Matches(item.Metadata) {
			delete(m.items, id)
		}
	}
	return nil
}

func (m *MemoryIndex) Describe(ctx context.Context) (Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{Count: len(m.items), Dimension: m.dimension}, nil
}

func (m *MemoryIndex) List(ctx context.Context, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	matches := make([]Match, 0, len(m.items))
	for _, item := range m.items {
		matches = append(matches, Match{ID: item.ID, Metadata: item.Metadata})
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
