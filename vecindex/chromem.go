package vecindex

import (
	"context"
	"runtime"
	"sort"
	"strings"
	"sync"

	apperrors "legal-rag/errors"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// arrayKeys are the metadata fields stored as string arrays. chromem
// metadata is flat string-to-string, so arrays are joined on write and
// split on read.
var arrayKeys = map[string]bool{
	"statute_numbers":     true,
	"case_citations":      true,
	"dates":               true,
	"courts":              true,
	"docket_numbers":      true,
	"policy_numbers":      true,
	"learning_objectives": true,
	"key_terms":           true,
}

const arraySeparator = "|"

// ChromemIndex implements Index on an embedded chromem-go database
// persisted to disk.
type ChromemIndex struct {
	mu         sync.Mutex
	collection *chromem.Collection
	dimension  int
	logger     *zap.Logger
}

func NewChromemIndex(persistPath, name string, dimension int, logger *zap.Logger) (*ChromemIndex, error) {
	db, err := chromem.NewPersistentDB(persistPath, false)
	if err != nil {
		return nil, apperrors.WrapError(err, "open chromem database")
	}
	// Embeddings are computed upstream; the collection never embeds.
	embedder := func(ctx context.Context, text string) ([]float32, error) {
		return nil, apperrors.WrapError(apperrors.ErrInvalidInput, "collection does not embed")
	}
	collection, err := db.GetOrCreateCollection(name, nil, embedder)
	if err != nil {
		return nil, apperrors.WrapError(err, "open chromem collection")
	}
	return &ChromemIndex{collection: collection, dimension: dimension, logger: logger}, nil
}

func (c *ChromemIndex) Upsert(ctx context.Context, items []Item) error {
	docs := make([]chromem.Document, 0, len(items))
	for _, item := range items {
		if c.dimension > 0 && len(item.Values) != c.dimension {
			return apperrors.WrapErrorf(apperrors.ErrDimensionMismatch,
				"item %s has %d values, index expects %d", item.ID, len(item.Values), c.dimension)
		}
		meta := encodeMetadata(item.Metadata)
		content := meta["content"]
		delete(meta, "content")
		docs = append(docs, chromem.Document{
			ID:        item.ID,
			Metadata:  meta,
			Embedding: item.Values,
			Content:   content,
		})
	}
	if len(docs) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection.AddDocuments(ctx, docs, runtime.NumCPU())
}

func (c *ChromemIndex) Query(ctx context.Context, vector []float32, topK int, filter *Filter, includeMetadata bool) ([]Match, error) {
	if topK <= 0 {
		return nil, nil
	}
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// Membership and or-composition are evaluated client-side, so filtered
	// queries pull the whole candidate pool before trimming.
	fetch := topK
	if filter != nil || fetch > count {
		fetch = count
	}
	results, err := c.collection.QueryEmbedding(ctx, vector, fetch, nil, nil)
	if err != nil {
		return nil, apperrors.WrapError(err, "query chromem collection")
	}

	matches := make([]Match, 0, len(results))
	for _, res := range results {
		meta := decodeMetadata(res.Metadata)
		meta["content"] = res.Content
		if !filter.Matches(meta) {
			continue
		}
		match := Match{ID: res.ID, Score: float64(res.Similarity)}
		if includeMetadata {
			match.Metadata = meta
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

func (c *ChromemIndex) Delete(ctx context.Context, filter *Filter) error {
	all, err := c.enumerate(ctx)
	if err != nil {
		return err
	}
	var ids []string
	for _, match := range all {
		if filter.Matches(match.Metadata) {
			ids = append(ids, match.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collection.Delete(ctx, nil, nil, ids...)
}

func (c *ChromemIndex) Describe(ctx context.Context) (Stats, error) {
	return Stats{Count: c.collection.Count(), Dimension: c.dimension}, nil
}

func (c *ChromemIndex) List(ctx context.Context, topK int) ([]Match, error) {
	matches, err := c.enumerate(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].ID < matches[j].ID })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// enumerate walks the whole collection via a probe query; chromem exposes
// no listing primitive.
func (c *ChromemIndex) enumerate(ctx context.Context) ([]Match, error) {
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	probe := make([]float32, c.dimension)
	if c.dimension > 0 {
		probe[0] = 1
	}
	results, err := c.collection.QueryEmbedding(ctx, probe, count, nil, nil)
	if err != nil {
		return nil, apperrors.WrapError(err, "enumerate chromem collection")
	}
	matches := make([]Match, 0, len(results))
	for _, res := range results {
		meta := decodeMetadata(res.Metadata)
		meta["content"] = res.Content
		matches = append(matches, Match{ID: res.ID, Metadata: meta})
	}
	return matches, nil
}

func encodeMetadata(meta Metadata) map[string]string {
	out := make(map[string]string, len(meta))
	for key, value := range meta {
		switch v := value.(type) {
		case string:
			out[key] = v
		case []string:
			out[key] = strings.Join(v, arraySeparator)
		}
	}
	return out
}

func decodeMetadata(meta map[string]string) Metadata {
	out := make(Metadata, len(meta))
	for key, value := range meta {
		if arrayKeys[key] {
			if value == "" {
				continue
			}
			out[key] = strings.Split(value, arraySeparator)
			continue
		}
		out[key] = value
	}
	return out
}
