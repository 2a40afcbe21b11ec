package crossref

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"legal-rag/vecindex"

	"go.uber.org/zap"
)

// Similarity weights per entity category.
const (
	weightKeywords  = 0.40
	weightCitations = 0.20
	weightLocations = 0.20
	weightDates     = 0.15
	weightNames     = 0.10

	weightTotal = weightKeywords + weightCitations + weightLocations + weightDates + weightNames

	ingestThreshold  = 0.3
	suggestThreshold = 0.2
	maxEdgesPerDoc   = 20
	dateWindowDays   = 30
)

// Engine extracts document entities, scores document-to-document similarity,
// and maintains the relationship graph.
type Engine struct {
	graph  *Graph
	index  vecindex.Index
	logger *zap.Logger

	mu       sync.RWMutex
	entities map[string]Entities
}

func NewEngine(graph *Graph, index vecindex.Index, logger *zap.Logger) *Engine {
	return &Engine{
		graph:    graph,
		index:    index,
		logger:   logger,
		entities: make(map[string]Entities),
	}
}

func (e *Engine) Graph() *Graph { return e.graph }

// Similarity scores two entity bags with the weighted per-category overlap.
// Each category contributes weight * |A∩B| / max(|A|,|B|) when both sides
// are non-empty; dates additionally credit near-misses inside a 30-day
// window. The sum is normalized by the total weight of all categories.
func Similarity(a, b Entities) (float64, Entities) {
	var score float64
	var common Entities

	score += overlap(a.Keywords, b.Keywords, weightKeywords, &common.Keywords)
	score += overlap(a.Citations, b.Citations, weightCitations, &common.Citations)
	score += overlap(a.Locations, b.Locations, weightLocations, &common.Locations)
	score += dateScore(a.Dates, b.Dates, &common.Dates)
	score += overlap(a.Names, b.Names, weightNames, &common.Names)

	return score / weightTotal, common
}

func overlap(a, b []string, weight float64, shared *[]string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[strings.ToLower(s)] = true
	}
	hits := 0
	for _, s := range b {
		if set[strings.ToLower(s)] {
			hits++
			*shared = append(*shared, s)
		}
	}
	denom := len(a)
	if len(b) > denom {
		denom = len(b)
	}
	return weight * float64(hits) / float64(denom)
}

var dateLayouts = []string{"1/2/2006", "2006-01-02", "January 2, 2006", "January 2 2006"}

// dateScore credits exact date overlap like any other category, but also
// credits the closest cross-document date pair inside the 30-day window
// proportionally to its proximity.
func dateScore(a, b []string, shared *[]string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	exact := overlap(a, b, weightDates, shared)

	parsedA := parseDates(a)
	parsedB := parseDates(b)
	if len(parsedA) == 0 || len(parsedB) == 0 {
		return exact
	}
	minDelta := -1.0
	for _, ta := range parsedA {
		for _, tb := range parsedB {
			delta := ta.Sub(tb).Hours() / 24
			if delta < 0 {
				delta = -delta
			}
			if minDelta < 0 || delta < minDelta {
				minDelta = delta
			}
		}
	}
	if minDelta < 0 || minDelta > dateWindowDays {
		return exact
	}
	proximity := weightDates * (1 - minDelta/dateWindowDays)
	if proximity > exact {
		return proximity
	}
	return exact
}

func parseDates(dates []string) []time.Time {
	var out []time.Time
	for _, d := range dates {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, d); err == nil {
				out = append(out, t)
				break
			}
		}
	}
	return out
}

// RegisterDocument stores a document's entity bag for later comparisons.
func (e *Engine) RegisterDocument(docID, text string) Entities {
	ents := ExtractEntities(text)
	e.mu.Lock()
	e.entities[docID] = ents
	e.mu.Unlock()
	return ents
}

// ForgetDocument drops the document's entities and graph edges.
func (e *Engine) ForgetDocument(docID string) {
	e.mu.Lock()
	delete(e.entities, docID)
	e.mu.Unlock()
	e.graph.RemoveDocument(docID)
}

// CrossReference is one scored document pair.
type CrossReference struct {
	DocumentID     string   `json:"document_id"`
	Similarity     float64  `json:"similarity"`
	CommonEntities Entities `json:"common_entities"`
}

// FindCrossReferences registers the document, scores it against every other
// known document, records pairs at or above the ingest threshold in the
// graph, and returns the recorded pairs sorted by similarity.
func (e *Engine) FindCrossReferences(docID, text string) []CrossReference {
	ents := e.RegisterDocument(docID, text)
	if ents.Empty() {
		return nil
	}

	e.mu.RLock()
	candidates := make(map[string]Entities, len(e.entities))
	for id, other := range e.entities {
		if id != docID {
			candidates[id] = other
		}
	}
	e.mu.RUnlock()

	var refs []CrossReference
	for id, other := range candidates {
		score, common := Similarity(ents, other)
		if score >= ingestThreshold {
			refs = append(refs, CrossReference{DocumentID: id, Similarity: score, CommonEntities: common})
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Similarity != refs[j].Similarity {
			return refs[i].Similarity > refs[j].Similarity
		}
		return refs[i].DocumentID < refs[j].DocumentID
	})
	if len(refs) > maxEdgesPerDoc {
		refs = refs[:maxEdgesPerDoc]
	}

	for _, ref := range refs {
		e.graph.AddEdge(docID, ref.DocumentID, ref.Similarity, ref.CommonEntities)
	}
	return refs
}

// RelatedDocuments returns the graph neighbors of a document.
func (e *Engine) RelatedDocuments(docID string) []Neighbor {
	return e.graph.Neighbors(docID)
}

// Suggestion is a query-time recommendation of a relevant document.
type Suggestion struct {
	DocumentID  string   `json:"document_id"`
	Similarity  float64  `json:"similarity"`
	WhyRelevant []string `json:"why_relevant"`
}

// Suggest scores a free-text query against every known document with the
// same metric and a lower acceptance threshold.
func (e *Engine) Suggest(query string) []Suggestion {
	queryEnts := ExtractEntities(query)
	if queryEnts.Empty() {
		return nil
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var out []Suggestion
	for id, ents := range e.entities {
		score, common := Similarity(queryEnts, ents)
		if score < suggestThreshold {
			continue
		}
		out = append(out, Suggestion{
			DocumentID:  id,
			Similarity:  score,
			WhyRelevant: whyRelevant(common),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].DocumentID < out[j].DocumentID
	})
	return out
}

func whyRelevant(common Entities) []string {
	var reasons []string
	if len(common.Keywords) > 0 {
		reasons = append(reasons, fmt.Sprintf("shares legal terms: %s", strings.Join(common.Keywords, ", ")))
	}
	if len(common.Citations) > 0 {
		reasons = append(reasons, fmt.Sprintf("cites: %s", strings.Join(common.Citations, ", ")))
	}
	if len(common.Locations) > 0 {
		reasons = append(reasons, fmt.Sprintf("mentions: %s", strings.Join(common.Locations, ", ")))
	}
	if len(common.Dates) > 0 {
		reasons = append(reasons, fmt.Sprintf("overlapping dates: %s", strings.Join(common.Dates, ", ")))
	}
	if len(common.Names) > 0 {
		reasons = append(reasons, fmt.Sprintf("involves: %s", strings.Join(common.Names, ", ")))
	}
	return reasons
}

// RebuildFromIndex repopulates the entity table from chunk content stored in
// the vector index. Called at startup so suggestions survive restarts.
func (e *Engine) RebuildFromIndex(ctx context.Context) error {
	items, err := e.index.List(ctx, 10000)
	if err != nil {
		return err
	}

	texts := make(map[string]*strings.Builder)
	for _, item := range items {
		docID, _ := item.Metadata["document_id"].(string)
		content, _ := item.Metadata["content"].(string)
		if docID == "" || content == "" {
			continue
		}
		if texts[docID] == nil {
			texts[docID] = &strings.Builder{}
		}
		texts[docID].WriteString(content)
		texts[docID].WriteString("\n")
	}

	for docID, b := range texts {
		e.RegisterDocument(docID, b.String())
	}
	e.logger.Info("Rebuilt cross-reference entities", zap.Int("documents", len(texts)))
	return nil
}
