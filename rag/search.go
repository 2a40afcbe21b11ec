package rag

import (
	"context"
	"sort"
	"strings"

	"legal-rag/legal"
	"legal-rag/vecindex"

	"go.uber.org/zap"
)

// Relevance weights for the composite score. They sum to 1.0 so the final
// score stays in [0,1].
const (
	weightSemantic     = 0.40
	weightKeyword      = 0.30
	weightJurisdiction = 0.15
	weightLawStatus    = 0.10
	weightDocType      = 0.05
)

// RelevanceBreakdown is the per-factor decomposition of a result's score.
// Citation is tracked for confidence evaluation but is not part of the
// weighted sum.
type RelevanceBreakdown struct {
	Semantic     float64 `json:"semantic"`
	Keyword      float64 `json:"keyword"`
	Jurisdiction float64 `json:"jurisdiction"`
	LawStatus    float64 `json:"law_status"`
	DocType      float64 `json:"doc_type"`
	Citation     float64 `json:"citation_match"`
}

// SearchResult is one ranked retrieval hit.
type SearchResult struct {
	ChunkID       string             `json:"id"`
	Content       string             `json:"content"`
	Metadata      vecindex.Metadata  `json:"metadata"`
	FinalScore    float64            `json:"score"`
	Breakdown     RelevanceBreakdown `json:"relevance_breakdown"`
	Jurisdiction  string             `json:"jurisdiction"`
	LawStatus     string             `json:"law_status"`
	CitationChain []string           `json:"citation_chain,omitempty"`
}

// Embedder maps texts to fixed-dimension vectors.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// HybridSearcher combines semantic retrieval with citation-filtered keyword
// retrieval and rescores merged candidates with the multi-factor weights.
type HybridSearcher struct {
	index    vecindex.Index
	embedder Embedder
	logger   *zap.Logger
}

func NewHybridSearcher(index vecindex.Index, embedder Embedder, logger *zap.Logger) *HybridSearcher {
	return &HybridSearcher{index: index, embedder: embedder, logger: logger}
}

type searchCandidate struct {
	id          string
	content     string
	metadata    vecindex.Metadata
	semantic    float64
	citationHit bool
}

// Search runs the full hybrid pipeline for an enhanced query. jurisdiction
// is the caller's preference; k bounds the result count.
func (h *HybridSearcher) Search(ctx context.Context, enh Enhancement, jurisdiction string, k int) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}
	if jurisdiction == "" {
		jurisdiction = legal.JurisdictionFederal
	}

	vectors, err := h.embedder.Encode(ctx, []string{enh.Enhanced})
	if err != nil {
		return nil, err
	}
	queryVector := vectors[0]

	candidates := make(map[string]*searchCandidate)

	semantic, err := h.index.Query(ctx, queryVector, 2*k, nil, true)
	if err != nil {
		return nil, err
	}
	for _, match := range semantic {
		h.mergeCandidate(candidates, match, false)
	}

	// Citation tokens from the original question drive filtered lookups
	// against the statute and case metadata arrays.
	for _, statute := range legal.Statutes(enh.Original) {
		matches, err := h.index.Query(ctx, queryVector, 5, vecindex.Eq("statute_numbers", statute), true)
		if err != nil {
			h.logger.Warn("Statute-filtered query failed", zap.String("statute", statute), zap.Error(err))
			continue
		}
		for _, match := range matches {
			h.mergeCandidate(candidates, match, true)
		}
	}
	for _, citation := range legal.Citations(enh.Original) {
		matches, err := h.index.Query(ctx, queryVector, 5, vecindex.Eq("case_citations", citation), true)
		if err != nil {
			h.logger.Warn("Case-filtered query failed", zap.String("citation", citation), zap.Error(err))
			continue
		}
		for _, match := range matches {
			h.mergeCandidate(candidates, match, true)
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	queryCitations := legal.AllCitations(enh.Original)
	results := make([]SearchResult, 0, len(candidates))
	for _, cand := range candidates {
		results = append(results, h.score(cand, enh, jurisdiction, queryCitations))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}
		if results[i].Breakdown.Semantic != results[j].Breakdown.Semantic {
			return results[i].Breakdown.Semantic > results[j].Breakdown.Semantic
		}
		return results[i].ChunkID < results[j].ChunkID
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// mergeCandidate folds a match into the candidate map, keeping the maximum
// semantic score on collision.
func (h *HybridSearcher) mergeCandidate(candidates map[string]*searchCandidate, match vecindex.Match, citationHit bool) {
	if match.ID == "" {
		return
	}
	cand, ok := candidates[match.ID]
	if !ok {
		cand = &searchCandidate{id: match.ID, metadata: match.Metadata}
		candidates[match.ID] = cand
	}
	if match.Score > cand.semantic {
		cand.semantic = match.Score
	}
	if cand.metadata == nil {
		cand.metadata = match.Metadata
	}
	if content, ok := cand.metadata["content"].(string); ok {
		cand.content = content
	}
	if citationHit {
		cand.citationHit = true
	}
}

func (h *HybridSearcher) score(cand *searchCandidate, enh Enhancement, jurisdiction string, queryCitations []string) SearchResult {
	semantic := clamp01(cand.semantic)
	keyword := keywordScore(enh, cand.content)
	chunkJurisdiction := resolveJurisdiction(cand.metadata, cand.content)
	jurScore := jurisdictionScore(chunkJurisdiction, jurisdiction, cand.content)
	status := resolveLawStatus(cand.metadata, cand.content)
	statusScore := lawStatusScore(status)
	docTypeScore := documentTypeScore(metadataString(cand.metadata, "document_type"))
	citation := citationScore(cand, queryCitations)

	final := weightSemantic*semantic +
		weightKeyword*keyword +
		weightJurisdiction*jurScore +
		weightLawStatus*statusScore +
		weightDocType*docTypeScore

	return SearchResult{
		ChunkID:    cand.id,
		Content:    cand.content,
		Metadata:   cand.metadata,
		FinalScore: final,
		Breakdown: RelevanceBreakdown{
			Semantic:     semantic,
			Keyword:      keyword,
			Jurisdiction: jurScore,
			LawStatus:    statusScore,
			DocType:      docTypeScore,
			Citation:     citation,
		},
		Jurisdiction:  chunkJurisdiction,
		LawStatus:     status,
		CitationChain: legal.AllCitations(cand.content),
	}
}

// keywordScore is the fraction of query tokens appearing in the chunk, plus
// 0.5 per enhanced-synonym token appearing, capped at 1.0.
func keywordScore(enh Enhancement, content string) float64 {
	lowerContent := strings.ToLower(content)
	tokens := queryTokens(enh.Original)
	score := 0.0
	if len(tokens) > 0 {
		hits := 0
		for _, tok := range tokens {
			if strings.Contains(lowerContent, tok) {
				hits++
			}
		}
		score = float64(hits) / float64(len(tokens))
	}
	for _, syn := range enh.Synonyms {
		if legal.ContainsWholePhrase(lowerContent, syn) {
			score += 0.5
		}
	}
	return clamp01(score)
}

func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()")
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}

func resolveJurisdiction(meta vecindex.Metadata, content string) string {
	if j := metadataString(meta, "jurisdiction"); j != "" {
		return j
	}
	return legal.InferJurisdiction(content)
}

func jurisdictionScore(chunkJurisdiction, preferred, content string) float64 {
	if preferred == legal.JurisdictionState && legal.ContainsWisconsinMarker(content) {
		return 1.0
	}
	switch chunkJurisdiction {
	case preferred:
		return 1.0
	case legal.JurisdictionUnknown, "":
		return 0.5
	default:
		return 0.3
	}
}

func resolveLawStatus(meta vecindex.Metadata, content string) string {
	if s := metadataString(meta, "law_status"); s != "" {
		return s
	}
	return legal.InferLawStatus(content)
}

func lawStatusScore(status string) float64 {
	switch status {
	case legal.StatusCurrent:
		return 1.0
	case legal.StatusSuperseded:
		return 0.3
	default:
		return 0.7
	}
}

func documentTypeScore(docType string) float64 {
	switch docType {
	case legal.DocTypeCaseLaw:
		return 1.0
	case legal.DocTypePolicy:
		return 0.8
	case legal.DocTypeTraining:
		return 0.6
	default:
		return 0.5
	}
}

// citationScore is 1.0 for candidates surfaced by a citation-filtered query.
// Otherwise it is the fraction of the query's citation tokens present in
// the chunk; queries with no citation tokens score 1.0 so the confidence
// penalty never fires for citation-free questions.
func citationScore(cand *searchCandidate, queryCitations []string) float64 {
	if cand.citationHit {
		return 1.0
	}
	if len(queryCitations) == 0 {
		return 1.0
	}
	hits := 0
	for _, c := range queryCitations {
		if strings.Contains(cand.content, c) {
			hits++
		}
	}
	return float64(hits) / float64(len(queryCitations))
}

func metadataString(meta vecindex.Metadata, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
