// Package chunk splits document text into overlap-bounded, hierarchy-aware
// chunks with per-chunk legal metadata. The strategy is picked by document
// type; callers that do not know the type get keyword/pattern detection.
package chunk

import (
	"fmt"
	"strings"

	"legal-rag/legal"

	"go.uber.org/zap"
)

// Metadata holds per-chunk extracted fields. Values are strings or ordered
// string slices so they serialize directly into the vector-store grammar.
type Metadata map[string]any

// Chunk is one contiguous passage of a source document.
type Chunk struct {
	ID       string   `json:"id"`
	Ordinal  int      `json:"ordinal"`
	Content  string   `json:"content"`
	Start    int      `json:"start"`
	End      int      `json:"end"`
	Class    string   `json:"class"`
	Metadata Metadata `json:"metadata"`
}

// Chunk classes, one per strategy.
const (
	ClassCaseLawSection = "case_law_section"
	ClassPolicySection  = "policy_section"
	ClassTrainingModule = "training_module"
	ClassGeneral        = "general"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200

	// detectionWindow bounds how much of the document the type detector reads.
	detectionWindow = 2000
)

type Chunker struct {
	size     int
	overlap  int
	splitter SentenceSplitter
	logger   *zap.Logger
}

func NewChunker(size, overlap int, logger *zap.Logger) *Chunker {
	if size <= 0 {
		size = DefaultSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
	}
	return &Chunker{
		size:     size,
		overlap:  overlap,
		splitter: NewProseSentenceSplitter(logger),
		logger:   logger,
	}
}

// Chunk splits text for the given document, dispatching on docType. An
// empty docType triggers detection. Ordinals are dense from zero and chunk
// ids are derived from the document id.
func (c *Chunker) Chunk(docID, text, docType string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no text to chunk for document %s", docID)
	}
	if docType == "" {
		docType = DetectDocumentType(text)
	}

	var chunks []Chunk
	switch docType {
	case legal.DocTypeCaseLaw:
		chunks = c.chunkCaseLaw(text)
	case legal.DocTypePolicy:
		chunks = c.chunkPolicy(text)
	case legal.DocTypeTraining:
		chunks = c.chunkTraining(text)
	default:
		chunks = c.chunkGeneral(text)
	}

	out := chunks[:0]
	for _, ch := range chunks {
		if strings.TrimSpace(ch.Content) == "" {
			continue
		}
		ch.Ordinal = len(out)
		ch.ID = fmt.Sprintf("%s_%d", docID, ch.Ordinal)
		out = append(out, ch)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chunking produced no content for document %s", docID)
	}
	return out, nil
}

// typeSignals holds the keyword and pattern lists the detector scores
// against. Keyword hits score 1, pattern hits 2; highest non-zero wins and
// ties break in declaration order.
type typeSignals struct {
	docType  string
	keywords []string
	patterns []string
}

var detectionSignals = []typeSignals{
	{
		docType: legal.DocTypeCaseLaw,
		keywords: []string{
			"court", "judge", "plaintiff", "defendant", "appellant",
			"appellee", "opinion", "ruling", "judgment", "verdict",
		},
		patterns: []string{" v. ", "case no", "docket no", "dissent", "concurrence"},
	},
	{
		docType: legal.DocTypePolicy,
		keywords: []string{
			"policy", "procedure", "regulation", "directive", "guideline",
			"protocol", "standard", "compliance",
		},
		patterns: []string{"policy no", "effective date", "1.1 ", "2.1 "},
	},
	{
		docType: legal.DocTypeTraining,
		keywords: []string{
			"training", "module", "lesson", "course", "curriculum",
			"learning", "objective", "instructor",
		},
		patterns: []string{"module 1", "lesson 1", "learning objectives", "key terms"},
	},
}

// DetectDocumentType scores the opening window of the text against each
// type's keyword and pattern lists. All-zero scores fall back to general.
func DetectDocumentType(text string) string {
	window := text
	if len(window) > detectionWindow {
		window = window[:detectionWindow]
	}
	lower := strings.ToLower(window)

	best := legal.DocTypeGeneral
	bestScore := 0
	for _, sig := range detectionSignals {
		score := 0
		for _, kw := range sig.keywords {
			if strings.Contains(lower, kw) {
				score++
			}
		}
		for _, p := range sig.patterns {
			if strings.Contains(lower, p) {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			best = sig.docType
		}
	}
	return best
}

// locate finds content's span in the source starting at the cursor. Chunk
// content is contiguous source text except for re-joined separators, so a
// miss falls back to the cursor position.
func locate(text, content string, cursor int) (int, int) {
	if cursor > len(text) {
		cursor = len(text)
	}
	probe := content
	if len(probe) > 80 {
		probe = probe[:80]
	}
	if idx := strings.Index(text[cursor:], probe); idx >= 0 {
		start := cursor + idx
		end := start + len(content)
		if end > len(text) {
			end = len(text)
		}
		return start, end
	}
	end := cursor + len(content)
	if end > len(text) {
		end = len(text)
	}
	return cursor, end
}
