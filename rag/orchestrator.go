package rag

import (
	"context"
	"fmt"
	"strings"

	"legal-rag/errors"
	"legal-rag/legal"
	"legal-rag/prompts"

	"go.uber.org/zap"
)

// Generator is the LLM surface the orchestrator needs. CompleteStream
// delivers at most one error on the error channel after the token channel
// closes; both channels close when the stream ends.
type Generator interface {
	Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error)
	CompleteStream(ctx context.Context, prompt string, maxTokens int, temperature float64) (<-chan string, <-chan error, error)
}

// SourceDocument summarizes one retrieved chunk for answer metadata.
type SourceDocument struct {
	ChunkID      string  `json:"chunk_id"`
	FileName     string  `json:"file_name,omitempty"`
	DocumentType string  `json:"document_type,omitempty"`
	Jurisdiction string  `json:"jurisdiction"`
	LawStatus    string  `json:"law_status"`
	Score        float64 `json:"score"`
}

// AnswerMetadata carries the retrieval detail behind an answer. It is only
// populated when the caller asks for it.
type AnswerMetadata struct {
	SourceDocuments    []SourceDocument     `json:"source_documents"`
	CitationChain      []string             `json:"citation_chain"`
	RelevanceBreakdown []RelevanceBreakdown `json:"relevance_breakdown"`
	EnhancedQuery      Enhancement          `json:"enhanced_query"`
}

// Answer is the orchestrator's full response to one question.
type Answer struct {
	Answer         string          `json:"answer"`
	Confidence     float64         `json:"confidence_score"`
	SafetyWarnings []string        `json:"safety_warnings"`
	Flags          SafetyFlags     `json:"flags"`
	Metadata       *AnswerMetadata `json:"metadata,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// StreamEvent is one item on an answer stream. Every stream ends with
// exactly one terminal event, type "complete" or "error".
type StreamEvent struct {
	Type    string  `json:"type"`
	Content string  `json:"content,omitempty"`
	Answer  *Answer `json:"answer,omitempty"`
	Error   string  `json:"error,omitempty"`
}

const (
	StreamContent  = "content"
	StreamComplete = "complete"
	StreamError    = "error"
)

// Orchestrator runs the question pipeline: enhance, search, assemble,
// generate, evaluate.
type Orchestrator struct {
	enhancer  *Enhancer
	searcher  *HybridSearcher
	assembler *Assembler
	evaluator *SafetyEvaluator
	history   *History
	generator Generator

	topK        int
	maxTokens   int
	temperature float64
	logger      *zap.Logger
}

func NewOrchestrator(searcher *HybridSearcher, assembler *Assembler, generator Generator, topK, maxTokens int, temperature float64, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		enhancer:    NewEnhancer(),
		searcher:    searcher,
		assembler:   assembler,
		evaluator:   NewSafetyEvaluator(),
		history:     NewHistory(),
		generator:   generator,
		topK:        topK,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

func (o *Orchestrator) History() *History { return o.history }

// Ask answers a question synchronously. Retrieval failures are returned as
// errors; generation failures produce a degraded answer with the error field
// set so the retrieval work is not lost.
func (o *Orchestrator) Ask(ctx context.Context, question, jurisdiction string, includeMetadata bool) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.WrapError(errors.ErrInvalidInput, "question is empty")
	}

	prep, err := o.prepare(ctx, question, jurisdiction)
	if err != nil {
		return nil, err
	}

	text, err := o.generator.Complete(ctx, prep.prompt, o.maxTokens, o.temperature)
	if err != nil {
		o.logger.Error("Answer generation failed", zap.Error(err))
		ans := o.finish(question, "", prep, includeMetadata)
		degradeAnswer(ans)
		return ans, nil
	}

	ans := o.finish(question, text, prep, includeMetadata)
	o.history.Add(question, text)
	return ans, nil
}

// AskStream answers a question as a stream of content deltas followed by a
// terminal event carrying the full answer.
func (o *Orchestrator) AskStream(ctx context.Context, question, jurisdiction string, includeMetadata bool) (<-chan StreamEvent, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, errors.WrapError(errors.ErrInvalidInput, "question is empty")
	}

	prep, err := o.prepare(ctx, question, jurisdiction)
	if err != nil {
		return nil, err
	}

	tokens, genErrs, err := o.generator.CompleteStream(ctx, prep.prompt, o.maxTokens, o.temperature)
	if err != nil {
		return nil, err
	}

	events := make(chan StreamEvent)
	go func() {
		defer close(events)
		var full strings.Builder
		for tok := range tokens {
			full.WriteString(tok)
			select {
			case events <- StreamEvent{Type: StreamContent, Content: tok}:
			case <-ctx.Done():
				offerEvent(events, StreamEvent{Type: StreamError, Error: ctx.Err().Error()})
				return
			}
		}
		if ctx.Err() != nil {
			offerEvent(events, StreamEvent{Type: StreamError, Error: ctx.Err().Error()})
			return
		}
		if genErr := <-genErrs; genErr != nil {
			o.logger.Error("Answer generation failed", zap.Error(genErr))
			ans := o.finish(question, "", prep, includeMetadata)
			degradeAnswer(ans)
			select {
			case events <- StreamEvent{Type: StreamComplete, Answer: ans}:
			case <-ctx.Done():
			}
			return
		}
		text := full.String()
		ans := o.finish(question, text, prep, includeMetadata)
		o.history.Add(question, text)
		select {
		case events <- StreamEvent{Type: StreamComplete, Answer: ans}:
		case <-ctx.Done():
		}
	}()
	return events, nil
}

// offerEvent attempts a terminal send after cancellation. The consumer stops
// reading once its context ends, so the send must not block.
func offerEvent(events chan<- StreamEvent, ev StreamEvent) {
	select {
	case events <- ev:
	default:
	}
}

// degradeAnswer marks an answer whose generation failed: zero confidence,
// the low-confidence flag, and the failure surfaced in the diagnostic field.
// Warnings are recomputed so the low-confidence warning accompanies the
// flag.
func degradeAnswer(ans *Answer) {
	ans.Confidence = 0
	ans.Flags.LowConfidence = true
	ans.SafetyWarnings = warnings(ans.Flags)
	ans.Error = "answer generation failed"
}

type prepared struct {
	enhancement Enhancement
	results     []SearchResult
	chainCits   []string
	prompt      string
}

func (o *Orchestrator) prepare(ctx context.Context, question, jurisdiction string) (*prepared, error) {
	enh := o.enhancer.Enhance(question)
	results, err := o.searcher.Search(ctx, enh, jurisdiction, o.topK)
	if err != nil {
		return nil, errors.WrapError(err, "search failed")
	}

	contextText, chainCits := o.assembler.Assemble(results)
	template := o.selectTemplate(question)
	prompt := prompts.Render(template, prompts.Vars{
		Context:       contextText,
		SearchMetrics: searchMetrics(results),
		ChatHistory:   o.history.Render(),
		Question:      question,
	})

	return &prepared{
		enhancement: enh,
		results:     results,
		chainCits:   chainCits,
		prompt:      prompt,
	}, nil
}

var citationKeywords = []string{
	"cite", "citation", "statute", "case", "authority",
	"legal basis", "what law", "which law",
}

var followUpOpeners = []string{
	"also", "additionally", "furthermore", "moreover",
	"what about", "how about", "and", "but",
}

// selectTemplate picks the prompt template. Citation-seeking questions win
// over follow-up detection; follow-up detection requires prior exchanges.
func (o *Orchestrator) selectTemplate(question string) string {
	lower := strings.ToLower(question)
	for _, kw := range citationKeywords {
		if legal.ContainsWholePhrase(lower, kw) {
			return prompts.CitationSummary()
		}
	}
	if o.history.Len() > 0 {
		for _, opener := range followUpOpeners {
			if hasOpener(lower, opener) {
				return prompts.FollowUp()
			}
		}
	}
	return prompts.LegalQA()
}

// hasOpener reports whether the question starts with the opener as a whole
// word, tolerating trailing punctuation like "Also," or "But:".
func hasOpener(lower, opener string) bool {
	if !strings.HasPrefix(lower, opener) {
		return false
	}
	rest := lower[len(opener):]
	if rest == "" {
		return true
	}
	switch rest[0] {
	case ' ', ',', ':', ';', '-':
		return true
	}
	return false
}

func (o *Orchestrator) finish(question, text string, prep *prepared, includeMetadata bool) *Answer {
	report := o.evaluator.Evaluate(question, prep.results)
	ans := &Answer{
		Answer:         text,
		Confidence:     report.Confidence,
		SafetyWarnings: report.Warnings,
		Flags:          report.Flags,
	}
	if includeMetadata {
		meta := &AnswerMetadata{
			CitationChain: prep.chainCits,
			EnhancedQuery: prep.enhancement,
		}
		for _, res := range prep.results {
			meta.SourceDocuments = append(meta.SourceDocuments, SourceDocument{
				ChunkID:      res.ChunkID,
				FileName:     metadataString(res.Metadata, "file_name"),
				DocumentType: metadataString(res.Metadata, "document_type"),
				Jurisdiction: res.Jurisdiction,
				LawStatus:    res.LawStatus,
				Score:        res.FinalScore,
			})
			meta.RelevanceBreakdown = append(meta.RelevanceBreakdown, res.Breakdown)
		}
		ans.Metadata = meta
	}
	return ans
}

func searchMetrics(results []SearchResult) string {
	if len(results) == 0 {
		return "No documents retrieved."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d documents retrieved.\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&b, "Source %d: score %.2f (semantic %.2f, keyword %.2f)\n",
			i+1, r.FinalScore, r.Breakdown.Semantic, r.Breakdown.Keyword)
	}
	return b.String()
}
