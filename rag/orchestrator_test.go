package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"legal-rag/legal"
	"legal-rag/prompts"
	"legal-rag/vecindex"

	"go.uber.org/zap"
)

type stubGenerator struct {
	answer     string
	err        error
	streamed   []string
	streamErr  error // returned synchronously from CompleteStream
	streamFail error // delivered on the error channel after the tokens
}

func (s *stubGenerator) Complete(ctx context.Context, prompt string, maxTokens int, temperature float64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.answer, nil
}

func (s *stubGenerator) CompleteStream(ctx context.Context, prompt string, maxTokens int, temperature float64) (<-chan string, <-chan error, error) {
	if s.streamErr != nil {
		return nil, nil, s.streamErr
	}
	out := make(chan string)
	errc := make(chan error, 1)
	go func() {
		defer close(errc)
		defer close(out)
		for _, tok := range s.streamed {
			select {
			case out <- tok:
			case <-ctx.Done():
				return
			}
		}
		if s.streamFail != nil {
			errc <- s.streamFail
		}
	}()
	return out, errc, nil
}

func testOrchestrator(t *testing.T, gen Generator) *Orchestrator {
	t.Helper()
	index := vecindex.NewMemoryIndex(3)
	if err := index.Upsert(context.Background(), []vecindex.Item{{
		ID:     "doc_0",
		Values: []float32{1, 0, 0},
		Metadata: vecindex.Metadata{
			"content":       "Statute 968.12 governs the issuance of search warrants.",
			"document_type": legal.DocTypeCaseLaw,
			"jurisdiction":  legal.JurisdictionFederal,
			"law_status":    legal.StatusCurrent,
		},
	}}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	searcher := NewHybridSearcher(index, stubEmbedder{vec: []float32{1, 0, 0}}, zap.NewNop())
	assembler := NewAssembler(NewCitationChain(), 4000)
	return NewOrchestrator(searcher, assembler, gen, 5, 512, 0.1, zap.NewNop())
}

func TestAskReturnsAnswerWithMetadata(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{answer: "A warrant is required under 968.12."})

	ans, err := o.Ask(context.Background(), "When is a search warrant required?", "", true)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if ans.Answer == "" {
		t.Error("answer is empty")
	}
	if ans.Metadata == nil {
		t.Fatal("metadata requested but missing")
	}
	if len(ans.Metadata.SourceDocuments) == 0 {
		t.Error("metadata missing source documents")
	}
	if ans.Metadata.EnhancedQuery.Original == "" {
		t.Error("metadata missing enhancement record")
	}
	if o.History().Len() != 1 {
		t.Errorf("history length = %d, want 1", o.History().Len())
	}
}

func TestAskRejectsEmptyQuestion(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{answer: "x"})
	if _, err := o.Ask(context.Background(), "   ", "", false); err == nil {
		t.Error("Ask() with blank question should fail")
	}
}

func TestAskDegradesOnGeneratorFailure(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{err: errors.New("llm unreachable")})

	ans, err := o.Ask(context.Background(), "When is a warrant required?", "", false)
	if err != nil {
		t.Fatalf("generator failure should not be an Ask error, got %v", err)
	}
	if ans.Answer != "" {
		t.Errorf("degraded answer should be empty, got %q", ans.Answer)
	}
	if ans.Confidence != 0 {
		t.Errorf("degraded confidence = %v, want 0", ans.Confidence)
	}
	if !ans.Flags.LowConfidence {
		t.Error("degraded answer should carry the low-confidence flag")
	}
	if ans.Error == "" {
		t.Error("degraded answer should surface the failure")
	}
	if o.History().Len() != 0 {
		t.Error("failed generations must not enter the history")
	}
}

func TestAskStreamEndsWithSingleTerminalEvent(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{streamed: []string{"A warrant ", "is required."}})

	events, err := o.AskStream(context.Background(), "When is a warrant required?", "", false)
	if err != nil {
		t.Fatalf("AskStream() error = %v", err)
	}

	var content strings.Builder
	terminals := 0
	var last StreamEvent
	for ev := range events {
		switch ev.Type {
		case StreamContent:
			content.WriteString(ev.Content)
		case StreamComplete, StreamError:
			terminals++
			last = ev
		}
	}

	if terminals != 1 {
		t.Fatalf("stream produced %d terminal events, want exactly 1", terminals)
	}
	if last.Type != StreamComplete {
		t.Fatalf("terminal event type = %s, want %s", last.Type, StreamComplete)
	}
	if last.Answer == nil || last.Answer.Answer != "A warrant is required." {
		t.Errorf("terminal answer = %+v, want assembled text", last.Answer)
	}
	if content.String() != "A warrant is required." {
		t.Errorf("streamed content = %q", content.String())
	}
	if o.History().Len() != 1 {
		t.Errorf("history length = %d, want 1", o.History().Len())
	}
}

func TestAskStreamDegradesOnGeneratorFailure(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{streamFail: errors.New("stream broke")})

	events, err := o.AskStream(context.Background(), "When is a warrant required?", "", false)
	if err != nil {
		t.Fatalf("AskStream() error = %v", err)
	}

	var last StreamEvent
	terminals := 0
	for ev := range events {
		if ev.Type == StreamComplete || ev.Type == StreamError {
			terminals++
			last = ev
		}
	}
	if terminals != 1 {
		t.Fatalf("stream produced %d terminal events, want exactly 1", terminals)
	}
	if last.Type != StreamComplete || last.Answer == nil {
		t.Fatalf("terminal event = %+v, want a complete event carrying an answer", last)
	}
	if last.Answer.Confidence != 0 {
		t.Errorf("degraded confidence = %v, want 0", last.Answer.Confidence)
	}
	if !last.Answer.Flags.LowConfidence {
		t.Error("degraded answer should carry the low-confidence flag")
	}
	if last.Answer.Error == "" {
		t.Error("degraded answer should surface the failure")
	}
	if o.History().Len() != 0 {
		t.Error("failed generations must not enter the history")
	}
}

func TestAskStreamReleasesAfterCancel(t *testing.T) {
	tokens := make([]string, 64)
	for i := range tokens {
		tokens[i] = "word "
	}
	o := testOrchestrator(t, &stubGenerator{streamed: tokens})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, err := o.AskStream(ctx, "When is a warrant required?", "", false)
	if err != nil {
		t.Fatalf("AskStream() error = %v", err)
	}

	<-events
	cancel()

	// With no reader left, the producer must wind down on its own instead of
	// blocking on a terminal send.
	time.Sleep(100 * time.Millisecond)
	select {
	case _, ok := <-events:
		if ok {
			t.Fatal("event delivered after cancellation with no reader")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancellation")
	}
	if o.History().Len() != 0 {
		t.Error("cancelled streams must not enter the history")
	}
}

func TestDegradedAnswerCarriesLowConfidenceWarning(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{err: errors.New("llm unreachable")})

	ans, err := o.Ask(context.Background(), "When is a warrant required?", "", false)
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	found := false
	for _, w := range ans.SafetyWarnings {
		if strings.Contains(w, "confidence is low") {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings = %v, want the low-confidence warning alongside the flag", ans.SafetyWarnings)
	}
}

func TestSelectTemplate(t *testing.T) {
	o := testOrchestrator(t, &stubGenerator{answer: "x"})

	tests := []struct {
		name     string
		question string
		history  bool
		want     string
	}{
		{"citation_keyword", "What statute covers burglary?", false, prompts.CitationSummary()},
		{"citation_phrase", "What is the legal basis for the stop?", false, prompts.CitationSummary()},
		{"follow_up_with_history", "Also, does it apply at night?", true, prompts.FollowUp()},
		{"follow_up_without_history", "Also, does it apply at night?", false, prompts.LegalQA()},
		{"general", "When may an officer frisk a suspect?", false, prompts.LegalQA()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o.History().Clear()
			if tt.history {
				o.History().Add("prior question", "prior answer")
			}
			got := o.selectTemplate(tt.question)
			if got != tt.want {
				t.Errorf("selectTemplate(%q) picked the wrong template", tt.question)
			}
		})
	}
}

func TestHistoryBounded(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 15; i++ {
		h.Add("q", "a")
	}
	if h.Len() != historyLimit {
		t.Errorf("history length = %d, want %d", h.Len(), historyLimit)
	}

	h.Clear()
	if h.Len() != 0 {
		t.Errorf("history length after Clear = %d, want 0", h.Len())
	}
	if h.Render() != "No prior conversation." {
		t.Errorf("empty history render = %q", h.Render())
	}
}

func TestHistoryDropsOldestFirst(t *testing.T) {
	h := NewHistory()
	for i := 0; i < historyLimit+2; i++ {
		h.Add(strings.Repeat("x", i+1), "a")
	}
	recent := h.Recent(historyLimit)
	if len(recent) != historyLimit {
		t.Fatalf("Recent() = %d exchanges, want %d", len(recent), historyLimit)
	}
	// The first two questions ("x", "xx") must have been evicted.
	if len(recent[0].Question) != 3 {
		t.Errorf("oldest surviving question = %q, want xxx", recent[0].Question)
	}
}
