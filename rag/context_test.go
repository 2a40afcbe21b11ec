package rag

import (
	"strings"
	"testing"
)

func TestAssembleNeverExceedsBudget(t *testing.T) {
	chain := NewCitationChain()
	assembler := NewAssembler(chain, 500)

	long := strings.Repeat("The officer must document the stop in detail. ", 30)
	results := []SearchResult{
		{ChunkID: "a_0", Content: long, FinalScore: 0.9, Jurisdiction: "federal", LawStatus: "current"},
		{ChunkID: "a_1", Content: long, FinalScore: 0.8, Jurisdiction: "federal", LawStatus: "current"},
		{ChunkID: "a_2", Content: long, FinalScore: 0.7, Jurisdiction: "federal", LawStatus: "current"},
	}

	text, _ := assembler.Assemble(results)
	if len(text) > 500 {
		t.Errorf("assembled context is %d chars, budget is 500", len(text))
	}
}

func TestAssembleTruncatesWithEllipsis(t *testing.T) {
	chain := NewCitationChain()
	assembler := NewAssembler(chain, 400)

	long := strings.Repeat("Probable cause must be articulated in the report. ", 20)
	text, _ := assembler.Assemble([]SearchResult{
		{ChunkID: "b_0", Content: long, FinalScore: 0.9, Jurisdiction: "federal", LawStatus: "current"},
	})

	if !strings.HasSuffix(text, "...") {
		t.Errorf("truncated context should end with ellipsis, got %q", text[max(0, len(text)-40):])
	}
	if len(text) > 400 {
		t.Errorf("context is %d chars, budget is 400", len(text))
	}
}

func TestAssembleIncludesSourceHeaders(t *testing.T) {
	chain := NewCitationChain()
	assembler := NewAssembler(chain, 4000)

	text, _ := assembler.Assemble([]SearchResult{
		{
			ChunkID:      "c_0",
			Content:      "Statute 968.12 governs search warrants.",
			FinalScore:   0.91,
			Jurisdiction: "state",
			LawStatus:    "current",
		},
	})

	if !strings.Contains(text, "[Source 1:") {
		t.Errorf("context missing source header: %q", text)
	}
	if !strings.Contains(text, "state") || !strings.Contains(text, "current") {
		t.Errorf("source header should carry jurisdiction and status: %q", text)
	}
}

func TestCitationChainExpansion(t *testing.T) {
	chain := NewCitationChain()
	chain.Record("Section 968.12 applies. See also § 968.13 for no-knock warrants.")
	chain.Record("Section 968.13 is interpreted in State v. Henes, 992 NW 2d 1.")

	related := chain.Expand([]string{"968.12"}, 3)

	if !containsString(related, "968.13") {
		t.Errorf("expansion from 968.12 should reach 968.13, got %v", related)
	}
	for _, r := range related {
		if r == "968.12" {
			t.Error("expansion must not include the seed citation")
		}
	}
}

func TestCitationChainDepthBound(t *testing.T) {
	chain := NewCitationChain()
	// 1.1 -> 1.2 -> 1.3 -> 1.4 -> 1.5 via see-also links
	chain.Record("Section 1.1 applies. See also § 1.2.")
	chain.Record("Section 1.2 applies. See also § 1.3.")
	chain.Record("Section 1.3 applies. See also § 1.4.")
	chain.Record("Section 1.4 applies. See also § 1.5.")

	related := chain.Expand([]string{"1.1"}, 3)
	if containsString(related, "1.5") {
		t.Errorf("depth-3 expansion should not reach 1.5, got %v", related)
	}
	if !containsString(related, "1.2") {
		t.Errorf("depth-3 expansion should reach 1.2, got %v", related)
	}
}

func TestAssembleRelatedCitationsFooter(t *testing.T) {
	chain := NewCitationChain()
	chain.Record("Statute 940.19 and statute 940.20 appear together in the charging manual.")

	assembler := NewAssembler(chain, 4000)
	text, expanded := assembler.Assemble([]SearchResult{
		{
			ChunkID:       "d_0",
			Content:       "Battery under 940.19 is charged frequently.",
			FinalScore:    0.88,
			Jurisdiction:  "state",
			LawStatus:     "current",
			CitationChain: []string{"940.19"},
		},
	})

	if !containsString(expanded, "940.20") {
		t.Errorf("expected 940.20 in expanded citations, got %v", expanded)
	}
	if !strings.Contains(text, "Related Citations:") {
		t.Errorf("context missing related-citations footer: %q", text)
	}
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
