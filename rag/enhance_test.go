package rag

import (
	"strings"
	"testing"
)

func TestEnhanceExpandsAbbreviations(t *testing.T) {
	e := NewEnhancer()

	enh := e.Enhance("What does 4th Am. say about LEO searches?")

	if !strings.Contains(enh.Enhanced, "Fourth Amendment") {
		t.Errorf("Enhanced = %q, want Fourth Amendment expansion", enh.Enhanced)
	}
	if !strings.Contains(enh.Enhanced, "Law Enforcement Officer") {
		t.Errorf("Enhanced = %q, want Law Enforcement Officer expansion", enh.Enhanced)
	}
	if strings.Contains(enh.Enhanced, "4th Am.") {
		t.Errorf("Enhanced = %q, abbreviation should be replaced", enh.Enhanced)
	}
	if len(enh.Abbreviations) != 2 {
		t.Errorf("Abbreviations = %v, want exactly 2 entries", enh.Abbreviations)
	}
	if enh.Abbreviations["LEO"] != "Law Enforcement Officer" {
		t.Errorf("Abbreviations[LEO] = %q", enh.Abbreviations["LEO"])
	}
}

func TestEnhanceCorrectsSpelling(t *testing.T) {
	e := NewEnhancer()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"warrant", "Do I need a warant to enter?", "warrant"},
		{"seizure", "rules for siezure of property", "seizure"},
		{"statute", "which statue covers burglary", "statute"},
		{"subpoena", "serving a subpena on a witness", "subpoena"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enh := e.Enhance(tt.query)
			if !strings.Contains(enh.Corrected, tt.want) {
				t.Errorf("Corrected = %q, want %q present", enh.Corrected, tt.want)
			}
		})
	}
}

func TestEnhanceAddsBoundedSynonyms(t *testing.T) {
	e := NewEnhancer()

	enh := e.Enhance("search warrant evidence privacy arrest")

	if len(enh.Synonyms) > maxSynonymsTotal {
		t.Errorf("added %d synonyms, cap is %d", len(enh.Synonyms), maxSynonymsTotal)
	}
	if len(enh.Synonyms) == 0 {
		t.Error("expected synonyms for common legal terms")
	}
	perTerm := 0
	for _, syn := range legalSynonyms[0].Synonyms {
		for _, added := range enh.Synonyms {
			if added == syn {
				perTerm++
			}
		}
	}
	if perTerm > maxSynonymsPerTerm {
		t.Errorf("%d synonyms added for one term, cap is %d", perTerm, maxSynonymsPerTerm)
	}
}

func TestEnhanceDoesNotMatchSubstrings(t *testing.T) {
	e := NewEnhancer()

	// "LEO" must not fire inside "Leonard"; "statue" must not fire inside
	// "statues" left intact by the word-boundary pattern.
	enh := e.Enhance("Leonard filed the motion")
	if strings.Contains(enh.Enhanced, "Law Enforcement Officer") {
		t.Errorf("Enhanced = %q, LEO should not match inside Leonard", enh.Enhanced)
	}
}

func TestEnhanceIsIdempotent(t *testing.T) {
	e := NewEnhancer()

	once := e.Enhance("After the arrest, can a LEO begin an interrogation without counsel?")
	twice := e.Enhance(once.Enhanced)

	if twice.Enhanced != once.Enhanced {
		t.Errorf("re-enhancing changed the query:\nonce:  %q\ntwice: %q", once.Enhanced, twice.Enhanced)
	}
	if len(twice.Abbreviations) != 0 {
		t.Errorf("re-enhancing expanded abbreviations again: %v", twice.Abbreviations)
	}
}

func TestEnhanceRecordsOriginal(t *testing.T) {
	e := NewEnhancer()

	query := "What is the legal basis for a traffic stop?"
	enh := e.Enhance(query)
	if enh.Original != query {
		t.Errorf("Original = %q, want %q", enh.Original, query)
	}
}
