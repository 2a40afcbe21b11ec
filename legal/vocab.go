package legal

import "strings"

// Jurisdiction and law-status tags attached to chunks and answers.
const (
	JurisdictionFederal = "federal"
	JurisdictionState   = "state"
	JurisdictionUnknown = "unknown"

	StatusCurrent    = "current"
	StatusSuperseded = "superseded"
	StatusPending    = "pending"
)

// Document types recognized by the chunker.
const (
	DocTypeCaseLaw  = "case_law"
	DocTypePolicy   = "policy"
	DocTypeTraining = "training"
	DocTypeGeneral  = "general"
)

// wisconsinMarkers take priority over federal markers when inferring a
// chunk's jurisdiction from content.
var wisconsinMarkers = []string{
	"wisconsin", "wis.", "wis ", "madison", "milwaukee", "dane county",
	"state statute", "state law",
}

var federalMarkers = []string{
	"u.s.c.", "usc", "federal", "united states", "supreme court",
	"constitution", "cfr", "congress",
}

// supersededMarkers and pendingMarkers drive the lexical law-status rule.
// The rule is deliberately data so it can be refined without touching the
// scorer: a chunk mentioning "amended" is tagged superseded even when the
// amendment targets another statute.
var supersededMarkers = []string{"superseded", "repealed", "amended", "replaced"}
var pendingMarkers = []string{"pending", "proposed", "draft"}

// UseOfForceKeywords flag questions that touch use-of-force topics.
var UseOfForceKeywords = []string{
	"use of force", "deadly force", "lethal force", "shooting", "firearm",
	"weapon", "assault", "battery", "self-defense", "defense of others",
	"reasonable force", "excessive force", "police shooting", "officer involved",
}

// Keywords is the fixed legal-term vocabulary the cross-reference engine
// matches against document text.
var Keywords = []string{
	"domestic violence", "traffic stop", "dui", "assault", "theft",
	"burglary", "drug possession", "weapon", "firearm", "miranda",
	"search warrant", "probable cause", "reasonable suspicion",
	"use of force", "excessive force", "civil rights", "discrimination",
	"county", "counties", "boundaries", "statutes", "laws", "training",
	"procedures", "policies", "enforcement", "officer", "police",
}

// InferJurisdiction derives a jurisdiction tag from chunk content. The
// Wisconsin token set takes priority over the federal set.
func InferJurisdiction(content string) string {
	lower := strings.ToLower(content)
	for _, marker := range wisconsinMarkers {
		if strings.Contains(lower, marker) {
			return JurisdictionState
		}
	}
	for _, marker := range federalMarkers {
		if strings.Contains(lower, marker) {
			return JurisdictionFederal
		}
	}
	return JurisdictionUnknown
}

// InferLawStatus derives a law-status tag from marker tokens in content.
func InferLawStatus(content string) string {
	lower := strings.ToLower(content)
	for _, marker := range supersededMarkers {
		if strings.Contains(lower, marker) {
			return StatusSuperseded
		}
	}
	for _, marker := range pendingMarkers {
		if strings.Contains(lower, marker) {
			return StatusPending
		}
	}
	return StatusCurrent
}

// ContainsWisconsinMarker reports whether content carries an explicit
// Wisconsin marker, used for the state-jurisdiction scoring bonus.
func ContainsWisconsinMarker(content string) bool {
	lower := strings.ToLower(content)
	for _, marker := range wisconsinMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// MatchesUseOfForce reports whether the question contains any use-of-force
// keyword as a whole word or phrase.
func MatchesUseOfForce(question string) bool {
	lower := " " + strings.ToLower(question) + " "
	for _, kw := range UseOfForceKeywords {
		if ContainsWholePhrase(lower, kw) {
			return true
		}
	}
	return false
}

// ContainsWholePhrase checks if phrase occurs in text on word boundaries
// (punctuation counts as a boundary).
func ContainsWholePhrase(text, phrase string) bool {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return false
	}
	lower := strings.ToLower(text)
	idx := 0
	for {
		pos := strings.Index(lower[idx:], phrase)
		if pos < 0 {
			return false
		}
		pos += idx
		beforeOK := pos == 0 || isBoundary(rune(lower[pos-1]))
		afterIdx := pos + len(phrase)
		afterOK := afterIdx >= len(lower) || isBoundary(rune(lower[afterIdx]))
		if beforeOK && afterOK {
			return true
		}
		idx = pos + 1
	}
}

func isBoundary(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '.', ',', '!', '?', ':', ';', '(', ')', '"', '\'':
		return true
	}
	return false
}
