// Package legal holds the shared regular-expression catalog and fixed
// vocabularies for legal entity extraction. The chunker, the context
// assembler, and the cross-reference engine all draw from this single
// catalog so that the same text always yields the same entities.
package legal

import (
	"regexp"
	"strings"
)

var (
	// StatuteNumber matches section-style statute numbers (2.01, 940.19A)
	// and federal code citations (18 U.S.C. 2703).
	StatuteNumber = regexp.MustCompile(`\b\d+\s+U\.S\.C\.\s+\d+\b|\b\d+\.\d+[A-Z]*\b`)

	// CaseCitation matches party-versus-party case names with an optional
	// reporter cite, e.g. "Smith v. Jones, 392 US 1".
	CaseCitation = regexp.MustCompile(`\b[A-Z][A-Za-z]+\s+v\.\s+[A-Z][A-Za-z]+(?:,\s+\d+\s+[A-Z][A-Za-z.]*\s+\d+)?`)

	// Date matches MM/DD/YYYY, YYYY-MM-DD and long-form month dates.
	Date = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b|\b\d{4}-\d{2}-\d{2}\b|\b(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+\d{1,2},?\s+\d{4}\b`)

	// Court matches common court designations.
	Court = regexp.MustCompile(`(?i)\b(?:Supreme Court|Court of Appeals|Appellate Court|District Court|Circuit Court|Municipal Court)\b`)

	// DocketNumber matches case/docket number references.
	DocketNumber = regexp.MustCompile(`(?i)\b(?:Case|Docket)\s+No\.?\s*([A-Z0-9:\-]+)`)

	// PolicyNumber matches agency policy identifiers.
	PolicyNumber = regexp.MustCompile(`(?i)Policy\s+No\.?\s*([A-Z0-9\-]+)`)

	// SeeAlso matches explicit cross-reference pointers to other sections.
	SeeAlso = regexp.MustCompile(`(?i)see\s+also\s+§?\s*(\d+\.\d+)`)

	// SectionHeading matches policy section headings ("1.2 Scope").
	SectionHeading = regexp.MustCompile(`(?m)^(\d+\.\d+)\s+(.+)$`)

	// ModuleHeading matches training module boundaries.
	ModuleHeading = regexp.MustCompile(`(?m)^(Module|Topic|Chapter|Lesson)\s+(\d+)`)

	// AllCapsLine matches heading-style lines used as key terms.
	AllCapsLine = regexp.MustCompile(`(?m)^[A-Z][A-Z\s/&\-]{3,}$`)

	// CaseSectionMarker matches hard boundaries inside judicial opinions,
	// whatever the heading's casing.
	CaseSectionMarker = regexp.MustCompile(`(?mi)^\s*(OPINION|DISSENT|CONCURRENCE)\b`)

	// Location patterns for cross-referencing.
	countyPattern  = regexp.MustCompile(`\b[A-Z][a-z]+ County\b`)
	cityPattern    = regexp.MustCompile(`\b[A-Z][a-z]+ (?:City|Town|Village)\b`)
	addressPattern = regexp.MustCompile(`\b\d+\s+[A-Z][a-z]+\s+(?:Street|St|Avenue|Ave|Road|Rd|Drive|Dr)\b`)
	statePattern   = regexp.MustCompile(`\b(?:Wisconsin|Madison|Milwaukee)\b`)

	// PersonName is a fallback first-last name pattern for when NLP entity
	// recognition yields nothing.
	PersonName = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)
)

// Statutes returns the unique statute numbers found in text, in order of
// first appearance.
func Statutes(text string) []string {
	return uniqueMatches(StatuteNumber.FindAllString(text, -1))
}

// Citations returns the unique case citations found in text.
func Citations(text string) []string {
	return uniqueMatches(CaseCitation.FindAllString(text, -1))
}

// Dates returns the unique date strings found in text.
func Dates(text string) []string {
	return uniqueMatches(Date.FindAllString(text, -1))
}

// Courts returns the unique court designations found in text.
func Courts(text string) []string {
	return uniqueMatches(Court.FindAllString(text, -1))
}

// PolicyNumbers returns the unique policy identifiers found in text.
func PolicyNumbers(text string) []string {
	var out []string
	for _, m := range PolicyNumber.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return uniqueMatches(out)
}

// DocketNumbers returns the unique docket identifiers found in text.
func DocketNumbers(text string) []string {
	var out []string
	for _, m := range DocketNumber.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return uniqueMatches(out)
}

// SeeAlsoSections returns section numbers referenced via "see also"
// pointers, used to grow the citation chain at ingestion.
func SeeAlsoSections(text string) []string {
	var out []string
	for _, m := range SeeAlso.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return uniqueMatches(out)
}

// Locations returns location-like strings (counties, cities, addresses,
// known state markers) found in text.
func Locations(text string) []string {
	var out []string
	out = append(out, countyPattern.FindAllString(text, -1)...)
	out = append(out, cityPattern.FindAllString(text, -1)...)
	out = append(out, addressPattern.FindAllString(text, -1)...)
	out = append(out, statePattern.FindAllString(text, -1)...)
	return uniqueMatches(out)
}

// AllCitations returns statutes and case citations together, the set the
// context assembler feeds into the citation chain.
func AllCitations(text string) []string {
	var out []string
	out = append(out, Statutes(text)...)
	out = append(out, Citations(text)...)
	return uniqueMatches(out)
}

func uniqueMatches(matches []string) []string {
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
