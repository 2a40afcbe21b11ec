package rag

import (
	"regexp"
	"strings"

	"legal-rag/legal"
)

// Enhancement records every transform applied to a query: abbreviation
// expansion, spell correction, then synonym addition, each acting on the
// output of the previous.
type Enhancement struct {
	Original      string            `json:"original"`
	Corrected     string            `json:"corrected"`
	Abbreviations map[string]string `json:"expanded_abbreviations"`
	Synonyms      []string          `json:"added_synonyms"`
	Enhanced      string            `json:"enhanced"`
}

type Enhancer struct {
	abbrevPatterns   []*regexp.Regexp
	misspellPatterns []*regexp.Regexp
}

func NewEnhancer() *Enhancer {
	e := &Enhancer{}
	for _, a := range legalAbbreviations {
		e.abbrevPatterns = append(e.abbrevPatterns, wholeWordPattern(a.Abbr))
	}
	for _, m := range legalMisspellings {
		e.misspellPatterns = append(e.misspellPatterns, wholeWordPattern(m.Wrong))
	}
	return e
}

// wholeWordPattern matches token with a boundary on each side. Plain \b does
// not work for abbreviations ending in a period, so boundaries are spelled
// out as start/end-of-string or non-word characters.
func wholeWordPattern(token string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(^|[\s("'])` + regexp.QuoteMeta(token) + `($|[\s)"'.,;:?!])`)
}

// Enhance runs the three transforms in order and returns the full record.
// Enhancing an already-enhanced query is a no-op: expansions replace their
// abbreviations and synonyms already present are never re-added.
func (e *Enhancer) Enhance(query string) Enhancement {
	enh := Enhancement{
		Original:      query,
		Abbreviations: make(map[string]string),
	}

	// 1. Abbreviation expansion
	expanded := query
	for i, a := range legalAbbreviations {
		pattern := e.abbrevPatterns[i]
		if !pattern.MatchString(expanded) {
			continue
		}
		expanded = pattern.ReplaceAllString(expanded, "${1}"+a.Expansion+"${2}")
		enh.Abbreviations[a.Abbr] = a.Expansion
	}

	// 2. Spell correction
	corrected := expanded
	for i, m := range legalMisspellings {
		pattern := e.misspellPatterns[i]
		if !pattern.MatchString(corrected) {
			continue
		}
		corrected = pattern.ReplaceAllString(corrected, "${1}"+m.Right+"${2}")
	}
	enh.Corrected = corrected

	// 3. Synonym addition, bounded per term and in total. A term whose
	// synonyms already appear in the query was enhanced before and is
	// skipped wholesale, which keeps re-enhancement from expanding again.
	enhanced := corrected
	lowerCorrected := strings.ToLower(corrected)
	for _, entry := range legalSynonyms {
		if len(enh.Synonyms) >= maxSynonymsTotal {
			break
		}
		if !legal.ContainsWholePhrase(lowerCorrected, entry.Term) {
			continue
		}
		if anySynonymPresent(lowerCorrected, entry.Synonyms) {
			continue
		}
		added := 0
		for _, syn := range entry.Synonyms {
			if added >= maxSynonymsPerTerm || len(enh.Synonyms) >= maxSynonymsTotal {
				break
			}
			if legal.ContainsWholePhrase(strings.ToLower(enhanced), syn) {
				continue
			}
			enhanced += " " + syn
			enh.Synonyms = append(enh.Synonyms, syn)
			added++
		}
	}

	enh.Enhanced = enhanced
	return enh
}

func anySynonymPresent(lowerQuery string, synonyms []string) bool {
	for _, syn := range synonyms {
		if legal.ContainsWholePhrase(lowerQuery, syn) {
			return true
		}
	}
	return false
}
