package crossref

import (
	"strings"

	"legal-rag/legal"

	"github.com/jdkato/prose/v2"
)

// Entities is the five-category bag extracted from one document.
type Entities struct {
	Locations []string `json:"locations"`
	Citations []string `json:"citations"`
	Dates     []string `json:"dates"`
	Names     []string `json:"names"`
	Keywords  []string `json:"keywords"`
}

// Empty reports whether no category has any entries.
func (e Entities) Empty() bool {
	return len(e.Locations) == 0 && len(e.Citations) == 0 &&
		len(e.Dates) == 0 && len(e.Names) == 0 && len(e.Keywords) == 0
}

// ExtractEntities pulls locations, citations, dates, names, and vocabulary
// keywords out of text. Names come from NLP entity recognition with a regex
// fallback when the model finds nothing.
func ExtractEntities(text string) Entities {
	return Entities{
		Locations: legal.Locations(text),
		Citations: legal.AllCitations(text),
		Dates:     legal.Dates(text),
		Names:     extractNames(text),
		Keywords:  extractKeywords(text),
	}
}

func extractNames(text string) []string {
	var names []string
	doc, err := prose.NewDocument(text)
	if err == nil {
		for _, ent := range doc.Entities() {
			if ent.Label == "PERSON" {
				names = append(names, ent.Text)
			}
		}
	}
	if len(names) == 0 {
		names = legal.PersonName.FindAllString(text, -1)
	}
	return unique(names)
}

func extractKeywords(text string) []string {
	lower := strings.ToLower(text)
	var out []string
	for _, kw := range legal.Keywords {
		if legal.ContainsWholePhrase(lower, kw) {
			out = append(out, kw)
		}
	}
	return out
}

func unique(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
