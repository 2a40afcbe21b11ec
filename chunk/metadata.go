package chunk

import (
	"strings"

	"legal-rag/legal"
)

// Recognized metadata keys. Array-valued keys hold []string; the rest are
// plain strings.
const (
	MetaStatuteNumbers     = "statute_numbers"
	MetaCaseCitations      = "case_citations"
	MetaDates              = "dates"
	MetaCourts             = "courts"
	MetaDocketNumbers      = "docket_numbers"
	MetaPolicyNumbers      = "policy_numbers"
	MetaSectionNumber      = "section_number"
	MetaSectionTitle       = "section_title"
	MetaModuleTitle        = "module_title"
	MetaLearningObjectives = "learning_objectives"
	MetaKeyTerms           = "key_terms"
	MetaFileName           = "file_name"
)

func caseLawMetadata(content string) Metadata {
	m := Metadata{}
	putList(m, MetaStatuteNumbers, legal.Statutes(content))
	putList(m, MetaCaseCitations, legal.Citations(content))
	putList(m, MetaDates, legal.Dates(content))
	putList(m, MetaCourts, legal.Courts(content))
	putList(m, MetaDocketNumbers, legal.DocketNumbers(content))
	return m
}

func policyMetadata(content, sectionNumber, sectionTitle string) Metadata {
	m := Metadata{}
	if sectionNumber != "" {
		m[MetaSectionNumber] = sectionNumber
	}
	if sectionTitle != "" {
		m[MetaSectionTitle] = sectionTitle
	}
	putList(m, MetaPolicyNumbers, legal.PolicyNumbers(content))
	putList(m, MetaDates, legal.Dates(content))
	return m
}

func trainingMetadata(content, moduleTitle string) Metadata {
	m := Metadata{}
	if moduleTitle != "" {
		m[MetaModuleTitle] = moduleTitle
	}
	var objectives []string
	for _, line := range strings.Split(content, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "objective") || strings.Contains(lower, "outcome") || strings.Contains(lower, "goal") {
			if t := strings.TrimSpace(line); t != "" {
				objectives = append(objectives, t)
			}
		}
	}
	putList(m, MetaLearningObjectives, objectives)

	var keyTerms []string
	for _, term := range legal.AllCapsLine.FindAllString(content, -1) {
		if t := strings.TrimSpace(term); t != "" {
			keyTerms = append(keyTerms, t)
		}
	}
	putList(m, MetaKeyTerms, keyTerms)
	return m
}

func generalMetadata(content string) Metadata {
	m := Metadata{}
	putList(m, MetaStatuteNumbers, legal.Statutes(content))
	putList(m, MetaCaseCitations, legal.Citations(content))
	putList(m, MetaDates, legal.Dates(content))
	return m
}

func putList(m Metadata, key string, values []string) {
	if len(values) > 0 {
		m[key] = values
	}
}

// Strings returns the value of an array-valued key, tolerating a scalar.
func (m Metadata) Strings(key string) []string {
	switch v := m[key].(type) {
	case []string:
		return v
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// String returns the value of a scalar key, or empty.
func (m Metadata) String(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
