package prompts

import (
	_ "embed"
	"strings"
)

// Embedded prompt files

//go:embed legal_qa.txt
var legalQA string

//go:embed citation_summary.txt
var citationSummary string

//go:embed follow_up.txt
var followUp string

func LegalQA() string         { return legalQA }
func CitationSummary() string { return citationSummary }
func FollowUp() string        { return followUp }

// Vars holds the values substituted into a template.
type Vars struct {
	Context       string
	SearchMetrics string
	ChatHistory   string
	Question      string
}

// Render substitutes the template placeholders. Unknown placeholders are
// left untouched.
func Render(template string, vars Vars) string {
	return strings.NewReplacer(
		"{context}", vars.Context,
		"{search_metrics}", vars.SearchMetrics,
		"{chat_history}", vars.ChatHistory,
		"{question}", vars.Question,
	).Replace(template)
}
