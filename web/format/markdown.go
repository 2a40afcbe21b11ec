package format

import (
	"strings"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// PreprocessAssistantText normalizes LLM output before rendering. Curly
// quotes from the model break citation matching downstream.
func PreprocessAssistantText(text string) string {
	if text == "" {
		return text
	}
	return strings.NewReplacer(
		"“", "\"",
		"”", "\"",
		"‘", "'",
		"’", "'",
	).Replace(text)
}

// AnswerHTML renders a markdown answer to sanitized-enough HTML for API
// consumers that want a displayable form alongside the raw text.
func AnswerHTML(text string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.SkipHTML,
	})
	return string(markdown.ToHTML([]byte(PreprocessAssistantText(text)), p, renderer))
}
