package rag

import (
	"fmt"
	"strings"
	"sync"

	"legal-rag/legal"
)

// CitationChain tracks which citations each ingested chunk mentions and the
// parent-child links created by "see also" section references. It backs the
// related-citation expansion during context assembly.
type CitationChain struct {
	mu       sync.RWMutex
	mentions map[string][]string // citation -> citations seen alongside it
	children map[string][]string // section -> sections it points at
}

func NewCitationChain() *CitationChain {
	return &CitationChain{
		mentions: make(map[string][]string),
		children: make(map[string][]string),
	}
}

// Record indexes the citations of one chunk of document text. Every citation
// in the chunk is linked to every other, and "see also" targets become
// children of the sections that reference them.
func (c *CitationChain) Record(content string) {
	citations := legal.AllCitations(content)
	seeAlso := legal.SeeAlsoSections(content)
	if len(citations) == 0 && len(seeAlso) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cit := range citations {
		for _, other := range citations {
			if other == cit {
				continue
			}
			c.mentions[cit] = appendUnique(c.mentions[cit], other)
		}
	}
	for _, parent := range legal.Statutes(content) {
		for _, child := range seeAlso {
			if child == parent {
				continue
			}
			c.children[parent] = appendUnique(c.children[parent], child)
		}
	}
}

// Expand walks the chain outward from the given citations, breadth first, to
// the given depth, and returns the related citations in discovery order. The
// seeds themselves are not included.
func (c *CitationChain) Expand(citations []string, depth int) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool, len(citations))
	for _, cit := range citations {
		seen[cit] = true
	}

	frontier := citations
	var related []string
	for level := 0; level < depth && len(frontier) > 0; level++ {
		var next []string
		for _, cit := range frontier {
			for _, linked := range c.mentions[cit] {
				if !seen[linked] {
					seen[linked] = true
					related = append(related, linked)
					next = append(next, linked)
				}
			}
			for _, child := range c.children[cit] {
				if !seen[child] {
					seen[child] = true
					related = append(related, child)
					next = append(next, child)
				}
			}
		}
		frontier = next
	}
	return related
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

const (
	// DefaultContextMaxChars caps the assembled context passed to the LLM.
	DefaultContextMaxChars = 4000

	chainDepth          = 3
	maxRelatedCitations = 5
	minTruncatedChars   = 100
)

// Assembler turns ranked search results into the bounded context block the
// answer prompts consume.
type Assembler struct {
	chain    *CitationChain
	maxChars int
}

func NewAssembler(chain *CitationChain, maxChars int) *Assembler {
	if maxChars <= 0 {
		maxChars = DefaultContextMaxChars
	}
	return &Assembler{chain: chain, maxChars: maxChars}
}

// Assemble writes results into the context in rank order until the character
// budget runs out, then appends a related-citations footer if any budget
// remains. It returns the context text and the expanded citation list.
func (a *Assembler) Assemble(results []SearchResult) (string, []string) {
	var b strings.Builder
	var seeds []string

	for i, res := range results {
		header := fmt.Sprintf("[Source %d: %s | %s | %s | relevance %.2f]\n",
			i+1, sourceName(res), res.Jurisdiction, res.LawStatus, res.FinalScore)
		remaining := a.maxChars - b.Len()
		need := len(header) + len(res.Content) + 2

		if need <= remaining {
			b.WriteString(header)
			b.WriteString(res.Content)
			b.WriteString("\n\n")
		} else if remaining-len(header) >= minTruncatedChars {
			b.WriteString(header)
			b.WriteString(res.Content[:remaining-len(header)-3])
			b.WriteString("...")
		} else {
			break
		}
		seeds = append(seeds, res.CitationChain...)
	}

	expanded := a.chain.Expand(uniqueStrings(seeds), chainDepth)
	if len(expanded) > maxRelatedCitations {
		expanded = expanded[:maxRelatedCitations]
	}
	if len(expanded) > 0 {
		footer := "Related Citations:\n"
		for _, cit := range expanded {
			footer += "- " + cit + "\n"
		}
		if b.Len()+len(footer) <= a.maxChars {
			b.WriteString(footer)
		}
	}

	return b.String(), expanded
}

func sourceName(res SearchResult) string {
	if name := metadataString(res.Metadata, "file_name"); name != "" {
		return name
	}
	if id := metadataString(res.Metadata, "document_id"); id != "" {
		return id
	}
	return res.ChunkID
}

func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
