package chunk

import (
	"strings"

	"legal-rag/legal"
)

// chunkCaseLaw splits judicial text on OPINION/DISSENT/CONCURRENCE markers,
// then packs lines within each section, breaking oversize accumulations on
// the last sentence boundary and carrying short trailing sentences forward
// as overlap.
func (c *Chunker) chunkCaseLaw(text string) []Chunk {
	cursor := 0
	var chunks []Chunk
	for _, section := range splitOnMarkers(text, legal.CaseSectionMarker.FindAllStringIndex(text, -1)) {
		for _, content := range c.packLines(section) {
			start, end := locate(text, content, cursor)
			chunks = append(chunks, Chunk{
				Content:  content,
				Start:    start,
				End:      end,
				Class:    ClassCaseLawSection,
				Metadata: caseLawMetadata(content),
			})
			cursor = start + 1
		}
	}
	return chunks
}

// chunkPolicy splits on "N.N Title" section headings and breaks oversize
// sections on paragraph boundaries, carrying a short final paragraph.
func (c *Chunker) chunkPolicy(text string) []Chunk {
	headings := legal.SectionHeading.FindAllStringSubmatchIndex(text, -1)
	cursor := 0
	var chunks []Chunk

	emit := func(content, number, title string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		for _, piece := range c.packParagraphs(content) {
			start, end := locate(text, piece, cursor)
			chunks = append(chunks, Chunk{
				Content:  piece,
				Start:    start,
				End:      end,
				Class:    ClassPolicySection,
				Metadata: policyMetadata(piece, number, title),
			})
			cursor = start + 1
		}
	}

	if len(headings) == 0 {
		emit(text, "", "")
		return chunks
	}

	if preamble := text[:headings[0][0]]; strings.TrimSpace(preamble) != "" {
		emit(preamble, "", "")
	}
	for i, h := range headings {
		end := len(text)
		if i+1 < len(headings) {
			end = headings[i+1][0]
		}
		number := text[h[2]:h[3]]
		title := strings.TrimSpace(text[h[4]:h[5]])
		emit(text[h[0]:end], number, title)
	}
	return chunks
}

// chunkTraining splits on Module/Topic/Chapter/Lesson boundaries and packs
// oversize sections on sentence boundaries.
func (c *Chunker) chunkTraining(text string) []Chunk {
	boundaries := legal.ModuleHeading.FindAllStringIndex(text, -1)
	cursor := 0
	var chunks []Chunk
	for _, section := range splitOnMarkers(text, boundaries) {
		title := firstLine(section)
		for _, content := range c.packSentences(section) {
			start, end := locate(text, content, cursor)
			chunks = append(chunks, Chunk{
				Content:  content,
				Start:    start,
				End:      end,
				Class:    ClassTrainingModule,
				Metadata: trainingMetadata(content, title),
			})
			cursor = start + 1
		}
	}
	return chunks
}

// chunkGeneral packs tokenized sentences up to the size limit; overlap is
// the trailing two sentences when they fit inside the overlap budget.
func (c *Chunker) chunkGeneral(text string) []Chunk {
	cursor := 0
	var chunks []Chunk
	for _, content := range c.packSentences(text) {
		start, end := locate(text, content, cursor)
		chunks = append(chunks, Chunk{
			Content:  content,
			Start:    start,
			End:      end,
			Class:    ClassGeneral,
			Metadata: generalMetadata(content),
		})
		cursor = start + 1
	}
	return chunks
}

// splitOnMarkers cuts text at marker start offsets, keeping each marker with
// the text that follows it. No markers means one section.
func splitOnMarkers(text string, markers [][]int) []string {
	if len(markers) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []string{text}
	}
	var sections []string
	if head := text[:markers[0][0]]; strings.TrimSpace(head) != "" {
		sections = append(sections, head)
	}
	for i, m := range markers {
		end := len(text)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		}
		if sec := text[m[0]:end]; strings.TrimSpace(sec) != "" {
			sections = append(sections, sec)
		}
	}
	return sections
}

func (c *Chunker) packLines(section string) []string {
	var out []string
	current := ""
	for _, line := range strings.Split(section, "\n") {
		if current != "" && len(current)+1+len(line) > c.size {
			head, carry := splitAtLastSentence(current, c.overlap)
			if t := strings.TrimSpace(head); t != "" {
				out = append(out, t)
			}
			current = carry
		}
		if current == "" {
			current = line
		} else {
			current = current + "\n" + line
		}
		out, current = c.hardSplit(out, current)
	}
	if t := strings.TrimSpace(current); t != "" {
		out = append(out, t)
	}
	return out
}

func (c *Chunker) packParagraphs(section string) []string {
	var out []string
	var kept []string
	keptLen := 0
	for _, p := range strings.Split(section, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if len(kept) > 0 && keptLen+2+len(p) > c.size {
			out = append(out, strings.Join(kept, "\n\n"))
			last := kept[len(kept)-1]
			kept = kept[:0]
			keptLen = 0
			if len(last) < c.overlap {
				kept = append(kept, last)
				keptLen = len(last)
			}
		}
		kept = append(kept, p)
		keptLen += len(p)
		if len(kept) > 1 {
			keptLen += 2
		}
	}
	if len(kept) > 0 {
		out = append(out, strings.Join(kept, "\n\n"))
	}
	// Hard-split any single paragraph that still exceeds the limit
	var final []string
	for _, piece := range out {
		for len(piece) > c.size {
			head, rest := breakAtLimit(piece, c.size)
			final = append(final, head)
			piece = rest
		}
		if strings.TrimSpace(piece) != "" {
			final = append(final, piece)
		}
	}
	return final
}

func (c *Chunker) packSentences(section string) []string {
	sentences := c.splitter.Split(section)
	if len(sentences) == 0 {
		return nil
	}
	var out []string
	var kept []string
	keptLen := 0
	for _, s := range sentences {
		if len(kept) > 0 && keptLen+1+len(s) > c.size {
			out = append(out, strings.Join(kept, " "))
			carry := trailingOverlap(kept, c.overlap)
			kept = append(kept[:0], carry...)
			keptLen = joinedLen(kept)
		}
		kept = append(kept, s)
		keptLen = joinedLen(kept)
		for keptLen > c.size && len(kept) == 1 {
			head, rest := breakAtLimit(kept[0], c.size)
			out = append(out, head)
			kept[0] = rest
			keptLen = len(rest)
		}
	}
	if keptLen > 0 && strings.TrimSpace(strings.Join(kept, " ")) != "" {
		out = append(out, strings.Join(kept, " "))
	}
	return out
}

// trailingOverlap returns the last two sentences when their combined length
// stays under the overlap budget.
func trailingOverlap(kept []string, overlap int) []string {
	if len(kept) < 2 {
		return nil
	}
	tail := kept[len(kept)-2:]
	if joinedLen(tail) < overlap {
		return []string{tail[0], tail[1]}
	}
	return nil
}

func joinedLen(parts []string) int {
	n := 0
	for i, p := range parts {
		if i > 0 {
			n++
		}
		n += len(p)
	}
	return n
}

// splitAtLastSentence breaks accumulated text on its last ". " boundary.
// The trailing sentence is carried forward only when it fits the overlap
// budget; otherwise the whole text is emitted unbroken.
func splitAtLastSentence(text string, overlap int) (string, string) {
	idx := strings.LastIndex(text, ". ")
	if idx < 0 {
		return text, ""
	}
	tail := strings.TrimSpace(text[idx+1:])
	if len(tail) >= overlap {
		return text, ""
	}
	return text[:idx+1], tail
}

// hardSplit flushes character-limit pieces of current while it exceeds the
// chunk size, preferring a sentence boundary inside the window when one
// exists.
func (c *Chunker) hardSplit(out []string, current string) ([]string, string) {
	for len(current) > c.size {
		window := current[:c.size]
		if idx := strings.LastIndex(window, ". "); idx > 0 {
			out = append(out, strings.TrimSpace(current[:idx+1]))
			current = strings.TrimSpace(current[idx+1:])
			continue
		}
		head, rest := breakAtLimit(current, c.size)
		out = append(out, head)
		current = rest
	}
	return out, current
}

func breakAtLimit(text string, size int) (string, string) {
	if len(text) <= size {
		return text, ""
	}
	// Avoid splitting a multi-byte rune at the boundary
	cut := size
	for cut > 0 && !isRuneStart(text[cut]) {
		cut--
	}
	if cut == 0 {
		cut = size
	}
	return text[:cut], text[cut:]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func firstLine(text string) string {
	trimmed := strings.TrimSpace(text)
	if idx := strings.IndexByte(trimmed, '\n'); idx >= 0 {
		return strings.TrimSpace(trimmed[:idx])
	}
	return trimmed
}
