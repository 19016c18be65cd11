// Package chunker turns raw document text into bounded, self-describing
// chunk blocks. It splits a document into heading-delimited sections,
// segments each section into sentences, greedily groups sentences into
// word-bounded blocks, and renders each block with a provenance header and
// rule-signal highlights.
package chunker

import (
	"regexp"
	"strings"
	"unicode"
)

// headingPattern matches the start of a trimmed heading line: a markdown
// hash, a "d.d" numbered heading, or "Section N".
var headingPattern = regexp.MustCompile(`^(#|\d+\.\d+|Section\s+\d+)`)

// paragraphBreak matches blank-line paragraph separators.
var paragraphBreak = regexp.MustCompile(`\n{2,}`)

// Section is one heading-delimited part of a document.
type Section struct {
	// Title is the trimmed heading line; empty when the document had no headings.
	Title string
	// Body is the trimmed text between this heading and the next.
	Body string
}

// SplitSections splits text on heading lines. Each heading becomes the title
// of the lines that follow it, up to the next heading. A heading with no body
// lines produces no section. Lines before the first heading form an untitled
// section. When nothing is produced, the whole text is returned as a single
// untitled section.
func SplitSections(text string) []Section {
	var sections []Section
	var title string
	var lines []string

	flush := func() {
		if len(lines) > 0 {
			sections = append(sections, Section{
				Title: title,
				Body:  strings.TrimSpace(strings.Join(lines, "\n")),
			})
		}
	}

	for _, line := range splitLines(text) {
		trimmed := strings.TrimSpace(line)
		if headingPattern.MatchString(trimmed) {
			flush()
			title = trimmed
			lines = nil
			continue
		}
		lines = append(lines, line)
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Body: text}}
	}
	return sections
}

// SplitSentences segments text on sentence-ending punctuation followed by
// whitespace and an ASCII capital or digit, then splits every piece on blank
// lines. Fragments are trimmed and empty ones dropped.
func SplitSentences(text string) []string {
	var sentences []string
	for _, part := range splitOnSentenceEnds(text) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		for _, sub := range paragraphBreak.Split(part, -1) {
			if sub = strings.TrimSpace(sub); sub != "" {
				sentences = append(sentences, sub)
			}
		}
	}
	return sentences
}

// splitOnSentenceEnds cuts text at every whitespace run that is preceded by
// '.', '!' or '?' and followed by [A-Z0-9]. The whitespace run is consumed.
func splitOnSentenceEnds(text string) []string {
	runes := []rune(text)
	var parts []string
	start := 0

	for i := 1; i < len(runes); i++ {
		if !unicode.IsSpace(runes[i]) || !isTerminal(runes[i-1]) {
			continue
		}
		j := i
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j < len(runes) && isSentenceStart(runes[j]) {
			parts = append(parts, string(runes[start:i]))
			start = j
		}
		i = j - 1
	}
	return append(parts, string(runes[start:]))
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func isSentenceStart(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// splitLines splits on \n, \r\n and lone \r. A trailing newline does not
// produce an extra empty line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.TrimSuffix(text, "\n")
	return strings.Split(text, "\n")
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}
