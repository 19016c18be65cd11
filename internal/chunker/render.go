package chunker

import "strings"

// MaxHighlights caps the Highlights list of a rendered block.
const MaxHighlights = 6

// highlightKeywords are the rule-signal terms that promote a sentence into
// the Highlights list (case-insensitive substring match).
var highlightKeywords = []string{
	"always", "never", "avoid", "must", "should", "rule", "best practice", "warning",
}

// Highlights returns up to MaxHighlights sentences containing a rule-signal
// keyword, in their original order.
func Highlights(sentences []string) []string {
	var out []string
	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, kw := range highlightKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, strings.TrimSpace(s))
				break
			}
		}
		if len(out) == MaxHighlights {
			break
		}
	}
	return out
}

// Render builds the stored text of a chunk:
//
//	Source: <source> | Section: <section>
//	Highlights:
//	- <sentence>
//	Context: <body>
//
// The section part is left out when section is empty. Without highlights
// the body follows the header line directly.
func Render(section string, sentences []string, source string) string {
	var b strings.Builder
	b.WriteString("Source: ")
	b.WriteString(source)
	if section != "" {
		b.WriteString(" | Section: ")
		b.WriteString(section)
	}
	b.WriteByte('\n')

	body := strings.Join(sentences, " ")
	highlights := Highlights(sentences)
	if len(highlights) == 0 {
		b.WriteString(body)
		return b.String()
	}

	b.WriteString("Highlights:\n")
	for _, h := range highlights {
		b.WriteString("- ")
		b.WriteString(h)
		b.WriteByte('\n')
	}
	b.WriteString("Context: ")
	b.WriteString(body)
	return b.String()
}
