package query

import (
	"fmt"
	"strings"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// NoResults is returned in place of an empty result list.
const NoResults = "No relevant knowledge found."

// ResultSeparator joins the rendered result blocks.
const ResultSeparator = "\n---\n"

const (
	unknownField  = "Unknown"
	legacyTypeKey = "type"
)

// Format renders results as markdown blocks:
//
//	**[content_type] source** (topic: t, score: 0.123)
//	<document>
//
// Blocks are joined by a horizontal rule.
func Format(results []Result) string {
	if len(results) == 0 {
		return NoResults
	}
	return strings.Join(FormatBlocks(results), ResultSeparator)
}

// FormatBlocks renders one block per result, in order. Documents may contain
// ResultSeparator themselves, so callers that trim results work on these
// blocks rather than splitting the joined text.
func FormatBlocks(results []Result) []string {
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("**[%s] %s** (topic: %s, score: %.3f)\n%s\n",
			contentType(r.Metadata), source(r.Metadata), r.Metadata.String(knowledge.KeyTopic), r.Score, r.Document))
	}
	return blocks
}

// FormatError renders a store failure as a result string.
func FormatError(err error) string {
	return "Error querying knowledge base: " + err.Error()
}

// contentType falls back to the legacy "type" key written by older builds.
func contentType(f knowledge.Flat) string {
	for _, key := range []string{knowledge.KeyContentType, legacyTypeKey} {
		if _, ok := f[key]; ok {
			return f.String(key)
		}
	}
	return unknownField
}

func source(f knowledge.Flat) string {
	if _, ok := f[knowledge.KeySource]; ok {
		return f.String(knowledge.KeySource)
	}
	return unknownField
}
