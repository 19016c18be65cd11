package knowledge

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Flat metadata keys as they appear in the vector store.
const (
	KeySource         = "source"
	KeySection        = "section"
	KeyTopic          = "topic"
	KeySubtopic       = "subtopic"
	KeyContentType    = "content_type"
	KeyDifficulty     = "difficulty"
	KeyRelevanceScore = "relevance_score"
	KeyTags           = "tags"
	KeySourceKind     = "source_kind"
	KeyPriority       = "priority"
)

// Flat is the scalar-only metadata map accepted by vector stores. Values are
// string, int, float64 or bool.
type Flat map[string]any

// Flatten converts m into its stored form. Tags are comma-joined, an empty
// section or subtopic is omitted, and a zero priority is omitted.
func Flatten(m Metadata) Flat {
	f := Flat{
		KeySource:         m.Source,
		KeyTopic:          m.Topic,
		KeyContentType:    m.ContentType,
		KeyDifficulty:     m.Difficulty,
		KeyRelevanceScore: m.RelevanceScore,
		KeyTags:           strings.Join(m.Tags, ","),
		KeySourceKind:     string(m.SourceKind),
	}
	if m.Section != "" {
		f[KeySection] = m.Section
	}
	if m.Subtopic != "" {
		f[KeySubtopic] = m.Subtopic
	}
	if m.Priority != 0 {
		f[KeyPriority] = m.Priority
	}
	return f
}

// ParseFlat is the inverse of [Flatten]. Missing priority reads as 1 and a
// missing relevance score reads as 0. Numeric values may arrive as any Go
// number type or as a numeric string, since backends differ in how they
// round-trip them.
func ParseFlat(f Flat) Metadata {
	m := Metadata{
		Source:         f.String(KeySource),
		Section:        f.String(KeySection),
		Topic:          f.String(KeyTopic),
		Subtopic:       f.String(KeySubtopic),
		ContentType:    f.String(KeyContentType),
		Difficulty:     f.String(KeyDifficulty),
		RelevanceScore: f.Float(KeyRelevanceScore, 0),
		Tags:           SplitTags(f.String(KeyTags)),
		SourceKind:     SourceKind(f.String(KeySourceKind)),
		Priority:       int(f.Float(KeyPriority, 1)),
	}
	return m
}

// SplitTags splits a comma-joined tag string, dropping empty entries.
func SplitTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// String returns the value under key rendered as a string, or "" if absent.
func (f Flat) String(key string) string {
	v, ok := f[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Float returns the numeric value under key, or def when the key is absent or
// not numeric.
func (f Flat) Float(key string, def float64) float64 {
	v, ok := f[key]
	if !ok || v == nil {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint64:
		return float64(n)
	case json.Number:
		if x, err := n.Float64(); err == nil {
			return x
		}
	case string:
		if x, err := strconv.ParseFloat(n, 64); err == nil {
			return x
		}
	}
	return def
}
