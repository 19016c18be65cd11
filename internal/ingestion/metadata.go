package ingestion

import (
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// DefaultTopic is assigned when no topic keyword occurs in the text.
const DefaultTopic = "general_google_ads"

// flagshipCaseStudy is tagged on any chunk whose text or filename mentions it.
const flagshipCaseStudy = "spacefinder"

// topicKeyword maps a lowercase keyword to the topic it signals.
type topicKeyword struct {
	keyword string
	topic   string
}

// topicKeywords is scanned in declaration order and the last hit sets the
// topic, so later rows win over earlier ones.
var topicKeywords = []topicKeyword{
	{"match", "keyword_match_types"},
	{"phrase", "keyword_match_types"},
	{"broad", "keyword_match_types"},
	{"exact", "keyword_match_types"},
	{"campaign", "campaign_structure"},
	{"ad group", "ad_group_structure"},
	{"rsa", "ad_copy"},
	{"headline", "ad_copy"},
	{"description", "ad_copy"},
	{"negative", "negative_keywords"},
	{"search term", "search_terms"},
	{"n-gram", "search_terms"},
	{"quality score", "quality_score"},
	{"auction", "bidding"},
	{"bidding", "bidding"},
	{"pmax", "performance_max"},
	{"shopping", "performance_max"},
	{"conversion", "measurement"},
	{"tracking", "measurement"},
	{"geo", "geo_strategy"},
	{"location", "geo_strategy"},
	{"budget", "budgeting"},
	{"naming", "naming_conventions"},
}

// matchVariants set a subtopic of "<keyword>_match".
var matchVariants = map[string]bool{"broad": true, "phrase": true, "exact": true}

var modulePrefix = regexp.MustCompile(`^(\d+)\.`)

// TopicResult is the output of InferTopic.
type TopicResult struct {
	Topic    string
	Subtopic string
	Tags     []string
}

// InferTopic scans text for topic keywords. Every hit contributes its topic
// to the tag set; the last hit in table order becomes the topic. Tags are
// sorted and de-duplicated.
func InferTopic(text, filename string) TopicResult {
	lower := strings.ToLower(text)
	res := TopicResult{Topic: DefaultTopic}

	for _, kw := range topicKeywords {
		if !strings.Contains(lower, kw.keyword) {
			continue
		}
		res.Topic = kw.topic
		res.Tags = append(res.Tags, kw.topic)
		if matchVariants[kw.keyword] {
			res.Subtopic = kw.keyword + "_match"
		}
	}
	if strings.Contains(lower, flagshipCaseStudy) || strings.Contains(strings.ToLower(filename), flagshipCaseStudy) {
		res.Tags = append(res.Tags, flagshipCaseStudy)
	}

	slices.Sort(res.Tags)
	res.Tags = slices.Compact(res.Tags)
	return res
}

// InferContentType classifies a chunk. Provenance overrides lexical signals.
func InferContentType(text string, kind knowledge.SourceKind) string {
	switch kind {
	case knowledge.KindCaseStudy:
		return knowledge.ContentCaseStudy
	case knowledge.KindAgency:
		return knowledge.ContentMethodology
	}

	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "never", "avoid", "warning"):
		return knowledge.ContentWarning
	case strings.Contains(lower, "example"):
		return knowledge.ContentExample
	case containsAny(lower, "best practice", "should", "rule"):
		return knowledge.ContentBestPractice
	default:
		return knowledge.ContentMethodology
	}
}

// InferDifficulty derives a difficulty level. Course files whose basename
// starts with a module number of 3 or less ("2. Match types.txt") are
// beginner material.
func InferDifficulty(filename string, kind knowledge.SourceKind) string {
	switch kind {
	case knowledge.KindAgency:
		return knowledge.DifficultyIntermediate
	case knowledge.KindCaseStudy:
		return knowledge.DifficultyAdvanced
	}
	if m := modulePrefix.FindStringSubmatch(filepath.Base(filename)); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil && n <= 3 {
			return knowledge.DifficultyBeginner
		}
	}
	return knowledge.DifficultyIntermediate
}

// RelevanceFor is the fixed relevance weight of a provenance kind.
func RelevanceFor(kind knowledge.SourceKind) float64 {
	switch kind {
	case knowledge.KindAgency:
		return 0.95
	case knowledge.KindCaseStudy:
		return 0.9
	case knowledge.KindCourse:
		return 0.65
	default:
		return 0.6
	}
}

// PriorityFor is 2 for agency and case-study provenance and 1 otherwise.
func PriorityFor(kind knowledge.SourceKind) int {
	if kind == knowledge.KindAgency || kind == knowledge.KindCaseStudy {
		return 2
	}
	return 1
}

// InferMetadata builds the full metadata of a text chunk cut from the file at
// path under section. It is deterministic in its inputs.
func InferMetadata(text, path, section string, kind knowledge.SourceKind) knowledge.Metadata {
	name := filepath.Base(path)
	topic := InferTopic(text, name)
	tags := topic.Tags
	if len(tags) == 0 {
		tags = []string{topic.Topic}
	}
	return knowledge.Metadata{
		Source:         name,
		Section:        section,
		Topic:          topic.Topic,
		Subtopic:       topic.Subtopic,
		ContentType:    InferContentType(text, kind),
		Difficulty:     InferDifficulty(path, kind),
		RelevanceScore: RelevanceFor(kind),
		Tags:           tags,
		SourceKind:     kind,
		Priority:       PriorityFor(kind),
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
