package ingestion

import (
	"reflect"
	"testing"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

func TestInferTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		text     string
		filename string
		topic    string
		subtopic string
		tags     []string
	}{
		{
			name:     "phrase match",
			text:     "Use phrase match for service areas.",
			topic:    "keyword_match_types",
			subtopic: "phrase_match",
			tags:     []string{"keyword_match_types"},
		},
		{
			name:  "last hit in table order wins",
			text:  "Always match the daily budget to the goal.",
			topic: "budgeting",
			tags:  []string{"budgeting", "keyword_match_types"},
		},
		{
			name:  "campaign then budget",
			text:  "Set a daily budget for each campaign.",
			topic: "budgeting",
			tags:  []string{"budgeting", "campaign_structure"},
		},
		{
			name:  "no keywords",
			text:  "Hello world.",
			topic: DefaultTopic,
		},
		{
			name:     "flagship in filename",
			text:     "Hello world.",
			filename: "Spacefinder export.xlsx",
			topic:    DefaultTopic,
			tags:     []string{"spacefinder"},
		},
		{
			name:     "exact overrides phrase subtopic",
			text:     "Phrase first, exact second.",
			topic:    "keyword_match_types",
			subtopic: "exact_match",
			tags:     []string{"keyword_match_types"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := InferTopic(tt.text, tt.filename)
			if got.Topic != tt.topic {
				t.Errorf("Topic: got %q, want %q", got.Topic, tt.topic)
			}
			if got.Subtopic != tt.subtopic {
				t.Errorf("Subtopic: got %q, want %q", got.Subtopic, tt.subtopic)
			}
			if len(got.Tags) != 0 || len(tt.tags) != 0 {
				if !reflect.DeepEqual(got.Tags, tt.tags) {
					t.Errorf("Tags: got %v, want %v", got.Tags, tt.tags)
				}
			}
		})
	}
}

func TestInferContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		kind knowledge.SourceKind
		want string
	}{
		{"Never use broad match.", knowledge.KindCourse, knowledge.ContentWarning},
		{"For example, use exact.", knowledge.KindCourse, knowledge.ContentExample},
		{"You should test it.", knowledge.KindCourse, knowledge.ContentBestPractice},
		{"Plain prose.", knowledge.KindCourse, knowledge.ContentMethodology},
		{"Never do this.", knowledge.KindAgency, knowledge.ContentMethodology},
		{"Never do this.", knowledge.KindCaseStudy, knowledge.ContentCaseStudy},
		{"An example you should avoid.", knowledge.KindCourse, knowledge.ContentWarning},
	}
	for _, tt := range tests {
		if got := InferContentType(tt.text, tt.kind); got != tt.want {
			t.Errorf("InferContentType(%q, %s) = %q, want %q", tt.text, tt.kind, got, tt.want)
		}
	}
}

func TestInferDifficulty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		kind     knowledge.SourceKind
		want     string
	}{
		{"2. Match types.txt", knowledge.KindCourse, knowledge.DifficultyBeginner},
		{"/kb/transcripts/module/3. Bidding.txt", knowledge.KindCourse, knowledge.DifficultyBeginner},
		{"4. Bidding.txt", knowledge.KindCourse, knowledge.DifficultyIntermediate},
		{"10. Scripts.txt", knowledge.KindCourse, knowledge.DifficultyIntermediate},
		{"intro.txt", knowledge.KindCourse, knowledge.DifficultyIntermediate},
		{"1. Rules.md", knowledge.KindAgency, knowledge.DifficultyIntermediate},
		{"1. Export.xlsx", knowledge.KindCaseStudy, knowledge.DifficultyAdvanced},
	}
	for _, tt := range tests {
		if got := InferDifficulty(tt.filename, tt.kind); got != tt.want {
			t.Errorf("InferDifficulty(%q, %s) = %q, want %q", tt.filename, tt.kind, got, tt.want)
		}
	}
}

func TestRelevanceAndPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind      knowledge.SourceKind
		relevance float64
		priority  int
	}{
		{knowledge.KindAgency, 0.95, 2},
		{knowledge.KindCaseStudy, 0.9, 2},
		{knowledge.KindCourse, 0.65, 1},
		{"other", 0.6, 1},
	}
	for _, tt := range tests {
		if got := RelevanceFor(tt.kind); got != tt.relevance {
			t.Errorf("RelevanceFor(%s) = %v, want %v", tt.kind, got, tt.relevance)
		}
		if got := PriorityFor(tt.kind); got != tt.priority {
			t.Errorf("PriorityFor(%s) = %d, want %d", tt.kind, got, tt.priority)
		}
	}
}

func TestInferMetadata_DeterministicAndTagFallback(t *testing.T) {
	t.Parallel()

	text := "Hello world."
	a := InferMetadata(text, "/kb/transcripts/2. Intro.txt", "# Intro", knowledge.KindCourse)
	b := InferMetadata(text, "/kb/transcripts/2. Intro.txt", "# Intro", knowledge.KindCourse)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("not deterministic:\n%+v\n%+v", a, b)
	}

	want := knowledge.Metadata{
		Source:         "2. Intro.txt",
		Section:        "# Intro",
		Topic:          DefaultTopic,
		ContentType:    knowledge.ContentMethodology,
		Difficulty:     knowledge.DifficultyBeginner,
		RelevanceScore: 0.65,
		Tags:           []string{DefaultTopic},
		SourceKind:     knowledge.KindCourse,
		Priority:       1,
	}
	if !reflect.DeepEqual(a, want) {
		t.Errorf("got %+v\nwant %+v", a, want)
	}
}
