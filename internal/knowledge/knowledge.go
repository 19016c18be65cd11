// Package knowledge defines the chunk and metadata types shared by the
// ingestion pipeline, the vector store backends, and the query service.
package knowledge

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// DefaultCollection is the collection written by ingestion and read by
// queries when none is configured.
const DefaultCollection = "agency_knowledge"

// SourceKind is the caller-supplied provenance of a document. It drives the
// default relevance weighting and priority of every chunk cut from it.
type SourceKind string

const (
	// KindAgency marks agency-authored methodology and audit material.
	KindAgency SourceKind = "agency"
	// KindCourse marks generic course material such as transcripts.
	KindCourse SourceKind = "course"
	// KindCaseStudy marks tabular client case studies.
	KindCaseStudy SourceKind = "case_study"
)

// Content types assigned by the metadata inferencer.
const (
	ContentCaseStudy    = "case_study"
	ContentMethodology  = "methodology"
	ContentWarning      = "warning"
	ContentExample      = "example"
	ContentBestPractice = "best_practice"
)

// Difficulty levels.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// Metadata is the structured form of a chunk's metadata. It is converted to a
// flat scalar map with [Flatten] before it reaches a vector store.
type Metadata struct {
	// Source is the base filename the chunk came from.
	Source string
	// Section is the heading text; empty means the chunk has no section.
	Section string
	// Topic is the coarse subject inferred from keyword hits.
	Topic string
	// Subtopic is a finer label; empty when not inferred.
	Subtopic string
	// ContentType is one of the Content* constants.
	ContentType string
	// Difficulty is one of the Difficulty* constants.
	Difficulty string
	// RelevanceScore is a fixed weight in [0,1] keyed by provenance.
	RelevanceScore float64
	// Tags is the sorted, de-duplicated topic/provenance tag set.
	Tags []string
	// SourceKind is the document provenance, carried for boosting.
	SourceKind SourceKind
	// Priority is 2 for agency/case-study chunks and 1 otherwise.
	// Zero means absent and reads back as 1.
	Priority int
}

// Chunk is the unit of retrieval.
type Chunk struct {
	// ID is the upsert key.
	ID string
	// Text is the rendered block that gets embedded and returned to callers.
	Text string
	// Metadata describes the chunk.
	Metadata Metadata
}

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// Slugify lowercases name and collapses every run of non-alphanumerics to a
// single dash. It returns "chunk" when nothing is left.
func Slugify(name string) string {
	s := strings.ToLower(strings.Trim(slugPattern.ReplaceAllString(name, "-"), "-"))
	if s == "" {
		return "chunk"
	}
	return s
}

// NewChunkID returns prefix-<slug(name)>-<8 random hex chars>, or
// <slug(name)>-<hex> when prefix is empty.
func NewChunkID(prefix, name string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	if prefix == "" {
		return Slugify(name) + "-" + suffix
	}
	return prefix + "-" + Slugify(name) + "-" + suffix
}
