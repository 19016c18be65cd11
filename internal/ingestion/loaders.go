package ingestion

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/54b3r/kbrag-go/internal/chunker"
	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// DefaultAgencyFiles are the agency methodology notes read from the Data
// Examples directory on rebuild. Missing files are skipped.
var DefaultAgencyFiles = []string{
	"keyword research rag.md",
	"RAG FROM TRANSCRIPT 1.md",
	"RAG FROM TRANSCRIPT 2.md",
}

// caseStudyRowLimit caps the sample rows rendered per case study.
const caseStudyRowLimit = 50

// caseStudySection is the section title of every tabular chunk.
const caseStudySection = "Case Study"

// Sources locates the document sources read by a rebuild.
type Sources struct {
	// DataExamplesDir holds agency material. Files added from under it are
	// agency-kind.
	DataExamplesDir string
	// TranscriptsDir is walked recursively for *.txt course transcripts.
	TranscriptsDir string
	// ExtractedJSON is the extracted_raw.json produced by Extract.
	ExtractedJSON string
	// AgencyFiles are basenames under DataExamplesDir. Nil selects
	// DefaultAgencyFiles.
	AgencyFiles []string
}

// DefaultSources lays the sources out under a knowledge_base root.
func DefaultSources(root string) Sources {
	return Sources{
		DataExamplesDir: filepath.Join(root, "Data Examples"),
		TranscriptsDir:  filepath.Join(root, "transcripts"),
		ExtractedJSON:   filepath.Join(root, "extracted_raw.json"),
	}
}

// readText reads a file as text, dropping invalid UTF-8.
func readText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("ingestion: read %s: %w", path, err)
	}
	return strings.ToValidUTF8(string(raw), ""), nil
}

// documentChunks runs text through the splitter and assembler and infers
// metadata for every block.
func documentChunks(text, path string, kind knowledge.SourceKind, cfg chunker.Config) []knowledge.Chunk {
	name := filepath.Base(path)
	var chunks []knowledge.Chunk
	for _, b := range chunker.Blocks(text, cfg) {
		body := strings.Join(b.Sentences, " ")
		chunks = append(chunks, knowledge.Chunk{
			ID:       knowledge.NewChunkID("", name),
			Text:     chunker.Render(b.Section, b.Sentences, name),
			Metadata: InferMetadata(body, path, b.Section, kind),
		})
	}
	return chunks
}

// tableChunks assembles tabular text into case-study chunks. Tables have no
// headings, so the whole text is one section.
func tableChunks(text, source string, meta knowledge.Metadata, cfg chunker.Config) []knowledge.Chunk {
	var chunks []knowledge.Chunk
	for _, group := range chunker.Assemble(chunker.SplitSentences(text), cfg) {
		chunks = append(chunks, knowledge.Chunk{
			ID:       knowledge.NewChunkID("case", source),
			Text:     chunker.Render(caseStudySection, group, source),
			Metadata: meta,
		})
	}
	return chunks
}

// agencyChunks loads the agency methodology notes.
func (s Sources) agencyChunks(cfg chunker.Config) ([]knowledge.Chunk, error) {
	files := s.AgencyFiles
	if files == nil {
		files = DefaultAgencyFiles
	}
	var chunks []knowledge.Chunk
	for _, name := range files {
		path := filepath.Join(s.DataExamplesDir, name)
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		text, err := readText(path)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, documentChunks(text, path, knowledge.KindAgency, cfg)...)
	}
	return chunks, nil
}

// transcriptChunks walks the transcripts directory for course material. A
// missing directory yields nothing.
func (s Sources) transcriptChunks(cfg chunker.Config) ([]knowledge.Chunk, error) {
	if _, err := os.Stat(s.TranscriptsDir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var paths []string
	err := filepath.WalkDir(s.TranscriptsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".txt") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ingestion: walk %s: %w", s.TranscriptsDir, err)
	}
	sort.Strings(paths)

	var chunks []knowledge.Chunk
	for _, path := range paths {
		text, err := readText(path)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, documentChunks(text, path, knowledge.KindCourse, cfg)...)
	}
	return chunks, nil
}

// caseStudyChunks renders each extracted case study as text and assembles it.
func caseStudyChunks(ex *Extracted, cfg chunker.Config) ([]knowledge.Chunk, error) {
	var chunks []knowledge.Chunk
	for _, cs := range ex.CaseStudies {
		name := cs.File
		if name == "" {
			name = "case_study"
		}
		text, err := caseStudyText(name, cs)
		if err != nil {
			return nil, err
		}
		meta := knowledge.Metadata{
			Source:         name,
			Topic:          "campaign_structure",
			Subtopic:       "case_study",
			ContentType:    knowledge.ContentCaseStudy,
			Difficulty:     knowledge.DifficultyAdvanced,
			RelevanceScore: RelevanceFor(knowledge.KindCaseStudy),
			Tags:           []string{"case_study", knowledge.Slugify(name)},
			SourceKind:     knowledge.KindCaseStudy,
			Priority:       2,
		}
		chunks = append(chunks, tableChunks(text, name, meta, cfg)...)
	}
	return chunks, nil
}

// caseStudyText synthesises the chunkable text of an extracted case study.
func caseStudyText(name string, cs CaseStudy) (string, error) {
	parts := []string{"CASE STUDY: " + name}
	if len(cs.MatchTypeStats) > 0 {
		raw, err := json.Marshal(cs.MatchTypeStats)
		if err != nil {
			return "", fmt.Errorf("ingestion: encode match type stats of %s: %w", name, err)
		}
		parts = append(parts, "Match Type Strategy: "+string(raw))
	}
	if len(cs.NamingSamples) > 0 {
		parts = append(parts, "Naming samples: "+strings.Join(cs.NamingSamples, "; "))
	}

	rows := cs.SampleRows
	if len(rows) > caseStudyRowLimit {
		rows = rows[:caseStudyRowLimit]
	}
	for _, row := range rows {
		filtered := make(map[string]any, len(row))
		for k, v := range row {
			if isMissing(v) {
				continue
			}
			filtered[k] = v
		}
		if len(filtered) == 0 {
			continue
		}
		raw, err := json.Marshal(filtered)
		if err != nil {
			// A row that cannot be encoded is skipped, not fatal.
			continue
		}
		parts = append(parts, "Example: "+string(raw))
	}
	return strings.Join(parts, "\n"), nil
}

func isMissing(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && (s == missingCell || s == "-")
}

// auditChunks makes one chunk per extracted rule. Rules are short by nature
// and bypass assembly and the word-count window.
func auditChunks(ex *Extracted) []knowledge.Chunk {
	var chunks []knowledge.Chunk
	for _, a := range ex.Audits {
		name := a.File
		if name == "" {
			name = "audit"
		}
		for _, rule := range a.ExtractedRules {
			ct := knowledge.ContentBestPractice
			if strings.Contains(strings.ToLower(rule), "never") {
				ct = knowledge.ContentWarning
			}
			chunks = append(chunks, knowledge.Chunk{
				ID:   knowledge.NewChunkID("audit", name),
				Text: fmt.Sprintf("Audit Rule from %s: %s", name, rule),
				Metadata: knowledge.Metadata{
					Source:         name,
					Topic:          "audit_rules",
					ContentType:    ct,
					Difficulty:     knowledge.DifficultyIntermediate,
					RelevanceScore: 0.9,
					Tags:           []string{"audit", "rule"},
					SourceKind:     knowledge.KindAgency,
					Priority:       2,
				},
			})
		}
	}
	return chunks
}
