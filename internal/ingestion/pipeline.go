// Package ingestion turns knowledge-base documents into metadata-tagged
// chunks and writes them to a vector store collection. It owns the metadata
// inferencer, the per-source loaders, the tabular readers, the extraction of
// extracted_raw.json, and the rebuild and add-file flows invoked by the
// `kbrag rebuild`, `kbrag add` and `kbrag watch` commands.
package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/54b3r/kbrag-go/internal/chunker"
	"github.com/54b3r/kbrag-go/internal/dedup"
	"github.com/54b3r/kbrag-go/internal/knowledge"
	"github.com/54b3r/kbrag-go/internal/logging"
	"github.com/54b3r/kbrag-go/internal/rag"
)

// DefaultBatchSize bounds the records sent in one upsert.
const DefaultBatchSize = 64

// DefaultCollection is the collection name used when none is configured.
const DefaultCollection = knowledge.DefaultCollection

// Config holds the pipeline settings.
type Config struct {
	// Collection is the target collection name. Defaults to DefaultCollection.
	Collection string
	// Sources locates the rebuild inputs.
	Sources Sources
	// Chunker holds the assembler word bounds. Zero fields take the defaults.
	Chunker chunker.Config
	// BatchSize is the upsert batch size. Defaults to DefaultBatchSize.
	BatchSize int
	// Filter removes near-duplicates. Defaults to dedup.NewShingleFilter().
	Filter dedup.Filter
	// Metrics is optional.
	Metrics *Metrics
}

// Pipeline coordinates loading, deduplication and persistence. It is
// constructed once per process and owns its store reference.
type Pipeline struct {
	store rag.Store
	cfg   Config
}

// NewPipeline constructs a Pipeline writing to store.
func NewPipeline(store rag.Store, cfg Config) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("ingestion: store must not be nil")
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Filter == nil {
		cfg.Filter = dedup.NewShingleFilter()
	}
	return &Pipeline{store: store, cfg: cfg}, nil
}

// Rebuild deletes and recreates the collection, loads every source,
// deduplicates the combined set, and persists it. It returns the number of
// chunks written. The collection does not exist between the delete and the
// create, so queries racing a rebuild can fail.
func (p *Pipeline) Rebuild(ctx context.Context) (n int, err error) {
	defer func() { p.cfg.Metrics.observeRun(modeRebuild, err) }()
	ctx = logging.With(ctx, slog.String("collection", p.cfg.Collection), slog.String("mode", modeRebuild))
	log := logging.FromContext(ctx)

	if err := p.store.Delete(ctx, p.cfg.Collection); err != nil && !errors.Is(err, knowledge.ErrNotFound) {
		return 0, fmt.Errorf("ingestion: delete collection: %w", err)
	}
	coll, err := p.store.Create(ctx, p.cfg.Collection)
	if err != nil {
		return 0, fmt.Errorf("ingestion: create collection: %w", err)
	}

	chunks, err := p.loadAll(ctx)
	if err != nil {
		return 0, err
	}
	return p.dedupeAndPersist(ctx, coll, chunks, log)
}

// loadAll runs the loaders in their fixed order.
func (p *Pipeline) loadAll(ctx context.Context) ([]knowledge.Chunk, error) {
	log := logging.FromContext(ctx)
	src := p.cfg.Sources

	extracted, err := ReadExtracted(src.ExtractedJSON)
	if err != nil {
		return nil, err
	}

	loaders := []struct {
		name string
		load func() ([]knowledge.Chunk, error)
	}{
		{"agency", func() ([]knowledge.Chunk, error) { return src.agencyChunks(p.cfg.Chunker) }},
		{"case_studies", func() ([]knowledge.Chunk, error) { return caseStudyChunks(extracted, p.cfg.Chunker) }},
		{"audit_rules", func() ([]knowledge.Chunk, error) { return auditChunks(extracted), nil }},
		{"transcripts", func() ([]knowledge.Chunk, error) { return src.transcriptChunks(p.cfg.Chunker) }},
	}

	var all []knowledge.Chunk
	for _, l := range loaders {
		chunks, err := l.load()
		if err != nil {
			return nil, fmt.Errorf("ingestion: load %s: %w", l.name, err)
		}
		log.Info("ingestion: source loaded", slog.String("source", l.name), slog.Int("chunks", len(chunks)))
		all = append(all, chunks...)
	}
	return all, nil
}

// AddFile ingests a single file into the collection without a rebuild.
// Text files (.txt, .md) go through the splitter; tables (.csv, .xlsx) are
// read as case-study content. Chunks are deduplicated against each other
// only, not against the existing collection.
func (p *Pipeline) AddFile(ctx context.Context, path string) (n int, err error) {
	defer func() { p.cfg.Metrics.observeRun(modeAdd, err) }()
	ctx = logging.With(ctx, slog.String("collection", p.cfg.Collection), slog.String("mode", modeAdd))
	log := logging.FromContext(ctx)

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, fmt.Errorf("ingestion: %s: %w", path, knowledge.ErrNotFound)
		}
		return 0, fmt.Errorf("ingestion: stat %s: %w", path, err)
	}

	var chunks []knowledge.Chunk
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		text, err := readText(path)
		if err != nil {
			return 0, err
		}
		chunks = documentChunks(text, path, p.kindOf(path), p.cfg.Chunker)

	case ".csv", ".xlsx":
		text, err := tableText(path)
		if err != nil {
			return 0, err
		}
		name := filepath.Base(path)
		meta := knowledge.Metadata{
			Source:         name,
			Topic:          "case_study",
			ContentType:    knowledge.ContentCaseStudy,
			Difficulty:     knowledge.DifficultyAdvanced,
			RelevanceScore: RelevanceFor(knowledge.KindCaseStudy),
			Tags:           []string{knowledge.Slugify(name), "case_study"},
			SourceKind:     knowledge.KindCaseStudy,
			Priority:       2,
		}
		chunks = tableChunks(text, name, meta, p.cfg.Chunker)

	default:
		return 0, fmt.Errorf("ingestion: %q: %w", ext, knowledge.ErrUnsupportedFileType)
	}

	coll, err := p.store.GetOrCreate(ctx, p.cfg.Collection)
	if err != nil {
		return 0, fmt.Errorf("ingestion: open collection: %w", err)
	}
	return p.dedupeAndPersist(ctx, coll, chunks, log)
}

// Supported reports whether AddFile accepts the file's extension.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".csv", ".xlsx":
		return true
	}
	return false
}

// kindOf is agency for files under the Data Examples directory and course
// for everything else.
func (p *Pipeline) kindOf(path string) knowledge.SourceKind {
	dir := p.cfg.Sources.DataExamplesDir
	if dir == "" {
		return knowledge.KindCourse
	}
	absDir, err1 := filepath.Abs(dir)
	absPath, err2 := filepath.Abs(path)
	if err1 != nil || err2 != nil {
		return knowledge.KindCourse
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return knowledge.KindCourse
	}
	return knowledge.KindAgency
}

func (p *Pipeline) dedupeAndPersist(ctx context.Context, coll rag.Collection, chunks []knowledge.Chunk, log *slog.Logger) (int, error) {
	unique := p.cfg.Filter.Filter(chunks)
	log.Info("ingestion: deduplicated",
		slog.Int("raw", len(chunks)),
		slog.Int("unique", len(unique)),
	)
	p.cfg.Metrics.observeChunks(stageRaw, len(chunks))
	p.cfg.Metrics.observeChunks(stageDeduplicated, len(unique))

	if err := p.persist(ctx, coll, unique, log); err != nil {
		return 0, err
	}
	return len(unique), nil
}

// persist upserts chunks in batches. Store errors propagate unretried.
func (p *Pipeline) persist(ctx context.Context, coll rag.Collection, chunks []knowledge.Chunk, log *slog.Logger) error {
	for start := 0; start < len(chunks); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(chunks))
		batch := make([]rag.Record, 0, end-start)
		for _, c := range chunks[start:end] {
			batch = append(batch, rag.Record{ID: c.ID, Document: c.Text, Metadata: knowledge.Flatten(c.Metadata)})
		}
		if err := coll.Upsert(ctx, batch); err != nil {
			return fmt.Errorf("ingestion: upsert batch at %d: %w", start, err)
		}
		p.cfg.Metrics.observeChunks(stagePersisted, len(batch))
		log.Debug("ingestion: batch persisted",
			slog.String("collection", coll.Name()),
			slog.Int("offset", start),
			slog.Int("size", len(batch)),
		)
	}
	return nil
}
