package chunker

// Word-count bounds for an assembled block.
const (
	// DefaultMinWords is the floor below which a finished block is dropped.
	DefaultMinWords = 120
	// DefaultTargetWords is the soft target; reaching it flushes the buffer.
	DefaultTargetWords = 260
	// DefaultMaxWords is the hard cap; a sentence that would cross it starts
	// a new block.
	DefaultMaxWords = 380
)

// Config holds the assembler bounds. Zero fields take the defaults.
type Config struct {
	// MinWords is the smallest block kept.
	MinWords int
	// TargetWords flushes the buffer once reached.
	TargetWords int
	// MaxWords is never exceeded except by a single oversized sentence.
	MaxWords int
}

func (c Config) withDefaults() Config {
	if c.MinWords <= 0 {
		c.MinWords = DefaultMinWords
	}
	if c.TargetWords <= 0 {
		c.TargetWords = DefaultTargetWords
	}
	if c.MaxWords <= 0 {
		c.MaxWords = DefaultMaxWords
	}
	return c
}

// Block is a group of sentences that will become one chunk.
type Block struct {
	// Section is the title of the section the sentences came from.
	Section string
	// Sentences is the ordered sentence group.
	Sentences []string
}

// Assemble greedily groups sentences into blocks. Before a sentence is added,
// a non-empty buffer that would cross MaxWords is flushed. After it is added,
// a buffer that reached TargetWords is flushed. The trailing buffer is
// flushed at the end, and any block under MinWords is discarded.
func Assemble(sentences []string, cfg Config) [][]string {
	cfg = cfg.withDefaults()

	var groups [][]string
	var buf []string
	words := 0

	for _, s := range sentences {
		n := WordCount(s)
		if words+n > cfg.MaxWords && len(buf) > 0 {
			groups = append(groups, buf)
			buf, words = nil, 0
		}

		buf = append(buf, s)
		words += n

		if words >= cfg.TargetWords {
			groups = append(groups, buf)
			buf, words = nil, 0
		}
	}
	if len(buf) > 0 {
		groups = append(groups, buf)
	}

	kept := groups[:0]
	for _, g := range groups {
		if blockWords(g) >= cfg.MinWords {
			kept = append(kept, g)
		}
	}
	return kept
}

// Blocks runs the full split pipeline over a document: sections, sentences,
// then assembly. Block order follows document order.
func Blocks(text string, cfg Config) []Block {
	var blocks []Block
	for _, sec := range SplitSections(text) {
		for _, group := range Assemble(SplitSentences(sec.Body), cfg) {
			blocks = append(blocks, Block{Section: sec.Title, Sentences: group})
		}
	}
	return blocks
}

func blockWords(sentences []string) int {
	total := 0
	for _, s := range sentences {
		total += WordCount(s)
	}
	return total
}
