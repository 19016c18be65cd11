// Package dedup suppresses near-duplicate chunks by lexical overlap.
//
// A chunk is rejected when its shingle fingerprint is at least Threshold
// similar (Jaccard) to the fingerprint of any chunk already accepted.
// Acceptance is order-dependent: the first of two near-duplicates wins.
package dedup

import (
	"regexp"
	"strings"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

const (
	// DefaultThreshold is the Jaccard similarity at or above which a chunk
	// is treated as a duplicate.
	DefaultThreshold = 0.9
	// DefaultShingleSize is the word n-gram length of a shingle.
	DefaultShingleSize = 5
)

// tokenPattern approximates a Unicode-aware \w+.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Filter removes near-duplicates from an ordered chunk list.
// Implementations must keep the relative order of the accepted chunks.
type Filter interface {
	Filter(chunks []knowledge.Chunk) []knowledge.Chunk
}

// Fingerprint is a set of word shingles.
type Fingerprint map[string]struct{}

// ShingleFilter compares every candidate against every accepted fingerprint.
// It is quadratic in the number of chunks.
type ShingleFilter struct {
	// Threshold is the rejection similarity. Defaults to DefaultThreshold.
	Threshold float64
	// Size is the shingle length in words. Defaults to DefaultShingleSize.
	Size int
}

// NewShingleFilter returns a filter with the default threshold and size.
func NewShingleFilter() *ShingleFilter {
	return &ShingleFilter{Threshold: DefaultThreshold, Size: DefaultShingleSize}
}

// Filter returns the chunks that survive deduplication, in input order.
func (f *ShingleFilter) Filter(chunks []knowledge.Chunk) []knowledge.Chunk {
	threshold := f.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	size := f.Size
	if size <= 0 {
		size = DefaultShingleSize
	}

	kept := make([]knowledge.Chunk, 0, len(chunks))
	seen := make([]Fingerprint, 0, len(chunks))

	for _, c := range chunks {
		fp := Shingles(c.Text, size)
		if isDuplicate(fp, seen, threshold) {
			continue
		}
		kept = append(kept, c)
		seen = append(seen, fp)
	}
	return kept
}

func isDuplicate(fp Fingerprint, seen []Fingerprint, threshold float64) bool {
	for _, other := range seen {
		if len(other) == 0 {
			continue
		}
		if Jaccard(fp, other) >= threshold {
			return true
		}
	}
	return false
}

// Shingles tokenizes the lowercased text and returns its set of size-word
// shingles. A text with fewer than size tokens yields one shingle holding all
// of them, so even an empty text yields the single empty shingle.
func Shingles(text string, size int) Fingerprint {
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	n := max(len(tokens)-size+1, 1)

	fp := make(Fingerprint, n)
	for i := range n {
		end := min(i+size, len(tokens))
		fp[strings.Join(tokens[i:end], " ")] = struct{}{}
	}
	return fp
}

// Jaccard returns |a ∩ b| / |a ∪ b|, treating an empty union as 1.
func Jaccard(a, b Fingerprint) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	inter := 0
	for s := range small {
		if _, ok := large[s]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		union = 1
	}
	return float64(inter) / float64(union)
}
