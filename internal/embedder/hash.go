package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// defaultHashDimensions is the vector length of the hashing embedder.
const defaultHashDimensions = 384

var hashTokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// HashEmbedder maps texts to fixed-size vectors by feature hashing unigrams
// and bigrams into buckets, then L2-normalising. It needs no model or
// network. Similar wording yields similar vectors but there is no semantic
// similarity, so it is only selected explicitly (EMBEDDING_PROVIDER=hash)
// for tests and offline use.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder returns a HashEmbedder producing vectors of length dims.
// dims <= 0 selects the default of 384.
func NewHashEmbedder(dims int) *HashEmbedder {
	if dims <= 0 {
		dims = defaultHashDimensions
	}
	return &HashEmbedder{dims: dims}
}

// Dimensions returns the vector length.
func (e *HashEmbedder) Dimensions() int { return e.dims }

// Embed implements rag.Embedder. It never fails except on cancellation.
func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.vector(t)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	vec := make([]float64, e.dims)
	tokens := hashTokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		e.add(vec, tok, 1)
		if i > 0 {
			e.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dims)
	if norm == 0 {
		return out
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

// add hashes feature into a bucket. The top hash bit picks the sign so
// collisions cancel out on average instead of piling up.
func (e *HashEmbedder) add(vec []float64, feature string, weight float64) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(e.dims)) //nolint:gosec // dims is positive
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
