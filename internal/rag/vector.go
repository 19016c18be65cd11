package rag

import (
	"math"
	"slices"
)

// CosineDistance returns 1 - cos(a, b). Mismatched lengths compare over the
// shorter prefix. A zero vector is at distance 1 from everything.
func CosineDistance(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := range n {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

// Nearest sorts candidates by ascending distance, keeping insertion order for
// ties, and returns at most n of them. n <= 0 returns nothing.
func Nearest(candidates []Match, n int) []Match {
	if n <= 0 {
		return nil
	}
	slices.SortStableFunc(candidates, func(a, b Match) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return 0
		}
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}
