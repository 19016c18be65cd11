package dedup

import (
	"fmt"
	"strings"
	"testing"

	"github.com/54b3r/kbrag-go/internal/knowledge"
)

// passage returns n distinct words starting at offset.
func passage(offset, n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", offset+i)
	}
	return strings.Join(words, " ")
}

func ids(chunks []knowledge.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.ID
	}
	return out
}

func TestShingles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"seven tokens", "One two three four five six seven", 3},
		{"exactly five", "a b c d e", 1},
		{"short text", "Hello, world!", 1},
		{"empty text", "", 1},
		{"repeated shingles collapse", "a a a a a a a a", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Shingles(tt.text, DefaultShingleSize); len(got) != tt.want {
				t.Errorf("got %d shingles (%v), want %d", len(got), got, tt.want)
			}
		})
	}

	fp := Shingles("Hello, WORLD!", DefaultShingleSize)
	if _, ok := fp["hello world"]; !ok {
		t.Errorf("expected lowercased single shingle, got %v", fp)
	}
}

func TestJaccard(t *testing.T) {
	t.Parallel()

	a := Fingerprint{"x": {}, "y": {}}
	b := Fingerprint{"y": {}, "z": {}}
	if got := Jaccard(a, b); got != 1.0/3.0 {
		t.Errorf("got %v, want 1/3", got)
	}
	if got := Jaccard(Fingerprint{}, Fingerprint{}); got != 0 {
		t.Errorf("empty sets: got %v, want 0", got)
	}
	if got := Jaccard(a, a); got != 1 {
		t.Errorf("identical: got %v, want 1", got)
	}
}

func TestShingleFilter_KeepsFirstOfNearDuplicates(t *testing.T) {
	t.Parallel()

	base := passage(0, 200)
	near := base + " tail"
	distinct := passage(1000, 200)

	chunks := []knowledge.Chunk{
		{ID: "first", Text: base},
		{ID: "distinct", Text: distinct},
		{ID: "second", Text: near},
	}

	got := ids(NewShingleFilter().Filter(chunks))
	want := []string{"first", "distinct"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}

	// Reversing input order flips which near-duplicate survives.
	reversed := []knowledge.Chunk{chunks[2], chunks[1], chunks[0]}
	got = ids(NewShingleFilter().Filter(reversed))
	want = []string{"second", "distinct"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("reversed: got %v, want %v", got, want)
	}
}

func TestShingleFilter_BelowThresholdKept(t *testing.T) {
	t.Parallel()

	// 100 shared words plus 100 unique words each: similarity well below 0.9.
	shared := passage(0, 100)
	a := shared + " " + passage(500, 100)
	b := shared + " " + passage(900, 100)

	got := NewShingleFilter().Filter([]knowledge.Chunk{{ID: "a", Text: a}, {ID: "b", Text: b}})
	if len(got) != 2 {
		t.Errorf("got %d chunks, want 2", len(got))
	}
}

func TestShingleFilter_StableForFixedInput(t *testing.T) {
	t.Parallel()

	var chunks []knowledge.Chunk
	for i := range 20 {
		chunks = append(chunks, knowledge.Chunk{ID: fmt.Sprint(i), Text: passage(i%5*300, 150)})
	}
	first := ids(NewShingleFilter().Filter(chunks))
	second := ids(NewShingleFilter().Filter(chunks))
	if strings.Join(first, ",") != strings.Join(second, ",") {
		t.Errorf("unstable output: %v vs %v", first, second)
	}
	if len(first) != 5 {
		t.Errorf("got %d survivors, want 5", len(first))
	}
}

var _ Filter = (*ShingleFilter)(nil)
