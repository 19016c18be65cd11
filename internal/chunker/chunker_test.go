package chunker

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
)

// sentence returns a sentence of exactly n words ending in a period.
func sentence(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = "word"
	}
	words[0] = "Alpha"
	return strings.Join(words, " ") + "."
}

func TestSplitSections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []Section
	}{
		{
			name: "no headings",
			in:   "plain text\nmore text\n",
			want: []Section{{Body: "plain text\nmore text"}},
		},
		{
			name: "markdown and numbered headings",
			in:   "preamble\n# Intro\nintro body\n  1.1 Setup  \nsetup body\nSection 2\nlast body",
			want: []Section{
				{Title: "", Body: "preamble"},
				{Title: "# Intro", Body: "intro body"},
				{Title: "1.1 Setup", Body: "setup body"},
				{Title: "Section 2", Body: "last body"},
			},
		},
		{
			name: "heading without body is dropped",
			in:   "# One\n# Two\nbody two\n# Three",
			want: []Section{{Title: "# Two", Body: "body two"}},
		},
		{
			name: "only headings falls back to whole text",
			in:   "# One\n# Two",
			want: []Section{{Body: "# One\n# Two"}},
		},
		{
			name: "single digit is not a heading",
			in:   "1. First step\n2. Second step",
			want: []Section{{Body: "1. First step\n2. Second step"}},
		},
		{
			name: "crlf line endings",
			in:   "# A\r\nbody a\r\n",
			want: []Section{{Title: "# A", Body: "body a"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitSections(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %#v\nwant %#v", got, tt.want)
			}
		})
	}
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "terminal punctuation before capital or digit",
			in:   "Use 2.5 bids. Then test! Why? 3 things remain",
			want: []string{"Use 2.5 bids.", "Then test!", "Why?", "3 things remain"},
		},
		{
			name: "lowercase continuation is not split",
			in:   "See e.g. the docs. fine",
			want: []string{"See e.g. the docs. fine"},
		},
		{
			name: "paragraph breaks split",
			in:   "first para\n\n\nsecond para",
			want: []string{"first para", "second para"},
		},
		{
			name: "whitespace run is consumed",
			in:   "One.  \n  Two.",
			want: []string{"One.", "Two."},
		},
		{
			name: "empty input",
			in:   "   ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := SplitSentences(tt.in)
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		sentences []string
		wantSizes [][]int
	}{
		{
			name:      "target reached flushes",
			sentences: []string{sentence(100), sentence(100), sentence(100)},
			wantSizes: [][]int{{100, 100, 100}},
		},
		{
			name:      "max cap flushes before adding",
			sentences: []string{sentence(200), sentence(200)},
			wantSizes: [][]int{{200}, {200}},
		},
		{
			name:      "short trailing block dropped",
			sentences: []string{sentence(270), sentence(50)},
			wantSizes: [][]int{{270}},
		},
		{
			name:      "oversized sentence stands alone",
			sentences: []string{sentence(30), sentence(500), sentence(130)},
			wantSizes: [][]int{{500}, {130}},
		},
		{
			name:      "nothing above minimum",
			sentences: []string{sentence(40), sentence(40)},
			wantSizes: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got [][]int
			for _, g := range Assemble(tt.sentences, Config{}) {
				sizes := make([]int, len(g))
				for i, s := range g {
					sizes[i] = WordCount(s)
				}
				got = append(got, sizes)
			}
			if fmt.Sprint(got) != fmt.Sprint(tt.wantSizes) {
				t.Errorf("got %v, want %v", got, tt.wantSizes)
			}
		})
	}
}

func TestAssemble_Bounds(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(7, 11))
	for range 50 {
		var sentences []string
		for range 1 + r.IntN(60) {
			sentences = append(sentences, sentence(1+r.IntN(90)))
		}
		for _, g := range Assemble(sentences, Config{}) {
			words := blockWords(g)
			if words < DefaultMinWords {
				t.Fatalf("block of %d words below minimum", words)
			}
			if words > DefaultMaxWords && len(g) > 1 {
				t.Fatalf("multi-sentence block of %d words above maximum", words)
			}
		}
	}
}

func TestHighlights(t *testing.T) {
	t.Parallel()

	in := []string{
		"You should always use phrase match.",
		"Nothing special here.",
		"Never mix brand terms.",
		"A Best Practice is to test.",
		"Follow the rule.",
		"Avoid broad.",
		"You must check.",
		"A warning sign.",
	}
	got := Highlights(in)
	want := []string{
		"You should always use phrase match.",
		"Never mix brand terms.",
		"A Best Practice is to test.",
		"Follow the rule.",
		"Avoid broad.",
		"You must check.",
	}
	if !slices.Equal(got, want) {
		t.Errorf("got %q\nwant %q", got, want)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("with section and highlights", func(t *testing.T) {
		t.Parallel()
		got := Render("# Match", []string{"Intro text.", "Always use exact."}, "a.md")
		want := "Source: a.md | Section: # Match\nHighlights:\n- Always use exact.\nContext: Intro text. Always use exact."
		if got != want {
			t.Errorf("got %q\nwant %q", got, want)
		}
	})

	t.Run("no section no highlights", func(t *testing.T) {
		t.Parallel()
		got := Render("", []string{"Intro text.", "More."}, "b.txt")
		want := "Source: b.txt\nIntro text. More."
		if got != want {
			t.Errorf("got %q\nwant %q", got, want)
		}
	})
}

func TestBlocks(t *testing.T) {
	t.Parallel()

	text := "# First\n" + sentence(150) + "\n# Second\n" + sentence(20)
	blocks := Blocks(text, Config{})
	if len(blocks) != 1 {
		t.Fatalf("got %d blocks, want 1", len(blocks))
	}
	if blocks[0].Section != "# First" {
		t.Errorf("section: got %q", blocks[0].Section)
	}
}
