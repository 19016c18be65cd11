// Package budget estimates the token cost of text handed to an LLM and trims
// ranked result blocks to fit a context budget. Embedding and chat backends
// use different tokenizers, so the estimate is a character heuristic:
// 1 token ≈ 4 characters.
package budget

const (
	charsPerToken = 4

	// DefaultMaxTokens is the budget applied to a single tool result. It
	// leaves room for the rest of an 8k context window.
	DefaultMaxTokens = 6000
)

// Estimate returns a rough token count for s.
func Estimate(s string) int {
	n := len(s) / charsPerToken
	if n == 0 && len(s) > 0 {
		return 1
	}
	return n
}

// Fit returns the longest prefix of blocks whose estimated cost, including
// one sep between consecutive blocks, stays within maxTokens. Blocks are
// assumed ranked best first, so the tail is dropped. The first block is
// always kept. maxTokens <= 0 disables trimming.
func Fit(blocks []string, sep string, maxTokens int) []string {
	if maxTokens <= 0 || len(blocks) == 0 {
		return blocks
	}
	total := Estimate(blocks[0])
	sepCost := Estimate(sep)
	for i := 1; i < len(blocks); i++ {
		total += sepCost + Estimate(blocks[i])
		if total > maxTokens {
			return blocks[:i]
		}
	}
	return blocks
}
