// Package ngram is the n-gram language model behind the generation service.
// It trains on whitespace- or character-tokenized lines and samples new
// sentences with the Shannon technique.
package ngram

import "strings"

// Boundary and unknown-token markers.
const (
	SentenceBegin = "<s>"
	SentenceEnd   = "</s>"
	Unknown       = "<UNK>"
)

// CreateNGrams returns every contiguous run of n tokens.
func CreateNGrams(tokens []string, n int) [][]string {
	if n <= 0 || len(tokens) < n {
		return nil
	}
	out := make([][]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, tokens[i:i+n])
	}
	return out
}

// TokenizeLine splits one line and pads it with n-1 begin and end markers
// (exactly one of each when n == 1).
func TokenizeLine(line string, n int, byChar bool) []string {
	var inner []string
	if byChar {
		for _, r := range line {
			inner = append(inner, string(r))
		}
	} else {
		inner = strings.Fields(line)
	}

	pad := n - 1
	if pad < 1 {
		pad = 1
	}
	tokens := make([]string, 0, len(inner)+2*pad)
	for i := 0; i < pad; i++ {
		tokens = append(tokens, SentenceBegin)
	}
	tokens = append(tokens, inner...)
	for i := 0; i < pad; i++ {
		tokens = append(tokens, SentenceEnd)
	}
	return tokens
}

// Tokenize concatenates the padded tokens of every non-blank line.
func Tokenize(lines []string, n int, byChar bool) []string {
	var total []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total = append(total, TokenizeLine(line, n, byChar)...)
	}
	return total
}

// Format drops boundary markers and joins the remaining tokens with spaces.
func Format(sentence []string) string {
	words := make([]string, 0, len(sentence))
	for _, tok := range sentence {
		if tok == SentenceBegin || tok == SentenceEnd {
			continue
		}
		words = append(words, tok)
	}
	return strings.Join(words, " ")
}
