package ngram

import (
	"errors"
	"math"
	"math/rand/v2"
	"sort"
	"strings"
)

// MaxSentenceTokens bounds a sampled sentence. A corpus whose end marker
// was folded into <UNK> could otherwise sample forever.
const MaxSentenceTokens = 200

// ErrUntrained is returned when sampling from a model with no data.
var ErrUntrained = errors.New("ngram: model has not been trained")

const sep = "\x1f"

func key(tokens []string) string { return strings.Join(tokens, sep) }

// Model is an n-gram language model. It is safe for concurrent sampling once
// Train has returned.
type Model struct {
	n             int
	vocab         map[string]struct{}
	vocabList     []string
	ngramCounts   map[string]int
	contextCounts map[string]int
	successors    map[string][]string
	total         int
}

// New creates an untrained model of order n (minimum 1).
func New(n int) *Model {
	if n < 1 {
		n = 1
	}
	return &Model{
		n:             n,
		vocab:         make(map[string]struct{}),
		ngramCounts:   make(map[string]int),
		contextCounts: make(map[string]int),
		successors:    make(map[string][]string),
	}
}

// Order returns n.
func (m *Model) Order() int { return m.n }

// VocabSize returns the number of distinct tokens seen in training,
// counting <UNK>.
func (m *Model) VocabSize() int { return len(m.vocab) }

// Trained reports whether Train saw any n-grams.
func (m *Model) Trained() bool { return len(m.ngramCounts) > 0 }

// Train counts n-grams over tokens. Tokens that appear once are replaced by
// <UNK> first.
func (m *Model) Train(tokens []string) {
	freq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		freq[t]++
	}
	list := make([]string, len(tokens))
	for i, t := range tokens {
		if freq[t] > 1 {
			list[i] = t
		} else {
			list[i] = Unknown
		}
	}

	for _, t := range list {
		m.vocab[t] = struct{}{}
	}
	m.vocabList = m.vocabList[:0]
	for t := range m.vocab {
		m.vocabList = append(m.vocabList, t)
	}
	sort.Strings(m.vocabList)

	for _, g := range CreateNGrams(list, m.n) {
		k := key(g)
		if m.ngramCounts[k] == 0 {
			ctx := key(g[:len(g)-1])
			m.successors[ctx] = append(m.successors[ctx], g[len(g)-1])
		}
		m.ngramCounts[k]++
		if m.n > 1 {
			m.contextCounts[key(g[:len(g)-1])]++
		}
	}
	if m.n == 1 {
		m.contextCounts[""] = len(list)
	}
	m.total = len(list)
}

// Score returns the Laplace-smoothed probability of a token sequence.
func (m *Model) Score(tokens []string) float64 {
	mapped := make([]string, len(tokens))
	for i, t := range tokens {
		if _, ok := m.vocab[t]; ok {
			mapped[i] = t
		} else {
			mapped[i] = Unknown
		}
	}

	p := 1.0
	vs := float64(len(m.vocab))
	for _, g := range CreateNGrams(mapped, m.n) {
		count := float64(m.ngramCounts[key(g)])
		ctx := ""
		if m.n > 1 {
			ctx = key(g[:len(g)-1])
		}
		p *= (count + 1) / (float64(m.contextCounts[ctx]) + vs)
	}
	return p
}

// Perplexity returns Score(tokens)^(-1/len(tokens)).
func (m *Model) Perplexity(tokens []string) float64 {
	if len(tokens) == 0 {
		return math.Inf(1)
	}
	return math.Pow(m.Score(tokens), -1/float64(len(tokens)))
}

// Sample generates one sentence, boundary markers included.
func (m *Model) Sample(rng *rand.Rand) ([]string, error) {
	if !m.Trained() {
		return nil, ErrUntrained
	}
	if m.n == 1 {
		return m.sampleUnigram(rng), nil
	}
	return m.sampleContext(rng), nil
}

// Generate samples count sentences.
func (m *Model) Generate(rng *rand.Rand, count int) ([][]string, error) {
	out := make([][]string, 0, count)
	for i := 0; i < count; i++ {
		s, err := m.Sample(rng)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *Model) sampleUnigram(rng *rand.Rand) []string {
	weights := make([]int, len(m.vocabList))
	for i, w := range m.vocabList {
		if w == SentenceBegin {
			continue
		}
		weights[i] = m.ngramCounts[w]
	}

	sentence := []string{SentenceBegin}
	for sentence[len(sentence)-1] != SentenceEnd {
		if len(sentence) >= MaxSentenceTokens {
			return append(sentence, SentenceEnd)
		}
		idx := pick(rng, weights)
		if idx < 0 {
			return append(sentence, SentenceEnd)
		}
		sentence = append(sentence, m.vocabList[idx])
	}
	return sentence
}

// sampleContext seeds the sentence with n-1 begin markers, the same padding
// training used, then draws each token from its (n-1)-token context.
func (m *Model) sampleContext(rng *rand.Rand) []string {
	sentence := make([]string, 0, 16)
	for i := 0; i < m.n-1; i++ {
		sentence = append(sentence, SentenceBegin)
	}

	for sentence[len(sentence)-1] != SentenceEnd {
		if len(sentence) >= MaxSentenceTokens {
			return append(sentence, SentenceEnd)
		}
		ctx := sentence[len(sentence)-(m.n-1):]
		nexts := m.successors[key(ctx)]
		if len(nexts) == 0 {
			return append(sentence, SentenceEnd)
		}
		weights := make([]int, len(nexts))
		for i, w := range nexts {
			weights[i] = m.ngramCounts[key(append(append([]string(nil), ctx...), w))]
		}
		idx := pick(rng, weights)
		if idx < 0 {
			return append(sentence, SentenceEnd)
		}
		sentence = append(sentence, nexts[idx])
	}
	return sentence
}

// pick returns an index drawn in proportion to weights, or -1 when all are zero.
func pick(rng *rand.Rand, weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	if total <= 0 {
		return -1
	}
	r := rng.IntN(total)
	for i, w := range weights {
		if r < w {
			return i
		}
		r -= w
	}
	return len(weights) - 1
}
