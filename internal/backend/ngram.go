// Package backend implements the sentence generators the service can run:
// the n-gram model trained per request, and two hosted LLMs.
package backend

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"shannon/internal/generation"
	"shannon/internal/logging"
	"shannon/internal/ngram"
)

// ErrEmptyCorpus is returned when the uploaded text has no trainable lines.
var ErrEmptyCorpus = errors.New("file has no trainable text")

// NGram trains a fresh model of order Strength on every request.
type NGram struct {
	sem     *semaphore.Weighted
	workers int
	byChar  bool
	seed    func() uint64
}

// NGramOptions configures an NGram backend.
type NGramOptions struct {
	// MaxConcurrent bounds simultaneous trainings. Zero means GOMAXPROCS.
	MaxConcurrent int
	// Workers bounds parallel sampling within one request. Zero means GOMAXPROCS.
	Workers int
	// ByChar tokenizes by character instead of whitespace.
	ByChar bool
	// Seed supplies PCG seeds; nil uses the runtime's random source.
	Seed func() uint64
}

// NewNGram creates the n-gram backend.
func NewNGram(opts NGramOptions) *NGram {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = runtime.GOMAXPROCS(0)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == nil {
		opts.Seed = rand.Uint64
	}
	return &NGram{
		sem:     semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		workers: opts.Workers,
		byChar:  opts.ByChar,
		seed:    opts.Seed,
	}
}

// Name identifies the backend in logs.
func (b *NGram) Name() string { return "ngram" }

// Generate trains on req.FileContent and samples req.NumSentences sentences.
// Sentences are sampled in parallel; output order is by sample index.
func (b *NGram) Generate(ctx context.Context, req generation.Request) (generation.Response, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return generation.Response{}, err
	}
	defer b.sem.Release(1)

	start := time.Now()
	model := ngram.New(req.Strength)
	model.Train(ngram.Tokenize(strings.Split(req.FileContent, "\n"), req.Strength, b.byChar))
	if !model.Trained() {
		return generation.Response{}, ErrEmptyCorpus
	}
	logging.ModelDebug("trained order-%d model: vocab=%d in %s", model.Order(), model.VocabSize(), time.Since(start))

	sentences := make([]string, req.NumSentences)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for i := 0; i < req.NumSentences; i++ {
		s1, s2 := b.seed(), b.seed()
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens, err := model.Sample(rand.New(rand.NewPCG(s1, s2)))
			if err != nil {
				return fmt.Errorf("sample %d: %w", i, err)
			}
			sentences[i] = ngram.Format(tokens)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return generation.Response{}, err
	}
	return generation.Response{Sentences: sentences}, nil
}
