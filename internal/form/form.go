// Package form captures the generation parameters and the accepted file.
package form

import (
	"errors"
	"fmt"
	"sync"

	"shannon/internal/ingest"
	"shannon/internal/logging"
	"shannon/internal/notify"
)

// Parameter bounds. The controls clamp to these, so no range validation
// happens on submit.
const (
	MinStrength      = 1
	MaxStrength      = 4
	MinSentenceCount = 1
	MaxSentenceCount = 10
)

var (
	// ErrMissingFile is returned by Submit when no file has been accepted.
	ErrMissingFile = errors.New("please upload a .txt file")
	// ErrInert is returned by Submit after a successful submission and until Reset.
	ErrInert = errors.New("form already submitted")
)

// Config is the pair of numeric parameters chosen by the user.
type Config struct {
	Strength      int
	SentenceCount int
}

// DefaultConfig returns the initial parameters.
func DefaultConfig() Config {
	return Config{Strength: MinStrength, SentenceCount: MinSentenceCount}
}

// Submission is what a successful Submit hands to the controller.
type Submission struct {
	File   ingest.UploadedFile
	Config Config
}

// Form holds the current parameters and accepted file.
type Form struct {
	mu    sync.Mutex
	cfg   Config
	file  *ingest.UploadedFile
	inert bool
	sink  notify.Sink
}

// New creates a form with default parameters. A nil sink discards notifications.
func New(sink notify.Sink) *Form {
	if sink == nil {
		sink = notify.Discard
	}
	return &Form{cfg: DefaultConfig(), sink: sink}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SetStrength sets the strength, clamped to [1,4].
func (f *Form) SetStrength(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inert {
		return
	}
	f.cfg.Strength = clamp(v, MinStrength, MaxStrength)
}

// SetSentenceCount sets the sentence count, clamped to [1,10].
func (f *Form) SetSentenceCount(v int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inert {
		return
	}
	f.cfg.SentenceCount = clamp(v, MinSentenceCount, MaxSentenceCount)
}

// StepStrength moves the strength control by delta steps.
func (f *Form) StepStrength(delta int) {
	f.SetStrength(f.Config().Strength + delta)
}

// StepSentenceCount moves the sentence count control by delta steps.
func (f *Form) StepSentenceCount(delta int) {
	f.SetSentenceCount(f.Config().SentenceCount + delta)
}

// SetFile records the accepted file, replacing any previous one. It is the
// callback handed to the ingestor.
func (f *Form) SetFile(file ingest.UploadedFile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inert {
		return
	}
	f.file = &file
}

// ClearFile drops the accepted file.
func (f *Form) ClearFile() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inert {
		return
	}
	f.file = nil
}

// Config returns the current parameters.
func (f *Form) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

// File returns the accepted file, if any.
func (f *Form) File() (ingest.UploadedFile, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return ingest.UploadedFile{}, false
	}
	return *f.file, true
}

// Inert reports whether the form has been submitted and awaits Reset.
func (f *Form) Inert() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inert
}

// Submit validates that a file is present and captures the submission.
func (f *Form) Submit() (Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.inert {
		return Submission{}, ErrInert
	}
	if f.file == nil {
		logging.Get(logging.CategoryForm).Warn("submit without file")
		f.sink.Notify(notify.KindError, "Error training model", "Please upload a .txt file")
		return Submission{}, ErrMissingFile
	}

	sub := Submission{File: *f.file, Config: f.cfg}
	f.inert = true
	logging.Get(logging.CategoryForm).Info("submitted %s strength=%d sentences=%d",
		sub.File.Name, sub.Config.Strength, sub.Config.SentenceCount)
	return sub, nil
}

// Reset restores defaults, drops the file and makes the form interactive again.
func (f *Form) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg = DefaultConfig()
	f.file = nil
	f.inert = false
}

// StrengthLabel names a strength value.
func StrengthLabel(v int) string {
	switch v {
	case 1:
		return "Very Weak"
	case 2:
		return "Weak"
	case 3:
		return "Strong"
	case 4:
		return "Very Strong"
	default:
		return ""
	}
}

// String renders the config for logs and the headless CLI.
func (c Config) String() string {
	return fmt.Sprintf("strength=%d (%s) sentences=%d", c.Strength, StrengthLabel(c.Strength), c.SentenceCount)
}
