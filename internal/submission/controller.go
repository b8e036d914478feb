// Package submission owns the request lifecycle: it turns a form submission
// into a generation request, sends it, and holds the result until reset.
//
// States move forward only:
//
//	Idle -> Submitted -> Loading -> Generated -> Idle (reset)
//
// A failed decode or request either leaves the controller where it was
// (PolicyStall, the historical behavior) or moves it to Failed, from which
// Retry or Reset are possible (PolicyRecover).
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"shannon/internal/form"
	"shannon/internal/generation"
	"shannon/internal/logging"
	"shannon/internal/notify"
)

// State is the active stage of the session.
type State int

const (
	Idle State = iota
	Submitted
	Loading
	Generated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitted:
		return "submitted"
	case Loading:
		return "loading"
	case Generated:
		return "generated"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// FailurePolicy decides what a RequestFailure does to the state.
type FailurePolicy string

const (
	// PolicyRecover moves to Failed and offers Retry and Reset.
	PolicyRecover FailurePolicy = "recover"
	// PolicyStall logs the failure and keeps the loading state forever.
	PolicyStall FailurePolicy = "stall"
)

// ParseFailurePolicy parses a config value. Empty means PolicyRecover.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyRecover:
		return PolicyRecover, nil
	case PolicyStall:
		return PolicyStall, nil
	default:
		return "", fmt.Errorf("unknown failure policy %q (want %q or %q)", s, PolicyRecover, PolicyStall)
	}
}

var (
	// ErrBusy is returned by Begin when a submission is already underway.
	ErrBusy = errors.New("a submission is already in progress")
	// ErrInvalidTransition is returned when an operation is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid state transition")
)

// Stage names the suspension point where a failure happened.
type Stage string

const (
	StageDecode Stage = "decode"
	StageSend   Stage = "send"
)

// RequestFailure wraps a decode or network error.
type RequestFailure struct {
	Stage Stage
	Err   error
}

func (f *RequestFailure) Error() string {
	return fmt.Sprintf("%s failed: %v", f.Stage, f.Err)
}

func (f *RequestFailure) Unwrap() error { return f.Err }

// Options configures a Controller.
type Options struct {
	Generator generation.Generator
	Sink      notify.Sink
	Policy    FailurePolicy
	// OnChange is called after every state transition, outside the lock.
	OnChange func(from, to State)
}

// Controller is the single submission state machine of a session.
type Controller struct {
	mu        sync.Mutex
	state     State
	sub       *form.Submission
	sentences []string
	failure   *RequestFailure

	gen      generation.Generator
	sink     notify.Sink
	policy   FailurePolicy
	onChange func(from, to State)
}

// New creates a controller in Idle.
func New(opts Options) *Controller {
	if opts.Sink == nil {
		opts.Sink = notify.Discard
	}
	if opts.Policy == "" {
		opts.Policy = PolicyRecover
	}
	return &Controller{
		gen:      opts.Generator,
		sink:     opts.Sink,
		policy:   opts.Policy,
		onChange: opts.OnChange,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Policy returns the failure policy in effect.
func (c *Controller) Policy() FailurePolicy { return c.policy }

// Submission returns the captured submission, if any.
func (c *Controller) Submission() (form.Submission, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sub == nil {
		return form.Submission{}, false
	}
	return *c.sub, true
}

// Sentences returns the stored sentences in response order.
func (c *Controller) Sentences() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sentences))
	copy(out, c.sentences)
	return out
}

// Failure returns the last request failure, if any.
func (c *Controller) Failure() *RequestFailure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// transitionLocked must be called with mu held; it returns a func that fires
// the OnChange hook and must be called after unlocking.
func (c *Controller) transitionLocked(to State) func() {
	from := c.state
	c.state = to
	logging.Submission("state %s -> %s", from, to)
	hook := c.onChange
	return func() {
		if hook != nil {
			hook(from, to)
		}
	}
}

// Begin captures a form submission and enters Submitted.
func (c *Controller) Begin(sub form.Submission) error {
	c.mu.Lock()
	if c.state != Idle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w (state %s)", ErrBusy, st)
	}
	c.sub = &sub
	c.sentences = nil
	c.failure = nil
	fire := c.transitionLocked(Submitted)
	c.mu.Unlock()
	fire()
	return nil
}

// Decode reads the submitted file as UTF-8 text and builds the request.
// Invalid byte sequences become U+FFFD and a leading byte order mark is
// dropped. The state stays Submitted on success.
func (c *Controller) Decode(ctx context.Context) (generation.Request, error) {
	c.mu.Lock()
	if c.state != Submitted || c.sub == nil {
		st := c.state
		c.mu.Unlock()
		return generation.Request{}, fmt.Errorf("%w: decode in state %s", ErrInvalidTransition, st)
	}
	sub := *c.sub
	c.mu.Unlock()

	content, err := readText(ctx, sub)
	if err != nil {
		return generation.Request{}, c.fail(StageDecode, err)
	}

	logging.SubmissionDebug("decoded %s: %d bytes", sub.File.Name, len(content))
	return generation.Request{
		Strength:     sub.Config.Strength,
		NumSentences: sub.Config.SentenceCount,
		FileContent:  content,
	}, nil
}

func readText(ctx context.Context, sub form.Submission) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rc, err := sub.File.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", sub.File.Name, err)
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	return strings.ToValidUTF8(text, "\uFFFD"), nil
}

// Send enters Loading, issues the request and, on success, stores the
// sentences and enters Generated.
func (c *Controller) Send(ctx context.Context, req generation.Request) ([]string, error) {
	c.mu.Lock()
	if c.state != Submitted {
		st := c.state
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: send in state %s", ErrInvalidTransition, st)
	}
	if c.gen == nil {
		c.mu.Unlock()
		return nil, c.fail(StageSend, errors.New("no generator configured"))
	}
	fire := c.transitionLocked(Loading)
	c.mu.Unlock()
	fire()

	resp, err := c.gen.Generate(ctx, req)
	if err != nil {
		return nil, c.fail(StageSend, err)
	}

	sentences := resp.Sentences
	if sentences == nil {
		sentences = []string{}
	}

	c.mu.Lock()
	c.sentences = sentences
	fire = c.transitionLocked(Generated)
	c.mu.Unlock()
	fire()

	out := make([]string, len(sentences))
	copy(out, sentences)
	return out, nil
}

// Run performs Begin, Decode and Send in order.
func (c *Controller) Run(ctx context.Context, sub form.Submission) ([]string, error) {
	if err := c.Begin(sub); err != nil {
		return nil, err
	}
	req, err := c.Decode(ctx)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, req)
}

// fail records and logs a failure, applying the policy.
func (c *Controller) fail(stage Stage, err error) error {
	rf := &RequestFailure{Stage: stage, Err: err}
	logging.Get(logging.CategorySubmission).Error("request failure: %v", rf)

	c.mu.Lock()
	c.failure = rf
	if c.policy == PolicyStall {
		c.mu.Unlock()
		return rf
	}
	fire := c.transitionLocked(Failed)
	c.mu.Unlock()
	fire()

	c.sink.Notify(notify.KindError, "Error generating sentences", err.Error())
	return rf
}

// Retry moves Failed back to Submitted so Decode and Send can run again
// with the same submission.
func (c *Controller) Retry() error {
	c.mu.Lock()
	if c.state != Failed {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: retry in state %s", ErrInvalidTransition, st)
	}
	c.failure = nil
	fire := c.transitionLocked(Submitted)
	c.mu.Unlock()
	fire()
	return nil
}

// Reset returns to Idle from Generated or Failed, discarding the file,
// parameters and sentences.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.state != Generated && c.state != Failed {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: reset in state %s", ErrInvalidTransition, st)
	}
	c.sub = nil
	c.sentences = nil
	c.failure = nil
	fire := c.transitionLocked(Idle)
	c.mu.Unlock()
	fire()
	return nil
}
