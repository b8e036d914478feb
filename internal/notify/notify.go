// Package notify is the transient notification channel shared by file
// ingestion, the configuration form and the submission controller.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

// DefaultDuration matches the lifetime of a toast in the web client.
const DefaultDuration = 2 * time.Second

// Notification is a short-lived user-facing message. It is never persisted.
type Notification struct {
	ID        string
	Kind      Kind
	Title     string
	Detail    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Sink receives notifications. Implementations must be safe for concurrent use.
type Sink interface {
	Notify(kind Kind, title, detail string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(kind Kind, title, detail string)

func (f SinkFunc) Notify(kind Kind, title, detail string) { f(kind, title, detail) }

// Discard drops every notification.
var Discard Sink = SinkFunc(func(Kind, string, string) {})

// Recorder keeps every notification in arrival order.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(kind Kind, title, detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	r.items = append(r.items, Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Detail:    detail,
		CreatedAt: now,
		ExpiresAt: now.Add(DefaultDuration),
	})
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// OfKind returns the recorded notifications of one kind.
func (r *Recorder) OfKind(kind Kind) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.items = nil
	r.mu.Unlock()
}
