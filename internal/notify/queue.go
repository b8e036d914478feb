package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Queue holds live toasts for an interactive surface. Expired entries are
// dropped lazily on Active and Prune.
type Queue struct {
	mu       sync.Mutex
	items    []Notification
	duration time.Duration
	max      int
	now      func() time.Time
}

// NewQueue creates a queue whose toasts live for d. Non-positive d uses
// DefaultDuration; at most max toasts are kept (oldest evicted first).
func NewQueue(d time.Duration, max int) *Queue {
	if d <= 0 {
		d = DefaultDuration
	}
	if max <= 0 {
		max = 5
	}
	return &Queue{duration: d, max: max, now: time.Now}
}

func (q *Queue) Notify(kind Kind, title, detail string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now()
	q.items = append(q.items, Notification{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Detail:    detail,
		CreatedAt: now,
		ExpiresAt: now.Add(q.duration),
	})
	if over := len(q.items) - q.max; over > 0 {
		q.items = q.items[over:]
	}
}

// Active returns the toasts that have not yet expired, oldest first.
func (q *Queue) Active() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	out := make([]Notification, len(q.items))
	copy(out, q.items)
	return out
}

// Prune removes expired toasts and reports whether any remain.
func (q *Queue) Prune() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pruneLocked()
	return len(q.items) > 0
}

// Dismiss removes a toast by ID.
func (q *Queue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, n := range q.items {
		if n.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return
		}
	}
}

// Duration is the lifetime of each toast.
func (q *Queue) Duration() time.Duration { return q.duration }

func (q *Queue) pruneLocked() {
	now := q.now()
	kept := q.items[:0]
	for _, n := range q.items {
		if now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	q.items = kept
}
