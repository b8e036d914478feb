// Package usage records token consumption of the LLM generation backends and
// persists the aggregate to usage.json in the state directory.
package usage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"shannon/internal/logging"
)

// FileName is the persisted aggregate inside the state directory.
const FileName = "usage.json"

// DefaultSaveDelay debounces writes after Track.
const DefaultSaveDelay = 5 * time.Second

type contextKey struct{}

// Tracker manages token usage recording and persistence.
type Tracker struct {
	mu        sync.Mutex
	data      UsageData
	filePath  string
	saveDelay time.Duration
	timer     *time.Timer
	closed    bool
}

// NewTracker creates a tracker persisting to <stateDir>/usage.json and loads
// any existing aggregate. A corrupt file is logged and replaced on next save.
func NewTracker(stateDir string) (*Tracker, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state dir: %w", err)
	}

	t := &Tracker{
		filePath:  filepath.Join(stateDir, FileName),
		saveDelay: DefaultSaveDelay,
		data:      UsageData{Version: "1.0"},
	}
	t.data.Aggregate.ensureMaps()

	if err := t.Load(); err != nil {
		logging.Get(logging.CategoryUsage).Warn("ignoring unreadable %s: %v", t.filePath, err)
	}
	return t, nil
}

// Path returns the file the tracker persists to.
func (t *Tracker) Path() string { return t.filePath }

// SetSaveDelay changes the debounce delay; zero saves synchronously on Track.
func (t *Tracker) SetSaveDelay(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.saveDelay = d
}

// Load reads the usage data from disk. A missing file is not an error.
func (t *Tracker) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var loaded UsageData
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}
	loaded.Aggregate.ensureMaps()
	t.data = loaded
	return nil
}

// Save writes the usage data to disk.
func (t *Tracker) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.saveLocked()
}

func (t *Tracker) saveLocked() error {
	data, err := json.MarshalIndent(t.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(t.filePath, data, 0644)
}

// Track records one generation request.
func (t *Tracker) Track(backend, model string, strength int, input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	agg := &t.data.Aggregate
	agg.Requests++
	agg.Total.Add(input, output)
	addToMap(agg.ByBackend, backend, input, output)
	addToMap(agg.ByModel, model, input, output)
	addToMap(agg.ByStrength, strconv.Itoa(strength), input, output)

	if t.saveDelay <= 0 {
		if err := t.saveLocked(); err != nil {
			logging.Get(logging.CategoryUsage).Error("usage save failed: %v", err)
		}
		return
	}
	// Debounced auto-save
	if t.timer == nil {
		t.timer = time.AfterFunc(t.saveDelay, t.flush)
	}
}

func (t *Tracker) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = nil
	if err := t.saveLocked(); err != nil {
		logging.Get(logging.CategoryUsage).Error("usage save failed: %v", err)
	}
}

// Close stops a pending auto-save and writes the final aggregate.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	return t.saveLocked()
}

// Stats returns a copy of the aggregated stats.
func (t *Tracker) Stats() AggregatedStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	stats := t.data.Aggregate
	stats.ByBackend = copyTokenCountsMap(stats.ByBackend)
	stats.ByModel = copyTokenCountsMap(stats.ByModel)
	stats.ByStrength = copyTokenCountsMap(stats.ByStrength)
	return stats
}

// Reset clears the aggregate and saves.
func (t *Tracker) Reset() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.data = UsageData{Version: "1.0"}
	t.data.Aggregate.ensureMaps()
	return t.saveLocked()
}

func copyTokenCountsMap(src map[string]TokenCounts) map[string]TokenCounts {
	if src == nil {
		return nil
	}
	dst := make(map[string]TokenCounts, len(src))
	for key, counts := range src {
		dst[key] = counts
	}
	return dst
}

func addToMap(m map[string]TokenCounts, key string, input, output int64) {
	entry := m[key]
	entry.Add(input, output)
	m[key] = entry
}

// Context Helpers

// NewContext returns a new context carrying the tracker.
func NewContext(ctx context.Context, t *Tracker) context.Context {
	return context.WithValue(ctx, contextKey{}, t)
}

// FromContext retrieves the tracker from the context, or nil.
func FromContext(ctx context.Context) *Tracker {
	t, _ := ctx.Value(contextKey{}).(*Tracker)
	return t
}
