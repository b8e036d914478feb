package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shannon/internal/logging"
)

// ChangeKind describes what happened to a watched file.
type ChangeKind string

const (
	ChangeModified ChangeKind = "modified"
	ChangeRemoved  ChangeKind = "removed"
)

// RemoveSettle is how long a remove or rename waits for the file to
// reappear before it is reported. Editors save by renaming the original away
// and creating a new file at the same path.
const RemoveSettle = 150 * time.Millisecond

// Change is emitted when the accepted file changes on disk before it is
// submitted.
type Change struct {
	Path string
	Kind ChangeKind
}

// Watcher follows a single accepted file. The parent directory is watched
// because editors replace files with rename-over-write.
type Watcher struct {
	w       *fsnotify.Watcher
	changes chan Change
	settle  time.Duration

	mu     sync.Mutex
	target string
	dir    string

	stopOnce sync.Once
	done     chan struct{}
}

// NewWatcher creates a watcher. Call Run to start delivering changes.
func NewWatcher() (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		w:       w,
		changes: make(chan Change, 8),
		settle:  RemoveSettle,
		done:    make(chan struct{}),
	}, nil
}

// Changes delivers file changes for the current target.
func (fw *Watcher) Changes() <-chan Change { return fw.changes }

// Follow switches the watch to path. An empty path stops following.
func (fw *Watcher) Follow(path string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		path = abs
	}
	if path == fw.target {
		return nil
	}
	if fw.dir != "" {
		_ = fw.w.Remove(fw.dir)
	}
	fw.target, fw.dir = path, ""
	if path == "" {
		return nil
	}

	dir := filepath.Dir(path)
	if err := fw.w.Add(dir); err != nil {
		return err
	}
	fw.dir = dir
	logging.Get(logging.CategoryIngest).Debug("watching %s", path)
	return nil
}

// Run delivers changes until ctx is done or Close is called.
func (fw *Watcher) Run(ctx context.Context) {
	defer close(fw.changes)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.done:
			return
		case ev, ok := <-fw.w.Events:
			if !ok {
				return
			}
			switch fw.classify(ev) {
			case ChangeRemoved:
				if settle == nil {
					settle = time.After(fw.settle)
				}
			case ChangeModified:
				// Recreated or written: a pending removal was a save.
				settle = nil
				fw.emit(ChangeModified)
			}
		case <-settle:
			settle = nil
			if fw.targetExists() {
				fw.emit(ChangeModified)
			} else {
				fw.emit(ChangeRemoved)
			}
		case err, ok := <-fw.w.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryIngest).Error("watcher error: %v", err)
		}
	}
}

// classify maps an event on the target to a change kind, or "" for events
// on other files and ones that do not matter.
func (fw *Watcher) classify(ev fsnotify.Event) ChangeKind {
	fw.mu.Lock()
	target := fw.target
	fw.mu.Unlock()

	if target == "" || filepath.Clean(ev.Name) != target {
		return ""
	}
	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return ChangeRemoved
	case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
		return ChangeModified
	}
	return ""
}

func (fw *Watcher) targetExists() bool {
	fw.mu.Lock()
	target := fw.target
	fw.mu.Unlock()
	if target == "" {
		return true
	}
	_, err := os.Stat(target)
	return err == nil
}

func (fw *Watcher) emit(kind ChangeKind) {
	fw.mu.Lock()
	target := fw.target
	fw.mu.Unlock()
	if target == "" {
		return
	}

	select {
	case fw.changes <- Change{Path: target, Kind: kind}:
	default:
		// consumer is behind; the newest state will be re-read on submit
	}
}

// Close stops the watcher.
func (fw *Watcher) Close() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.done)
		err = fw.w.Close()
	})
	return err
}
