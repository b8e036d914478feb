package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_ReportsRemoval(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("a b c"), 0644))

	w, err := NewWatcher()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(runDone)
	}()
	defer func() {
		cancel()
		<-runDone
		_ = w.Close()
	}()

	require.NoError(t, w.Follow(path))
	require.NoError(t, os.Remove(path))

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ch := <-w.Changes():
			if ch.Kind == ChangeRemoved {
				abs, _ := filepath.Abs(path)
				require.Equal(t, abs, ch.Path)
				return
			}
		case <-deadline:
			t.Fatal("no removal event received")
		}
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("a"), 0644))

	w, err := NewWatcher()
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, w.Follow(path))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("b"), 0644))

	select {
	case ch := <-w.Changes():
		t.Fatalf("unexpected change %+v", ch)
	case <-time.After(300 * time.Millisecond):
	}

	require.NoError(t, w.Follow(""))
}

func TestWatcher_EditorSaveIsNotRemoval(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("first draft"), 0644))

	w, err := NewWatcher()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(runDone)
	}()
	defer func() {
		cancel()
		<-runDone
		_ = w.Close()
	}()

	require.NoError(t, w.Follow(path))

	// vim-style save: move the original to a backup, write a fresh file.
	require.NoError(t, os.Rename(path, path+"~"))
	require.NoError(t, os.WriteFile(path, []byte("second draft"), 0644))

	var kinds []ChangeKind
	timeout := time.After(RemoveSettle + time.Second)
collect:
	for {
		select {
		case ch := <-w.Changes():
			kinds = append(kinds, ch.Kind)
		case <-timeout:
			break collect
		}
	}

	assert.NotContains(t, kinds, ChangeRemoved)
	assert.Contains(t, kinds, ChangeModified)
}
