package usage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTracker_TrackAggregatesAndPersists(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	require.NoError(t, err)
	tracker.SetSaveDelay(0)
	assert.Equal(t, filepath.Join(dir, FileName), tracker.Path())

	tracker.Track("openai", "gpt-4o-mini", 2, 10, 5)
	tracker.Track("openai", "gpt-4o-mini", 3, 2, 3)
	tracker.Track("gemini", "gemini-2.5-flash", 3, 1, 1)

	stats := tracker.Stats()
	assert.Equal(t, int64(3), stats.Requests)
	assert.Equal(t, TokenCounts{Input: 13, Output: 9, Total: 22}, stats.Total)
	assert.Equal(t, int64(20), stats.ByBackend["openai"].Total)
	assert.Equal(t, int64(2), stats.ByModel["gemini-2.5-flash"].Total)
	assert.Equal(t, int64(7), stats.ByStrength["3"].Total)

	data, err := os.ReadFile(tracker.Path())
	require.NoError(t, err)
	var persisted UsageData
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, int64(22), persisted.Aggregate.Total.Total)
}

func TestTracker_ReloadsExisting(t *testing.T) {
	dir := t.TempDir()
	first, err := NewTracker(dir)
	require.NoError(t, err)
	first.Track("openai", "m", 1, 4, 4)
	require.NoError(t, first.Close())

	second, err := NewTracker(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(8), second.Stats().Total.Total)
	assert.Equal(t, int64(1), second.Stats().Requests)
}

func TestTracker_CorruptFileStartsEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644))

	tracker, err := NewTracker(dir)
	require.NoError(t, err)
	assert.Zero(t, tracker.Stats().Requests)
	tracker.Track("gemini", "m", 4, 1, 2)
	assert.Equal(t, int64(3), tracker.Stats().ByStrength["4"].Total)
}

func TestTracker_CloseFlushesPendingSave(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	require.NoError(t, err)
	tracker.SetSaveDelay(time.Hour)

	tracker.Track("openai", "m", 1, 1, 1)
	_, err = os.Stat(filepath.Join(dir, FileName))
	assert.True(t, os.IsNotExist(err), "save is debounced")

	require.NoError(t, tracker.Close())
	require.FileExists(t, filepath.Join(dir, FileName))

	tracker.Track("openai", "m", 1, 100, 100)
	assert.Equal(t, int64(2), tracker.Stats().Total.Total, "closed tracker ignores Track")
}

func TestTracker_DebouncedSaveFires(t *testing.T) {
	dir := t.TempDir()
	tracker, err := NewTracker(dir)
	require.NoError(t, err)
	tracker.SetSaveDelay(10 * time.Millisecond)

	tracker.Track("openai", "m", 2, 1, 1)
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, FileName))
		return err == nil
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, tracker.Close())
}

func TestTracker_Reset(t *testing.T) {
	tracker, err := NewTracker(t.TempDir())
	require.NoError(t, err)
	tracker.SetSaveDelay(0)
	tracker.Track("openai", "m", 1, 5, 5)
	require.NoError(t, tracker.Reset())
	assert.Zero(t, tracker.Stats().Total.Total)
	assert.NotNil(t, tracker.Stats().ByBackend)
}

func TestTracker_ContextHelpers(t *testing.T) {
	tracker, err := NewTracker(t.TempDir())
	require.NoError(t, err)

	assert.Nil(t, FromContext(context.Background()))
	ctx := NewContext(context.Background(), tracker)
	assert.Same(t, tracker, FromContext(ctx))
}
