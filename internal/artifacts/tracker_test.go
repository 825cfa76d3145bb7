package artifacts

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestTrackerCleanupRemovesTracked(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "run1english_part0.mp3")
	b := filepath.Join(dir, "run1english_inputs.txt")
	writeFile(t, a)
	writeFile(t, b)

	tr := NewTracker(nil)
	tr.Track(a)
	tr.Track(b)

	assert.Equal(t, 2, tr.Cleanup(context.Background()))
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
	assert.Empty(t, tr.Paths())
}

func TestTrackerCleanupIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "part0.mp3")
	writeFile(t, a)

	tr := NewTracker(nil)
	tr.Track(a)
	require.Equal(t, 1, tr.Cleanup(context.Background()))

	// Re-tracking an already deleted file and cleaning again must not fail.
	tr.Track(a)
	assert.Equal(t, 0, tr.Cleanup(context.Background()))
	assert.Equal(t, 0, tr.Cleanup(context.Background()))
}

func TestTrackerReleaseExemptsOutput(t *testing.T) {
	dir := t.TempDir()
	seg := filepath.Join(dir, "part0.mp3")
	out := filepath.Join(dir, "final.mp3")
	writeFile(t, seg)
	writeFile(t, out)

	tr := NewTracker(nil)
	tr.Track(seg)
	tr.Track(out)
	tr.Release(out)

	tr.Cleanup(context.Background())
	assert.NoFileExists(t, seg)
	assert.FileExists(t, out)
}

func TestTrackerConcurrentTrack(t *testing.T) {
	tr := NewTracker(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Track(filepath.Join("/nonexistent", string(rune('a'+i%26)), "f"))
		}(i)
	}
	wg.Wait()
	assert.Len(t, tr.Paths(), 26)
	assert.Equal(t, 0, tr.Cleanup(context.Background()))
}

func TestTrackerIgnoresEmptyPath(t *testing.T) {
	tr := NewTracker(nil)
	tr.Track("")
	assert.Empty(t, tr.Paths())
}
