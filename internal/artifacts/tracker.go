package artifacts

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Tracker records the transient files a language job creates so they can be
// removed once the job is finished, whatever the outcome.
//
// Track is safe to call from concurrent synthesis workers.
type Tracker struct {
	mu    sync.Mutex
	paths map[string]struct{}
	log   *slog.Logger
}

// NewTracker creates an empty tracker. A nil logger falls back to slog.Default.
func NewTracker(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		paths: make(map[string]struct{}),
		log:   logger,
	}
}

// Track registers path for removal on Cleanup.
func (t *Tracker) Track(path string) {
	if path == "" {
		return
	}
	t.mu.Lock()
	t.paths[path] = struct{}{}
	t.mu.Unlock()
}

// Release exempts path from cleanup. The final assembled file is released
// because ownership passes to the caller.
func (t *Tracker) Release(path string) {
	t.mu.Lock()
	delete(t.paths, path)
	t.mu.Unlock()
}

// Paths returns the currently tracked paths in sorted order.
func (t *Tracker) Paths() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.paths))
	for p := range t.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Cleanup removes every tracked file and returns how many were deleted.
// Files that are already gone count as cleaned. Any other failure is logged
// and swallowed so it never masks the job's own result. Calling Cleanup a
// second time is a no-op.
func (t *Tracker) Cleanup(ctx context.Context) int {
	t.mu.Lock()
	paths := make([]string, 0, len(t.paths))
	for p := range t.paths {
		paths = append(paths, p)
	}
	t.paths = make(map[string]struct{})
	t.mu.Unlock()

	sort.Strings(paths)
	removed := 0
	for _, p := range paths {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
			t.log.DebugContext(ctx, "Removed temp artifact", "path", p)
		case errors.Is(err, os.ErrNotExist):
			t.log.DebugContext(ctx, "Temp artifact already gone", "path", p)
		default:
			t.log.WarnContext(ctx, "Failed to remove temp artifact", "path", p, "error", err)
		}
	}
	return removed
}
