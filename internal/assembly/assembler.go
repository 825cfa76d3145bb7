package assembly

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/apresai/polycast/internal/artifacts"
	"github.com/apresai/polycast/internal/tts"
)

// ErrNoSegments is returned when no utterance produced audio.
var ErrNoSegments = errors.New("no audio segments to assemble")

// Target names where one language's episode is built.
type Target struct {
	// ID prefixes the manifest file; unique per run and language.
	ID      string
	WorkDir string
	Output  string
}

// Assembler concatenates successful segments in utterance order.
type Assembler struct {
	encoder Encoder
	log     *slog.Logger
}

func NewAssembler(encoder Encoder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{encoder: encoder, log: logger}
}

// Assemble writes the manifest and runs the encoder. On failure any partial
// output is removed and no path is returned.
func (a *Assembler) Assemble(ctx context.Context, target Target, results []tts.Result, tracker *artifacts.Tracker) (string, error) {
	manifest := OrderedSegments(results)
	if len(manifest) == 0 {
		return "", ErrNoSegments
	}

	listPath := filepath.Join(target.WorkDir, target.ID+"_inputs.txt")
	tracker.Track(listPath)
	if err := writeManifest(listPath, manifest); err != nil {
		return "", err
	}

	if err := a.encoder.Concatenate(ctx, listPath, target.Output); err != nil {
		a.discard(target.Output)
		return "", fmt.Errorf("concatenate %d segments: %w", len(manifest), err)
	}
	if err := verifyOutput(target.Output); err != nil {
		a.discard(target.Output)
		return "", err
	}

	a.log.Debug("episode assembled", "job", target.ID, "segments", len(manifest), "path", target.Output)
	return target.Output, nil
}

// OrderedSegments keeps results that produced a file, ascending by order.
func OrderedSegments(results []tts.Result) Manifest {
	ok := make([]tts.Result, 0, len(results))
	for _, r := range results {
		if r.FilePath != "" {
			ok = append(ok, r)
		}
	}
	sort.SliceStable(ok, func(i, j int) bool { return ok[i].Order < ok[j].Order })

	m := make(Manifest, len(ok))
	for i, r := range ok {
		abs, err := filepath.Abs(r.FilePath)
		if err != nil {
			abs = r.FilePath
		}
		m[i] = abs
	}
	return m
}

func writeManifest(path string, m Manifest) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create manifest: %w", err)
	}
	if err := m.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close manifest: %w", err)
	}
	return nil
}

func (a *Assembler) discard(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		a.log.Warn("failed to remove partial output", "path", path, "error", err)
	}
}
