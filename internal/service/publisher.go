package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/progress"
	"github.com/apresai/polycast/internal/store"
)

// Runner renders a request into per-language audio files.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Uploader stores one language's audio and returns its key and public URL.
type Uploader interface {
	Upload(ctx context.Context, podcastID, language, path string) (key, url string, err error)
}

// Recorder persists podcast metadata.
type Recorder interface {
	CreateJob(ctx context.Context, job store.NewJob) error
	UpdateProgress(ctx context.Context, id string, status store.JobStatus, percent float64, message string) error
	CompleteJob(ctx context.Context, id string, languages map[string]store.LanguageAudio, failed map[string]string) error
	FailJob(ctx context.Context, id, errMsg string) error
}

// Episode is what a caller asks to publish.
type Episode struct {
	ID          string
	Owner       string
	Title       string
	Description string
	Script      string
	Names       []string
	Voices      map[string][]string
	TTSProvider string
	// OnProgress receives pipeline events while the episode renders.
	OnProgress progress.Callback
}

// Published is the outcome of a publish.
type Published struct {
	ID        string
	Languages map[string]store.LanguageAudio
	Failed    map[string]string
}

// Publisher runs the pipeline, uploads every finished language, records the
// podcast, and deletes the local files.
type Publisher struct {
	runner   Runner
	uploader Uploader
	recorder Recorder
	log      *slog.Logger
}

func NewPublisher(runner Runner, uploader Uploader, recorder Recorder, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{runner: runner, uploader: uploader, recorder: recorder, log: logger}
}

// Submit records a new job, assigning ep.ID when empty. Publish must follow
// with the same episode.
func (p *Publisher) Submit(ctx context.Context, ep *Episode) error {
	if ep.ID == "" {
		id, err := pipeline.NewRunID()
		if err != nil {
			return err
		}
		ep.ID = id
	}
	langs := make([]string, 0, len(ep.Voices))
	for lang := range ep.Voices {
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	return p.recorder.CreateJob(ctx, store.NewJob{
		ID:          ep.ID,
		Owner:       ep.Owner,
		Title:       ep.Title,
		Description: ep.Description,
		Script:      ep.Script,
		Languages:   langs,
		TTSProvider: ep.TTSProvider,
	})
}

// Publish renders and publishes a submitted episode. The job is marked failed
// when the run is rejected or no language could be published.
func (p *Publisher) Publish(ctx context.Context, ep Episode) (*Published, error) {
	log := p.log.With("podcast_id", ep.ID)

	p.progress(ctx, ep.ID, store.JobStatusSynthesizing, 0.1, "Rendering languages")
	res, err := p.runner.Run(ctx, pipeline.Request{
		Script:     ep.Script,
		Names:      ep.Names,
		Voices:     ep.Voices,
		RunID:      ep.ID,
		OnProgress: ep.OnProgress,
	})
	if err != nil && res == nil {
		p.fail(ctx, ep.ID, err)
		return nil, fmt.Errorf("run pipeline: %w", err)
	}
	defer p.removeLocal(res, log)

	out := &Published{
		ID:        ep.ID,
		Languages: make(map[string]store.LanguageAudio),
		Failed:    make(map[string]string),
	}
	for lang, ferr := range res.Failed {
		out.Failed[lang] = ferr.Error()
	}
	if err != nil {
		p.fail(ctx, ep.ID, err)
		return out, fmt.Errorf("run pipeline: %w", err)
	}

	p.progress(ctx, ep.ID, store.JobStatusUploading, 0.9, "Uploading audio")
	for _, lang := range res.SortedLanguages() {
		lr := res.Languages[lang]
		key, url, err := p.uploader.Upload(ctx, ep.ID, lang, lr.Path)
		if err != nil {
			log.Error("upload failed", "language", lang, "error", err)
			out.Failed[lang] = err.Error()
			continue
		}
		out.Languages[lang] = store.LanguageAudio{
			AudioKey:  key,
			AudioURL:  url,
			Duration:  lr.Duration,
			SizeBytes: lr.SizeBytes,
			Dropped:   len(lr.Dropped),
		}
	}

	if len(out.Languages) == 0 {
		err := errors.New("no language could be published")
		p.fail(ctx, ep.ID, err)
		return out, err
	}
	if err := p.recorder.CompleteJob(ctx, ep.ID, out.Languages, out.Failed); err != nil {
		err = fmt.Errorf("record podcast: %w", err)
		p.fail(ctx, ep.ID, err)
		return out, err
	}
	log.Info("podcast published", "languages", len(out.Languages), "failed", len(out.Failed))
	return out, nil
}

func (p *Publisher) progress(ctx context.Context, id string, status store.JobStatus, pct float64, msg string) {
	if err := p.recorder.UpdateProgress(ctx, id, status, pct, msg); err != nil {
		p.log.Warn("failed to update progress", "podcast_id", id, "error", err)
	}
}

func (p *Publisher) fail(ctx context.Context, id string, cause error) {
	if err := p.recorder.FailJob(context.WithoutCancel(ctx), id, cause.Error()); err != nil {
		p.log.Error("failed to record failure", "podcast_id", id, "error", err)
	}
}

func (p *Publisher) removeLocal(res *pipeline.Result, log *slog.Logger) {
	for lang, lr := range res.Languages {
		if err := os.Remove(lr.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to delete local audio", "language", lang, "path", lr.Path, "error", err)
		}
	}
}
