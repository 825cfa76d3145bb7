package tts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/apresai/polycast/internal/artifacts"
	"github.com/apresai/polycast/internal/murf"
	"github.com/apresai/polycast/internal/script"
)

const (
	DefaultConcurrency    = 4
	DefaultRequestTimeout = 60 * time.Second
)

// Options tunes a Synthesizer. Zero values take the defaults.
type Options struct {
	Concurrency       int
	RequestsPerMinute int
	RequestTimeout    time.Duration
	Backoff           murf.Backoff
}

// Job is one language's synthesis work.
type Job struct {
	// ID prefixes every segment file; it is unique per run and language.
	ID         string
	Dir        string
	Locale     string
	Utterances []script.Utterance
}

// Result is the outcome for one utterance. FilePath is empty when
// synthesis failed, in which case Err says why.
type Result struct {
	Order    int
	FilePath string
	Err      error
}

// Dropped describes an utterance that will be missing from the final audio.
type Dropped struct {
	Order  int    `json:"order"`
	Reason string `json:"reason"`
}

// Synthesizer converts utterances to audio files with bounded concurrency.
type Synthesizer struct {
	provider Provider
	fetch    func(ctx context.Context, url string) ([]byte, error)
	opts     Options
	limiter  *rate.Limiter
	log      *slog.Logger
}

func NewSynthesizer(provider Provider, opts Options, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	s := &Synthesizer{provider: provider, opts: opts, log: logger}
	if d, ok := provider.(Downloader); ok {
		s.fetch = d.Download
	} else {
		s.fetch = httpGet
	}
	if opts.RequestsPerMinute > 0 {
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return s
}

// SynthesizeAll synthesizes every utterance of the job and waits for all of
// them. A failed utterance yields a Result with Err set; it never stops the
// others. results[i] corresponds to job.Utterances[i].
func (s *Synthesizer) SynthesizeAll(ctx context.Context, job Job, tracker *artifacts.Tracker) []Result {
	results := make([]Result, len(job.Utterances))

	var g errgroup.Group
	g.SetLimit(s.opts.Concurrency)
	for i, u := range job.Utterances {
		g.Go(func() error {
			path, err := s.synthesizeOne(ctx, job, u, tracker)
			results[i] = Result{Order: u.Order, FilePath: path, Err: err}
			if err != nil {
				s.log.Warn("utterance dropped",
					"job", job.ID,
					"order", u.Order,
					"voice_id", u.VoiceID,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Synthesizer) synthesizeOne(ctx context.Context, job Job, u script.Utterance, tracker *artifacts.Tracker) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("wait for rate limit: %w", err)
		}
	}

	var audio AudioResult
	err := s.opts.Backoff.Retry(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
		var err error
		audio, err = s.provider.Synthesize(callCtx, u.Text, Voice{ID: u.VoiceID, Locale: job.Locale})
		return err
	})
	if err != nil {
		return "", fmt.Errorf("synthesize utterance %d: %w", u.Order, err)
	}

	data := audio.Data
	if len(data) == 0 {
		if audio.URL == "" {
			return "", fmt.Errorf("synthesize utterance %d: provider returned no audio", u.Order)
		}
		err = s.opts.Backoff.Retry(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
			defer cancel()
			var err error
			data, err = s.fetch(callCtx, audio.URL)
			return err
		})
		if err != nil {
			return "", fmt.Errorf("download utterance %d: %w", u.Order, err)
		}
	}

	path := filepath.Join(job.Dir, fmt.Sprintf("%s_part%d.%s", job.ID, u.Order, audio.Format.Ext()))
	tracker.Track(path)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write segment %d: %w", u.Order, err)
	}
	return path, nil
}

// DroppedOf lists the failed results.
func DroppedOf(results []Result) []Dropped {
	var dropped []Dropped
	for _, r := range results {
		if r.FilePath != "" {
			continue
		}
		reason := "no audio"
		if r.Err != nil {
			reason = r.Err.Error()
		}
		dropped = append(dropped, Dropped{Order: r.Order, Reason: reason})
	}
	return dropped
}

func httpGet(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, &murf.RetryableError{Body: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("download audio: unexpected status " + resp.Status)
	}
	return io.ReadAll(resp.Body)
}
