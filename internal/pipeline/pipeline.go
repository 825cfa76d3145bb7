package pipeline

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/apresai/polycast/internal/artifacts"
	"github.com/apresai/polycast/internal/assembly"
	"github.com/apresai/polycast/internal/config"
	"github.com/apresai/polycast/internal/observability"
	"github.com/apresai/polycast/internal/progress"
	"github.com/apresai/polycast/internal/script"
	"github.com/apresai/polycast/internal/translate"
	"github.com/apresai/polycast/internal/tts"
	"github.com/apresai/polycast/internal/voice"
)

// ErrMissingCredentials is returned before any remote call when a requested
// language needs a service that has no credentials.
var ErrMissingCredentials = config.ErrMissingCredentials

// PipelineError records which stage failed, and for which language.
type PipelineError struct {
	Stage    string
	Language string
	Message  string
	Err      error
}

func (e *PipelineError) Error() string {
	prefix := e.Stage
	if e.Language != "" {
		prefix = e.Stage + "/" + e.Language
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", prefix, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", prefix, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Request is one run: a script rendered in every language of Voices.
type Request struct {
	Script string
	// Names lists the characters; Voices[language][i] is the voice for Names[i].
	Names  []string
	Voices map[string][]string
	// RunID namespaces every file of the run. Empty means a new ULID.
	RunID string
	// OnProgress replaces Options.Progress for this run when set.
	OnProgress progress.Callback
}

// LanguageResult describes one finished language.
type LanguageResult struct {
	Language  string        `json:"language"`
	Path      string        `json:"path"`
	Dropped   []tts.Dropped `json:"dropped,omitempty"`
	Duration  string        `json:"duration,omitempty"`
	SizeBytes int64         `json:"sizeBytes"`
}

// Result holds completed languages and the reasons others failed.
type Result struct {
	RunID     string                    `json:"runId"`
	Languages map[string]LanguageResult `json:"languages"`
	Failed    map[string]error          `json:"-"`
}

// Paths maps each completed language to its final audio file.
func (r *Result) Paths() map[string]string {
	paths := make(map[string]string, len(r.Languages))
	for lang, lr := range r.Languages {
		paths[lang] = lr.Path
	}
	return paths
}

// Dropped counts utterances missing across all completed languages.
func (r *Result) Dropped() int {
	n := 0
	for _, lr := range r.Languages {
		n += len(lr.Dropped)
	}
	return n
}

// Options configures a Pipeline. Zero values take the defaults.
type Options struct {
	DefaultLanguage     string
	LanguageConcurrency int
	StrictSegments      bool
	// TempDir holds the run's work directory; empty means the system default.
	TempDir string
	// OutputDir receives final files; empty means the system temp dir.
	OutputDir   string
	FFprobePath string
	Progress    progress.Callback
}

// Pipeline turns a script into one audio file per language.
type Pipeline struct {
	synth      *tts.Synthesizer
	translator translate.Translator
	assembler  *assembly.Assembler
	opts       Options
	log        *slog.Logger
	tracer     trace.Tracer
}

// New wires a pipeline. translator may be nil when only the default
// language will be requested.
func New(synth *tts.Synthesizer, translator translate.Translator, assembler *assembly.Assembler, opts Options, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultLanguage == "" {
		opts.DefaultLanguage = voice.DefaultLanguage
	}
	if opts.LanguageConcurrency <= 0 {
		opts.LanguageConcurrency = 1
	}
	if opts.OutputDir == "" {
		opts.OutputDir = os.TempDir()
	}
	if opts.Progress == nil {
		opts.Progress = progress.NopCallback
	}
	return &Pipeline{
		synth:      synth,
		translator: translator,
		assembler:  assembler,
		opts:       opts,
		log:        logger,
		tracer:     otel.Tracer(observability.Tracer),
	}
}

// NewRunID generates a ULID for a new run.
func NewRunID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return "", fmt.Errorf("generate ulid: %w", err)
	}
	return id.String(), nil
}

// Run validates the request and renders every playable language. Failures
// of individual languages are recorded in Result.Failed; only configuration
// errors and cancellation are returned as errors.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.Run")
	defer span.End()

	emit := p.opts.Progress
	if req.OnProgress != nil {
		emit = req.OnProgress
	}

	emit(progress.NewEvent(progress.StageValidate, "", "Resolving voices", 0, start))
	assignments, err := p.validate(req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		emit(progress.Event{Stage: progress.StageValidate, Error: err})
		return nil, err
	}

	runID := req.RunID
	if runID == "" {
		if runID, err = NewRunID(); err != nil {
			return nil, &PipelineError{Stage: "validate", Message: "failed to create run id", Err: err}
		}
	}
	span.SetAttributes(attribute.String("run_id", runID), attribute.Int("languages", len(assignments)))
	log := p.log.With("run_id", runID)

	workDir, err := os.MkdirTemp(p.opts.TempDir, "polycast-*")
	if err != nil {
		return nil, &PipelineError{Stage: "validate", Message: "failed to create work directory", Err: err}
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			log.Warn("failed to remove work directory", "path", workDir, "error", err)
		}
	}()
	if err := os.MkdirAll(p.opts.OutputDir, 0755); err != nil {
		return nil, &PipelineError{Stage: "validate", Message: "failed to create output directory", Err: err}
	}

	result := &Result{
		RunID:     runID,
		Languages: make(map[string]LanguageResult),
		Failed:    make(map[string]error),
	}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(p.opts.LanguageConcurrency)
	for _, a := range assignments {
		g.Go(func() error {
			lr, err := p.runLanguage(ctx, languageRun{
				runID:   runID,
				workDir: workDir,
				script:  req.Script,
				emit:    emit,
				start:   start,
			}, a, log)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[a.Language] = err
				log.Error("language failed", "language", a.Language, "error", err)
				emit(progress.Event{Stage: progress.StageCollect, Language: a.Language, Message: "Failed", Error: err})
				return nil
			}
			result.Languages[a.Language] = lr
			return nil
		})
	}
	_ = g.Wait()

	emit(progress.Event{
		Stage:   progress.StageComplete,
		Message: fmt.Sprintf("%d of %d languages complete", len(result.Languages), len(assignments)),
		Outputs: result.Paths(),
		Dropped: result.Dropped(),
	})
	log.Info("run complete",
		"completed", len(result.Languages),
		"failed", len(result.Failed),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	if err := ctx.Err(); err != nil {
		return result, &PipelineError{Stage: "collect", Message: "run cancelled", Err: err}
	}
	return result, nil
}

func (p *Pipeline) validate(req Request) ([]voice.Assignment, error) {
	assignments, err := voice.Resolve(req.Names, req.Voices)
	if err != nil {
		return nil, &PipelineError{Stage: "validate", Message: "no language has a usable voice", Err: err}
	}
	if p.translator == nil {
		for _, a := range assignments {
			if a.Language != p.opts.DefaultLanguage {
				return nil, &PipelineError{
					Stage:    "validate",
					Language: a.Language,
					Message:  "translation is not configured",
					Err:      ErrMissingCredentials,
				}
			}
		}
	}
	return assignments, nil
}

// languageRun carries the run-scoped values each language job shares.
type languageRun struct {
	runID   string
	workDir string
	script  string
	emit    progress.Callback
	start   time.Time
}

func (p *Pipeline) runLanguage(ctx context.Context, run languageRun, a voice.Assignment, log *slog.Logger) (LanguageResult, error) {
	lang := a.Language
	runID, workDir, start := run.runID, run.workDir, run.start
	ctx, span := p.tracer.Start(ctx, "pipeline.language", trace.WithAttributes(attribute.String("language", lang)))
	defer span.End()

	log = log.With("language", lang)
	jobID := runID + lang

	tracker := artifacts.NewTracker(log)
	defer tracker.Cleanup(context.WithoutCancel(ctx))

	fail := func(stage, msg string, err error) (LanguageResult, error) {
		span.SetStatus(codes.Error, msg)
		return LanguageResult{}, &PipelineError{Stage: stage, Language: lang, Message: msg, Err: err}
	}

	run.emit(progress.NewEvent(progress.StageParse, lang, "Parsing script", 0.05, start))
	utts := script.Parse(run.script, a.Voices)
	if len(utts) == 0 {
		return fail("parse", "script has no lines for the assigned characters", nil)
	}

	if lang != p.opts.DefaultLanguage {
		run.emit(progress.NewEvent(progress.StageTranslate, lang, fmt.Sprintf("Translating %d utterances", len(utts)), 0.15, start))
		translated, err := p.translator.Translate(ctx, utts, lang)
		if err != nil {
			return fail("translate", "failed to translate script", err)
		}
		utts = translated
	}

	locale, _ := voice.LocaleFor(lang)
	run.emit(progress.NewEvent(progress.StageSynthesize, lang, fmt.Sprintf("Synthesizing %d utterances", len(utts)), 0.3, start))
	results := p.synth.SynthesizeAll(ctx, tts.Job{
		ID:         jobID,
		Dir:        workDir,
		Locale:     locale,
		Utterances: utts,
	}, tracker)

	dropped := tts.DroppedOf(results)
	if len(dropped) > 0 {
		log.Warn("utterances dropped", "dropped", len(dropped), "total", len(utts))
		if p.opts.StrictSegments {
			return fail("synthesize", fmt.Sprintf("%d of %d utterances failed", len(dropped), len(utts)), nil)
		}
	}

	run.emit(progress.NewEvent(progress.StageAssemble, lang, "Assembling episode", 0.8, start))
	output := filepath.Join(p.opts.OutputDir, jobID+"_final.mp3")
	path, err := p.assembler.Assemble(ctx, assembly.Target{ID: jobID, WorkDir: workDir, Output: output}, results, tracker)
	if err != nil {
		msg := "failed to assemble episode"
		if errors.Is(err, assembly.ErrNoSegments) {
			msg = "no utterance produced audio"
		}
		return fail("assembly", msg, err)
	}
	tracker.Release(path)

	lr := LanguageResult{
		Language: lang,
		Path:     path,
		Dropped:  dropped,
		Duration: assembly.ProbeDuration(ctx, p.opts.FFprobePath, path),
	}
	if info, err := os.Stat(path); err == nil {
		lr.SizeBytes = info.Size()
	}

	run.emit(progress.NewEvent(progress.StageCollect, lang, "Done", 1, start))
	log.Info("language complete", "path", path, "dropped", len(dropped), "size_bytes", lr.SizeBytes)
	return lr, nil
}

// SortedLanguages returns the completed languages in name order.
func (r *Result) SortedLanguages() []string {
	langs := make([]string, 0, len(r.Languages))
	for lang := range r.Languages {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
