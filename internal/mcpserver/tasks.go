package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/apresai/polycast/internal/observability"
	"github.com/apresai/polycast/internal/pipeline"
	"github.com/apresai/polycast/internal/progress"
	"github.com/apresai/polycast/internal/service"
	"github.com/apresai/polycast/internal/store"
)

// GenerateRequest holds parameters for a podcast audio task.
type GenerateRequest struct {
	Title       string
	Description string
	Script      string
	Names       []string
	Voices      map[string][]string
	Owner       string
}

// Publisher renders and publishes episodes.
type Publisher interface {
	Submit(ctx context.Context, ep *service.Episode) error
	Publish(ctx context.Context, ep service.Episode) (*service.Published, error)
}

// ProgressRecorder receives job status updates.
type ProgressRecorder interface {
	UpdateProgress(ctx context.Context, id string, status store.JobStatus, percent float64, message string) error
	FailJob(ctx context.Context, id, errMsg string) error
}

// TaskManager manages async podcast generation tasks.
type TaskManager struct {
	publisher   Publisher
	recorder    ProgressRecorder
	ttsProvider string
	log         *slog.Logger
	baseCtx     context.Context // cancelled on SIGTERM for graceful shutdown

	mu       sync.Mutex
	cancels  map[string]context.CancelFunc
	maxTasks int
	running  int
	wg       sync.WaitGroup
}

// NewTaskManager creates a task manager.
// baseCtx should be cancelled on SIGTERM so pipeline goroutines can clean up.
func NewTaskManager(baseCtx context.Context, publisher Publisher, recorder ProgressRecorder, ttsProvider string, maxTasks int, logger *slog.Logger) *TaskManager {
	if maxTasks <= 0 {
		maxTasks = 5
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskManager{
		publisher:   publisher,
		recorder:    recorder,
		ttsProvider: ttsProvider,
		log:         logger,
		baseCtx:     baseCtx,
		cancels:     make(map[string]context.CancelFunc),
		maxTasks:    maxTasks,
	}
}

// StartTask records the job and publishes it in a goroutine. It returns the
// podcast ID immediately.
func (tm *TaskManager) StartTask(ctx context.Context, req GenerateRequest) (string, error) {
	id, err := pipeline.NewRunID()
	if err != nil {
		return "", err
	}

	tm.mu.Lock()
	if tm.running >= tm.maxTasks {
		tm.mu.Unlock()
		return "", fmt.Errorf("max concurrent tasks reached (%d)", tm.maxTasks)
	}
	tm.running++

	// The task outlives the request but must stop on SIGTERM, and its spans
	// belong to the request's trace.
	taskCtx := observability.DetachTraceContextFrom(ctx, tm.baseCtx)
	taskCtx, cancel := context.WithCancel(taskCtx)
	tm.cancels[id] = cancel
	tm.mu.Unlock()

	ep := service.Episode{
		ID:          id,
		Owner:       req.Owner,
		Title:       req.Title,
		Description: req.Description,
		Script:      req.Script,
		Names:       req.Names,
		Voices:      req.Voices,
		TTSProvider: tm.ttsProvider,
	}
	if err := tm.publisher.Submit(ctx, &ep); err != nil {
		cancel()
		tm.release(id)
		return "", fmt.Errorf("create job: %w", err)
	}

	tm.wg.Add(1)
	go tm.runTask(taskCtx, ep)

	return id, nil
}

// CancelTask cancels a running task.
func (tm *TaskManager) CancelTask(id string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	if cancel, ok := tm.cancels[id]; ok {
		cancel()
	}
}

// Running reports the number of tasks in flight.
func (tm *TaskManager) Running() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.running
}

// Wait blocks until every started task has finished.
func (tm *TaskManager) Wait() {
	tm.wg.Wait()
}

func (tm *TaskManager) release(id string) {
	tm.mu.Lock()
	if cancel, ok := tm.cancels[id]; ok {
		cancel()
		delete(tm.cancels, id)
	}
	tm.running--
	tm.mu.Unlock()
}

func (tm *TaskManager) runTask(ctx context.Context, ep service.Episode) {
	defer tm.wg.Done()
	ctx, span := tracer.Start(ctx, "task.publish",
		trace.WithAttributes(attribute.String("podcast_id", ep.ID)),
	)
	defer span.End()

	defer func() {
		// A job interrupted by shutdown must not look stuck forever.
		if ctx.Err() != nil {
			failCtx, failCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer failCancel()
			if err := tm.recorder.FailJob(failCtx, ep.ID, "server shutdown during processing"); err != nil {
				tm.log.Error("Failed to mark job as failed", "podcast_id", ep.ID, "error", err)
			}
			tm.log.Info("Marked job as failed due to shutdown", "podcast_id", ep.ID)
		}
		tm.release(ep.ID)
	}()

	log := tm.log.With("podcast_id", ep.ID)
	ep.OnProgress = tm.progressWriter(ctx, ep.ID, span, log)

	start := time.Now()
	log.InfoContext(ctx, "Task starting", "languages", len(ep.Voices), "tts", tm.ttsProvider)
	out, err := tm.publisher.Publish(ctx, ep)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "publish failed")
		log.ErrorContext(ctx, "Task failed", "error", err, "elapsed", time.Since(start).Round(time.Second).String())
		return
	}

	span.SetAttributes(
		attribute.Int("languages", len(out.Languages)),
		attribute.Int("failed_languages", len(out.Failed)),
	)
	span.SetStatus(codes.Ok, "complete")
	log.InfoContext(ctx, "Task complete", "languages", len(out.Languages), "elapsed", time.Since(start).Round(time.Second).String())
}

// progressWriter throttles store writes to one per 2 seconds except on
// stage transitions. Language jobs may report concurrently.
func (tm *TaskManager) progressWriter(ctx context.Context, id string, span trace.Span, log *slog.Logger) progress.Callback {
	var (
		mu        sync.Mutex
		lastWrite time.Time
		lastStage progress.Stage
	)
	return func(evt progress.Event) {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		stageChanged := evt.Stage != lastStage
		if now.Sub(lastWrite) < 2*time.Second && !stageChanged {
			return
		}
		if stageChanged {
			span.AddEvent("stage_transition",
				trace.WithAttributes(
					attribute.String("stage", string(evt.Stage)),
					attribute.String("language", evt.Language),
					attribute.Float64("percent", evt.Percent),
				),
			)
		}

		msg := evt.Message
		if evt.Language != "" {
			msg = evt.Language + ": " + msg
		}
		if err := tm.recorder.UpdateProgress(ctx, id, mapStage(evt.Stage), evt.Percent, msg); err != nil {
			log.WarnContext(ctx, "Update progress failed", "error", err)
		}
		lastWrite = now
		lastStage = evt.Stage
	}
}

// mapStage maps a pipeline progress stage to a job status.
func mapStage(stage progress.Stage) store.JobStatus {
	switch stage {
	case progress.StageTranslate:
		return store.JobStatusTranslating
	case progress.StageParse, progress.StageSynthesize:
		return store.JobStatusSynthesizing
	case progress.StageAssemble, progress.StageCollect:
		return store.JobStatusAssembling
	case progress.StageComplete:
		return store.JobStatusUploading
	default:
		return store.JobStatusSubmitted
	}
}
