package progress

import "time"

// Stage identifies which pipeline state is active.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageParse      Stage = "parse"
	StageTranslate  Stage = "translate"
	StageSynthesize Stage = "synthesize"
	StageAssemble   Stage = "assemble"
	StageCollect    Stage = "collect"
	StageComplete   Stage = "complete"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage Stage
	// Language is empty for run-wide stages.
	Language     string
	Message      string
	Percent      float64 // 0.0–1.0
	SegmentNum   int
	SegmentTotal int
	Elapsed      time.Duration
	Error        error
	// Outputs maps language to final file path, set on StageComplete.
	Outputs map[string]string
	// Dropped counts utterances missing from the outputs, set on StageComplete.
	Dropped int
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, language, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:    stage,
		Language: language,
		Message:  msg,
		Percent:  pct,
		Elapsed:  time.Since(start),
	}
}
