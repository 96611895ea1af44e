package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/darkwatch/internal/backend"
)

// Stage names a detection pipeline stage.
type Stage string

const (
	StageGapDetection       Stage = "gap-detection"
	StageSpoofingDetection  Stage = "spoofing-detection"
	StageLoiteringDetection Stage = "loitering-detection"
	StageSTSDetection       Stage = "sts-detection"
	StageAlertScoring       Stage = "alert-scoring"

	// StageRescoreAll is only available as a single-stage trigger, never
	// part of the full run.
	StageRescoreAll Stage = "rescore-all"
)

// FullRunStages is the fixed order of the full pipeline run.
var FullRunStages = []Stage{
	StageGapDetection,
	StageSpoofingDetection,
	StageLoiteringDetection,
	StageSTSDetection,
	StageAlertScoring,
}

// StageState tracks one stage within a run.
type StageState string

const (
	StagePending   StageState = "pending"
	StageRunning   StageState = "running"
	StageSucceeded StageState = "succeeded"
	StageFailed    StageState = "failed"
)

// RunState tracks the run as a whole.
type RunState string

const (
	RunIdle      RunState = "idle"
	RunRunning   RunState = "running"
	RunCompleted RunState = "completed"
	RunFailed    RunState = "failed"
)

// ErrRunInProgress is returned when a full run is started while one is
// already running. Runs are single-flight; there is no mid-run cancellation.
var ErrRunInProgress = errors.New("pipeline run already in progress")

// ErrStageInProgress is returned when a single-stage trigger is invoked
// while the same stage trigger is still pending.
var ErrStageInProgress = errors.New("stage trigger already in progress")

// ErrUnknownStage is returned for a stage name outside the known set.
var ErrUnknownStage = errors.New("unknown pipeline stage")

// Detector is the backend surface the runner invokes, one call per stage.
type Detector interface {
	DetectGaps(ctx context.Context) (*backend.DetectionResult, error)
	DetectSpoofing(ctx context.Context, dateFrom, dateTo time.Time) (*backend.DetectionResult, error)
	DetectLoitering(ctx context.Context) (*backend.DetectionResult, error)
	DetectSTS(ctx context.Context) (*backend.DetectionResult, error)
	ScoreAlerts(ctx context.Context) (*backend.DetectionResult, error)
	RescoreAll(ctx context.Context) (*backend.DetectionResult, error)
}

// Notifier is told about terminal run outcomes. Optional.
type Notifier interface {
	NotifyRun(ctx context.Context, snap *Snapshot)
}

// StageStatus is the reported state of one stage in a run.
type StageStatus struct {
	Stage    Stage      `json:"stage"`
	State    StageState `json:"state"`
	Detected int        `json:"detected,omitempty"`
	Error    string     `json:"error,omitempty"`
}

// Snapshot is a point-in-time copy of the run for progress display.
type Snapshot struct {
	RunID        string        `json:"run_id,omitempty"`
	State        RunState      `json:"state"`
	Stages       []StageStatus `json:"stages,omitempty"`
	CurrentStage Stage         `json:"current_stage,omitempty"`
	FailedStage  Stage         `json:"failed_stage,omitempty"`
	Error        string        `json:"error,omitempty"`
	Completed    bool          `json:"completed"`
	StartedAt    time.Time     `json:"started_at,omitzero"`
	CompletedAt  time.Time     `json:"completed_at,omitzero"`
}

// TriggerResult is the outcome of an independent single-stage trigger.
type TriggerResult struct {
	Stage    Stage     `json:"stage"`
	Detected int       `json:"detected"`
	Message  string    `json:"message,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Runner executes the detection pipeline. One full run may be in flight at a
// time; each single-stage trigger guards only its own button.
type Runner struct {
	mu           sync.Mutex
	running      bool
	snap         Snapshot
	stageBusy    map[Stage]bool
	lastTriggers map[Stage]*TriggerResult

	detector Detector
	logger   log.Logger
	metrics  *Metrics
	notifier Notifier
}

// NewRunner creates a pipeline runner. metrics and notifier may be nil.
func NewRunner(detector Detector, logger log.Logger, metrics *Metrics, notifier Notifier) *Runner {
	if logger == nil {
		logger = log.Nop()
	}
	return &Runner{
		snap:         Snapshot{State: RunIdle},
		stageBusy:    make(map[Stage]bool),
		lastTriggers: make(map[Stage]*TriggerResult),
		detector:     detector,
		logger:       logger,
		metrics:      metrics,
		notifier:     notifier,
	}
}

// Running reports whether a full run is in flight.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Snapshot returns a copy of the current run state.
func (r *Runner) Snapshot() *Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := r.snap
	cp.Stages = make([]StageStatus, len(r.snap.Stages))
	copy(cp.Stages, r.snap.Stages)
	return &cp
}

// Start begins a full pipeline run and returns its ID. It rejects the start
// if a run is already in flight. The run itself proceeds asynchronously;
// poll Snapshot for progress.
func (r *Runner) Start(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return "", ErrRunInProgress
	}
	id := ulid.Make().String()
	stages := make([]StageStatus, len(FullRunStages))
	for i, st := range FullRunStages {
		stages[i] = StageStatus{Stage: st, State: StagePending}
	}
	r.running = true
	r.snap = Snapshot{
		RunID:     id,
		State:     RunRunning,
		Stages:    stages,
		StartedAt: time.Now().UTC(),
	}
	r.mu.Unlock()

	go r.run(context.WithoutCancel(ctx), id)
	return id, nil
}

func (r *Runner) run(ctx context.Context, id string) {
	L := r.logger.With("run_id", id)
	start := time.Now()

	for i, stage := range FullRunStages {
		r.setStage(i, StageRunning, 0, "")
		L.Info(ctx, "pipeline stage started", "stage", string(stage))

		stageStart := time.Now()
		res, err := r.invoke(ctx, stage)
		if r.metrics != nil {
			r.metrics.StageDuration.WithLabelValues(string(stage)).Observe(time.Since(stageStart).Seconds())
		}

		if err != nil {
			// halt here; later stages are never invoked
			r.setStage(i, StageFailed, 0, err.Error())
			r.finish(RunFailed, stage, err.Error())
			if r.metrics != nil {
				r.metrics.StageFailures.WithLabelValues(string(stage)).Inc()
				r.metrics.RunsTotal.WithLabelValues(string(RunFailed)).Inc()
				r.metrics.RunDuration.Observe(time.Since(start).Seconds())
			}
			L.Error(ctx, err, "pipeline stage failed", "stage", string(stage))
			r.notify(ctx)
			return
		}

		detected := 0
		if res != nil {
			detected = res.Detected + res.Scored
		}
		r.setStage(i, StageSucceeded, detected, "")
		L.Info(ctx, "pipeline stage complete", "stage", string(stage), "detected", detected)
	}

	r.finish(RunCompleted, "", "")
	if r.metrics != nil {
		r.metrics.RunsTotal.WithLabelValues(string(RunCompleted)).Inc()
		r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}
	L.Info(ctx, "pipeline run complete", "duration", time.Since(start).Seconds())
	r.notify(ctx)
}

func (r *Runner) setStage(i int, state StageState, detected int, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap.Stages[i].State = state
	r.snap.Stages[i].Detected = detected
	r.snap.Stages[i].Error = errMsg
	if state == StageRunning {
		r.snap.CurrentStage = r.snap.Stages[i].Stage
	}
}

func (r *Runner) finish(state RunState, failed Stage, errMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
	r.snap.State = state
	r.snap.CurrentStage = ""
	r.snap.FailedStage = failed
	r.snap.Error = errMsg
	r.snap.Completed = state == RunCompleted
	r.snap.CompletedAt = time.Now().UTC()
}

func (r *Runner) notify(ctx context.Context) {
	if r.notifier == nil {
		return
	}
	r.notifier.NotifyRun(ctx, r.Snapshot())
}

func (r *Runner) invoke(ctx context.Context, stage Stage) (*backend.DetectionResult, error) {
	switch stage {
	case StageGapDetection:
		return r.detector.DetectGaps(ctx)
	case StageSpoofingDetection:
		return r.detector.DetectSpoofing(ctx, time.Time{}, time.Time{})
	case StageLoiteringDetection:
		return r.detector.DetectLoitering(ctx)
	case StageSTSDetection:
		return r.detector.DetectSTS(ctx)
	case StageAlertScoring:
		return r.detector.ScoreAlerts(ctx)
	case StageRescoreAll:
		return r.detector.RescoreAll(ctx)
	}
	return nil, ErrUnknownStage
}

// TriggerStage invokes one stage on its own, independent of the full run.
// Each stage trigger is mutually exclusive only with itself: its button is
// disabled while its own call is pending.
func (r *Runner) TriggerStage(ctx context.Context, stage Stage) (*TriggerResult, error) {
	valid := stage == StageRescoreAll
	for _, st := range FullRunStages {
		if st == stage {
			valid = true
		}
	}
	if !valid {
		return nil, ErrUnknownStage
	}

	r.mu.Lock()
	if r.stageBusy[stage] {
		r.mu.Unlock()
		return nil, ErrStageInProgress
	}
	r.stageBusy[stage] = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.stageBusy[stage] = false
		r.mu.Unlock()
	}()

	res, err := r.invoke(ctx, stage)

	tr := &TriggerResult{Stage: stage, At: time.Now().UTC()}
	outcome := "success"
	if err != nil {
		tr.Error = err.Error()
		outcome = "error"
	} else if res != nil {
		tr.Detected = res.Detected + res.Scored
		tr.Message = res.Message
	}
	if r.metrics != nil {
		r.metrics.StageTriggersTotal.WithLabelValues(string(stage), outcome).Inc()
	}

	r.mu.Lock()
	r.lastTriggers[stage] = tr
	r.mu.Unlock()

	if err != nil {
		return tr, err
	}
	return tr, nil
}

// StageBusy reports whether a single-stage trigger is pending for stage.
func (r *Runner) StageBusy(stage Stage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stageBusy[stage]
}

// LastTrigger returns the most recent trigger result for stage, if any.
func (r *Runner) LastTrigger(stage Stage) (*TriggerResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.lastTriggers[stage]
	if !ok {
		return nil, false
	}
	cp := *tr
	return &cp, true
}
