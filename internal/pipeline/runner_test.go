package pipeline

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/darkwatch/internal/backend"
)

// mockDetector records invoked stages and returns preconfigured results.
type mockDetector struct {
	mu      sync.Mutex
	results map[Stage]*backend.DetectionResult
	errs    map[Stage]error
	invoked []Stage
	block   chan struct{}
}

func (m *mockDetector) record(stage Stage) (*backend.DetectionResult, error) {
	m.mu.Lock()
	m.invoked = append(m.invoked, stage)
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if err := m.errs[stage]; err != nil {
		return nil, err
	}
	if res := m.results[stage]; res != nil {
		return res, nil
	}
	return &backend.DetectionResult{}, nil
}

func (m *mockDetector) DetectGaps(_ context.Context) (*backend.DetectionResult, error) {
	return m.record(StageGapDetection)
}

func (m *mockDetector) DetectSpoofing(_ context.Context, _, _ time.Time) (*backend.DetectionResult, error) {
	return m.record(StageSpoofingDetection)
}

func (m *mockDetector) DetectLoitering(_ context.Context) (*backend.DetectionResult, error) {
	return m.record(StageLoiteringDetection)
}

func (m *mockDetector) DetectSTS(_ context.Context) (*backend.DetectionResult, error) {
	return m.record(StageSTSDetection)
}

func (m *mockDetector) ScoreAlerts(_ context.Context) (*backend.DetectionResult, error) {
	return m.record(StageAlertScoring)
}

func (m *mockDetector) RescoreAll(_ context.Context) (*backend.DetectionResult, error) {
	return m.record(StageRescoreAll)
}

func (m *mockDetector) invokedStages() []Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Stage, len(m.invoked))
	copy(out, m.invoked)
	return out
}

// waitIdle polls until no full run is in flight.
func waitIdle(t *testing.T, r *Runner) *Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		if !r.Running() {
			return r.Snapshot()
		}
		select {
		case <-deadline:
			t.Fatal("run never finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestStart_FullRunCompletes(t *testing.T) {
	t.Parallel()

	d := &mockDetector{
		results: map[Stage]*backend.DetectionResult{
			StageGapDetection: {Detected: 12},
			StageAlertScoring: {Scored: 12},
		},
	}
	r := NewRunner(d, nil, nil, nil)

	id, err := r.Start(context.Background())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if id == "" {
		t.Fatal("Start returned empty run id")
	}

	snap := waitIdle(t, r)
	if snap.State != RunCompleted || !snap.Completed {
		t.Errorf("run state = %s completed=%v, want completed", snap.State, snap.Completed)
	}
	if snap.RunID != id {
		t.Errorf("snapshot run id = %q, want %q", snap.RunID, id)
	}
	if !reflect.DeepEqual(d.invokedStages(), FullRunStages) {
		t.Errorf("invoked stages = %v, want full run order %v", d.invokedStages(), FullRunStages)
	}
	for _, st := range snap.Stages {
		if st.State != StageSucceeded {
			t.Errorf("stage %s state = %s, want succeeded", st.Stage, st.State)
		}
	}
	if snap.Stages[0].Detected != 12 {
		t.Errorf("gap stage detected = %d, want 12", snap.Stages[0].Detected)
	}
	if snap.CompletedAt.IsZero() {
		t.Error("expected CompletedAt to be set")
	}
}

func TestStart_StageFailureHaltsRun(t *testing.T) {
	t.Parallel()

	d := &mockDetector{
		errs: map[Stage]error{StageSpoofingDetection: errors.New("backend returned 500")},
	}
	r := NewRunner(d, nil, nil, nil)

	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitIdle(t, r)

	if snap.State != RunFailed || snap.Completed {
		t.Errorf("run state = %s completed=%v, want failed", snap.State, snap.Completed)
	}
	if snap.FailedStage != StageSpoofingDetection {
		t.Errorf("failed stage = %s, want spoofing-detection", snap.FailedStage)
	}
	if snap.Error == "" {
		t.Error("expected run error message")
	}

	// later stages must never have been invoked
	want := []Stage{StageGapDetection, StageSpoofingDetection}
	if !reflect.DeepEqual(d.invokedStages(), want) {
		t.Errorf("invoked stages = %v, want %v", d.invokedStages(), want)
	}
	for _, st := range snap.Stages[2:] {
		if st.State != StagePending {
			t.Errorf("stage %s state = %s, want pending (never started)", st.Stage, st.State)
		}
	}
}

func TestStart_RejectsConcurrentRun(t *testing.T) {
	t.Parallel()

	d := &mockDetector{block: make(chan struct{})}
	r := NewRunner(d, nil, nil, nil)

	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := r.Start(context.Background()); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second Start = %v, want ErrRunInProgress", err)
	}

	close(d.block)
	waitIdle(t, r)

	// a fresh run is allowed once the previous one finished
	if _, err := r.Start(context.Background()); err != nil {
		t.Errorf("Start after completion: %v", err)
	}
	waitIdle(t, r)
}

func TestStart_NotifiesTerminalState(t *testing.T) {
	t.Parallel()

	got := make(chan *Snapshot, 1)
	r := NewRunner(&mockDetector{}, nil, nil, notifierFunc(func(_ context.Context, snap *Snapshot) {
		got <- snap
	}))

	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case snap := <-got:
		if snap.State != RunCompleted {
			t.Errorf("notified state = %s, want completed", snap.State)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("notifier was never called")
	}
}

type notifierFunc func(ctx context.Context, snap *Snapshot)

func (f notifierFunc) NotifyRun(ctx context.Context, snap *Snapshot) { f(ctx, snap) }

func TestTriggerStage_Success(t *testing.T) {
	t.Parallel()

	d := &mockDetector{
		results: map[Stage]*backend.DetectionResult{
			StageRescoreAll: {Scored: 7, Message: "rescored 7 alerts"},
		},
	}
	r := NewRunner(d, nil, nil, nil)

	tr, err := r.TriggerStage(context.Background(), StageRescoreAll)
	if err != nil {
		t.Fatalf("TriggerStage: %v", err)
	}
	if tr.Detected != 7 || tr.Message != "rescored 7 alerts" {
		t.Errorf("trigger result = %+v, want 7 rescored", tr)
	}

	last, ok := r.LastTrigger(StageRescoreAll)
	if !ok || last.Detected != 7 {
		t.Errorf("LastTrigger = %+v %v, want stored result", last, ok)
	}
}

func TestTriggerStage_UnknownStage(t *testing.T) {
	t.Parallel()

	r := NewRunner(&mockDetector{}, nil, nil, nil)
	if _, err := r.TriggerStage(context.Background(), Stage("warp-detection")); !errors.Is(err, ErrUnknownStage) {
		t.Errorf("TriggerStage(warp-detection) = %v, want ErrUnknownStage", err)
	}
}

func TestTriggerStage_ErrorStillReturnsResult(t *testing.T) {
	t.Parallel()

	d := &mockDetector{errs: map[Stage]error{StageGapDetection: errors.New("backend returned 500")}}
	r := NewRunner(d, nil, nil, nil)

	tr, err := r.TriggerStage(context.Background(), StageGapDetection)
	if err == nil {
		t.Fatal("expected error from failed trigger")
	}
	if tr == nil || tr.Error == "" {
		t.Fatalf("trigger result = %+v, want error recorded on the result", tr)
	}

	last, ok := r.LastTrigger(StageGapDetection)
	if !ok || last.Error == "" {
		t.Errorf("LastTrigger = %+v %v, want stored failed result", last, ok)
	}
}

func TestTriggerStage_BusyGuardsOnlyItself(t *testing.T) {
	t.Parallel()

	d := &mockDetector{block: make(chan struct{})}
	r := NewRunner(d, nil, nil, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = r.TriggerStage(context.Background(), StageGapDetection)
	}()

	deadline := time.After(2 * time.Second)
	for !r.StageBusy(StageGapDetection) {
		select {
		case <-deadline:
			t.Fatal("trigger never became busy")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if _, err := r.TriggerStage(context.Background(), StageGapDetection); !errors.Is(err, ErrStageInProgress) {
		t.Errorf("re-trigger of busy stage = %v, want ErrStageInProgress", err)
	}
	if r.StageBusy(StageSpoofingDetection) {
		t.Error("other stages must not be locked by a pending trigger")
	}

	close(d.block)
	<-done
	if r.StageBusy(StageGapDetection) {
		t.Error("stage should not be busy after the trigger returns")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	t.Parallel()

	d := &mockDetector{}
	r := NewRunner(d, nil, nil, nil)
	if _, err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	snap := waitIdle(t, r)

	snap.Stages[0].State = StageFailed
	if r.Snapshot().Stages[0].State == StageFailed {
		t.Error("mutating a snapshot must not affect runner state")
	}
}
