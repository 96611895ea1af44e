package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linnemanlabs/darkwatch/internal/backend"
)

// mockAlertService records calls and returns preconfigured results.
type mockAlertService struct {
	mu          sync.Mutex
	statusErr   error
	notesErr    error
	exportErr   error
	statusCalls int
	notesCalls  int
	exportCalls int
	lastNotes   string
	block       chan struct{}
}

func (m *mockAlertService) UpdateStatus(_ context.Context, id int64, status backend.AlertStatus, _ string) (*backend.Alert, error) {
	m.mu.Lock()
	m.statusCalls++
	block := m.block
	m.mu.Unlock()
	if block != nil {
		<-block
	}
	if m.statusErr != nil {
		return nil, m.statusErr
	}
	return &backend.Alert{GapEventID: id, Status: status}, nil
}

func (m *mockAlertService) UpdateNotes(_ context.Context, _ int64, notes string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notesCalls++
	m.lastNotes = notes
	return m.notesErr
}

func (m *mockAlertService) ExportAlert(_ context.Context, _ int64, format string) (*backend.ExportResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exportCalls++
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	mediaType := "text/markdown"
	if format == "json" {
		mediaType = "application/json"
	}
	return &backend.ExportResult{Content: "# report", MediaType: mediaType}, nil
}

func (m *mockAlertService) PrepareSatelliteCheck(_ context.Context, _ int64) (string, error) {
	return "satellite data prepared", nil
}

// fakeClock is an adjustable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestController(t *testing.T, svc AlertService, status backend.AlertStatus) (*Controller, *fakeClock) {
	t.Helper()
	clk := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	al := &backend.Alert{GapEventID: 42, Status: status, AnalystNotes: "initial"}
	return NewController(svc, nil, nil, al, WithClock(clk.Now)), clk
}

func TestSetStatus_InvalidRejectedLocally(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusNew)

	err := c.SetStatus(context.Background(), backend.AlertStatus("archived"), "")
	if !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("SetStatus(archived) = %v, want ErrInvalidStatus", err)
	}
	if svc.statusCalls != 0 {
		t.Error("invalid status must not reach the backend")
	}
}

func TestSetStatus_ServerConfirmsBeforeLocalChange(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusNew)

	if err := c.SetStatus(context.Background(), backend.StatusUnderReview, "picked up"); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if c.Status() != backend.StatusUnderReview {
		t.Errorf("Status() = %s, want under_review", c.Status())
	}
	if c.StatusPending() {
		t.Error("StatusPending should clear after the call returns")
	}
}

func TestSetStatus_FailureLeavesLocalStatus(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{statusErr: errors.New("backend returned 500")}
	c, _ := newTestController(t, svc, backend.StatusNew)

	if err := c.SetStatus(context.Background(), backend.StatusDismissed, ""); err == nil {
		t.Fatal("expected error from failed update")
	}
	if c.Status() != backend.StatusNew {
		t.Errorf("Status() after failure = %s, want unchanged new", c.Status())
	}
}

func TestSetStatus_PendingGuard(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{block: make(chan struct{})}
	c, _ := newTestController(t, svc, backend.StatusNew)

	done := make(chan error, 1)
	go func() {
		done <- c.SetStatus(context.Background(), backend.StatusUnderReview, "")
	}()

	deadline := time.After(2 * time.Second)
	for !c.StatusPending() {
		select {
		case <-deadline:
			t.Fatal("first transition never became pending")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	if err := c.SetStatus(context.Background(), backend.StatusDismissed, ""); !errors.Is(err, ErrStatusPending) {
		t.Errorf("second SetStatus while pending = %v, want ErrStatusPending", err)
	}

	close(svc.block)
	if err := <-done; err != nil {
		t.Fatalf("first SetStatus: %v", err)
	}
}

func TestNotes_DirtyAndSavedConfirmation(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, clk := newTestController(t, svc, backend.StatusUnderReview)

	c.EditNotes("vessel went dark near Kerch")
	if !c.Dirty() {
		t.Error("Dirty() = false after edit, want true")
	}
	if c.SavedConfirmationVisible() {
		t.Error("confirmation must not show before any save")
	}

	if err := c.SaveNotes(context.Background()); err != nil {
		t.Fatalf("SaveNotes: %v", err)
	}
	if c.Dirty() {
		t.Error("Dirty() = true after save, want false")
	}
	if svc.lastNotes != "vessel went dark near Kerch" {
		t.Errorf("saved notes = %q, want the edited text", svc.lastNotes)
	}
	if !c.SavedConfirmationVisible() {
		t.Error("confirmation should be visible immediately after save")
	}

	clk.Advance(SavedConfirmationTTL - time.Millisecond)
	if !c.SavedConfirmationVisible() {
		t.Error("confirmation should still be visible just inside the TTL")
	}

	clk.Advance(2 * time.Millisecond)
	if c.SavedConfirmationVisible() {
		t.Error("confirmation should disappear once the TTL elapses")
	}
}

func TestEditNotes_ClearsConfirmationImmediately(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusUnderReview)

	c.EditNotes("first")
	if err := c.SaveNotes(context.Background()); err != nil {
		t.Fatalf("SaveNotes: %v", err)
	}
	if !c.SavedConfirmationVisible() {
		t.Fatal("confirmation should show after save")
	}

	c.EditNotes("second")
	if c.SavedConfirmationVisible() {
		t.Error("a new edit must clear the confirmation, TTL or not")
	}
	if !c.Dirty() {
		t.Error("Dirty() = false after new edit, want true")
	}
}

func TestSaveNotes_FailureKeepsDirty(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{notesErr: errors.New("backend returned 500")}
	c, _ := newTestController(t, svc, backend.StatusUnderReview)

	c.EditNotes("doomed")
	if err := c.SaveNotes(context.Background()); err == nil {
		t.Fatal("expected error from failed save")
	}
	if !c.Dirty() {
		t.Error("failed save must keep the unsaved flag")
	}
	if c.SavedConfirmationVisible() {
		t.Error("failed save must not show the confirmation")
	}
}

func TestExport_RejectedWhileNew(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusNew)

	_, err := c.Export(context.Background(), "md")
	if !errors.Is(err, ErrExportNotReady) {
		t.Fatalf("Export on new alert = %v, want ErrExportNotReady", err)
	}
	// the precondition is checked before any request is made
	if svc.exportCalls != 0 {
		t.Error("export of a new alert must not reach the backend")
	}
}

func TestExport_AllowedAfterReview(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusNew)

	if err := c.SetStatus(context.Background(), backend.StatusUnderReview, ""); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	res, err := c.Export(context.Background(), "md")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if res.MediaType != "text/markdown" {
		t.Errorf("MediaType = %q, want text/markdown", res.MediaType)
	}
	if svc.exportCalls != 1 {
		t.Errorf("export calls = %d, want 1", svc.exportCalls)
	}
}

func TestExport_InvalidFormat(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusDocumented)

	for _, format := range []string{"", "pdf", "MD"} {
		if _, err := c.Export(context.Background(), format); !errors.Is(err, ErrInvalidExportFormat) {
			t.Errorf("Export(%q) = %v, want ErrInvalidExportFormat", format, err)
		}
	}
	if svc.exportCalls != 0 {
		t.Error("invalid formats must not reach the backend")
	}
}

func TestSatelliteCheck(t *testing.T) {
	t.Parallel()

	svc := &mockAlertService{}
	c, _ := newTestController(t, svc, backend.StatusUnderReview)

	msg, err := c.SatelliteCheck(context.Background())
	if err != nil {
		t.Fatalf("SatelliteCheck: %v", err)
	}
	if msg != "satellite data prepared" {
		t.Errorf("message = %q, want pass-through", msg)
	}
	// requesting imagery never alters the workflow status
	if c.Status() != backend.StatusUnderReview {
		t.Errorf("Status() = %s, want unchanged under_review", c.Status())
	}
}
