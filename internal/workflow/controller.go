// Package workflow is the per-alert state machine: status transitions
// confirmed by the backend before local state changes, notes dirty tracking
// with a timed saved confirmation, the export precondition gate, and the
// satellite-check request.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/queue"
	"github.com/linnemanlabs/darkwatch/internal/rescache"
)

// SavedConfirmationTTL is how long the "saved" confirmation stays visible
// after a successful notes save.
const SavedConfirmationTTL = 3 * time.Second

// ErrExportNotReady rejects exports for alerts still in "new": an alert must
// enter analyst review before it can be exported. Enforced before any
// network call is made.
var ErrExportNotReady = errors.New("alert has not entered review; export requires a status other than new")

// ErrStatusPending rejects a transition while the previous one is still
// awaiting server confirmation.
var ErrStatusPending = errors.New("status update already pending")

// ErrInvalidStatus rejects an unknown target status.
var ErrInvalidStatus = errors.New("invalid alert status")

// ErrInvalidExportFormat rejects formats other than md and json.
var ErrInvalidExportFormat = errors.New("export format must be md or json")

// AlertService is the backend surface the controller needs.
type AlertService interface {
	UpdateStatus(ctx context.Context, id int64, status backend.AlertStatus, reason string) (*backend.Alert, error)
	UpdateNotes(ctx context.Context, id int64, notes string) error
	ExportAlert(ctx context.Context, id int64, format string) (*backend.ExportResult, error)
	PrepareSatelliteCheck(ctx context.Context, id int64) (string, error)
}

// Controller drives the workflow for a single alert.
type Controller struct {
	mu            sync.Mutex
	alertID       int64
	status        backend.AlertStatus
	notes         string
	dirty         bool
	savedAt       time.Time
	statusPending bool

	svc    AlertService
	cache  *rescache.Cache
	logger log.Logger
	now    func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the controller's clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a workflow controller seeded from the fetched alert.
func NewController(svc AlertService, cache *rescache.Cache, logger log.Logger, al *backend.Alert, opts ...Option) *Controller {
	if logger == nil {
		logger = log.Nop()
	}
	c := &Controller{
		alertID: al.GapEventID,
		status:  al.Status,
		notes:   al.AnalystNotes,
		svc:     svc,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Status returns the last server-confirmed status.
func (c *Controller) Status() backend.AlertStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// StatusPending reports whether a transition awaits server confirmation;
// the status control is disabled while this holds.
func (c *Controller) StatusPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusPending
}

// SetStatus transitions the alert to any other status. Transitions are
// direct (no enforced ordering) and take effect locally only after the
// server confirms; on failure the local status is unchanged and the error
// is surfaced for the banner.
func (c *Controller) SetStatus(ctx context.Context, status backend.AlertStatus, reason string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	c.mu.Lock()
	if c.statusPending {
		c.mu.Unlock()
		return ErrStatusPending
	}
	c.statusPending = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.statusPending = false
		c.mu.Unlock()
	}()

	al, err := c.svc.UpdateStatus(ctx, c.alertID, status, reason)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.status = al.Status
	c.mu.Unlock()

	c.invalidateAlert(ctx)
	c.logger.Info(ctx, "alert status updated", "alert_id", c.alertID, "status", string(al.Status))
	return nil
}

// EditNotes records a local edit: the unsaved flag is set and any visible
// saved confirmation is cleared immediately.
func (c *Controller) EditNotes(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes = text
	c.dirty = true
	c.savedAt = time.Time{}
}

// Notes returns the current (possibly unsaved) notes text.
func (c *Controller) Notes() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notes
}

// Dirty reports whether the notes have unsaved edits.
func (c *Controller) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// SaveNotes persists the notes. On success the unsaved flag clears and the
// saved confirmation becomes visible for SavedConfirmationTTL.
func (c *Controller) SaveNotes(ctx context.Context) error {
	c.mu.Lock()
	notes := c.notes
	c.mu.Unlock()

	if err := c.svc.UpdateNotes(ctx, c.alertID, notes); err != nil {
		return err
	}

	c.mu.Lock()
	c.dirty = false
	c.savedAt = c.now()
	c.mu.Unlock()

	c.invalidateAlert(ctx)
	return nil
}

// SavedConfirmationVisible reports whether the "saved" confirmation should
// show: within the TTL of a successful save, and not after a newer edit.
func (c *Controller) SavedConfirmationVisible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.savedAt.IsZero() {
		return false
	}
	return c.now().Sub(c.savedAt) < SavedConfirmationTTL
}

// Export renders the alert as md or json. Alerts still in "new" are rejected
// here, before any request is made; this is a hard precondition, not advice.
func (c *Controller) Export(ctx context.Context, format string) (*backend.ExportResult, error) {
	if format != "md" && format != "json" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidExportFormat, format)
	}

	c.mu.Lock()
	status := c.status
	c.mu.Unlock()
	if status == backend.StatusNew {
		return nil, ErrExportNotReady
	}

	return c.svc.ExportAlert(ctx, c.alertID, format)
}

// SatelliteCheck asks the backend to prepare satellite imagery data.
// Repeated calls are allowed and it never alters the alert's status.
func (c *Controller) SatelliteCheck(ctx context.Context) (string, error) {
	return c.svc.PrepareSatelliteCheck(ctx, c.alertID)
}

func (c *Controller) invalidateAlert(ctx context.Context) {
	if c.cache == nil {
		return
	}
	c.cache.Invalidate(ctx, queue.KindAlerts)
	c.cache.InvalidateKey(ctx, rescache.Key{Kind: queue.KindAlert, Params: strconv.FormatInt(c.alertID, 10)})
}
