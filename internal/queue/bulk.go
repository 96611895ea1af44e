package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/rescache"
)

// ErrNothingSelected is returned when a bulk apply is attempted with an
// empty selection.
var ErrNothingSelected = errors.New("no alerts selected")

// ErrBulkInFlight is returned when a bulk apply is attempted while another
// is still pending. The apply control is disabled while this holds.
var ErrBulkInFlight = errors.New("bulk update already in flight")

// BulkUpdater is the backend surface the coordinator needs.
type BulkUpdater interface {
	BulkStatus(ctx context.Context, ids []int64, status backend.AlertStatus) (int, error)
}

// BulkCoordinator applies one status to a selected set of alerts in a single
// batched call. The server is the sole source of truth: no row is marked
// updated locally. On success the selection is cleared and alert cache
// entries are invalidated so the visible page refetches; on failure the
// selection is preserved for a manual retry.
type BulkCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	updater  BulkUpdater
	cache    *rescache.Cache
	logger   log.Logger
}

// NewBulkCoordinator creates a bulk mutation coordinator.
func NewBulkCoordinator(updater BulkUpdater, cache *rescache.Cache, logger log.Logger) *BulkCoordinator {
	if logger == nil {
		logger = log.Nop()
	}
	return &BulkCoordinator{
		updater: updater,
		cache:   cache,
		logger:  logger,
	}
}

// InFlight reports whether a bulk update is pending.
func (b *BulkCoordinator) InFlight() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inFlight
}

// Apply sends the batched status update and returns the number of rows the
// server updated. Only one apply may be in flight at a time.
func (b *BulkCoordinator) Apply(ctx context.Context, sel *SelectionSet, status backend.AlertStatus) (int, error) {
	ids := sel.IDs()
	if len(ids) == 0 {
		return 0, ErrNothingSelected
	}

	b.mu.Lock()
	if b.inFlight {
		b.mu.Unlock()
		return 0, ErrBulkInFlight
	}
	b.inFlight = true
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight = false
		b.mu.Unlock()
	}()

	updated, err := b.updater.BulkStatus(ctx, ids, status)
	if err != nil {
		// selection preserved, nothing mutated locally
		return 0, err
	}

	sel.Clear()
	b.cache.Invalidate(ctx, KindAlerts)
	b.cache.Invalidate(ctx, KindAlert)

	b.logger.Info(ctx, "bulk status applied",
		"count", len(ids),
		"updated", updated,
		"status", string(status),
	)
	return updated, nil
}
