package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/darkwatch/internal/backend"
	"github.com/linnemanlabs/darkwatch/internal/rescache"
)

// KindAlerts is the cache kind for alert queue pages.
const KindAlerts = "alerts"

// KindAlert is the cache kind for single-alert detail reads.
const KindAlert = "alert"

// AlertLister is the backend surface the engine needs.
type AlertLister interface {
	ListAlerts(ctx context.Context, p backend.ListAlertsParams) (*backend.AlertPage, error)
}

// Filters are the server-side alert queue filters. Changing any of them
// resets pagination to the first page.
type Filters struct {
	MinScore   *float64
	Status     backend.AlertStatus
	VesselName string
	DateFrom   time.Time
	DateTo     time.Time
	CorridorID *int64
	VesselID   *int64
}

// PageResult is one fetched page of the queue.
//
// Items carries the rows to render, after the patterns-only post-filter.
// Total always counts server-side matches: the post-filter is a client-side
// trim and deliberately does not alter the total or the page math, so the
// rendered row count can be lower than the page size without changing "N
// total" or the number of pages.
type PageResult struct {
	Items      []backend.Alert
	Total      int
	Page       int
	TotalPages int
}

// Engine owns the alert queue query state: filters, active sort, pagination
// and the page-scoped selection. One engine serves one analyst queue view.
type Engine struct {
	mu           sync.Mutex
	cache        *rescache.Cache
	lister       AlertLister
	logger       log.Logger
	selection    *SelectionSet
	filters      Filters
	patternsOnly bool
	sortBy       backend.SortKey
	sortOrder    backend.SortOrder
	skip         int
	limit        int
	lastTotal    int
}

// NewEngine creates a queue engine with the default sort (risk score,
// highest first) and the given fixed page size.
func NewEngine(cache *rescache.Cache, lister AlertLister, logger log.Logger, pageSize int) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Engine{
		cache:     cache,
		lister:    lister,
		logger:    logger,
		selection: NewSelectionSet(),
		sortBy:    backend.SortRiskScore,
		sortOrder: backend.SortDesc,
		limit:     pageSize,
	}
}

// Selection returns the page-scoped selection set.
func (e *Engine) Selection() *SelectionSet {
	return e.selection
}

// SetFilters replaces the server-side filters, resetting to the first page
// and emptying the selection.
func (e *Engine) SetFilters(f Filters) {
	e.mu.Lock()
	e.filters = f
	e.skip = 0
	e.mu.Unlock()
	e.selection.Clear()
}

// SetPatternsOnly toggles the client-side recurring-pattern post-filter. It
// is not a server filter: pagination and totals are left untouched. The
// selection is emptied because the rendered rows change.
func (e *Engine) SetPatternsOnly(on bool) {
	e.mu.Lock()
	e.patternsOnly = on
	e.mu.Unlock()
	e.selection.Clear()
}

// ToggleSort applies the column sort policy: clicking an inactive column
// activates it descending; clicking the active column flips the direction.
// Sorting keeps the current page number but reshuffles which rows it holds,
// so the selection is emptied.
func (e *Engine) ToggleSort(key backend.SortKey) {
	e.mu.Lock()
	switch {
	case e.sortBy != key:
		e.sortBy = key
		e.sortOrder = backend.SortDesc
	case e.sortOrder == backend.SortDesc:
		e.sortOrder = backend.SortAsc
	default:
		e.sortOrder = backend.SortDesc
	}
	e.mu.Unlock()
	e.selection.Clear()
}

// Sort returns the active sort column and direction.
func (e *Engine) Sort() (backend.SortKey, backend.SortOrder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortBy, e.sortOrder
}

// Page returns the 1-based current page number.
func (e *Engine) Page() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.skip/e.limit + 1
}

// NextPage advances one page if the last fetched total allows it, emptying
// the selection. It reports whether the page changed.
func (e *Engine) NextPage() bool {
	e.mu.Lock()
	if e.skip+e.limit >= e.lastTotal {
		e.mu.Unlock()
		return false
	}
	e.skip += e.limit
	e.mu.Unlock()
	e.selection.Clear()
	return true
}

// PrevPage steps back one page, emptying the selection. It reports whether
// the page changed.
func (e *Engine) PrevPage() bool {
	e.mu.Lock()
	if e.skip == 0 {
		e.mu.Unlock()
		return false
	}
	e.skip -= e.limit
	if e.skip < 0 {
		e.skip = 0
	}
	e.mu.Unlock()
	e.selection.Clear()
	return true
}

// SetPage jumps to a 1-based page number, emptying the selection.
func (e *Engine) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	e.mu.Lock()
	e.skip = (page - 1) * e.limit
	e.mu.Unlock()
	e.selection.Clear()
}

func (e *Engine) params() backend.ListAlertsParams {
	return backend.ListAlertsParams{
		MinScore:   e.filters.MinScore,
		Status:     e.filters.Status,
		VesselName: e.filters.VesselName,
		DateFrom:   e.filters.DateFrom,
		DateTo:     e.filters.DateTo,
		CorridorID: e.filters.CorridorID,
		VesselID:   e.filters.VesselID,
		SortBy:     e.sortBy,
		SortOrder:  e.sortOrder,
		Skip:       e.skip,
		Limit:      e.limit,
	}
}

// Fetch retrieves the current page through the resource cache. Identical
// concurrent fetches collapse into one backend call.
func (e *Engine) Fetch(ctx context.Context) (*PageResult, error) {
	e.mu.Lock()
	p := e.params()
	patternsOnly := e.patternsOnly
	limit := e.limit
	skip := e.skip
	e.mu.Unlock()

	key := rescache.Key{Kind: KindAlerts, Params: p.Query().Encode()}
	v, err := e.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		return e.lister.ListAlerts(ctx, p)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch alert page: %w", err)
	}
	page, ok := v.(*backend.AlertPage)
	if !ok {
		return nil, fmt.Errorf("unexpected cache payload %T for kind %q", v, KindAlerts)
	}

	e.mu.Lock()
	e.lastTotal = page.Total
	e.mu.Unlock()

	items := page.Items
	if patternsOnly {
		filtered := make([]backend.Alert, 0, len(items))
		for _, al := range items {
			if al.IsRecurringPattern {
				filtered = append(filtered, al)
			}
		}
		items = filtered
	}

	return &PageResult{
		Items:      items,
		Total:      page.Total,
		Page:       skip/limit + 1,
		TotalPages: totalPages(page.Total, limit),
	}, nil
}

// totalPages is ceil(total/limit) with a floor of one page even when the
// queue is empty.
func totalPages(total, limit int) int {
	if total <= 0 {
		return 1
	}
	n := (total + limit - 1) / limit
	if n < 1 {
		n = 1
	}
	return n
}
