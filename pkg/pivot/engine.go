package pivot

import (
	"context"
	"fmt"
	"time"

	"keyword-pivot/pkg/logger"
)

// FilterResult answers applyFilter: the aggregates of the visible subset.
type FilterResult struct {
	VisibleCount int              `json:"visible_count"`
	Brands       []BrandRollup    `json:"brand_rollups"`
	Categories   []CategoryRollup `json:"category_rollups"`
	Summary      Summary          `json:"summary"`
	ActiveAxes   []string         `json:"active_axes"`
	DurationMs   float64          `json:"duration_ms"`
}

// PageRequest selects ordering and the page to return.
type PageRequest struct {
	SortKey   SortKey   `json:"sort"`
	Direction Direction `json:"direction"`
	PageIndex int       `json:"page"`
	PageSize  int       `json:"page_size"`
}

// Page is one display-ready slice of the sorted visible subset.
type Page struct {
	Records      []KeywordRecord `json:"records"`
	PageIndex    int             `json:"page"`
	PageSize     int             `json:"page_size"`
	TotalRecords int             `json:"total_records"`
	TotalPages   int             `json:"total_pages"`
}

// Observer receives one call per completed recompute. Metrics hook in here.
type Observer interface {
	ObserveRecompute(op string, visible int, elapsed time.Duration, err error)
}

// Engine is the query interface over one Store. It holds no per-query
// state, so one Engine may serve any number of sessions.
type Engine struct {
	store    *Store
	observer Observer
	log      *logger.Logger
}

// NewEngine wraps store. observer may be nil.
func NewEngine(store *Store, observer Observer) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	return &Engine{
		store:    store,
		observer: observer,
		log:      logger.GetLogger().WithField("component", "pivot_engine"),
	}, nil
}

// Store returns the backing store.
func (e *Engine) Store() *Store { return e.store }

// Visible runs the filter phase only.
func (e *Engine) Visible(ctx context.Context, state FilterState) (Subset, error) {
	if err := ctx.Err(); err != nil {
		return Subset{}, err
	}
	p, err := Compile(state)
	if err != nil {
		return Subset{}, err
	}
	return e.store.Filter(p), nil
}

// ApplyFilter filters then aggregates. Cancellation is honoured between
// phases only, so a returned result is never partial.
func (e *Engine) ApplyFilter(ctx context.Context, state FilterState) (*FilterResult, error) {
	_, res, err := e.Recompute(ctx, state)
	return res, err
}

// Recompute is ApplyFilter that also hands back the visible subset, so
// callers can page it without scanning the store again.
func (e *Engine) Recompute(ctx context.Context, state FilterState) (visible Subset, res *FilterResult, err error) {
	start := time.Now()
	defer func() { e.observe("apply_filter", res, start, err) }()

	p, err := Compile(state)
	if err != nil {
		return Subset{}, nil, err
	}
	if err := ctx.Err(); err != nil {
		return Subset{}, nil, err
	}
	visible = e.store.Filter(p)
	if err := ctx.Err(); err != nil {
		return Subset{}, nil, fmt.Errorf("after filter phase: %w", err)
	}
	return visible, e.result(visible, state, p, start), nil
}

// Summarize aggregates an already filtered subset.
func (e *Engine) Summarize(visible Subset, state FilterState) *FilterResult {
	p, err := Compile(state)
	if err != nil {
		p = &Predicate{}
	}
	return e.result(visible, state, p, time.Now())
}

func (e *Engine) result(visible Subset, state FilterState, p *Predicate, start time.Time) *FilterResult {
	rollups := Aggregate(visible, state.SelectedBrands)
	res := &FilterResult{
		VisibleCount: visible.Len(),
		Brands:       rollups.Brands,
		Categories:   rollups.Categories,
		Summary:      rollups.Summary,
		ActiveAxes:   p.Axes(),
		DurationMs:   float64(time.Since(start).Microseconds()) / 1000,
	}
	e.log.WithFields(map[string]interface{}{
		"visible":     res.VisibleCount,
		"axes":        res.ActiveAxes,
		"duration_ms": res.DurationMs,
	}).Debug("Recomputed rollups")
	return res
}

// GetPage filters, sorts and slices. A page index past the end returns an
// empty page.
func (e *Engine) GetPage(ctx context.Context, state FilterState, req PageRequest) (page *Page, err error) {
	start := time.Now()
	defer func() {
		var res *FilterResult
		if page != nil {
			res = &FilterResult{VisibleCount: page.TotalRecords}
		}
		e.observe("get_page", res, start, err)
	}()

	visible, err := e.Visible(ctx, state)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("after filter phase: %w", err)
	}
	return PageOf(visible, req)
}

// Page sorts and slices an already filtered subset, reporting to the
// observer like GetPage.
func (e *Engine) Page(ctx context.Context, visible Subset, req PageRequest) (page *Page, err error) {
	start := time.Now()
	defer func() {
		var res *FilterResult
		if page != nil {
			res = &FilterResult{VisibleCount: page.TotalRecords}
		}
		e.observe("get_page", res, start, err)
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return PageOf(visible, req)
}

// PageOf sorts and slices an already filtered subset.
func PageOf(visible Subset, req PageRequest) (*Page, error) {
	dir := req.Direction
	if dir == "" {
		dir = Ascending
	}
	if req.PageSize <= 0 {
		return nil, fmt.Errorf("%d: %w", req.PageSize, ErrInvalidPageSize)
	}
	if req.PageIndex < 0 {
		return nil, fmt.Errorf("%d: %w", req.PageIndex, ErrInvalidPageIndex)
	}
	sorted, err := visible.Sort(req.SortKey, dir)
	if err != nil {
		return nil, err
	}
	slice, err := sorted.Paginate(req.PageIndex, req.PageSize)
	if err != nil {
		return nil, err
	}
	return &Page{
		Records:      slice.Records(),
		PageIndex:    req.PageIndex,
		PageSize:     req.PageSize,
		TotalRecords: visible.Len(),
		TotalPages:   PageCount(visible.Len(), req.PageSize),
	}, nil
}

func (e *Engine) observe(op string, res *FilterResult, start time.Time, err error) {
	if e.observer == nil {
		return
	}
	visible := 0
	if res != nil {
		visible = res.VisibleCount
	}
	e.observer.ObserveRecompute(op, visible, time.Since(start), err)
}
