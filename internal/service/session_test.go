package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"keyword-pivot/pkg/pivot"
)

type countingObserver struct {
	mu  sync.Mutex
	ops map[string]int
}

func (o *countingObserver) ObserveRecompute(op string, visible int, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ops == nil {
		o.ops = make(map[string]int)
	}
	o.ops[op]++
}

func testEngine(t *testing.T) *pivot.Engine {
	t.Helper()
	return testEngineWithObserver(t, nil)
}

func testEngineWithObserver(t *testing.T, observer pivot.Observer) *pivot.Engine {
	t.Helper()
	records := []pivot.KeywordRecord{
		{Keyword: "solar panels", Volume: pivot.Int64(1000), CPC: pivot.Float64(1), Categories: []string{"Energy"}, PrimaryCategory: "Energy", Intent: "Commercial",
			BrandPresences: []pivot.BrandPresence{{Brand: "A", Clicks: 100, EstimatedSpend: 50}}},
		{Keyword: "solar inverter", Volume: pivot.Int64(500), CPC: pivot.Float64(2), Categories: []string{"Energy"}, PrimaryCategory: "Energy", Intent: "Transactional",
			BrandPresences: []pivot.BrandPresence{{Brand: "B", Clicks: 10, EstimatedSpend: 5}}},
		{Keyword: "cart software", Volume: pivot.Int64(200), Categories: []string{"Cart"}, PrimaryCategory: "Cart", Intent: "Commercial"},
	}
	engine, err := pivot.NewEngine(pivot.NewStore(records, pivot.Vocabulary{Brands: []string{"A", "B"}}), observer)
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	return engine
}

func TestSession_StartsAtDefaultState(t *testing.T) {
	s := NewSession("op-1", testEngine(t))

	if !s.State().IsEmpty() {
		t.Errorf("Expected default state, got %+v", s.State())
	}
	if s.Result().VisibleCount != 3 {
		t.Errorf("Expected all 3 records visible, got %d", s.Result().VisibleCount)
	}
}

func TestSession_ApplyReplacesState(t *testing.T) {
	s := NewSession("op-1", testEngine(t))
	ctx := context.Background()

	if _, err := s.Apply(ctx, pivot.FilterState{SearchText: "solar"}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	result, err := s.Apply(ctx, pivot.FilterState{SelectedIntents: []string{"Commercial"}})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if result.VisibleCount != 2 {
		t.Errorf("Expected the new state to replace the old one (2 visible), got %d", result.VisibleCount)
	}
	if s.State().SearchText != "" {
		t.Error("Previous search text leaked into the replaced state")
	}

	page, err := s.Page(ctx, pivot.PageRequest{SortKey: pivot.SortVolume, Direction: pivot.Descending, PageSize: 10})
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if len(page.Records) != 2 || page.Records[0].Keyword != "solar panels" {
		t.Errorf("Unexpected page: %+v", page.Records)
	}
}

func TestSession_FailedApplyKeepsPreviousState(t *testing.T) {
	s := NewSession("op-1", testEngine(t))
	ctx := context.Background()

	if _, err := s.Apply(ctx, pivot.FilterState{SelectedBrands: []string{"A"}}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	_, err := s.Apply(ctx, pivot.FilterState{CPCRange: &pivot.Range{Min: pivot.Float64(3), Max: pivot.Float64(1)}})
	if !errors.Is(err, pivot.ErrInvalidRange) {
		t.Fatalf("Expected ErrInvalidRange, got %v", err)
	}
	if s.Result().VisibleCount != 1 {
		t.Errorf("Expected previous state (1 visible) to remain, got %d", s.Result().VisibleCount)
	}

	if _, err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.Result().VisibleCount != 3 {
		t.Errorf("Expected reset to show all records, got %d", s.Result().VisibleCount)
	}
}

func TestSessionManager_Lifecycle(t *testing.T) {
	m := NewSessionManager(testEngine(t), 2, time.Hour)
	defer m.Close()

	a := m.Get("a")
	if m.Get("a") != a {
		t.Error("Expected Get to return the existing session")
	}
	m.Get("b")
	m.Get("c")

	if m.Count() != 2 {
		t.Errorf("Expected capacity to cap sessions at 2, got %d", m.Count())
	}
	if _, ok := m.Lookup("a"); ok {
		t.Error("Expected least recently used session to be evicted")
	}
	if !m.Drop("c") || m.Count() != 1 {
		t.Error("Expected Drop to remove session c")
	}
}

func TestSession_RecomputesAreObserved(t *testing.T) {
	observer := &countingObserver{}
	s := NewSession("op-1", testEngineWithObserver(t, observer))
	ctx := context.Background()

	if _, err := s.Apply(ctx, pivot.FilterState{SearchText: "solar"}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := s.Page(ctx, pivot.PageRequest{PageSize: 5}); err != nil {
		t.Fatalf("Page failed: %v", err)
	}

	if observer.ops["apply_filter"] != 1 || observer.ops["get_page"] != 1 {
		t.Errorf("Expected one apply_filter and one get_page observation, got %v", observer.ops)
	}
}
