package pivot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
	errs  int
}

func (o *recordingObserver) ObserveRecompute(op string, visible int, elapsed time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, op)
	if err != nil {
		o.errs++
	}
}

func TestNewEngine_NilStore(t *testing.T) {
	if _, err := NewEngine(nil, nil); !errors.Is(err, ErrNilStore) {
		t.Errorf("Expected ErrNilStore, got %v", err)
	}
}

func TestEngine_VisibleCountMatchesFilter(t *testing.T) {
	store := NewStore(syntheticRecords(2000, 17), testVocab)
	engine, _ := NewEngine(store, nil)

	states := []FilterState{
		{},
		{SelectedBrands: []string{"B"}},
		{SelectedCategories: []string{"Energy"}, SelectedIntents: []string{"Transactional"}},
		{SearchText: "vpn", VolumeRange: &Range{Max: Float64(2500)}},
	}
	for _, state := range states {
		result, err := engine.ApplyFilter(context.Background(), state)
		if err != nil {
			t.Fatalf("ApplyFilter failed: %v", err)
		}
		if want := store.Filter(MustCompile(state)).Len(); result.VisibleCount != want {
			t.Errorf("visibleCount %d != filtered length %d for %+v", result.VisibleCount, want, state)
		}
		if result.Summary.TotalRecords != store.Len() {
			t.Errorf("Expected total records %d, got %d", store.Len(), result.Summary.TotalRecords)
		}
	}
}

func TestEngine_GetPage(t *testing.T) {
	store := NewStore(syntheticRecords(30, 2), testVocab)
	observer := &recordingObserver{}
	engine, _ := NewEngine(store, observer)
	ctx := context.Background()

	page, err := engine.GetPage(ctx, FilterState{}, PageRequest{SortKey: SortVolume, Direction: Descending, PageIndex: 50, PageSize: 20})
	if err != nil {
		t.Fatalf("Expected empty page, got error: %v", err)
	}
	if len(page.Records) != 0 || page.TotalRecords != 30 || page.TotalPages != 2 {
		t.Errorf("Unexpected page: %+v", page)
	}

	page, err = engine.GetPage(ctx, FilterState{}, PageRequest{SortKey: SortKeyword, PageIndex: 1, PageSize: 20})
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	if len(page.Records) != 10 {
		t.Errorf("Expected 10 records on the last page, got %d", len(page.Records))
	}

	if _, err := engine.GetPage(ctx, FilterState{}, PageRequest{PageSize: -5}); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("Expected ErrInvalidPageSize, got %v", err)
	}

	if len(observer.calls) != 3 || observer.errs != 1 {
		t.Errorf("Expected 3 observed calls with 1 error, got %v (%d errors)", observer.calls, observer.errs)
	}
}

func TestEngine_CancelledContext(t *testing.T) {
	engine, _ := NewEngine(NewStore(fiveRecords(), testVocab), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := engine.ApplyFilter(ctx, FilterState{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if _, err := engine.GetPage(ctx, FilterState{}, PageRequest{PageSize: 10}); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEngine_InvalidStateIsContractViolation(t *testing.T) {
	engine, _ := NewEngine(NewStore(fiveRecords(), testVocab), nil)
	_, err := engine.ApplyFilter(context.Background(), FilterState{VolumeRange: &Range{Min: Float64(10), Max: Float64(1)}})
	if !errors.Is(err, ErrInvalidRange) {
		t.Errorf("Expected ErrInvalidRange, got %v", err)
	}
}

func TestEngine_SharedStoreConcurrentSessions(t *testing.T) {
	store := NewStore(syntheticRecords(5000, 99), testVocab)
	engine, _ := NewEngine(store, nil)
	want, _ := engine.ApplyFilter(context.Background(), FilterState{SelectedBrands: []string{"A"}})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := engine.ApplyFilter(context.Background(), FilterState{SelectedBrands: []string{"A"}})
			if err != nil {
				t.Errorf("ApplyFilter failed: %v", err)
				return
			}
			if got.VisibleCount != want.VisibleCount || got.Summary.TotalClicks != want.Summary.TotalClicks {
				t.Errorf("Concurrent result differs: %d vs %d", got.VisibleCount, want.VisibleCount)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkEngine_ApplyFilter31k(b *testing.B) {
	store := NewStore(syntheticRecords(31000, 1), testVocab)
	engine, _ := NewEngine(store, nil)
	state := FilterState{
		SelectedBrands:     []string{"A", "B"},
		SelectedCategories: []string{"Energy", "E-commerce/Cart"},
		SearchText:         "cart",
	}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.ApplyFilter(ctx, state); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEngine_GetPage31k(b *testing.B) {
	store := NewStore(syntheticRecords(31000, 1), testVocab)
	engine, _ := NewEngine(store, nil)
	req := PageRequest{SortKey: SortSpend, Direction: Descending, PageSize: 50}
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.GetPage(ctx, FilterState{}, req); err != nil {
			b.Fatal(err)
		}
	}
}

func TestEngine_PageRecordsAreDetachedFromStore(t *testing.T) {
	store := NewStore(fiveRecords(), testVocab)
	engine, _ := NewEngine(store, nil)
	ctx := context.Background()
	state := FilterState{SelectedBrands: []string{"A"}}

	page, err := engine.GetPage(ctx, state, PageRequest{PageSize: 10})
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	page.Records[0].BrandPresences[0].Clicks = 999999
	*page.Records[0].Volume = 1
	page.Records[0].Categories[0] = "Energy"

	stored := store.Record(0)
	if stored.BrandPresences[0].Clicks != 100 || *stored.Volume != 1000 || stored.Categories[0] != "Affiliate/Network" {
		t.Errorf("Store record changed through a returned page: %+v", stored)
	}

	result, err := engine.ApplyFilter(ctx, state)
	if err != nil {
		t.Fatalf("ApplyFilter failed: %v", err)
	}
	if a, _ := (Rollups{Brands: result.Brands}).Brand("A"); a.TotalClicks != 150 {
		t.Errorf("Expected brand A total clicks 150, got %d", a.TotalClicks)
	}
}

func TestEngine_RecomputeThenPageScansOnce(t *testing.T) {
	observer := &recordingObserver{}
	engine, _ := NewEngine(NewStore(fiveRecords(), testVocab), observer)
	ctx := context.Background()

	visible, result, err := engine.Recompute(ctx, FilterState{SelectedBrands: []string{"B"}})
	if err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}
	if visible.Len() != 3 || result.VisibleCount != 3 {
		t.Errorf("Expected 3 visible records, got %d / %d", visible.Len(), result.VisibleCount)
	}

	page, err := engine.Page(ctx, visible, PageRequest{SortKey: SortClicks, Direction: Descending, PageSize: 2})
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if page.TotalRecords != 3 || page.Records[0].Keyword != "brand b login" {
		t.Errorf("Unexpected page: %+v", page)
	}

	if len(observer.calls) != 2 || observer.calls[0] != "apply_filter" || observer.calls[1] != "get_page" {
		t.Errorf("Expected apply_filter then get_page observations, got %v", observer.calls)
	}

	if _, err := engine.Page(ctx, visible, PageRequest{PageSize: 0}); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("Expected ErrInvalidPageSize, got %v", err)
	}
}
