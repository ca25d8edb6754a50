package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"keyword-pivot/pkg/pivot"
)

func TestRecorder_ObserveRecompute(t *testing.T) {
	r := NewRecorder()

	r.ObserveRecompute("apply_filter", 12, 3*time.Millisecond, nil)
	r.ObserveRecompute("apply_filter", 0, time.Millisecond, errors.New("boom"))
	r.ObserveRecompute("get_page", 0, time.Millisecond, context.Canceled)

	if got := testutil.ToFloat64(r.recomputes.WithLabelValues("apply_filter", "ok")); got != 1 {
		t.Errorf("Expected 1 ok recompute, got %v", got)
	}
	if got := testutil.ToFloat64(r.recomputes.WithLabelValues("apply_filter", "error")); got != 1 {
		t.Errorf("Expected 1 failed recompute, got %v", got)
	}
	if got := testutil.ToFloat64(r.recomputes.WithLabelValues("get_page", "cancelled")); got != 1 {
		t.Errorf("Expected 1 cancelled recompute, got %v", got)
	}
	if got := testutil.ToFloat64(r.visible.WithLabelValues("apply_filter")); got != 12 {
		t.Errorf("Expected visible gauge to keep last successful value 12, got %v", got)
	}
}

func TestRecorder_RegisterDataset(t *testing.T) {
	r := NewRecorder()
	store := pivot.NewStore([]pivot.KeywordRecord{
		{Keyword: "a", PrimaryCategory: "X", Categories: []string{"X"}, Intent: "Commercial"},
		{Keyword: "a", PrimaryCategory: "X", Categories: []string{"X"}, Intent: "Commercial"},
	}, pivot.Vocabulary{})

	if err := r.RegisterDataset(store); err != nil {
		t.Fatalf("RegisterDataset failed: %v", err)
	}
	if err := r.RegisterDataset(store); err == nil {
		t.Error("Expected duplicate registration to fail")
	}

	count, err := testutil.GatherAndCount(r.Registry(), "kwpivot_dataset_issues")
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 issue series (duplicate keyword), got %d", count)
	}
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 304: "3xx", 400: "4xx", 429: "4xx", 503: "5xx"}
	for status, want := range tests {
		if got := statusClass(status); got != want {
			t.Errorf("statusClass(%d) = %s, want %s", status, got, want)
		}
	}
}
