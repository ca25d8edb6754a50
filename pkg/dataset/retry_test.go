package dataset

import (
	"context"
	"errors"
	"testing"
	"time"
)

type scriptedFetcher struct {
	errs  []error
	calls int
}

func (s *scriptedFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return []byte("[]"), nil
}

func TestRetryFetcher_RecoversFromTransientErrors(t *testing.T) {
	next := &scriptedFetcher{errs: []error{&StatusError{Code: 503}, errors.New("connection reset")}}
	retry := NewRetryFetcher(next, 3, time.Millisecond)

	if _, err := retry.Fetch(context.Background(), "https://exports.example.com/kw.json"); err != nil {
		t.Fatalf("Expected success, got error: %v", err)
	}
	if next.calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", next.calls)
	}
}

func TestRetryFetcher_StopsOnClientErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
	}{
		{"not found", &StatusError{Code: 404}, 1},
		{"unauthorized", &StatusError{Code: 401}, 1},
		{"rate limited", &StatusError{Code: 429}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &scriptedFetcher{errs: []error{tt.err, tt.err, tt.err}}
			retry := NewRetryFetcher(next, 2, time.Millisecond)

			_, err := retry.Fetch(context.Background(), "https://exports.example.com/kw.json")
			var status *StatusError
			if !errors.As(err, &status) {
				t.Fatalf("Expected StatusError, got %v", err)
			}
			if next.calls != tt.attempts {
				t.Errorf("Expected %d attempts, got %d", tt.attempts, next.calls)
			}
		})
	}
}

func TestRetryFetcher_HonoursCancellation(t *testing.T) {
	next := &scriptedFetcher{errs: []error{errors.New("timeout"), errors.New("timeout")}}
	retry := NewRetryFetcher(next, 5, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if _, err := retry.Fetch(ctx, "https://exports.example.com/kw.json"); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if next.calls != 1 {
		t.Errorf("Expected 1 attempt before cancellation, got %d", next.calls)
	}
}
