package dataset

import (
	"context"
	"errors"
	"time"

	"github.com/valyala/fasthttp"

	"keyword-pivot/pkg/logger"
)

const (
	defaultRetries    = 2
	defaultRetryDelay = 500 * time.Millisecond
)

// RetryFetcher retries a Fetcher with exponential backoff. Client errors
// other than 429 fail immediately.
type RetryFetcher struct {
	next              Fetcher
	maxRetries        int
	retryDelay        time.Duration
	backoffMultiplier float64
	log               *logger.Logger
}

func NewRetryFetcher(next Fetcher, maxRetries int, retryDelay time.Duration) *RetryFetcher {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &RetryFetcher{
		next:              next,
		maxRetries:        maxRetries,
		retryDelay:        retryDelay,
		backoffMultiplier: 2.0,
		log:               logger.GetLogger().WithField("component", "dataset_retry"),
	}
}

func (r *RetryFetcher) Fetch(ctx context.Context, source string) ([]byte, error) {
	var lastErr error
	delay := r.retryDelay

	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := r.next.Fetch(ctx, source)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt == r.maxRetries || !isRetryable(err) {
			break
		}

		r.log.WithFields(map[string]interface{}{
			"attempt": attempt + 1,
			"delay":   delay.String(),
			"error":   err.Error(),
		}).Warn("Dataset fetch failed, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = time.Duration(float64(delay) * r.backoffMultiplier)
	}
	return nil, lastErr
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Code == fasthttp.StatusTooManyRequests || status.Code >= 500
	}
	return true
}
