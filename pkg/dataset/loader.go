package dataset

import (
	"context"
	"fmt"
	"time"

	"keyword-pivot/pkg/logger"
	"keyword-pivot/pkg/pivot"
)

// LoadReport summarizes one ingestion.
type LoadReport struct {
	Source     string                  `json:"source"`
	Bytes      int                     `json:"bytes"`
	Accepted   int                     `json:"accepted"`
	Rejected   int                     `json:"rejected"`
	Errors     []string                `json:"errors,omitempty"`
	Issues     map[pivot.IssueKind]int `json:"issues"`
	Vocabulary pivot.Vocabulary        `json:"vocabulary"`
	Duration   time.Duration           `json:"duration"`
}

// Loader turns a dataset source into an immutable Store.
type Loader struct {
	file   Fetcher
	remote Fetcher
	log    *logger.Logger
}

// NewLoader creates a loader reading local files and http(s) URLs.
func NewLoader(httpTimeout time.Duration) *Loader {
	return &Loader{
		file:   FileFetcher{},
		remote: NewRetryFetcher(NewHTTPFetcher(httpTimeout), defaultRetries, defaultRetryDelay),
		log:    logger.GetLogger().WithField("component", "dataset_loader"),
	}
}

// SetRemoteFetcher swaps the HTTP fetcher.
func (l *Loader) SetRemoteFetcher(f Fetcher) {
	l.remote = f
}

// Load fetches, decodes and indexes source. Vocabulary lists left empty in
// configured are taken from the payload, then derived from the records.
func (l *Loader) Load(ctx context.Context, source string, configured pivot.Vocabulary) (*pivot.Store, *LoadReport, error) {
	if source == "" {
		return nil, nil, fmt.Errorf("dataset source is required")
	}
	start := time.Now()

	fetcher := l.file
	display := source
	if isRemote(source) {
		fetcher = l.remote
		display = logger.MaskURL(source)
	}

	l.log.WithField("source", display).Info("Loading dataset")
	data, err := fetcher.Fetch(ctx, source)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch dataset %s: %w", display, err)
	}

	store, report, err := Build(data, configured)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build dataset %s: %w", display, err)
	}
	report.Source = display
	report.Duration = time.Since(start)
	l.logReport(report)
	return store, report, nil
}

// Build decodes an in-memory payload into a Store.
func Build(data []byte, configured pivot.Vocabulary) (*pivot.Store, *LoadReport, error) {
	payload, err := Decode(data)
	if err != nil {
		return nil, nil, err
	}

	vocab := configured.Merge(payload.Vocabulary).Merge(pivot.DeriveVocabulary(payload.Records))
	store := pivot.NewStore(payload.Records, vocab)

	return store, &LoadReport{
		Bytes:      len(data),
		Accepted:   store.Len(),
		Rejected:   payload.Rejected,
		Errors:     payload.Errors,
		Issues:     store.IssueCounts(),
		Vocabulary: vocab,
	}, nil
}

func (l *Loader) logReport(report *LoadReport) {
	l.log.WithFields(map[string]interface{}{
		"source":      report.Source,
		"accepted":    report.Accepted,
		"rejected":    report.Rejected,
		"brands":      len(report.Vocabulary.Brands),
		"categories":  len(report.Vocabulary.Categories),
		"duration_ms": report.Duration.Milliseconds(),
	}).Info("Dataset loaded")

	if report.Rejected > 0 {
		l.log.WithFields(map[string]interface{}{
			"rejected": report.Rejected,
			"samples":  report.Errors,
		}).Warn("Skipped undecodable records")
	}
	for kind, count := range report.Issues {
		l.log.WithFields(map[string]interface{}{
			"kind":  string(kind),
			"count": count,
		}).Warn("Data quality issue")
	}
}
