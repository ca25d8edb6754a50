package pivot

import "errors"

// Contract violations. Data-quality problems are never reported as errors.
var (
	ErrNilStore         = errors.New("pivot: store is nil")
	ErrInvalidRange     = errors.New("pivot: range minimum exceeds maximum")
	ErrInvalidPageSize  = errors.New("pivot: page size must be positive")
	ErrInvalidPageIndex = errors.New("pivot: page index must not be negative")
	ErrUnknownSortKey   = errors.New("pivot: unknown sort key")
	ErrUnknownDirection = errors.New("pivot: unknown sort direction")
)
