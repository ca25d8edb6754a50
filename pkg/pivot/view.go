package pivot

import (
	"fmt"
	"slices"
	"strings"
)

// SortKey selects the ordering of the view.
type SortKey string

const (
	SortNone    SortKey = ""
	SortKeyword SortKey = "keyword"
	SortVolume  SortKey = "volume"
	SortCPC     SortKey = "cpc"
	SortSpend   SortKey = "spend"
	SortClicks  SortKey = "clicks"
)

// Direction is ascending or descending.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortKey accepts a sort key name, case-insensitively.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortNone, SortKeyword, SortVolume, SortCPC, SortSpend, SortClicks:
		return k, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownSortKey)
	}
}

// ParseDirection accepts "asc"/"desc"; empty means ascending.
func ParseDirection(s string) (Direction, error) {
	switch d := strings.ToLower(strings.TrimSpace(s)); d {
	case "", "asc", "ascending":
		return Ascending, nil
	case "desc", "descending":
		return Descending, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownDirection)
	}
}

// sortValue is a record's key for numeric sorts; absent values sort last.
type sortValue struct {
	v  float64
	ok bool
}

func numericKey(key SortKey, r *KeywordRecord) sortValue {
	switch key {
	case SortVolume:
		v, ok := r.VolumeValue()
		return sortValue{float64(v), ok}
	case SortCPC:
		v, ok := r.CPCValue()
		return sortValue{v, ok}
	case SortSpend:
		return sortValue{r.TotalSpend(), true}
	case SortClicks:
		return sortValue{float64(r.TotalClicks()), true}
	}
	return sortValue{}
}

// Sort returns the subset reordered by key. The sort is stable: ties keep
// their store order in both directions. The receiver is not modified.
func (s Subset) Sort(key SortKey, dir Direction) (Subset, error) {
	key, err := ParseSortKey(string(key))
	if err != nil {
		return Subset{}, err
	}
	if dir, err = ParseDirection(string(dir)); err != nil {
		return Subset{}, err
	}
	out := Subset{store: s.store, idx: append([]int(nil), s.idx...)}
	if key == SortNone {
		return out, nil
	}

	st := s.store
	sign := 1
	if dir == Descending {
		sign = -1
	}

	if key == SortKeyword {
		slices.SortStableFunc(out.idx, func(a, b int) int {
			return sign * strings.Compare(st.index[a].keyword, st.index[b].keyword)
		})
		return out, nil
	}

	keys := make([]sortValue, len(st.records))
	for _, j := range out.idx {
		keys[j] = numericKey(key, &st.records[j])
	}
	slices.SortStableFunc(out.idx, func(a, b int) int {
		ka, kb := keys[a], keys[b]
		switch {
		case !ka.ok && !kb.ok:
			return 0
		case !ka.ok:
			return 1
		case !kb.ok:
			return -1
		case ka.v < kb.v:
			return -sign
		case ka.v > kb.v:
			return sign
		}
		return 0
	})
	return out, nil
}

// Paginate returns the pageIndex-th slice of pageSize records. An index
// past the end yields an empty subset, not an error.
func (s Subset) Paginate(pageIndex, pageSize int) (Subset, error) {
	if pageSize <= 0 {
		return Subset{}, fmt.Errorf("%d: %w", pageSize, ErrInvalidPageSize)
	}
	if pageIndex < 0 {
		return Subset{}, fmt.Errorf("%d: %w", pageIndex, ErrInvalidPageIndex)
	}
	start := pageIndex * pageSize
	if pageIndex > 0 && start/pageIndex != pageSize || start >= len(s.idx) {
		return Subset{store: s.store, idx: []int{}}, nil
	}
	end := start + pageSize
	if end > len(s.idx) || end < start {
		end = len(s.idx)
	}
	return Subset{store: s.store, idx: append([]int(nil), s.idx[start:end]...)}, nil
}

// PageCount is the number of non-empty pages at pageSize.
func PageCount(total, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}
