package pivot

import (
	"fmt"
	"math"
	"sort"
)

// IssueKind classifies a data-quality problem found while building a Store.
type IssueKind string

const (
	IssueEmptyKeyword        IssueKind = "empty_keyword"
	IssueDuplicateKeyword    IssueKind = "duplicate_keyword"
	IssueUnknownCategory     IssueKind = "unknown_category"
	IssueMissingPrimary      IssueKind = "missing_primary_category"
	IssuePrimaryNotMember    IssueKind = "primary_not_in_categories"
	IssueMissingIntent       IssueKind = "missing_intent"
	IssueUnknownIntent       IssueKind = "unknown_intent"
	IssueUnknownBrand        IssueKind = "unknown_brand"
	IssueNegativeValue       IssueKind = "negative_value"
	IssueDeviceShareMismatch IssueKind = "device_share_mismatch"
)

// deviceShareTolerance is how far desktop+mobile may drift from 1.0 before
// it is reported.
const deviceShareTolerance = 0.05

// Issue describes one data-quality problem on one record. The record is
// always retained.
type Issue struct {
	Index   int       `json:"index"`
	Keyword string    `json:"keyword"`
	Kind    IssueKind `json:"kind"`
	Detail  string    `json:"detail,omitempty"`
}

// entry is the per-record folded index used by the scan.
type entry struct {
	keyword    string
	brands     []string
	categories []string
	intent     string
}

// Store is the immutable in-memory record collection. It is safe for
// concurrent readers because nothing mutates it after NewStore returns.
type Store struct {
	records    []KeywordRecord
	index      []entry
	vocab      Vocabulary
	brandSlot  map[string]int
	issues     []Issue
	issueCount map[IssueKind]int
}

// NewStore copies records and builds the search index. Malformed records
// are kept and reported through Issues.
func NewStore(records []KeywordRecord, vocab Vocabulary) *Store {
	s := &Store{
		records:    make([]KeywordRecord, len(records)),
		index:      make([]entry, len(records)),
		vocab:      vocab,
		brandSlot:  make(map[string]int, len(vocab.Brands)),
		issueCount: make(map[IssueKind]int),
	}
	for i, b := range vocab.Brands {
		if f := fold(b); f != "" {
			if _, dup := s.brandSlot[f]; !dup {
				s.brandSlot[f] = i
			}
		}
	}

	for i := range records {
		s.records[i] = records[i].clone()
		s.index[i] = buildEntry(&s.records[i])
	}
	s.validate()
	return s
}

func buildEntry(r *KeywordRecord) entry {
	e := entry{
		keyword: fold(r.Keyword),
		intent:  fold(r.Intent),
	}
	if len(r.Categories) > 0 {
		e.categories = make([]string, 0, len(r.Categories))
		for _, c := range r.Categories {
			e.categories = append(e.categories, fold(c))
		}
	}
	if len(r.BrandPresences) > 0 {
		e.brands = make([]string, 0, len(r.BrandPresences))
		for _, bp := range r.BrandPresences {
			e.brands = append(e.brands, fold(bp.Brand))
		}
	}
	return e
}

func (s *Store) validate() {
	categories := foldSet(s.vocab.Categories)
	intents := foldSet(s.vocab.Intents)
	seen := make(map[string]int, len(s.records))

	for i := range s.records {
		r := &s.records[i]
		e := &s.index[i]

		if e.keyword == "" {
			s.report(i, r, IssueEmptyKeyword, "")
		} else if first, dup := seen[e.keyword]; dup {
			s.report(i, r, IssueDuplicateKeyword, fmt.Sprintf("first seen at index %d", first))
		} else {
			seen[e.keyword] = i
		}

		if len(categories) > 0 {
			for j, c := range e.categories {
				if _, ok := categories[c]; !ok {
					s.report(i, r, IssueUnknownCategory, r.Categories[j])
				}
			}
		}

		primary := fold(r.PrimaryCategory)
		switch {
		case primary == "":
			s.report(i, r, IssueMissingPrimary, "")
		case !contains(e.categories, primary):
			s.report(i, r, IssuePrimaryNotMember, r.PrimaryCategory)
		}
		if primary != "" && len(categories) > 0 {
			if _, ok := categories[primary]; !ok && !contains(e.categories, primary) {
				s.report(i, r, IssueUnknownCategory, r.PrimaryCategory)
			}
		}

		if e.intent == "" {
			s.report(i, r, IssueMissingIntent, "")
		} else if len(intents) > 0 {
			if _, ok := intents[e.intent]; !ok {
				s.report(i, r, IssueUnknownIntent, r.Intent)
			}
		}

		if r.Volume != nil && *r.Volume < 0 {
			s.report(i, r, IssueNegativeValue, "volume")
		}
		if r.CPC != nil && *r.CPC < 0 {
			s.report(i, r, IssueNegativeValue, "cpc")
		}

		for j, bp := range r.BrandPresences {
			if len(s.brandSlot) > 0 {
				if _, ok := s.brandSlot[e.brands[j]]; !ok {
					s.report(i, r, IssueUnknownBrand, bp.Brand)
				}
			}
			if bp.Clicks < 0 {
				s.report(i, r, IssueNegativeValue, bp.Brand+".clicks")
			}
			if bp.EstimatedSpend < 0 {
				s.report(i, r, IssueNegativeValue, bp.Brand+".estimated_spend")
			}
			sum := bp.DeviceShare.Desktop + bp.DeviceShare.Mobile
			if math.Abs(sum-1) > deviceShareTolerance {
				s.report(i, r, IssueDeviceShareMismatch, fmt.Sprintf("%s: %.3f", bp.Brand, sum))
			}
		}
	}
}

func (s *Store) report(i int, r *KeywordRecord, kind IssueKind, detail string) {
	s.issues = append(s.issues, Issue{Index: i, Keyword: r.Keyword, Kind: kind, Detail: detail})
	s.issueCount[kind]++
}

func contains(items []string, v string) bool {
	for _, it := range items {
		if it == v {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (s *Store) Len() int { return len(s.records) }

// Record returns the record at store index i. Callers must not modify it.
func (s *Store) Record(i int) *KeywordRecord { return &s.records[i] }

// Vocabulary returns the configuration the store was built with.
func (s *Store) Vocabulary() Vocabulary { return s.vocab }

// Issues returns every data-quality problem in store order.
func (s *Store) Issues() []Issue {
	out := make([]Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// IssueCounts aggregates Issues by kind.
func (s *Store) IssueCounts() map[IssueKind]int {
	out := make(map[IssueKind]int, len(s.issueCount))
	for k, v := range s.issueCount {
		out[k] = v
	}
	return out
}

// IssueKinds returns the kinds present, sorted.
func (s *Store) IssueKinds() []IssueKind {
	kinds := make([]IssueKind, 0, len(s.issueCount))
	for k := range s.issueCount {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// All returns the identity subset.
func (s *Store) All() Subset {
	idx := make([]int, len(s.records))
	for i := range idx {
		idx[i] = i
	}
	return Subset{store: s, idx: idx}
}
