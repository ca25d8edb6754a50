package pivot

import (
	"strings"

	"golang.org/x/text/cases"
)

// Vocabulary is the configured brand roster, category vocabulary and
// intent enumeration. The engine never hardcodes any of them.
type Vocabulary struct {
	Brands     []string `json:"brands" mapstructure:"brands"`
	Categories []string `json:"categories" mapstructure:"categories"`
	Intents    []string `json:"intents" mapstructure:"intents"`
}

// IsEmpty reports whether no list is populated.
func (v Vocabulary) IsEmpty() bool {
	return len(v.Brands) == 0 && len(v.Categories) == 0 && len(v.Intents) == 0
}

// Merge fills every empty list of v from other.
func (v Vocabulary) Merge(other Vocabulary) Vocabulary {
	out := v
	if len(out.Brands) == 0 {
		out.Brands = other.Brands
	}
	if len(out.Categories) == 0 {
		out.Categories = other.Categories
	}
	if len(out.Intents) == 0 {
		out.Intents = other.Intents
	}
	return out
}

// DeriveVocabulary collects brands, categories and intents from records in
// first-seen order.
func DeriveVocabulary(records []KeywordRecord) Vocabulary {
	var vocab Vocabulary
	brands := newOrderedSet()
	categories := newOrderedSet()
	intents := newOrderedSet()
	for i := range records {
		r := &records[i]
		for _, c := range r.Categories {
			categories.add(c)
		}
		categories.add(r.PrimaryCategory)
		intents.add(r.Intent)
		for _, bp := range r.BrandPresences {
			brands.add(bp.Brand)
		}
	}
	vocab.Brands = brands.items
	vocab.Categories = categories.items
	vocab.Intents = intents.items
	return vocab
}

// fold normalizes an identifier or search string for case-insensitive
// comparison. A Caser is stateful, so one is created per call.
func fold(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}

// foldSet builds a lookup set from raw values, ignoring blanks.
func foldSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if f := fold(v); f != "" {
			set[f] = struct{}{}
		}
	}
	return set
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	key := fold(v)
	if key == "" {
		return
	}
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, strings.TrimSpace(v))
}
