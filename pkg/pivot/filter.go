package pivot

import (
	"fmt"
	"math"
	"strings"
)

// Range is an inclusive numeric bound. A nil side is unrestricted.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Active reports whether either side is set.
func (r *Range) Active() bool {
	return r != nil && (r.Min != nil || r.Max != nil)
}

func (r *Range) validate(field string) error {
	if !r.Active() {
		return nil
	}
	if (r.Min != nil && math.IsNaN(*r.Min)) || (r.Max != nil && math.IsNaN(*r.Max)) {
		return fmt.Errorf("%s: %w", field, ErrInvalidRange)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%s [%g, %g]: %w", field, *r.Min, *r.Max, ErrInvalidRange)
	}
	return nil
}

func (r *Range) contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r *Range) clone() *Range {
	if r == nil {
		return nil
	}
	out := &Range{}
	if r.Min != nil {
		out.Min = Float64(*r.Min)
	}
	if r.Max != nil {
		out.Max = Float64(*r.Max)
	}
	return out
}

// FilterState is what the operator currently wants to see. It is replaced
// wholesale on every interaction; the zero value shows everything.
type FilterState struct {
	SelectedBrands     []string `json:"selected_brands,omitempty"`
	SelectedCategories []string `json:"selected_categories,omitempty"`
	SelectedIntents    []string `json:"selected_intents,omitempty"`
	SearchText         string   `json:"search_text,omitempty"`
	VolumeRange        *Range   `json:"volume_range,omitempty"`
	CPCRange           *Range   `json:"cpc_range,omitempty"`
}

// DefaultFilterState is the session-start state: all brands, no restriction.
func DefaultFilterState() FilterState {
	return FilterState{}
}

// IsEmpty reports whether no axis restricts the result.
func (f FilterState) IsEmpty() bool {
	return len(foldSet(f.SelectedBrands)) == 0 &&
		len(foldSet(f.SelectedCategories)) == 0 &&
		len(foldSet(f.SelectedIntents)) == 0 &&
		fold(f.SearchText) == "" &&
		!f.VolumeRange.Active() &&
		!f.CPCRange.Active()
}

// Clone returns a deep copy.
func (f FilterState) Clone() FilterState {
	out := FilterState{
		SearchText:  f.SearchText,
		VolumeRange: f.VolumeRange.clone(),
		CPCRange:    f.CPCRange.clone(),
	}
	if f.SelectedBrands != nil {
		out.SelectedBrands = append([]string(nil), f.SelectedBrands...)
	}
	if f.SelectedCategories != nil {
		out.SelectedCategories = append([]string(nil), f.SelectedCategories...)
	}
	if f.SelectedIntents != nil {
		out.SelectedIntents = append([]string(nil), f.SelectedIntents...)
	}
	return out
}

// Axis names as reported by Predicate.Axes.
const (
	AxisBrand    = "brand"
	AxisCategory = "category"
	AxisIntent   = "intent"
	AxisText     = "text"
	AxisVolume   = "volume"
	AxisCPC      = "cpc"
)

type axis struct {
	name  string
	match func(r *KeywordRecord, e *entry) bool
}

// Predicate is a compiled FilterState: the AND of every active axis.
// Axes are independent, so evaluation order never changes the outcome.
type Predicate struct {
	axes []axis
}

// Compile validates state and builds its predicate.
func Compile(state FilterState) (*Predicate, error) {
	if err := state.VolumeRange.validate("volume_range"); err != nil {
		return nil, err
	}
	if err := state.CPCRange.validate("cpc_range"); err != nil {
		return nil, err
	}

	p := &Predicate{}

	if brands := foldSet(state.SelectedBrands); len(brands) > 0 {
		p.axes = append(p.axes, axis{name: AxisBrand, match: func(_ *KeywordRecord, e *entry) bool {
			return intersects(e.brands, brands)
		}})
	}
	if cats := foldSet(state.SelectedCategories); len(cats) > 0 {
		p.axes = append(p.axes, axis{name: AxisCategory, match: func(_ *KeywordRecord, e *entry) bool {
			return intersects(e.categories, cats)
		}})
	}
	if intents := foldSet(state.SelectedIntents); len(intents) > 0 {
		p.axes = append(p.axes, axis{name: AxisIntent, match: func(_ *KeywordRecord, e *entry) bool {
			_, ok := intents[e.intent]
			return ok
		}})
	}
	if needle := fold(state.SearchText); needle != "" {
		p.axes = append(p.axes, axis{name: AxisText, match: func(_ *KeywordRecord, e *entry) bool {
			return strings.Contains(e.keyword, needle)
		}})
	}
	if state.VolumeRange.Active() {
		rng := state.VolumeRange.clone()
		p.axes = append(p.axes, axis{name: AxisVolume, match: func(r *KeywordRecord, _ *entry) bool {
			v, ok := r.VolumeValue()
			return ok && rng.contains(float64(v))
		}})
	}
	if state.CPCRange.Active() {
		rng := state.CPCRange.clone()
		p.axes = append(p.axes, axis{name: AxisCPC, match: func(r *KeywordRecord, _ *entry) bool {
			v, ok := r.CPCValue()
			return ok && rng.contains(v)
		}})
	}
	return p, nil
}

// MustCompile is Compile for states known to be valid.
func MustCompile(state FilterState) *Predicate {
	p, err := Compile(state)
	if err != nil {
		panic(err)
	}
	return p
}

// Axes lists the active axis names in evaluation order.
func (p *Predicate) Axes() []string {
	names := make([]string, len(p.axes))
	for i, a := range p.axes {
		names[i] = a.name
	}
	return names
}

// Match evaluates the predicate against a record that is not necessarily
// held by a Store.
func (p *Predicate) Match(r *KeywordRecord) bool {
	e := buildEntry(r)
	return p.match(r, &e)
}

func (p *Predicate) match(r *KeywordRecord, e *entry) bool {
	for _, a := range p.axes {
		if !a.match(r, e) {
			return false
		}
	}
	return true
}

func intersects(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}
