package pivot

import (
	"encoding/json"
	"strings"
)

// Uncategorized labels records that carry no primary category.
const Uncategorized = "Uncategorized"

// OptionalFloat is a numeric result that may have no data behind it. An
// undefined value is distinct from zero and serializes as null.
type OptionalFloat struct {
	Value   float64
	Defined bool
}

// Defined wraps a known value.
func Defined(v float64) OptionalFloat { return OptionalFloat{Value: v, Defined: true} }

// Undefined is the "no data" result.
func Undefined() OptionalFloat { return OptionalFloat{} }

// Get returns the value and whether it is defined.
func (o OptionalFloat) Get() (float64, bool) { return o.Value, o.Defined }

func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Defined {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Undefined()
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Defined(v)
	return nil
}

// weightedMean accumulates Σ(volume×cpc) / Σ(volume).
type weightedMean struct {
	weighted float64
	weight   float64
}

func (w *weightedMean) add(r *KeywordRecord) {
	vol, okVol := r.VolumeValue()
	cpc, okCPC := r.CPCValue()
	if !okVol || !okCPC {
		return
	}
	w.weighted += float64(vol) * cpc
	w.weight += float64(vol)
}

func (w weightedMean) result() OptionalFloat {
	if w.weight == 0 {
		return Undefined()
	}
	return Defined(w.weighted / w.weight)
}

// BrandRollup aggregates one brand across the visible subset.
type BrandRollup struct {
	Brand               string        `json:"brand"`
	InRoster            bool          `json:"in_roster"`
	Selected            bool          `json:"selected"`
	RecordCount         int           `json:"record_count"`
	TotalClicks         int64         `json:"total_clicks"`
	TotalEstimatedSpend float64       `json:"total_estimated_spend"`
	TotalVolume         int64         `json:"total_volume"`
	VolumeWeightedCPC   OptionalFloat `json:"volume_weighted_avg_cpc"`
}

// CategoryRollup aggregates one primary category across the visible subset.
type CategoryRollup struct {
	Category            string        `json:"category"`
	InVocabulary        bool          `json:"in_vocabulary"`
	RecordCount         int           `json:"record_count"`
	TotalClicks         int64         `json:"total_clicks"`
	TotalEstimatedSpend float64       `json:"total_estimated_spend"`
	TotalVolume         int64         `json:"total_volume"`
	VolumeWeightedCPC   OptionalFloat `json:"volume_weighted_avg_cpc"`
}

// Summary holds the headline statistics of the visible subset.
type Summary struct {
	VisibleCount        int           `json:"visible_count"`
	TotalRecords        int           `json:"total_records"`
	BrandedCount        int           `json:"branded_count"`
	TotalClicks         int64         `json:"total_clicks"`
	TotalEstimatedSpend float64       `json:"total_estimated_spend"`
	TotalVolume         int64         `json:"total_volume"`
	VolumeWeightedCPC   OptionalFloat `json:"volume_weighted_avg_cpc"`
	AverageCPC          OptionalFloat `json:"average_cpc"`
}

// Rollups is the output of the aggregation engine.
type Rollups struct {
	Brands     []BrandRollup    `json:"brand_rollups"`
	Categories []CategoryRollup `json:"category_rollups"`
	Summary    Summary          `json:"summary"`
}

// Brand looks up a brand rollup case-insensitively.
func (r Rollups) Brand(name string) (BrandRollup, bool) {
	key := fold(name)
	for _, b := range r.Brands {
		if fold(b.Brand) == key {
			return b, true
		}
	}
	return BrandRollup{}, false
}

// Category looks up a category rollup case-insensitively.
func (r Rollups) Category(name string) (CategoryRollup, bool) {
	key := fold(name)
	for _, c := range r.Categories {
		if fold(c.Category) == key {
			return c, true
		}
	}
	return CategoryRollup{}, false
}

type brandAcc struct {
	rollup   BrandRollup
	cpc      weightedMean
	lastSeen int
}

type categoryAcc struct {
	rollup CategoryRollup
	cpc    weightedMean
}

// Aggregate folds the visible subset once, in subset order. Every roster
// brand gets a rollup even when it has no visible records; selectedBrands
// only marks rollups for display.
func Aggregate(visible Subset, selectedBrands []string) Rollups {
	st := visible.store
	if st == nil {
		return Rollups{Brands: []BrandRollup{}, Categories: []CategoryRollup{}}
	}
	vocab := st.vocab
	selected := foldSet(selectedBrands)

	brands := make([]*brandAcc, 0, len(vocab.Brands))
	brandSlot := make(map[string]int, len(st.brandSlot))
	for _, name := range vocab.Brands {
		key := fold(name)
		if key == "" {
			continue
		}
		if _, dup := brandSlot[key]; dup {
			continue
		}
		brandSlot[key] = len(brands)
		brands = append(brands, newBrandAcc(strings.TrimSpace(name), true, selected, key))
	}

	categories := make([]*categoryAcc, 0, len(vocab.Categories)+1)
	categorySlot := make(map[string]int, len(vocab.Categories))
	for _, name := range vocab.Categories {
		key := fold(name)
		if key == "" {
			continue
		}
		if _, dup := categorySlot[key]; dup {
			continue
		}
		categorySlot[key] = len(categories)
		categories = append(categories, &categoryAcc{rollup: CategoryRollup{Category: strings.TrimSpace(name), InVocabulary: true}})
	}

	var (
		summary     Summary
		overallCPC  weightedMean
		cpcSum      float64
		cpcObserved int
	)
	summary.VisibleCount = visible.Len()
	summary.TotalRecords = st.Len()

	for pos, j := range visible.idx {
		r := &st.records[j]
		e := &st.index[j]

		vol, hasVol := r.VolumeValue()
		if hasVol {
			summary.TotalVolume += vol
		}
		if cpc, ok := r.CPCValue(); ok {
			cpcSum += cpc
			cpcObserved++
		}
		overallCPC.add(r)

		recClicks := r.TotalClicks()
		recSpend := r.TotalSpend()
		summary.TotalClicks += recClicks
		summary.TotalEstimatedSpend += recSpend
		if len(r.BrandPresences) > 0 {
			summary.BrandedCount++
		}

		for k, bp := range r.BrandPresences {
			key := e.brands[k]
			if key == "" {
				continue
			}
			slot, ok := brandSlot[key]
			if !ok {
				slot = len(brands)
				brandSlot[key] = slot
				brands = append(brands, newBrandAcc(strings.TrimSpace(bp.Brand), false, selected, key))
			}
			acc := brands[slot]
			if clicks, ok := bp.ClicksValue(); ok {
				acc.rollup.TotalClicks += clicks
			}
			if spend, ok := bp.SpendValue(); ok {
				acc.rollup.TotalEstimatedSpend += spend
			}
			if acc.lastSeen != pos {
				acc.lastSeen = pos
				acc.rollup.RecordCount++
				if hasVol {
					acc.rollup.TotalVolume += vol
				}
				acc.cpc.add(r)
			}
		}

		label := strings.TrimSpace(r.PrimaryCategory)
		key := fold(label)
		if key == "" {
			label, key = Uncategorized, fold(Uncategorized)
		}
		slot, ok := categorySlot[key]
		if !ok {
			slot = len(categories)
			categorySlot[key] = slot
			categories = append(categories, &categoryAcc{rollup: CategoryRollup{Category: label}})
		}
		cat := categories[slot]
		cat.rollup.RecordCount++
		cat.rollup.TotalClicks += recClicks
		cat.rollup.TotalEstimatedSpend += recSpend
		if hasVol {
			cat.rollup.TotalVolume += vol
		}
		cat.cpc.add(r)
	}

	summary.VolumeWeightedCPC = overallCPC.result()
	if cpcObserved > 0 {
		summary.AverageCPC = Defined(cpcSum / float64(cpcObserved))
	}

	out := Rollups{
		Brands:     make([]BrandRollup, len(brands)),
		Categories: make([]CategoryRollup, len(categories)),
		Summary:    summary,
	}
	for i, acc := range brands {
		acc.rollup.VolumeWeightedCPC = acc.cpc.result()
		out.Brands[i] = acc.rollup
	}
	for i, acc := range categories {
		acc.rollup.VolumeWeightedCPC = acc.cpc.result()
		out.Categories[i] = acc.rollup
	}
	return out
}

func newBrandAcc(name string, inRoster bool, selected map[string]struct{}, key string) *brandAcc {
	_, isSelected := selected[key]
	return &brandAcc{
		rollup:   BrandRollup{Brand: name, InRoster: inRoster, Selected: isSelected},
		lastSeen: -1,
	}
}
