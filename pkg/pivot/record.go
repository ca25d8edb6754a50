package pivot

import "math"

// KeywordRecord is one row of the competitive-intelligence dataset.
// Records are immutable once handed to a Store.
type KeywordRecord struct {
	Keyword         string          `json:"keyword"`
	Volume          *int64          `json:"volume,omitempty"`
	CPC             *float64        `json:"cpc,omitempty"`
	Categories      []string        `json:"categories"`
	PrimaryCategory string          `json:"primary_category"`
	Intent          string          `json:"intent"`
	BrandPresences  []BrandPresence `json:"brand_presences"`
}

// BrandPresence is a tracked competitor's footprint on a keyword
type BrandPresence struct {
	Brand          string      `json:"brand"`
	Clicks         int64       `json:"clicks"`
	EstimatedSpend float64     `json:"estimated_spend"`
	DeviceShare    DeviceShare `json:"device_share"`
	TopURL         string      `json:"top_url,omitempty"`
}

// DeviceShare holds the desktop/mobile split as reported upstream.
// The fractions are not renormalized.
type DeviceShare struct {
	Desktop float64 `json:"desktop"`
	Mobile  float64 `json:"mobile"`
}

// MobileShare returns mobile / (desktop + mobile). ok is false when the
// shares sum to zero.
func (bp BrandPresence) MobileShare() (share float64, ok bool) {
	total := bp.DeviceShare.Desktop + bp.DeviceShare.Mobile
	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, false
	}
	return bp.DeviceShare.Mobile / total, true
}

// VolumeValue returns the search volume. Missing or negative volumes are
// reported as absent.
func (r *KeywordRecord) VolumeValue() (int64, bool) {
	if r.Volume == nil || *r.Volume < 0 {
		return 0, false
	}
	return *r.Volume, true
}

// CPCValue returns the cost per click. Missing, negative or non-finite
// values are reported as absent.
func (r *KeywordRecord) CPCValue() (float64, bool) {
	if r.CPC == nil {
		return 0, false
	}
	v := *r.CPC
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ClicksValue returns the presence's clicks. Negative counts are absent.
func (bp BrandPresence) ClicksValue() (int64, bool) {
	if bp.Clicks < 0 {
		return 0, false
	}
	return bp.Clicks, true
}

// SpendValue returns the presence's estimated spend. Negative or
// non-finite amounts are absent.
func (bp BrandPresence) SpendValue() (float64, bool) {
	v := bp.EstimatedSpend
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// TotalSpend sums estimated spend across all brand presences, skipping
// absent amounts.
func (r *KeywordRecord) TotalSpend() float64 {
	var total float64
	for _, bp := range r.BrandPresences {
		if v, ok := bp.SpendValue(); ok {
			total += v
		}
	}
	return total
}

// TotalClicks sums clicks across all brand presences, skipping absent
// counts.
func (r *KeywordRecord) TotalClicks() int64 {
	var total int64
	for _, bp := range r.BrandPresences {
		if v, ok := bp.ClicksValue(); ok {
			total += v
		}
	}
	return total
}

func (r *KeywordRecord) clone() KeywordRecord {
	out := *r
	if r.Volume != nil {
		v := *r.Volume
		out.Volume = &v
	}
	if r.CPC != nil {
		c := *r.CPC
		out.CPC = &c
	}
	if r.Categories != nil {
		out.Categories = append([]string(nil), r.Categories...)
	}
	if r.BrandPresences != nil {
		out.BrandPresences = append([]BrandPresence(nil), r.BrandPresences...)
	}
	return out
}

// Int64 and Float64 build optional fields for literals and tests.
func Int64(v int64) *int64       { return &v }
func Float64(v float64) *float64 { return &v }
