package dataset

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"keyword-pivot/pkg/pivot"
)

// flexNumber accepts JSON numbers, numeric strings such as "$1,250.50" or
// "12K", and null. Anything unparseable becomes absent rather than an error.
type flexNumber struct {
	value float64
	set   bool
}

var absentMarkers = map[string]bool{
	"": true, "-": true, "--": true, "n/a": true, "na": true, "null": true, "none": true, "unknown": true,
}

func (n *flexNumber) UnmarshalJSON(data []byte) error {
	*n = flexNumber{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, ok := parseLooseNumber(s); ok {
			n.value, n.set = v, true
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
		n.value, n.set = v, true
	}
	return nil
}

func parseLooseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if absentMarkers[strings.ToLower(s)] {
		return 0, false
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", "\u00a0", "").Replace(s)

	multiplier := 1.0
	if len(s) > 1 {
		switch s[len(s)-1] {
		case 'k', 'K':
			multiplier = 1e3
			s = s[:len(s)-1]
		case 'm', 'M':
			multiplier = 1e6
			s = s[:len(s)-1]
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v * multiplier, true
}

func (n flexNumber) int64Ptr() *int64 {
	if !n.set {
		return nil
	}
	v := int64(math.Round(n.value))
	return &v
}

func (n flexNumber) float64Ptr() *float64 {
	if !n.set {
		return nil
	}
	v := n.value
	return &v
}

func (n flexNumber) int64OrZero() int64 {
	if !n.set {
		return 0
	}
	return int64(math.Round(n.value))
}

func (n flexNumber) float64OrZero() float64 {
	if !n.set {
		return 0
	}
	return n.value
}

// flexString accepts a JSON string, or a number or boolean as its literal
// text. Objects and arrays are absent, so the record is kept and the store
// reports the empty field.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	*s = ""
	if text, ok := scalarText(data); ok {
		*s = flexString(strings.TrimSpace(text))
	}
	return nil
}

func scalarText(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false
		}
		return s, true
	case '{', '[':
		return "", false
	}
	return string(data), true
}

// flexStrings accepts either a JSON array or one string with "|", ";" or
// "," separators. Non-scalar array items are skipped; any other shape is
// absent.
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(data []byte) error {
	*f = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
		items := make([]string, 0, len(raw))
		for _, item := range raw {
			if text, ok := scalarText(item); ok {
				items = append(items, text)
			}
		}
		*f = cleanList(items)
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*f = cleanList(strings.FieldsFunc(s, func(r rune) bool {
			return r == '|' || r == ';' || r == ','
		}))
	}
	return nil
}

func cleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}

type wireDeviceShare struct {
	Desktop flexNumber `json:"desktop"`
	Mobile  flexNumber `json:"mobile"`
}

type wirePresence struct {
	Brand          flexString      `json:"brand"`
	Clicks         flexNumber      `json:"clicks"`
	EstimatedSpend flexNumber      `json:"estimated_spend"`
	DeviceShare    wireDeviceShare `json:"device_share"`
	TopURL         flexString      `json:"top_url"`
}

// wirePresences accepts an array of presence objects or a single object.
// Entries that are not objects are skipped.
type wirePresences []wirePresence

func (w *wirePresences) UnmarshalJSON(data []byte) error {
	*w = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	var raw []json.RawMessage
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil
		}
	case '{':
		raw = []json.RawMessage{data}
	default:
		return nil
	}
	for _, item := range raw {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			continue
		}
		var p wirePresence
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		*w = append(*w, p)
	}
	return nil
}

func (d *wireDeviceShare) UnmarshalJSON(data []byte) error {
	*d = wireDeviceShare{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	type plain wireDeviceShare
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*d = wireDeviceShare(p)
	return nil
}

type wireRecord struct {
	Keyword         flexString    `json:"keyword"`
	Volume          flexNumber    `json:"volume"`
	CPC             flexNumber    `json:"cpc"`
	Categories      flexStrings   `json:"categories"`
	PrimaryCategory flexString    `json:"primary_category"`
	Intent          flexString    `json:"intent"`
	BrandPresences  wirePresences `json:"brand_presences"`
}

func (w *wireRecord) toRecord() pivot.KeywordRecord {
	rec := pivot.KeywordRecord{
		Keyword:         string(w.Keyword),
		Volume:          w.Volume.int64Ptr(),
		CPC:             w.CPC.float64Ptr(),
		Categories:      []string(w.Categories),
		PrimaryCategory: string(w.PrimaryCategory),
		Intent:          string(w.Intent),
	}
	if len(w.BrandPresences) > 0 {
		rec.BrandPresences = make([]pivot.BrandPresence, 0, len(w.BrandPresences))
		for _, p := range w.BrandPresences {
			rec.BrandPresences = append(rec.BrandPresences, pivot.BrandPresence{
				Brand:          string(p.Brand),
				Clicks:         p.Clicks.int64OrZero(),
				EstimatedSpend: p.EstimatedSpend.float64OrZero(),
				DeviceShare: pivot.DeviceShare{
					Desktop: p.DeviceShare.Desktop.float64OrZero(),
					Mobile:  p.DeviceShare.Mobile.float64OrZero(),
				},
				TopURL: string(p.TopURL),
			})
		}
	}
	return rec
}

// envelope is the object form of the payload.
type envelope struct {
	Vocabulary pivot.Vocabulary  `json:"vocabulary"`
	Keywords   []json.RawMessage `json:"keywords"`
	Records    []json.RawMessage `json:"records"`
}
