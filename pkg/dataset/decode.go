package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"keyword-pivot/pkg/pivot"
)

// maxRejectSamples caps how many decode errors a report keeps verbatim.
const maxRejectSamples = 20

// Payload is a decoded dataset before it becomes a Store.
type Payload struct {
	Records    []pivot.KeywordRecord
	Vocabulary pivot.Vocabulary
	Rejected   int
	Errors     []string
}

// Decode parses an export payload: either a bare array of records or an
// object with "keywords" (or "records") and an optional "vocabulary".
// Fields of the wrong type decode as absent and the record is kept for the
// store to report. Entries that are not objects at all are skipped and
// counted; only a payload that is not JSON at all fails.
func Decode(data []byte) (*Payload, error) {
	text, err := normalizeText(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode payload text: %w", err)
	}
	text = bytes.TrimSpace(text)
	if len(text) == 0 {
		return nil, fmt.Errorf("empty dataset payload")
	}

	var raw []json.RawMessage
	var vocab pivot.Vocabulary
	switch text[0] {
	case '[':
		if err := json.Unmarshal(text, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode record array: %w (payload: %s)", err, preview(text))
		}
	case '{':
		var env envelope
		if err := json.Unmarshal(text, &env); err != nil {
			return nil, fmt.Errorf("failed to decode payload object: %w (payload: %s)", err, preview(text))
		}
		raw = env.Keywords
		if len(raw) == 0 {
			raw = env.Records
		}
		vocab = env.Vocabulary
	default:
		return nil, fmt.Errorf("payload is not JSON (starts with %q)", text[0])
	}

	payload := &Payload{
		Records:    make([]pivot.KeywordRecord, 0, len(raw)),
		Vocabulary: vocab,
	}
	for i, msg := range raw {
		var w wireRecord
		if err := json.Unmarshal(msg, &w); err != nil {
			payload.Rejected++
			if len(payload.Errors) < maxRejectSamples {
				payload.Errors = append(payload.Errors, fmt.Sprintf("record %d: %v", i, err))
			}
			continue
		}
		payload.Records = append(payload.Records, w.toRecord())
	}
	return payload, nil
}

// normalizeText strips a UTF-8 BOM and converts BOM-marked UTF-16 to UTF-8.
func normalizeText(data []byte) ([]byte, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	out, _, err := transform.Bytes(decoder, data)
	return out, err
}

func preview(b []byte) string {
	if len(b) > 200 {
		b = b[:200]
	}
	return string(b)
}
