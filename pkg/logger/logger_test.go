package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestLoggerWritesStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "debug", Format: "json"})

	log.WithField("component", "pivot_engine").WithFields(map[string]interface{}{
		"visible": 42,
	}).Info("Recomputed rollups")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected JSON log line, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "pivot_engine" {
		t.Errorf("Expected component field, got %v", entry["component"])
	}
	if entry["visible"] != float64(42) {
		t.Errorf("Expected visible=42, got %v", entry["visible"])
	}
	if entry["message"] != "Recomputed rollups" {
		t.Errorf("Unexpected message: %v", entry["message"])
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, Config{Level: "error", Format: "json"})

	log.Debug("hidden")
	log.Warn("hidden too")
	if buf.Len() != 0 {
		t.Errorf("Expected nothing below error level, got %q", buf.String())
	}
}

func TestMaskURL(t *testing.T) {
	tests := []struct {
		input    string
		contains string
		hides    string
	}{
		{"https://data.example.com/export.json?token=secret", "https://data.example.com/...#", "secret"},
		{"https://data.example.com", "https://data.example.com", ""},
		{"", "", ""},
	}

	for _, test := range tests {
		got := MaskURL(test.input)
		if !strings.Contains(got, test.contains) {
			t.Errorf("MaskURL(%q) = %q, expected to contain %q", test.input, got, test.contains)
		}
		if test.hides != "" && strings.Contains(got, test.hides) {
			t.Errorf("MaskURL(%q) = %q leaks %q", test.input, got, test.hides)
		}
	}
}
