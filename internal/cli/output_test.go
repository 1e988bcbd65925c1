package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hyperjump/diachron/internal/drift"
	"github.com/hyperjump/diachron/internal/models"
	"github.com/hyperjump/diachron/internal/vector"
)

func sampleSynonyms() *models.SynonymsResponse {
	return &models.SynonymsResponse{
		Word:      "mouse",
		QueryTime: 3,
		Results: []models.PeriodNeighbors{
			{Period: "1970-1979", Word: "mouse", Neighbors: vector.Neighbors{{Word: "cat", Score: 0.98}, {Word: "trap", Score: 0.9}}},
			{Period: "1990-1999", Word: "mouse", Neighbors: vector.Neighbors{{Word: "keyboard", Score: 0.99}}},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "text": OutputText, "JSON": OutputJSON} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestWriteSynonyms_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSynonyms(&buf, sampleSynonyms(), OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SynonymsResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.Word != "mouse" || len(decoded.Results) != 2 {
		t.Errorf("unexpected decoded response: %+v", decoded)
	}
}

func TestWriteSynonyms_text(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSynonyms(&buf, sampleSynonyms(), OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{`"mouse"`, "[1970-1979]", "1. cat", "0.9800", "[1990-1999]", "keyboard"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "1970-1979") > strings.Index(out, "1990-1999") {
		t.Error("periods out of order")
	}
}

func TestWriteSimilarities_text(t *testing.T) {
	resp := &models.SimilarityResponse{
		WordA: "mouse", WordB: "cat",
		Results: []models.PeriodSimilarity{{Period: "1970-1979", Score: 1}, {Period: "1990-1999", Score: -0.5}},
	}
	var buf bytes.Buffer
	if err := WriteSimilarities(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "1.0000") || !strings.Contains(out, "-0.5000") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("█", 30)) {
		t.Errorf("expected full bar for score 1:\n%s", out)
	}
}

func TestWriteFrame_text(t *testing.T) {
	frame := &drift.Frame{
		Baseword:       "mouse",
		ReferenceID:    "1990-1999",
		Context:        []drift.Point{{Label: "cat", X: 1, Y: 2}},
		Trajectory:     []drift.Point{{Label: "mouse-1990-1999", X: -1, Y: 0}},
		SkippedPeriods: []string{"1980-1989"},
	}
	var buf bytes.Buffer
	if err := WriteFrame(&buf, frame, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"mouse-1990-1999", "cat", "Not in vocabulary: 1980-1989"} {
		if !strings.Contains(out, want) {
			t.Errorf("frame output missing %q:\n%s", want, out)
		}
	}
}

func TestWritePeriods(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePeriods(&buf, nil, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No period models") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	buf.Reset()
	periods := []models.PeriodInfo{{Period: "1970-1979", Path: "/m/1970-1979/1970-1979.mod", Cached: true, Words: 5, Dimension: 3}}
	if err := WritePeriods(&buf, periods, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "cached: 5 words, dim 3") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestWriteStatus_text(t *testing.T) {
	st := &models.Status{ModelsDir: "/m", Periods: []string{"a", "b"}, ModelFiles: 2, DiskUsageBytes: 2048, StoredFrames: 1}
	var buf bytes.Buffer
	if err := WriteStatus(&buf, st, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2.0 KiB") || !strings.Contains(out, "a, b") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.n); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s      string
		maxLen int
		want   string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello world", 5, "hello..."},
		{"Gebäude", 4, "Gebä..."},
		{"x", 0, "x"},
	}
	for _, tt := range tests {
		if got := Truncate(tt.s, tt.maxLen); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.s, tt.maxLen, got, tt.want)
		}
	}
}
