package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/phishrag/internal/analyzer"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/internal/vector"
)

func sampleAnalysis() *analyzer.Analysis {
	return &analyzer.Analysis{
		Risk:       analyzer.RiskMedium,
		Score:      4,
		Label:      vector.LabelSuspicious,
		Indicators: []string{"Contains external link(s)"},
		Similar: []*models.SimilarExample{
			{ID: "E001", Label: vector.LabelPhishing, Indicator: "Suspicious link", Score: 0.42, Rank: 1},
		},
		Actions: []string{"Do not click links"},
		Verdict: analyzer.RiskMedium.Verdict(),
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": OutputText, "TEXT": OutputText, " json ": OutputJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("expected error for yaml")
	}
}

func TestWriteAnalysis(t *testing.T) {
	a := sampleAnalysis()
	var buf bytes.Buffer
	if err := WriteAnalysis(&buf, a, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Risk level: MEDIUM (score=4)", "E001 [Phishing] (sim=0.42): Suspicious link", "VERDICT:"} {
		if !strings.Contains(out, want) {
			t.Errorf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteAnalysis(&buf, a, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}
	if decoded["risk"] != "MEDIUM" || decoded["label"] != "Suspicious" {
		t.Errorf("decoded: %v", decoded)
	}
	if s, _ := decoded["summary"].(string); !strings.HasPrefix(s, "Phishing Analysis") {
		t.Errorf("summary: %q", s)
	}
}

func TestWriteSimilarResults(t *testing.T) {
	resp := &models.SimilarityResponse{
		Query:     "gift card",
		QueryTime: 3,
		Total:     1,
		Results: []*models.SimilarExample{{
			ID: "E003", Label: vector.LabelSuspicious, Indicator: "Unsolicited reward",
			Snippet: "Congratulations! You won a gift card", Score: 0.8, KeywordScore: 1, SemanticScore: 0.7, Rank: 1,
		}},
	}
	var buf bytes.Buffer
	if err := WriteSimilarResults(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Found 1 similar examples in 3ms", "ID: E003 [Suspicious]", "Indicator: Unsolicited reward", "You won a gift card"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteSimilarResults(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.SimilarityResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Query != "gift card" || len(decoded.Results) != 1 || decoded.Results[0].ID != "E003" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestWriteHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHistory(&buf, nil, 0, OutputText); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No history.") {
		t.Errorf("empty: %q", buf.String())
	}

	records := []*models.HistoryRecord{{
		ID: "h1", SessionID: "s", CreatedAt: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
		Email: "Verify   your\naccount now", Risk: "LOW", Score: 1,
	}}
	buf.Reset()
	if err := WriteHistory(&buf, records, 3, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"Showing 1 of 3 records", "h1", "LOW (score=1)", "session=s", "Verify your account now"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := WriteHistory(&buf, records, 3, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Records []*models.HistoryRecord `json:"records"`
		Total   int                     `json:"total"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Total != 3 || decoded.Records[0].ID != "h1" {
		t.Errorf("decoded: %+v", decoded)
	}
}

func TestTruncateWords(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"one two three", 5, "one two three"},
		{"one two three", 2, "one two..."},
		{"  spaced\tout  ", 5, "spaced out"},
		{"", 3, ""},
	}
	for _, tt := range tests {
		if got := TruncateWords(tt.in, tt.max); got != tt.want {
			t.Errorf("TruncateWords(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
