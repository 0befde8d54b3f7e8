// Package cli formats analysis, query and history output for the command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/phishrag/internal/analyzer"
	"github.com/hyperjump/phishrag/internal/models"
	"github.com/hyperjump/phishrag/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json" (case-insensitive); empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text":
		return OutputText, nil
	case "json":
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteAnalysis writes an analysis report. JSON output includes the summary text.
func WriteAnalysis(w io.Writer, analysis *analyzer.Analysis, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, struct {
			*analyzer.Analysis
			Summary string `json:"summary"`
		}{analysis, analysis.Summary()})
	}
	_, err := fmt.Fprintln(w, analysis.Summary())
	return err
}

// WriteSimilarResults writes query results to w in the given format.
func WriteSimilarResults(w io.Writer, response *models.SimilarityResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d similar examples in %dms\n\n", response.Total, response.QueryTime)
	for _, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f (Keyword: %.4f, Semantic: %.4f)\n",
			result.Rank, result.Score, result.KeywordScore, result.SemanticScore)
		fmt.Fprintf(w, "ID: %s [%s]\n", result.ID, result.Label)
		if result.Indicator != "" {
			fmt.Fprintf(w, "Indicator: %s\n", result.Indicator)
		}
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Snippet, 200))
	}
	return nil
}

// WriteHistory writes history records, oldest first. total is the number of
// records available, which may exceed len(records) when paging.
func WriteHistory(w io.Writer, records []*models.HistoryRecord, total int, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, map[string]interface{}{"records": records, "total": total})
	}
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No history.")
		return err
	}
	fmt.Fprintf(w, "Showing %d of %d records\n\n", len(records), total)
	for _, rec := range records {
		fmt.Fprintf(w, "%s  %s", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"), rec.ID)
		if rec.Risk != "" {
			fmt.Fprintf(w, "  %s (score=%d)", rec.Risk, rec.Score)
		}
		if rec.SessionID != "" {
			fmt.Fprintf(w, "  session=%s", rec.SessionID)
		}
		fmt.Fprintf(w, "\n  %s\n", TruncateWords(rec.Email, 20))
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// TruncateWords returns up to maxWords from the space-separated string.
func TruncateWords(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ") + "..."
}
