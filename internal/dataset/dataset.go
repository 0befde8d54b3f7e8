// Package dataset loads the labelled reference emails the similarity index is built from.
package dataset

import (
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/phishrag/internal/vector"
	"github.com/xuri/excelize/v2"
)

// ErrNoExamples is returned when a dataset file contains no usable rows.
var ErrNoExamples = errors.New("dataset has no examples")

// Columns is the header written by WriteCSV, WriteXLSX and EnsureSample.
var Columns = []string{"id", "subject", "body", "indicator", "label"}

// Example is one reference email.
type Example struct {
	ID        string       `json:"id"`
	Subject   string       `json:"subject"`
	Body      string       `json:"body"`
	Indicator string       `json:"indicator"`
	Label     vector.Label `json:"label"`
}

// Text returns the content that is embedded and keyword-indexed.
func (e *Example) Text() string {
	return strings.TrimSpace(e.Subject + " " + e.Body)
}

// ExampleID returns a stable id for a row that has none.
func ExampleID(subject, body string) string {
	sum := sha256.Sum256([]byte(subject + "\n" + body))
	return "ex:" + hex.EncodeToString(sum[:6])
}

// Load reads examples from a .csv or .xlsx file.
func Load(path string) ([]*Example, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	case ".csv", "":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open dataset: %w", err)
		}
		defer f.Close()
		return LoadCSV(f)
	default:
		return nil, fmt.Errorf("unsupported dataset format: %s (supported: .csv, .xlsx)", filepath.Ext(path))
	}
}

// LoadCSV parses a header-driven CSV stream.
func LoadCSV(r io.Reader) ([]*Example, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse CSV: %w", err)
	}
	return fromRows(records)
}

// LoadXLSX reads the first sheet of an Excel workbook using the same header as the CSV format.
func LoadXLSX(path string) ([]*Example, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open Excel: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoExamples
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("get rows for sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]*Example, error) {
	if len(rows) < 2 {
		return nil, ErrNoExamples
	}
	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	_, hasSubject := col["subject"]
	_, hasBody := col["body"]
	if !hasSubject && !hasBody {
		return nil, fmt.Errorf("dataset header must include subject or body, got %v", rows[0])
	}
	get := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []*Example
	position := make(map[string]int)
	for n, row := range rows[1:] {
		ex := &Example{
			ID:        get(row, "id"),
			Subject:   get(row, "subject"),
			Body:      get(row, "body"),
			Indicator: get(row, "indicator"),
			Label:     vector.LabelPhishing,
		}
		if ex.Subject == "" && ex.Body == "" {
			continue
		}
		if raw := get(row, "label"); raw != "" {
			label, err := vector.ParseLabel(raw)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", n+2, err)
			}
			ex.Label = label
		}
		if ex.ID == "" {
			ex.ID = ExampleID(ex.Subject, ex.Body)
		}
		// Later rows replace earlier ones with the same id.
		if i, ok := position[ex.ID]; ok {
			out[i] = ex
			continue
		}
		position[ex.ID] = len(out)
		out = append(out, ex)
	}
	if len(out) == 0 {
		return nil, ErrNoExamples
	}
	return out, nil
}

// WriteCSV writes examples with the standard header.
func WriteCSV(w io.Writer, examples []*Example) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, ex := range examples {
		if err := cw.Write([]string{ex.ID, ex.Subject, ex.Body, ex.Indicator, string(ex.Label)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SampleExamples returns the built-in seed dataset.
func SampleExamples() []*Example {
	return []*Example{
		{ID: "E001", Subject: "Your account has been suspended",
			Body:      "Click this link to restore your account: http://malicious.example/login",
			Indicator: "Suspicious link", Label: vector.LabelPhishing},
		{ID: "E002", Subject: "Urgent: Verify your payment info",
			Body:      "Provide your bank details now or we'll close your account",
			Indicator: "Sensitive info request", Label: vector.LabelPhishing},
		{ID: "E003", Subject: "Congratulations! You won a gift card",
			Body:      "Claim your prize by clicking here",
			Indicator: "Unsolicited reward", Label: vector.LabelSuspicious},
		{ID: "S001", Subject: "Team lunch on Friday",
			Body:      "Hi all, we are meeting at noon in the usual place. Let me know if you can make it.",
			Indicator: "Internal, no request", Label: vector.LabelSafe},
		{ID: "S002", Subject: "Minutes from the planning meeting",
			Body:      "Attached are the notes we discussed this morning. No action needed before next week.",
			Indicator: "Known sender, expected content", Label: vector.LabelSafe},
	}
}

// WriteXLSX saves examples to a new workbook at path, header first, in the
// layout LoadXLSX reads.
func WriteXLSX(path string, examples []*Example) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, ex := range examples {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{ex.ID, ex.Subject, ex.Body, ex.Indicator, string(ex.Label)}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	return f.SaveAs(path)
}

// EnsureSample writes the seed dataset when path does not exist, as a
// workbook for .xlsx paths and as CSV otherwise. It reports whether a file
// was written.
func EnsureSample(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".xlsx" && ext != ".csv" && ext != "" {
		return false, fmt.Errorf("unsupported dataset format: %s (supported: .csv, .xlsx)", filepath.Ext(path))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return false, fmt.Errorf("create dataset dir: %w", err)
	}
	if ext == ".xlsx" {
		if err := WriteXLSX(path, SampleExamples()); err != nil {
			return false, fmt.Errorf("write dataset: %w", err)
		}
		return true, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return false, fmt.Errorf("create dataset: %w", err)
	}
	if err := WriteCSV(f, SampleExamples()); err != nil {
		_ = f.Close()
		return false, fmt.Errorf("write dataset: %w", err)
	}
	return true, f.Close()
}
