// Package report serialises scan records for export.
package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/seo-optimizer/backend/history"
)

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"url",
	"timestamp",
	"overall",
	"metaTags",
	"content",
	"technical",
	"performance",
	"social",
	"errors",
	"warnings",
}

// ToJSON returns the full record as indented JSON.
func ToJSON(rec history.ScanRecord) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return buf.String(), nil
}

// ToCSV returns a one-row-per-record summary with a header line.
func ToCSV(records []history.ScanRecord) (string, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, records); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteCSV writes the summary table to w.
func WriteCSV(w io.Writer, records []history.ScanRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, rec := range records {
		s := rec.Score
		row := []string{
			rec.URL,
			rec.CreatedAt.UTC().Format(time.RFC3339),
			strconv.Itoa(s.Overall),
			strconv.Itoa(s.MetaTags),
			strconv.Itoa(s.Content),
			strconv.Itoa(s.Technical),
			strconv.Itoa(s.Performance),
			strconv.Itoa(s.Social),
			strconv.Itoa(len(rec.Issues.Errors)),
			strconv.Itoa(len(rec.Issues.Warnings)),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes records to w as an indented JSON array.
func WriteJSON(w io.Writer, records []history.ScanRecord) error {
	if records == nil {
		records = []history.ScanRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}
	return nil
}
