package report_test

import (
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/seo-optimizer/backend/analyzer"
	"github.com/seo-optimizer/backend/history"
	"github.com/seo-optimizer/backend/report"
)

func sampleRecord(url string) history.ScanRecord {
	title := "Example"
	rec := history.NewRecord(url, analyzer.ScanResult{
		StatusCode: 200,
		Signals: analyzer.Signals{
			MetaTags: analyzer.MetaTagSet{Title: &title},
			Content:  analyzer.ContentStats{WordCount: 12, ContentLength: analyzer.LengthShort},
		},
		Score: analyzer.SEOScore{Overall: 61, MetaTags: 20, Content: 15, Technical: 10, Performance: 12, Social: 4},
		Issues: analyzer.Issues{
			Errors:      []string{"No H1 heading found"},
			Warnings:    []string{"Missing meta description", "Thin content"},
			Suggestions: []string{},
		},
	})
	rec.CreatedAt = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)
	return rec
}

func TestToJSON(t *testing.T) {
	rec := sampleRecord("https://example.com/?a=1&b=<2>")

	out, err := report.ToJSON(rec)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	if !strings.Contains(out, "\n  \"id\"") {
		t.Errorf("expected pretty-printed output, got %s", out)
	}
	if !strings.Contains(out, "&b=<2>") {
		t.Errorf("expected unescaped URL in output")
	}

	var got history.ScanRecord
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("unexpected JSON decode error: %v", err)
	}
	if got.ID != rec.ID || got.URL != rec.URL {
		t.Errorf("identity lost: %+v", got)
	}
	if got.MetaTags.Title == nil || *got.MetaTags.Title != "Example" {
		t.Errorf("signals lost: %+v", got.MetaTags)
	}
	if got.Score != rec.Score {
		t.Errorf("score = %+v, want %+v", got.Score, rec.Score)
	}
	if len(got.Issues.Warnings) != 2 {
		t.Errorf("issues lost: %+v", got.Issues)
	}
}

func TestToCSV(t *testing.T) {
	tricky := `https://example.com/search?q=a,b&title="quoted"`
	records := []history.ScanRecord{sampleRecord(tricky), sampleRecord("https://example.org")}

	out, err := report.ToCSV(records)
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(report.CSVHeader, ",") {
		t.Errorf("header = %v", rows[0])
	}

	row := rows[1]
	if row[0] != tricky {
		t.Errorf("url did not round-trip: %q", row[0])
	}
	want := []string{tricky, "2024-05-06T07:08:09Z", "61", "20", "15", "10", "12", "4", "1", "2"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("column %s = %q, want %q", report.CSVHeader[i], row[i], want[i])
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf strings.Builder
	if err := report.WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("empty export = %q", buf.String())
	}

	buf.Reset()
	recs := []history.ScanRecord{sampleRecord("https://a.example"), sampleRecord("https://b.example")}
	if err := report.WriteJSON(&buf, recs); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var got []history.ScanRecord
	if err := json.Unmarshal([]byte(buf.String()), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 || got[1].URL != "https://b.example" {
		t.Errorf("records = %+v", got)
	}
}
