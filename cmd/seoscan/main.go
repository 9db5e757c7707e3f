// Command seoscan analyzes one or more pages from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/analyzer"
	"github.com/seo-optimizer/backend/history"
	"github.com/seo-optimizer/backend/logging"
	"github.com/seo-optimizer/backend/report"
)

type options struct {
	jsonOut   string
	csvOut    string
	timeout   time.Duration
	userAgent string
	sameWWW   bool
	verbose   bool
	urls      []string
}

func main() {
	opts := parseFlags()
	if len(opts.urls) == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "[-] Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() options {
	var opts options
	flag.StringVar(&opts.jsonOut, "json", "", "Write full scan records to this JSON file")
	flag.StringVar(&opts.csvOut, "csv", "", "Write a score summary to this CSV file")
	flag.DurationVar(&opts.timeout, "timeout", 15*time.Second, "Per-page fetch timeout")
	flag.StringVar(&opts.userAgent, "ua", "SEOAnalyzer/1.0", "User-Agent header")
	flag.BoolVar(&opts.sameWWW, "www", false, "Treat www.host and host as the same site")
	flag.BoolVar(&opts.verbose, "v", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: seoscan [flags] url...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	opts.urls = flag.Args()
	return opts
}

func run(opts options, out io.Writer) error {
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	log := logging.New(level, true)

	fetcher := analyzer.NewHTTPFetcher(analyzer.FetcherConfig{Timeout: opts.timeout, UserAgent: opts.userAgent})
	return scanAll(context.Background(), opts, fetcher, log, out)
}

func scanAll(ctx context.Context, opts options, fetcher analyzer.Fetcher, log zerolog.Logger, out io.Writer) error {
	a := analyzer.New(analyzer.Config{
		Extract: analyzer.ExtractOptions{TreatWWWAsSameHost: opts.sameWWW},
	}, fetcher, nil, log)
	defer a.Shutdown()

	var records []history.ScanRecord
	failed := 0
	for _, u := range opts.urls {
		result, err := a.Scan(ctx, u)
		if err != nil {
			failed++
			color.New(color.FgRed).Fprintf(out, "[-] %s: %v\n", u, err)
			continue
		}
		rec := history.NewRecord(u, *result)
		records = append(records, rec)
		printRecord(out, rec)
	}

	if opts.jsonOut != "" {
		if err := writeFile(opts.jsonOut, func(w io.Writer) error { return report.WriteJSON(w, records) }); err != nil {
			return err
		}
	}
	if opts.csvOut != "" {
		if err := writeFile(opts.csvOut, func(w io.Writer) error { return report.WriteCSV(w, records) }); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scans failed", failed, len(opts.urls))
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func scoreColor(score, max int) *color.Color {
	switch pct := score * 100 / max; {
	case pct >= 80:
		return color.New(color.FgGreen)
	case pct >= 50:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func printRecord(w io.Writer, rec history.ScanRecord) {
	cyan := color.New(color.FgCyan)
	bold := color.New(color.Bold)

	_, _ = cyan.Fprintln(w, strings.Repeat("═", 48))
	_, _ = bold.Fprintf(w, "%s", rec.URL)
	fmt.Fprintf(w, "  (HTTP %d, %.0f ms)\n", rec.StatusCode, rec.Performance.ResponseTimeMs)

	s := rec.Score
	_, _ = scoreColor(s.Overall, 100).Fprintf(w, "Overall score: %d/100\n", s.Overall)
	categories := []struct {
		name  string
		score int
		max   int
	}{
		{"Meta tags", s.MetaTags, analyzer.MaxMetaTags},
		{"Content", s.Content, analyzer.MaxContent},
		{"Technical", s.Technical, analyzer.MaxTechnical},
		{"Performance", s.Performance, analyzer.MaxPerformance},
		{"Social", s.Social, analyzer.MaxSocial},
	}
	for _, c := range categories {
		fmt.Fprintf(w, "  %-12s ", c.name)
		_, _ = scoreColor(c.score, c.max).Fprintf(w, "%2d/%d\n", c.score, c.max)
	}

	printIssues(w, color.New(color.FgRed), "[error]", rec.Issues.Errors)
	printIssues(w, color.New(color.FgYellow), "[warn] ", rec.Issues.Warnings)
	printIssues(w, color.New(color.FgCyan), "[hint] ", rec.Issues.Suggestions)
}

func printIssues(w io.Writer, c *color.Color, label string, issues []string) {
	for _, issue := range issues {
		_, _ = c.Fprintf(w, "  %s ", label)
		fmt.Fprintln(w, issue)
	}
}
