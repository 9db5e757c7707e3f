package analyzer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/stats"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls map[string]int
	html  string
}

func (f *countingFetcher) Fetch(_ context.Context, pageURL string) (*PageFetchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[pageURL]++
	if pageURL == "https://down.example.com" {
		return nil, &FetchError{Kind: FetchUnreachable, URL: pageURL}
	}
	return &PageFetchResult{StatusCode: 200, ResponseTimeMs: 80, HTML: f.html}, nil
}

func (f *countingFetcher) count(pageURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[pageURL]
}

func newTestAnalyzer(t *testing.T, fetcher Fetcher) (*Analyzer, *stats.Storage) {
	t.Helper()
	storage, err := stats.NewStorage(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	a := New(Config{}, fetcher, storage, zerolog.Nop())
	t.Cleanup(func() { a.Shutdown() })
	return a, storage
}

func TestAnalyzeCaching(t *testing.T) {
	fetcher := &countingFetcher{html: minimalPage}
	a, storage := newTestAnalyzer(t, fetcher)
	ctx := context.Background()
	url := "https://example.com"

	first, err := a.Analyze(ctx, url)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !a.IsCached(url) {
		t.Error("URL should be cached immediately after analysis")
	}
	second, err := a.Analyze(ctx, url)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if first != second {
		t.Error("second analysis should be served from the cache")
	}
	if fetcher.count(url) != 1 {
		t.Errorf("expected one fetch, got %d", fetcher.count(url))
	}

	current := storage.GetCurrentStats()
	if current.Scans != 1 || current.CacheHits != 1 || current.CacheMisses != 1 {
		t.Errorf("unexpected stats: %+v", current)
	}
	if cs := a.GetCacheStats(); cs.Entries != 1 || cs.CacheHits != 1 {
		t.Errorf("unexpected cache stats: %+v", cs)
	}

	a.ClearCache()
	if a.IsCached(url) {
		t.Error("cache should be empty after ClearCache")
	}
}

func TestCachePurging(t *testing.T) {
	fetcher := &countingFetcher{html: minimalPage}
	a, _ := newTestAnalyzer(t, fetcher)
	ctx := context.Background()

	a.SetCacheTTL(time.Millisecond)
	if _, err := a.Analyze(ctx, "https://example.com"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if a.IsCached("https://example.com") {
		t.Error("URL should not be cached after TTL expiration")
	}
	if _, err := a.Analyze(ctx, "https://example.com"); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if fetcher.count("https://example.com") != 2 {
		t.Errorf("expired entry should be fetched again")
	}

	a.SetCacheTTL(time.Hour)
	for i := 0; i < 3; i++ {
		if _, err := a.Analyze(ctx, fmt.Sprintf("https://example.com/%d", i)); err != nil {
			t.Fatalf("Analyze: %v", err)
		}
	}
	a.SetMaxCacheSize(2)
	if n := a.GetCacheStats().Entries; n != 2 {
		t.Errorf("expected cache trimmed to 2 entries, got %d", n)
	}
}

func TestAnalyzeFetchFailure(t *testing.T) {
	fetcher := &countingFetcher{}
	a, storage := newTestAnalyzer(t, fetcher)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := a.Analyze(ctx, "https://down.example.com")
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Kind != FetchUnreachable {
			t.Fatalf("expected unreachable fetch error, got %v", err)
		}
	}
	if fetcher.count("https://down.example.com") != 2 {
		t.Error("failed scans must not be cached")
	}
	if got := storage.GetCurrentStats().FetchFailures; got != 2 {
		t.Errorf("fetch failures = %d, want 2", got)
	}
}

func TestConcurrentCacheAccess(t *testing.T) {
	fetcher := &countingFetcher{html: minimalPage}
	a, _ := newTestAnalyzer(t, fetcher)
	url := "https://www.example.com"

	concurrency := 100
	var wg sync.WaitGroup
	errChan := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if _, err := a.Analyze(context.Background(), url); err != nil {
					errChan <- fmt.Errorf("analyze error: %v", err)
				}
			} else {
				a.IsCached(url)
			}
		}(i)
	}

	wg.Wait()
	close(errChan)
	for err := range errChan {
		t.Errorf("Concurrent access error: %v", err)
	}
	if n := a.GetCacheStats().Entries; n != 1 {
		t.Errorf("expected a single cache entry, got %d", n)
	}
}
