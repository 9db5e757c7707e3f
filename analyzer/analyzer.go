package analyzer

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/stats"
)

// Cache entry with expiration
type cacheEntry struct {
	result    *ScanResult
	timestamp time.Time
}

// CacheStats provides statistics about the analyzer's cache
type CacheStats struct {
	Entries     int           `json:"entries"`
	CacheHits   int           `json:"cacheHits"`
	CacheMisses int           `json:"cacheMisses"`
	CacheTTL    time.Duration `json:"cacheTTL"`
}

// Config controls caching and extraction policies of an Analyzer.
type Config struct {
	CacheTTL        time.Duration
	MaxCacheSize    int
	CleanupInterval time.Duration
	Extract         ExtractOptions
}

func (c Config) withDefaults() Config {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 30 * time.Minute
	}
	if c.MaxCacheSize <= 0 {
		c.MaxCacheSize = 1000
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 5 * time.Minute
	}
	return c
}

// Analyzer performs SEO scans: fetch, extract, score and classify.
type Analyzer struct {
	fetcher Fetcher
	extract ExtractOptions
	stats   *stats.Storage
	log     zerolog.Logger

	cacheMutex      sync.RWMutex
	cache           map[string]cacheEntry
	cacheTTL        time.Duration
	maxCacheSize    int
	cleanupInterval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a new Analyzer and starts its cache cleanup loop. statsStorage may be nil.
func New(cfg Config, fetcher Fetcher, statsStorage *stats.Storage, log zerolog.Logger) *Analyzer {
	cfg = cfg.withDefaults()
	a := &Analyzer{
		fetcher:         fetcher,
		extract:         cfg.Extract,
		stats:           statsStorage,
		log:             log.With().Str("component", "analyzer").Logger(),
		cache:           make(map[string]cacheEntry),
		cacheTTL:        cfg.CacheTTL,
		maxCacheSize:    cfg.MaxCacheSize,
		cleanupInterval: cfg.CleanupInterval,
		stop:            make(chan struct{}),
	}
	go a.periodicCleanup()
	return a
}

// Evaluate turns an already fetched page into a scan result. It performs no I/O.
func Evaluate(pageURL string, page PageFetchResult, opts ExtractOptions) ScanResult {
	signals := Extract(pageURL, page, opts)
	return ScanResult{
		URL:        pageURL,
		StatusCode: page.StatusCode,
		Signals:    signals,
		Score:      Score(signals),
		Issues:     Classify(signals),
	}
}

// periodicCleanup removes expired entries from the cache periodically
func (a *Analyzer) periodicCleanup() {
	ticker := time.NewTicker(a.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.cleanup()
		case <-a.stop:
			return
		}
	}
}

// cleanup removes expired entries and enforces the size limit
func (a *Analyzer) cleanup() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cleanupLocked()
}

func (a *Analyzer) cleanupLocked() {
	now := time.Now()
	for key, entry := range a.cache {
		if now.Sub(entry.timestamp) > a.cacheTTL {
			delete(a.cache, key)
		}
	}

	if len(a.cache) <= a.maxCacheSize {
		return
	}

	type keyed struct {
		key       string
		timestamp time.Time
	}
	entries := make([]keyed, 0, len(a.cache))
	for key, entry := range a.cache {
		entries = append(entries, keyed{key, entry.timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})
	for i := 0; i < len(entries)-a.maxCacheSize; i++ {
		delete(a.cache, entries[i].key)
	}
}

// SetMaxCacheSize sets the maximum number of cached results
func (a *Analyzer) SetMaxCacheSize(size int) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.maxCacheSize = size
	a.cleanupLocked()
}

// SetCacheTTL sets the cache TTL
func (a *Analyzer) SetCacheTTL(ttl time.Duration) {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cacheTTL = ttl
}

// ClearCache clears the result cache
func (a *Analyzer) ClearCache() {
	a.cacheMutex.Lock()
	defer a.cacheMutex.Unlock()
	a.cache = make(map[string]cacheEntry)
}

// generateCacheKey creates a unique key for the URL
func generateCacheKey(url string) string {
	hash := md5.Sum([]byte(strings.TrimSpace(url)))
	return hex.EncodeToString(hash[:])
}

// GetCacheStats returns statistics about the cache
func (a *Analyzer) GetCacheStats() CacheStats {
	var current stats.MonthlyStats
	if a.stats != nil {
		current = a.stats.GetCurrentStats()
	}

	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()
	return CacheStats{
		Entries:     len(a.cache),
		CacheHits:   current.CacheHits,
		CacheMisses: current.CacheMisses,
		CacheTTL:    a.cacheTTL,
	}
}

// IsCached checks if a URL is in the cache and not expired
func (a *Analyzer) IsCached(url string) bool {
	a.cacheMutex.RLock()
	defer a.cacheMutex.RUnlock()

	entry, found := a.cache[generateCacheKey(url)]
	return found && time.Since(entry.timestamp) < a.cacheTTL
}

func (a *Analyzer) record(delta stats.Delta) {
	if a.stats != nil {
		a.stats.IncrementStats(delta)
	}
}

// Analyze scans the given URL, serving recent results from the cache.
func (a *Analyzer) Analyze(ctx context.Context, url string) (*ScanResult, error) {
	cacheKey := generateCacheKey(url)

	a.cacheMutex.RLock()
	entry, found := a.cache[cacheKey]
	ttl := a.cacheTTL
	a.cacheMutex.RUnlock()
	if found && time.Since(entry.timestamp) < ttl {
		a.record(stats.Delta{CacheHits: 1})
		a.log.Debug().Str("url", url).Msg("Serving scan from cache")
		return entry.result, nil
	}
	a.record(stats.Delta{CacheMisses: 1})

	result, err := a.Scan(ctx, url)
	if err != nil {
		return nil, err
	}

	a.cacheMutex.Lock()
	a.cache[cacheKey] = cacheEntry{result: result, timestamp: time.Now()}
	if len(a.cache) > a.maxCacheSize {
		a.cleanupLocked()
	}
	a.cacheMutex.Unlock()

	return result, nil
}

// Scan fetches and analyzes url without consulting the cache.
func (a *Analyzer) Scan(ctx context.Context, url string) (*ScanResult, error) {
	log := a.log.With().Str("url", url).Logger()

	page, err := a.fetcher.Fetch(ctx, url)
	if err != nil {
		a.record(stats.Delta{FetchFailures: 1})
		log.Warn().Err(err).Str("host", hostOf(url)).Msg("Fetch failed")
		if _, ok := IsFetchError(err); ok {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	result := Evaluate(url, *page, a.extract)
	a.record(stats.Delta{Scans: 1, ScoreTotal: result.Score.Overall})
	log.Info().
		Int("score", result.Score.Overall).
		Int("errors", len(result.Issues.Errors)).
		Int("warnings", len(result.Issues.Warnings)).
		Float64("responseTimeMs", page.ResponseTimeMs).
		Msg("Scan completed")
	return &result, nil
}

// GetStats returns the statistics storage instance
func (a *Analyzer) GetStats() *stats.Storage {
	return a.stats
}

// Shutdown stops the cleanup loop and flushes statistics
func (a *Analyzer) Shutdown() error {
	if a == nil {
		return nil
	}
	a.stopOnce.Do(func() { close(a.stop) })

	if a.stats != nil {
		if err := a.stats.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown stats storage: %w", err)
		}
	}

	a.ClearCache()
	return nil
}
