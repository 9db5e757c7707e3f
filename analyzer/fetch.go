package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// FetchErrorKind classifies why a page could not be fetched.
type FetchErrorKind string

const (
	FetchInvalidURL  FetchErrorKind = "invalid-url"
	FetchUnreachable FetchErrorKind = "unreachable"
	FetchTimeout     FetchErrorKind = "timeout"
	FetchHTTPStatus  FetchErrorKind = "http-status"
	FetchTooLarge    FetchErrorKind = "too-large"
)

// FetchError is returned when a scan cannot start because the page was not retrieved.
type FetchError struct {
	Kind       FetchErrorKind
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case FetchInvalidURL:
		return "invalid URL"
	case FetchTimeout:
		return "request timed out"
	case FetchHTTPStatus:
		return fmt.Sprintf("received HTTP %d", e.StatusCode)
	case FetchTooLarge:
		return "page too large"
	default:
		return "could not reach the URL"
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher retrieves a page for analysis.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (*PageFetchResult, error)
}

// FetcherConfig holds settings for HTTPFetcher.
type FetcherConfig struct {
	Timeout      time.Duration
	UserAgent    string
	MaxPageBytes int64
}

// HTTPFetcher fetches pages with a single GET request.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxPageBytes int64
}

// NewHTTPFetcher creates a fetcher with a pooled transport.
func NewHTTPFetcher(cfg FetcherConfig) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "SEOAnalyzer/1.0"
	}
	if cfg.MaxPageBytes <= 0 {
		cfg.MaxPageBytes = 10 * 1024 * 1024
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return errors.New("too many redirects")
				}
				return nil
			},
		},
		userAgent:    cfg.UserAgent,
		maxPageBytes: cfg.MaxPageBytes,
	}
}

// Fetch retrieves pageURL. Any failure, including a non-2xx status, is a *FetchError.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (*PageFetchResult, error) {
	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		if err == nil {
			err = fmt.Errorf("unsupported URL %q", pageURL)
		}
		return nil, &FetchError{Kind: FetchInvalidURL, URL: pageURL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: FetchInvalidURL, URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, classifyTransportError(pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &FetchError{Kind: FetchHTTPStatus, URL: pageURL, StatusCode: resp.StatusCode}
	}

	// One byte past the limit tells a page that fits exactly apart from one that does not.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxPageBytes+1))
	if err != nil {
		return nil, classifyTransportError(pageURL, err)
	}
	if int64(len(body)) > f.maxPageBytes {
		return nil, &FetchError{
			Kind:       FetchTooLarge,
			URL:        pageURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("body exceeds %d bytes", f.maxPageBytes),
		}
	}
	elapsed := time.Since(start)

	return &PageFetchResult{
		StatusCode:     resp.StatusCode,
		ResponseTimeMs: float64(elapsed.Microseconds()) / 1000,
		HTML:           string(body),
		Headers:        flattenHeaders(resp),
	}, nil
}

func classifyTransportError(pageURL string, err error) *FetchError {
	kind := FetchUnreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = FetchTimeout
	}
	return &FetchError{Kind: kind, URL: pageURL, Err: err}
}

// flattenHeaders turns the response header map into a list sorted by name.
// The transport strips Content-Encoding when it decompresses transparently, so it is restored here.
func flattenHeaders(resp *http.Response) []Header {
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)

	headers := make([]Header, 0, len(names)+1)
	for _, name := range names {
		for _, v := range resp.Header[name] {
			headers = append(headers, Header{Name: name, Value: v})
		}
	}
	if resp.Uncompressed && resp.Header.Get("Content-Encoding") == "" {
		headers = append(headers, Header{Name: "Content-Encoding", Value: "gzip"})
	}
	return headers
}

// IsFetchError reports whether err is a fetch failure and returns it.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

func hostOf(pageURL string) string {
	u, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
