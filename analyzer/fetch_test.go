package analyzer

import (
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			http.Error(w, "bad agent", http.StatusBadRequest)
			return
		}
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(minimalPage))
	})
	mux.HandleFunc("/gzip", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			w.Write([]byte(minimalPage))
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(minimalPage))
		gz.Close()
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	mux.HandleFunc("/big", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>" + strings.Repeat("x", 1000) + "<h1>Late</h1></body></html>"))
	})
	mux.HandleFunc("/exact", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 100)))
	})
	mux.HandleFunc("/redirect", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/ok", http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	fetcher := NewHTTPFetcher(FetcherConfig{Timeout: 200 * time.Millisecond, UserAgent: "test-agent", MaxPageBytes: 100})
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		page, err := fetcher.Fetch(ctx, srv.URL+"/ok")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if page.StatusCode != http.StatusOK || page.HTML != minimalPage {
			t.Errorf("page = %+v", page)
		}
		if v, ok := page.Header("x-frame-options"); !ok || v != "DENY" {
			t.Errorf("X-Frame-Options = %q, %v", v, ok)
		}
		if page.ResponseTimeMs <= 0 {
			t.Errorf("response time = %v", page.ResponseTimeMs)
		}
		for i := 1; i < len(page.Headers); i++ {
			if page.Headers[i-1].Name > page.Headers[i].Name {
				t.Errorf("headers not sorted: %v", page.Headers)
			}
		}
	})

	t.Run("Redirect", func(t *testing.T) {
		page, err := fetcher.Fetch(ctx, srv.URL+"/redirect")
		if err != nil || page.HTML != minimalPage {
			t.Errorf("redirect not followed: %v", err)
		}
	})

	t.Run("TransparentGzip", func(t *testing.T) {
		page, err := fetcher.Fetch(ctx, srv.URL+"/gzip")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if page.HTML != minimalPage {
			t.Errorf("body was not decompressed: %q", page.HTML)
		}
		if v, _ := page.Header("Content-Encoding"); v != "gzip" {
			t.Errorf("Content-Encoding = %q, want gzip", v)
		}
		if !Extract(srv.URL, *page, ExtractOptions{}).Performance.CompressionEnabled {
			t.Error("compression should be detected")
		}
	})

	t.Run("BodyAtLimit", func(t *testing.T) {
		page, err := fetcher.Fetch(ctx, srv.URL+"/exact")
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if len(page.HTML) != 100 {
			t.Errorf("body length = %d, want 100", len(page.HTML))
		}
	})

	errorTests := []struct {
		name    string
		url     string
		kind    FetchErrorKind
		message string
	}{
		{"NotFound", srv.URL + "/missing", FetchHTTPStatus, "received HTTP 404"},
		{"BodyOverLimit", srv.URL + "/big", FetchTooLarge, "page too large"},
		{"Timeout", srv.URL + "/slow", FetchTimeout, "request timed out"},
		{"InvalidScheme", "ftp://example.com/file", FetchInvalidURL, "invalid URL"},
		{"NoHost", "https://", FetchInvalidURL, "invalid URL"},
	}
	for _, tt := range errorTests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := fetcher.Fetch(ctx, tt.url)
			if page != nil {
				t.Errorf("expected no page, got %+v", page)
			}
			fe, ok := IsFetchError(err)
			if !ok {
				t.Fatalf("expected *FetchError, got %v", err)
			}
			if fe.Kind != tt.kind || fe.Error() != tt.message {
				t.Errorf("kind = %s, message = %q, want %s / %q", fe.Kind, fe.Error(), tt.kind, tt.message)
			}
		})
	}
}

func TestHTTPFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewHTTPFetcher(FetcherConfig{Timeout: time.Second}).Fetch(context.Background(), addr)
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != FetchUnreachable {
		t.Fatalf("expected unreachable error, got %v", err)
	}
	if fe.Error() != "could not reach the URL" {
		t.Errorf("message = %q", fe.Error())
	}
}

func TestHTTPFetcherCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	time.Sleep(time.Millisecond)

	_, err := NewHTTPFetcher(FetcherConfig{}).Fetch(ctx, "http://example.invalid/")
	if fe, ok := IsFetchError(err); !ok || fe.Kind != FetchTimeout {
		t.Errorf("expected timeout error for an expired context, got %v", err)
	}
}
