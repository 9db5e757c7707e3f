package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seo-optimizer/backend/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatal("a full bucket should allow two requests")
	}
	if rl.Allow("a") {
		t.Error("third request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("buckets are per client")
	}

	now = now.Add(time.Second)
	if !rl.Allow("a") {
		t.Error("one token should have been refilled after a second")
	}
	if rl.Allow("a") {
		t.Error("only one token should have been refilled")
	}
}

func TestRateLimiterPrune(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("idle")
	rl.Allow("busy")
	rl.Allow("busy")

	now = now.Add(time.Second)
	if removed := rl.Prune(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := rl.lastRefill["idle"]; ok {
		t.Error("refilled bucket should have been dropped")
	}
	if _, ok := rl.lastRefill["busy"]; !ok {
		t.Error("partially refilled bucket should be kept")
	}

	if !rl.Allow("busy") || rl.Allow("busy") {
		t.Error("a kept bucket must keep its token count")
	}
	if !rl.Allow("idle") || !rl.Allow("idle") {
		t.Error("a dropped client should start with a full bucket")
	}
}

func TestRateLimitHandler(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(0, 1).RateLimit())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}
}

func TestErrorHandlerRecovers(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(ErrorHandler(zerolog.New(&buf)))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", w.Code)
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Errorf("panic was not logged: %s", buf.String())
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(zerolog.New(&buf)))
	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) || !strings.Contains(out, `"status":404`) {
		t.Errorf("unexpected log line: %s", out)
	}
}

func TestStatsMiddleware(t *testing.T) {
	stats, err := logging.NewStatistics("")
	if err != nil {
		t.Fatal(err)
	}
	r := gin.New()
	r.Use(StatsMiddleware(stats, zerolog.Nop()))
	r.POST("/api/analyze", func(c *gin.Context) {
		c.Set(ScanURLKey, "https://example.com/page")
		c.Status(http.StatusBadGateway)
	})
	r.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/health", nil),
		httptest.NewRequest(http.MethodPost, "/api/analyze", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	if stats.TotalRequests() != 1 {
		t.Errorf("only analyze requests should be counted, got %d", stats.TotalRequests())
	}
	if stats.GetErrorRate() != 100 {
		t.Errorf("error rate = %v", stats.GetErrorRate())
	}
	if got := stats.GetPopularURLs(1); len(got) != 1 || got[0].URL != "https://example.com/page" {
		t.Errorf("popular = %+v", got)
	}
	if stats.GetUniqueVisitorsCount() != 1 {
		t.Errorf("visitors = %d", stats.GetUniqueVisitorsCount())
	}
}
