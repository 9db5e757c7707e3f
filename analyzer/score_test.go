package analyzer

import (
	"strings"
	"testing"
)

func str(s string) *string { return &s }

func perfectSignals() Signals {
	return Signals{
		MetaTags: MetaTagSet{
			Title:         str(strings.Repeat("t", 45)),
			Description:   str(strings.Repeat("d", 120)),
			Canonical:     str("https://example.com/"),
			Viewport:      str("width=device-width, initial-scale=1"),
			Robots:        str("index, follow"),
			Language:      str("en"),
			OGTitle:       str("Title"),
			OGDescription: str("Description"),
			OGImage:       str("https://example.com/og.png"),
			OGType:        str("website"),
			OGURL:         str("https://example.com/"),
			TwitterCard:   str("summary_large_image"),
			TwitterTitle:  str("Title"),
			TwitterImage:  str("https://example.com/tw.png"),
		},
		Headings: HeadingOutline{H1: []string{"Main"}, H2: []string{"Section"}},
		Links:    LinkStats{Total: 3, Internal: 2, External: 1},
		Images:   ImageStats{Total: 1, WithAlt: 1},
		Content:  ContentStats{WordCount: 800, Readability: 65, ContentLength: LengthMedium},
		Schema:   SchemaInfo{Detected: true, Count: 1, Types: []string{"WebPage"}},
		Security: SecurityInfo{IsHTTPS: true, HasHSTS: true},
		Performance: PerformanceInfo{
			HTMLSize:           40 * 1024,
			ResponseTimeMs:     300,
			IsMinified:         true,
			CompressionEnabled: true,
		},
	}
}

func TestScorePerfectPage(t *testing.T) {
	got := Score(perfectSignals())
	want := SEOScore{
		Overall:     100,
		MetaTags:    MaxMetaTags,
		Content:     MaxContent,
		Technical:   MaxTechnical,
		Performance: MaxPerformance,
		Social:      MaxSocial,
	}
	if got != want {
		t.Errorf("score = %+v, want %+v", got, want)
	}
}

func TestScorePerfectMetaTags(t *testing.T) {
	m := MetaTagSet{
		Title:       str(strings.Repeat("a", 45)),
		Description: str(strings.Repeat("b", 120)),
		Canonical:   str("https://example.com/"),
		Viewport:    str("width=device-width"),
		Robots:      str("index"),
	}
	if got := Score(Signals{MetaTags: m}).MetaTags; got != MaxMetaTags {
		t.Errorf("meta tags score = %d, want %d", got, MaxMetaTags)
	}

	// length is measured in characters, not bytes
	m.Title = str(strings.Repeat("é", 45))
	if got := Score(Signals{MetaTags: m}).MetaTags; got != MaxMetaTags {
		t.Errorf("multi-byte title should stay in range, score = %d", got)
	}

	m.Title = str(strings.Repeat("a", 61))
	if got := Score(Signals{MetaTags: m}).MetaTags; got != MaxMetaTags-5 {
		t.Errorf("long title score = %d, want %d", got, MaxMetaTags-5)
	}
}

func TestScoreDirections(t *testing.T) {
	base := Score(perfectSignals())

	tests := []struct {
		name     string
		mutate   func(*Signals)
		category func(SEOScore) int
		want     int
	}{
		{"noindex", func(s *Signals) { s.MetaTags.Robots = str("noindex, nofollow") }, func(c SEOScore) int { return c.Technical }, MaxTechnical - 4},
		{"no robots tag", func(s *Signals) { s.MetaTags.Robots = nil }, func(c SEOScore) int { return c.Technical }, MaxTechnical - 2},
		{"mixed content", func(s *Signals) { s.Security.MixedContent = true }, func(c SEOScore) int { return c.Technical }, MaxTechnical - 2},
		{"plain http", func(s *Signals) { s.Security.IsHTTPS = false }, func(c SEOScore) int { return c.Technical }, MaxTechnical - 4},
		{"two h1", func(s *Signals) { s.Headings.H1 = []string{"a", "b"} }, func(c SEOScore) int { return c.Content }, MaxContent - 4},
		{"thin content", func(s *Signals) { s.Content.WordCount = 150 }, func(c SEOScore) int { return c.Content }, MaxContent - 4},
		{"hard to read", func(s *Signals) { s.Content.Readability = 10 }, func(c SEOScore) int { return c.Content }, MaxContent - 5},
		{"slow response", func(s *Signals) { s.Performance.ResponseTimeMs = 2500 }, func(c SEOScore) int { return c.Performance }, MaxPerformance - 4},
		{"large page", func(s *Signals) { s.Performance.HTMLSize = 600 * 1024 }, func(c SEOScore) int { return c.Performance }, MaxPerformance - 4},
		{"no twitter card", func(s *Signals) { s.MetaTags.TwitterCard = nil }, func(c SEOScore) int { return c.Social }, MaxSocial - 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := perfectSignals()
			tt.mutate(&s)
			got := Score(s)
			if c := tt.category(got); c != tt.want {
				t.Errorf("category score = %d, want %d", c, tt.want)
			}
			if got.Overall >= base.Overall {
				t.Errorf("overall %d should drop below %d", got.Overall, base.Overall)
			}
		})
	}
}

func TestScoreBounds(t *testing.T) {
	inputs := []Signals{
		{},
		perfectSignals(),
		extract(t, "https://example.com", minimalPage),
		extract(t, "http://example.com", `<img src="x.png"><img src="y.png">`),
		{Security: SecurityInfo{MixedContent: true}, Performance: PerformanceInfo{ResponseTimeMs: 99999, HTMLSize: 1 << 30}},
	}
	for i, s := range inputs {
		score := Score(s)
		cats := []struct {
			value, max int
		}{
			{score.MetaTags, MaxMetaTags},
			{score.Content, MaxContent},
			{score.Technical, MaxTechnical},
			{score.Performance, MaxPerformance},
			{score.Social, MaxSocial},
		}
		sum := 0
		for _, c := range cats {
			if c.value < 0 || c.value > c.max {
				t.Errorf("input %d: category score %d outside [0,%d]", i, c.value, c.max)
			}
			sum += c.value
		}
		if score.Overall != sum || score.Overall < 0 || score.Overall > 100 {
			t.Errorf("input %d: overall %d, category sum %d", i, score.Overall, sum)
		}
		if again := Score(s); again != score {
			t.Errorf("input %d: score is not deterministic", i)
		}
	}
}
