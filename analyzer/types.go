package analyzer

import (
	"maps"
	"slices"
	"strings"
)

// Header is a single response header as received from the fetcher.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PageFetchResult is the raw outcome of fetching a page
type PageFetchResult struct {
	StatusCode     int      `json:"statusCode"`
	ResponseTimeMs float64  `json:"responseTimeMs"`
	HTML           string   `json:"-"`
	Headers        []Header `json:"headers"`
}

// Header returns the first value of the named header. Names are matched case-insensitively.
func (r PageFetchResult) Header(name string) (string, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// MetaTagSet holds the recognised meta tags of a page. A nil field means the tag was absent.
type MetaTagSet struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Keywords    *string `json:"keywords,omitempty"`
	Canonical   *string `json:"canonical,omitempty"`
	Robots      *string `json:"robots,omitempty"`
	Viewport    *string `json:"viewport,omitempty"`
	Author      *string `json:"author,omitempty"`
	Language    *string `json:"language,omitempty"`

	OGTitle       *string `json:"ogTitle,omitempty"`
	OGDescription *string `json:"ogDescription,omitempty"`
	OGImage       *string `json:"ogImage,omitempty"`
	OGType        *string `json:"ogType,omitempty"`
	OGURL         *string `json:"ogUrl,omitempty"`
	OGSiteName    *string `json:"ogSiteName,omitempty"`

	TwitterCard        *string `json:"twitterCard,omitempty"`
	TwitterTitle       *string `json:"twitterTitle,omitempty"`
	TwitterDescription *string `json:"twitterDescription,omitempty"`
	TwitterImage       *string `json:"twitterImage,omitempty"`
	TwitterSite        *string `json:"twitterSite,omitempty"`
}

// HeadingOutline keeps heading texts per level in document order.
type HeadingOutline struct {
	H1 []string `json:"h1"`
	H2 []string `json:"h2"`
	H3 []string `json:"h3"`
	H4 []string `json:"h4"`
	H5 []string `json:"h5"`
	H6 []string `json:"h6"`
}

// Level returns a pointer to the slice for heading level 1-6, nil otherwise.
func (h *HeadingOutline) Level(n int) *[]string {
	switch n {
	case 1:
		return &h.H1
	case 2:
		return &h.H2
	case 3:
		return &h.H3
	case 4:
		return &h.H4
	case 5:
		return &h.H5
	case 6:
		return &h.H6
	}
	return nil
}

type LinkStats struct {
	Total    int `json:"total"`
	Internal int `json:"internal"`
	External int `json:"external"`
	Nofollow int `json:"nofollow"`
}

type ImageStats struct {
	Total      int            `json:"total"`
	WithAlt    int            `json:"withAlt"`
	WithoutAlt int            `json:"withoutAlt"`
	Formats    map[string]int `json:"formats"`
}

// KeywordDensity is one entry of the keyword density ranking.
type KeywordDensity struct {
	Keyword string  `json:"keyword"`
	Count   int     `json:"count"`
	Density float64 `json:"density"`
}

// Content length classes
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

type ContentStats struct {
	WordCount      int              `json:"wordCount"`
	ParagraphCount int              `json:"paragraphCount"`
	Readability    float64          `json:"readability"`
	ContentLength  string           `json:"contentLength"`
	KeywordDensity []KeywordDensity `json:"keywordDensity"`
}

type SchemaInfo struct {
	Detected bool     `json:"detected"`
	Count    int      `json:"count"`
	Types    []string `json:"types"`
}

type SecurityInfo struct {
	IsHTTPS         bool     `json:"isHttps"`
	HasHSTS         bool     `json:"hasHsts"`
	MixedContent    bool     `json:"mixedContent"`
	SecurityHeaders []string `json:"securityHeaders"`
}

type PerformanceInfo struct {
	HTMLSize            int     `json:"htmlSize"`
	ResponseTimeMs      float64 `json:"responseTimeMs"`
	IsMinified          bool    `json:"isMinified"`
	CompressionEnabled  bool    `json:"compressionEnabled"`
	EstimatedLoadTimeMs float64 `json:"estimatedLoadTimeMs"`
}

// Signals is the full set of features extracted from one page.
type Signals struct {
	MetaTags    MetaTagSet      `json:"metaTags"`
	Headings    HeadingOutline  `json:"headings"`
	Links       LinkStats       `json:"links"`
	Images      ImageStats      `json:"images"`
	Content     ContentStats    `json:"content"`
	Schema      SchemaInfo      `json:"schema"`
	Security    SecurityInfo    `json:"security"`
	Performance PerformanceInfo `json:"performance"`
}

// Category maxima. They sum to 100.
const (
	MaxMetaTags    = 25
	MaxContent     = 25
	MaxTechnical   = 20
	MaxPerformance = 15
	MaxSocial      = 15
)

// SEOScore is the weighted score of a page. Overall is the sum of the categories.
type SEOScore struct {
	Overall     int `json:"overall"`
	MetaTags    int `json:"metaTags"`
	Content     int `json:"content"`
	Technical   int `json:"technical"`
	Performance int `json:"performance"`
	Social      int `json:"social"`
}

// Issues are the findings of a scan, in check order.
type Issues struct {
	Errors      []string `json:"errors"`
	Warnings    []string `json:"warnings"`
	Suggestions []string `json:"suggestions"`
}

// ScanResult represents the complete analysis of a webpage
type ScanResult struct {
	URL        string `json:"url"`
	StatusCode int    `json:"statusCode"`
	Signals
	Score  SEOScore `json:"score"`
	Issues Issues   `json:"issues"`
}

// Clone returns a deep copy of the result. Nil slices and maps stay nil.
func (r ScanResult) Clone() ScanResult {
	out := r
	out.MetaTags = r.MetaTags.clone()
	h := &out.Headings
	for n := 1; n <= 6; n++ {
		*h.Level(n) = slices.Clone(*h.Level(n))
	}
	out.Images.Formats = maps.Clone(r.Images.Formats)
	out.Content.KeywordDensity = slices.Clone(r.Content.KeywordDensity)
	out.Schema.Types = slices.Clone(r.Schema.Types)
	out.Security.SecurityHeaders = slices.Clone(r.Security.SecurityHeaders)
	out.Issues = Issues{
		Errors:      slices.Clone(r.Issues.Errors),
		Warnings:    slices.Clone(r.Issues.Warnings),
		Suggestions: slices.Clone(r.Issues.Suggestions),
	}
	return out
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func (m MetaTagSet) clone() MetaTagSet {
	return MetaTagSet{
		Title:       cloneString(m.Title),
		Description: cloneString(m.Description),
		Keywords:    cloneString(m.Keywords),
		Canonical:   cloneString(m.Canonical),
		Robots:      cloneString(m.Robots),
		Viewport:    cloneString(m.Viewport),
		Author:      cloneString(m.Author),
		Language:    cloneString(m.Language),

		OGTitle:       cloneString(m.OGTitle),
		OGDescription: cloneString(m.OGDescription),
		OGImage:       cloneString(m.OGImage),
		OGType:        cloneString(m.OGType),
		OGURL:         cloneString(m.OGURL),
		OGSiteName:    cloneString(m.OGSiteName),

		TwitterCard:        cloneString(m.TwitterCard),
		TwitterTitle:       cloneString(m.TwitterTitle),
		TwitterDescription: cloneString(m.TwitterDescription),
		TwitterImage:       cloneString(m.TwitterImage),
		TwitterSite:        cloneString(m.TwitterSite),
	}
}
