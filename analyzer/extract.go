package analyzer

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"golang.org/x/net/html"
)

const (
	// assumedBytesPerMs approximates a 1.5 Mbit/s connection for load time estimates.
	assumedBytesPerMs = 187.5
	// minifiedNewlineRatio is the newline-per-byte ratio under which HTML looks minified.
	minifiedNewlineRatio = 0.005
)

// recognisedSecurityHeaders lists the security headers reported in SecurityInfo, in canonical form.
var recognisedSecurityHeaders = []string{
	"Strict-Transport-Security",
	"Content-Security-Policy",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-XSS-Protection",
	"Referrer-Policy",
	"Permissions-Policy",
}

var compressionEncodings = []string{"gzip", "br", "deflate", "zstd", "compress"}

var knownImageFormats = map[string]string{
	"jpg":  "jpg",
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
	"webp": "webp",
	"avif": "avif",
	"svg":  "svg",
	"bmp":  "bmp",
	"ico":  "ico",
	"tif":  "tiff",
	"tiff": "tiff",
}

// ExtractOptions controls policies of the extractor that are not fixed rules.
type ExtractOptions struct {
	// TreatWWWAsSameHost makes "www.example.com" and "example.com" count as the same host
	// when classifying links as internal.
	TreatWWWAsSameHost bool
}

// Extract parses the fetched page and returns its signals. It never fails: malformed
// markup degrades individual fields to their zero values.
func Extract(pageURL string, page PageFetchResult, opts ExtractOptions) Signals {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		base = &url.URL{}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		doc = goquery.NewDocumentFromNode(&html.Node{Type: html.DocumentNode})
	}

	signals := Signals{
		MetaTags: extractMetaTags(doc, page.HTML),
		Headings: extractHeadings(doc),
		Links:    extractLinks(doc, base, opts),
		Images:   extractImages(doc),
		Content:  extractContent(doc),
		Schema:   extractSchema(doc),
		Security: extractSecurity(doc, base, page),
	}
	signals.Performance = extractPerformance(page)
	return signals
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// setOnce stores v in dst unless dst is already set or v is empty.
func setOnce(dst **string, v string) {
	if *dst != nil {
		return
	}
	*dst = optional(v)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func extractMetaTags(doc *goquery.Document, raw string) MetaTagSet {
	var m MetaTagSet

	doc.Find("title").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.ParentsFiltered("svg").Length() > 0 {
			return true
		}
		m.Title = optional(normalizeSpace(s.Text()))
		return false
	})

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(raw)); err == nil {
		m.OGTitle = optional(og.Title)
		m.OGDescription = optional(og.Description)
		m.OGType = optional(og.Type)
		m.OGURL = optional(og.URL)
		m.OGSiteName = optional(og.SiteName)
		for _, img := range og.Images {
			if img != nil && strings.TrimSpace(img.URL) != "" {
				m.OGImage = optional(img.URL)
				break
			}
		}
	}

	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content, ok := s.Attr("content")
		if !ok || strings.TrimSpace(content) == "" {
			content = s.AttrOr("value", "")
		}
		if strings.TrimSpace(content) == "" {
			return
		}

		key := strings.ToLower(strings.TrimSpace(s.AttrOr("name", "")))
		if key == "" {
			key = strings.ToLower(strings.TrimSpace(s.AttrOr("property", "")))
		}
		if key == "" && strings.EqualFold(strings.TrimSpace(s.AttrOr("http-equiv", "")), "content-language") {
			key = "content-language"
		}
		if dst := metaField(&m, key); dst != nil {
			setOnce(dst, content)
		}
	})

	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !hasToken(s.AttrOr("rel", ""), "canonical") {
			return true
		}
		m.Canonical = optional(s.AttrOr("href", ""))
		return m.Canonical == nil
	})

	if lang := optional(doc.Find("html").First().AttrOr("lang", "")); lang != nil {
		m.Language = lang
	}

	return m
}

// metaField maps a meta name/property to its slot in the set.
func metaField(m *MetaTagSet, key string) **string {
	switch key {
	case "description":
		return &m.Description
	case "keywords":
		return &m.Keywords
	case "robots":
		return &m.Robots
	case "viewport":
		return &m.Viewport
	case "author":
		return &m.Author
	case "content-language", "language":
		return &m.Language
	case "og:title":
		return &m.OGTitle
	case "og:description":
		return &m.OGDescription
	case "og:image", "og:image:url":
		return &m.OGImage
	case "og:type":
		return &m.OGType
	case "og:url":
		return &m.OGURL
	case "og:site_name":
		return &m.OGSiteName
	case "twitter:card":
		return &m.TwitterCard
	case "twitter:title":
		return &m.TwitterTitle
	case "twitter:description":
		return &m.TwitterDescription
	case "twitter:image", "twitter:image:src":
		return &m.TwitterImage
	case "twitter:site":
		return &m.TwitterSite
	}
	return nil
}

func hasToken(list, token string) bool {
	for _, f := range strings.Fields(list) {
		if strings.EqualFold(f, token) {
			return true
		}
	}
	return false
}

func extractHeadings(doc *goquery.Document) HeadingOutline {
	outline := HeadingOutline{
		H1: []string{}, H2: []string{}, H3: []string{},
		H4: []string{}, H5: []string{}, H6: []string{},
	}
	doc.Find("h1, h2, h3, h4, h5, h6").Each(func(_ int, s *goquery.Selection) {
		text := normalizeSpace(s.Text())
		if text == "" {
			return
		}
		level := int(goquery.NodeName(s)[1] - '0')
		if dst := outline.Level(level); dst != nil {
			*dst = append(*dst, text)
		}
	})
	return outline
}

// skipLink reports whether href points nowhere: empty, in-page fragments and javascript: pseudo links.
func skipLink(href string) bool {
	href = strings.TrimSpace(href)
	return href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:")
}

// resolveLink resolves href against base and reports whether it is a crawlable http(s) target.
func resolveLink(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if skipLink(href) {
		return nil, false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	target := base.ResolveReference(ref)
	scheme := strings.ToLower(target.Scheme)
	if (scheme != "http" && scheme != "https") || target.Hostname() == "" {
		return nil, false
	}
	return target, true
}

func comparableHost(u *url.URL, opts ExtractOptions) string {
	host := strings.ToLower(u.Hostname())
	if opts.TreatWWWAsSameHost {
		host = strings.TrimPrefix(host, "www.")
	}
	return host
}

func extractLinks(doc *goquery.Document, base *url.URL, opts ExtractOptions) LinkStats {
	var links LinkStats
	pageHost := comparableHost(base, opts)

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := s.AttrOr("href", "")
		if skipLink(href) {
			return
		}
		links.Total++
		if hasToken(s.AttrOr("rel", ""), "nofollow") {
			links.Nofollow++
		}
		// mailto:, tel: and friends count toward total only
		target, ok := resolveLink(base, href)
		if !ok {
			return
		}
		if pageHost != "" && comparableHost(target, opts) == pageHost {
			links.Internal++
		} else {
			links.External++
		}
	})
	return links
}

func extractImages(doc *goquery.Document) ImageStats {
	images := ImageStats{Formats: make(map[string]int)}
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		images.Total++
		if strings.TrimSpace(s.AttrOr("alt", "")) != "" {
			images.WithAlt++
		} else {
			images.WithoutAlt++
		}
		src := strings.TrimSpace(s.AttrOr("src", ""))
		if src == "" {
			src = strings.TrimSpace(s.AttrOr("data-src", ""))
		}
		images.Formats[imageFormat(src)]++
	})
	return images
}

// imageFormat derives a normalised format name from an image source.
func imageFormat(src string) string {
	lower := strings.ToLower(src)
	if rest, ok := strings.CutPrefix(lower, "data:image/"); ok {
		end := strings.IndexAny(rest, ";,+")
		if end >= 0 {
			rest = rest[:end]
		}
		if f, ok := knownImageFormats[rest]; ok {
			return f
		}
		return "unknown"
	}
	u, err := url.Parse(lower)
	if err != nil {
		return "unknown"
	}
	ext := strings.TrimPrefix(path.Ext(u.Path), ".")
	if f, ok := knownImageFormats[ext]; ok {
		return f
	}
	return "unknown"
}

func extractSchema(doc *goquery.Document) SchemaInfo {
	schema := SchemaInfo{Types: []string{}}
	seen := make(map[string]bool)

	doc.Find("script[type]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("type", "")), "application/ld+json") {
			return
		}
		var v any
		if err := json.Unmarshal([]byte(s.Text()), &v); err != nil {
			return
		}
		schema.Count++
		collectSchemaTypes(v, &schema.Types, seen)
	})
	schema.Detected = schema.Count > 0
	return schema
}

func collectSchemaTypes(v any, types *[]string, seen map[string]bool) {
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t != "" && !seen[t] {
			seen[t] = true
			*types = append(*types, t)
		}
	}
	switch val := v.(type) {
	case map[string]any:
		switch t := val["@type"].(type) {
		case string:
			add(t)
		case []any:
			for _, item := range t {
				if s, ok := item.(string); ok {
					add(s)
				}
			}
		}
		// map iteration order is random; walk keys sorted for stable type order
		for _, k := range sortedKeys(val) {
			if k == "@type" {
				continue
			}
			collectSchemaTypes(val[k], types, seen)
		}
	case []any:
		for _, item := range val {
			collectSchemaTypes(item, types, seen)
		}
	}
}

func extractSecurity(doc *goquery.Document, base *url.URL, page PageFetchResult) SecurityInfo {
	security := SecurityInfo{
		IsHTTPS:         strings.EqualFold(base.Scheme, "https"),
		SecurityHeaders: []string{},
	}

	found := make(map[string]bool)
	for _, h := range page.Headers {
		for _, name := range recognisedSecurityHeaders {
			if strings.EqualFold(strings.TrimSpace(h.Name), name) && !found[name] {
				found[name] = true
				security.SecurityHeaders = append(security.SecurityHeaders, name)
			}
		}
	}
	security.HasHSTS = found["Strict-Transport-Security"]

	if security.IsHTTPS {
		doc.Find("script[src], img[src], link[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			ref := s.AttrOr("src", "")
			if goquery.NodeName(s) == "link" {
				ref = s.AttrOr("href", "")
			}
			u, err := url.Parse(strings.TrimSpace(ref))
			if err != nil {
				return true
			}
			if strings.EqualFold(base.ResolveReference(u).Scheme, "http") {
				security.MixedContent = true
				return false
			}
			return true
		})
	}
	return security
}

func extractPerformance(page PageFetchResult) PerformanceInfo {
	size := len(page.HTML)
	perf := PerformanceInfo{
		HTMLSize:       size,
		ResponseTimeMs: page.ResponseTimeMs,
	}
	if size > 0 {
		newlines := strings.Count(page.HTML, "\n")
		perf.IsMinified = float64(newlines)/float64(size) < minifiedNewlineRatio
	}
	if enc, ok := page.Header("Content-Encoding"); ok {
		enc = strings.ToLower(enc)
		for _, e := range compressionEncodings {
			if strings.Contains(enc, e) {
				perf.CompressionEnabled = true
				break
			}
		}
	}
	perf.EstimatedLoadTimeMs = round(page.ResponseTimeMs+float64(size)/assumedBytesPerMs, 1)
	return perf
}
