package analyzer

import (
	"fmt"
	"strings"
)

// Classify derives findings from the signals. Checks run in a fixed order, so the same
// signals always produce the same lists.
func Classify(s Signals) Issues {
	issues := Issues{
		Errors:      []string{},
		Warnings:    []string{},
		Suggestions: []string{},
	}
	m := s.MetaTags

	// Title
	if m.Title == nil {
		issues.Errors = append(issues.Errors, "Missing title tag")
	} else if n := length(m.Title); n < TitleMinLength {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Title is too short (%d characters, recommended %d-%d)", n, TitleMinLength, TitleMaxLength))
	} else if n > TitleMaxLength {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Title is too long (%d characters, recommended %d-%d)", n, TitleMinLength, TitleMaxLength))
	}

	// Description
	if m.Description == nil {
		issues.Warnings = append(issues.Warnings, "Missing meta description")
	} else if n := length(m.Description); n < DescriptionMinLength {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Meta description is too short (%d characters, recommended %d-%d)", n, DescriptionMinLength, DescriptionMaxLength))
	} else if n > DescriptionMaxLength {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Meta description is too long (%d characters, recommended %d-%d)", n, DescriptionMinLength, DescriptionMaxLength))
	}

	// Headings
	switch h1 := len(s.Headings.H1); {
	case h1 == 0:
		issues.Errors = append(issues.Errors, "No H1 heading found")
	case h1 > 1:
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Multiple H1 headings found (%d) - consider using only one", h1))
	}
	if len(s.Headings.H2) == 0 {
		issues.Suggestions = append(issues.Suggestions, "Add H2 subheadings to structure the content")
	}

	// Transport security
	if !s.Security.IsHTTPS {
		issues.Errors = append(issues.Errors, "Page is not served over HTTPS")
	}
	if s.Security.MixedContent {
		issues.Errors = append(issues.Errors, "Page loads resources over insecure HTTP (mixed content)")
	}

	// Indexing
	if robotsBlocksIndexing(m.Robots) {
		issues.Warnings = append(issues.Warnings, "Robots meta tag prevents indexing (noindex)")
	}
	if m.Viewport == nil {
		issues.Warnings = append(issues.Warnings,
			"Missing viewport meta tag (e.g. <meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">)")
	}
	if m.Canonical == nil {
		issues.Suggestions = append(issues.Suggestions, "Add a canonical URL")
	}
	if m.Language == nil {
		issues.Suggestions = append(issues.Suggestions, "Declare the page language with the lang attribute")
	}

	// Images
	if s.Images.WithoutAlt > 0 {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("%d image(s) missing alt text", s.Images.WithoutAlt))
	}

	// Content
	if s.Content.WordCount < MinWordCount {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Thin content (%d words, aim for at least %d)", s.Content.WordCount, MinWordCount))
	}
	if s.Content.WordCount > 0 && s.Content.Readability < PoorReadability {
		issues.Suggestions = append(issues.Suggestions,
			fmt.Sprintf("Content is hard to read (readability %.1f) - use shorter sentences and simpler words", s.Content.Readability))
	}

	// Links
	if s.Links.Internal == 0 {
		issues.Suggestions = append(issues.Suggestions, "Add internal links to improve site navigation")
	}

	// Structured data
	if !s.Schema.Detected {
		issues.Suggestions = append(issues.Suggestions, "Add structured data (JSON-LD schema markup)")
	}

	// Social
	if missing := missingOpenGraph(m); len(missing) > 0 {
		issues.Suggestions = append(issues.Suggestions,
			"Add missing Open Graph tags: "+strings.Join(missing, ", "))
	}
	if m.TwitterCard == nil {
		issues.Suggestions = append(issues.Suggestions, "Add a Twitter Card (twitter:card meta tag)")
	}

	// Security headers
	if s.Security.IsHTTPS && !s.Security.HasHSTS {
		issues.Suggestions = append(issues.Suggestions, "Enable HSTS (Strict-Transport-Security header)")
	}
	if missing := missingSecurityHeaders(s.Security); len(missing) > 0 {
		issues.Suggestions = append(issues.Suggestions,
			"Add security headers: "+strings.Join(missing, ", "))
	}

	// Performance
	p := s.Performance
	switch {
	case p.ResponseTimeMs > SlowResponseMs:
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("Slow server response (%.0f ms)", p.ResponseTimeMs))
	case p.ResponseTimeMs > FastResponseMs:
		issues.Suggestions = append(issues.Suggestions,
			fmt.Sprintf("Server response time could be improved (%.0f ms)", p.ResponseTimeMs))
	}
	if p.HTMLSize > LargeHTMLBytes {
		issues.Warnings = append(issues.Warnings,
			fmt.Sprintf("HTML document is very large (%d KB)", p.HTMLSize/1024))
	}
	if !p.CompressionEnabled {
		issues.Warnings = append(issues.Warnings, "Response is not compressed (enable gzip or brotli)")
	}
	if p.HTMLSize > 0 && !p.IsMinified {
		issues.Suggestions = append(issues.Suggestions, "Minify the HTML")
	}

	return issues
}

func missingOpenGraph(m MetaTagSet) []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"og:title", m.OGTitle},
		{"og:description", m.OGDescription},
		{"og:image", m.OGImage},
		{"og:type", m.OGType},
		{"og:url", m.OGURL},
	} {
		if f.value == nil {
			missing = append(missing, f.name)
		}
	}
	return missing
}

func missingSecurityHeaders(sec SecurityInfo) []string {
	present := make(map[string]bool, len(sec.SecurityHeaders))
	for _, h := range sec.SecurityHeaders {
		present[h] = true
	}
	var missing []string
	// HSTS has its own finding above
	for _, h := range []string{"Content-Security-Policy", "X-Content-Type-Options", "X-Frame-Options"} {
		if !present[h] {
			missing = append(missing, h)
		}
	}
	return missing
}
