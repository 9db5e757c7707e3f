package analyzer

import (
	"strings"
	"unicode/utf8"
)

// Length bounds for title and description, in characters.
const (
	TitleMinLength       = 30
	TitleMaxLength       = 60
	DescriptionMinLength = 50
	DescriptionMaxLength = 160

	MinWordCount    = 300
	MinReadability  = 60.0
	PoorReadability = 30.0
	FastResponseMs  = 1000.0
	SlowResponseMs  = 3000.0
	SmallHTMLBytes  = 100 * 1024
	LargeHTMLBytes  = 500 * 1024
)

// Score reduces the signals to category scores. It is a pure function.
func Score(s Signals) SEOScore {
	score := SEOScore{
		MetaTags:    clamp(scoreMetaTags(s.MetaTags), MaxMetaTags),
		Content:     clamp(scoreContent(s), MaxContent),
		Technical:   clamp(scoreTechnical(s), MaxTechnical),
		Performance: clamp(scorePerformance(s.Performance), MaxPerformance),
		Social:      clamp(scoreSocial(s.MetaTags), MaxSocial),
	}
	score.Overall = score.MetaTags + score.Content + score.Technical + score.Performance + score.Social
	return score
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}

func length(v *string) int {
	if v == nil {
		return 0
	}
	return utf8.RuneCountInString(*v)
}

func inRange(v *string, min, max int) bool {
	n := length(v)
	return v != nil && n >= min && n <= max
}

// robotsBlocksIndexing reports whether the robots directive contains noindex or none.
func robotsBlocksIndexing(robots *string) bool {
	if robots == nil {
		return false
	}
	for _, d := range strings.Split(strings.ToLower(*robots), ",") {
		d = strings.TrimSpace(d)
		if d == "noindex" || d == "none" {
			return true
		}
	}
	return false
}

func scoreMetaTags(m MetaTagSet) int {
	score := 0

	// Title: 10 points
	if m.Title != nil {
		score += 5
		if inRange(m.Title, TitleMinLength, TitleMaxLength) {
			score += 5
		}
	}

	// Description: 10 points
	if m.Description != nil {
		score += 5
		if inRange(m.Description, DescriptionMinLength, DescriptionMaxLength) {
			score += 5
		}
	}

	if m.Canonical != nil {
		score += 2
	}
	if m.Viewport != nil {
		score += 2
	}
	if m.Robots != nil {
		score++
	}
	return score
}

func scoreContent(s Signals) int {
	score := 0

	switch {
	case s.Content.WordCount >= MinWordCount:
		score += 8
	case s.Content.WordCount >= MinWordCount/3:
		score += 4
	}

	switch len(s.Headings.H1) {
	case 0:
	case 1:
		score += 7
	default:
		score += 3
	}
	if len(s.Headings.H2) > 0 {
		score += 3
	}

	switch {
	case s.Content.Readability >= MinReadability:
		score += 5
	case s.Content.Readability >= PoorReadability:
		score += 2
	}

	if s.Images.WithoutAlt == 0 {
		score += 2
	}
	return score
}

func scoreTechnical(s Signals) int {
	score := 0
	if s.Schema.Detected {
		score += 6
	}
	if s.MetaTags.Canonical != nil {
		score += 4
	}
	switch {
	case robotsBlocksIndexing(s.MetaTags.Robots):
	case s.MetaTags.Robots != nil:
		score += 4
	default:
		// no directive means the default "index, follow"
		score += 2
	}
	if s.Security.IsHTTPS {
		score += 4
		if s.Security.MixedContent {
			score -= 2
		}
	}
	if s.MetaTags.Language != nil {
		score += 2
	}
	return score
}

func scorePerformance(p PerformanceInfo) int {
	score := 0

	switch {
	case p.ResponseTimeMs < FastResponseMs:
		score += 5
	case p.ResponseTimeMs < 2*FastResponseMs:
		score += 3
	case p.ResponseTimeMs < SlowResponseMs:
		score++
	}

	switch {
	case p.HTMLSize < SmallHTMLBytes:
		score += 4
	case p.HTMLSize < LargeHTMLBytes:
		score += 2
	}

	if p.IsMinified {
		score += 3
	}
	if p.CompressionEnabled {
		score += 3
	}
	return score
}

func scoreSocial(m MetaTagSet) int {
	score := 0

	// Open Graph: 9 points
	if m.OGTitle != nil {
		score += 2
	}
	if m.OGDescription != nil {
		score += 2
	}
	if m.OGImage != nil {
		score += 3
	}
	if m.OGType != nil {
		score++
	}
	if m.OGURL != nil {
		score++
	}

	// Twitter: 6 points
	if m.TwitterCard != nil {
		score += 4
	}
	if m.TwitterTitle != nil || m.TwitterDescription != nil {
		score++
	}
	if m.TwitterImage != nil {
		score++
	}
	return score
}
