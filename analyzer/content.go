package analyzer

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	minKeywordLength = 3
	topKeywords      = 10

	mediumContentWords = 300
	longContentWords   = 1000
)

var (
	sentenceEndRe    = regexp.MustCompile(`[.!?]+`)
	silentSuffixRe   = regexp.MustCompile(`(?:[^laeiouy]es|ed|[^laeiouy]e)$`)
	leadingYRe       = regexp.MustCompile(`^y`)
	vowelGroupRe     = regexp.MustCompile(`[aeiouy]{1,2}`)
	nonLetterWordsRe = regexp.MustCompile(`[^a-z]+`)
)

var stopwords = toSet(`a about above after again against all also am an and any are as at be because been
before being below between both but by can could did do does doing down during each few for from
further had has have having he her here hers herself him himself his how i if in into is it its itself
just like made make many may me more most much must my myself no nor not now of off on once only or
other our ours ourselves out over own same she should so some such than that the their theirs them
themselves then there these they this those through to too under until up upon us very was we well
were what when where which while who whom why will with within without would you your yours yourself
yourselves get got one two new use used using via per`)

// skippedContent are elements whose text is not part of the page copy.
var skippedContent = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
	atom.Svg:      true,
	atom.Head:     true,
	atom.Title:    true,
	atom.H1:       true,
	atom.H2:       true,
	atom.H3:       true,
	atom.H4:       true,
	atom.H5:       true,
	atom.H6:       true,
}

var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Br: true, atom.Dd: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Fieldset: true, atom.Figcaption: true, atom.Figure: true, atom.Footer: true,
	atom.Form: true, atom.Header: true, atom.Hr: true, atom.Li: true, atom.Main: true,
	atom.Nav: true, atom.Ol: true, atom.P: true, atom.Pre: true, atom.Section: true,
	atom.Table: true, atom.Td: true, atom.Th: true, atom.Tr: true, atom.Ul: true,
	atom.Option: true,
}

func toSet(words string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(words) {
		set[w] = true
	}
	return set
}

func extractContent(doc *goquery.Document) ContentStats {
	content := ContentStats{
		ContentLength:  LengthShort,
		KeywordDensity: []KeywordDensity{},
	}

	text := visibleText(doc)
	words := strings.Fields(text)
	content.WordCount = len(words)

	doc.Find("p, blockquote, pre").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) != "" {
			content.ParagraphCount++
		}
	})

	if content.WordCount == 0 {
		return content
	}

	switch {
	case content.WordCount >= longContentWords:
		content.ContentLength = LengthLong
	case content.WordCount >= mediumContentWords:
		content.ContentLength = LengthMedium
	}

	content.Readability = readability(text, words)
	content.KeywordDensity = keywordDensity(text)
	return content
}

// visibleText collects the page copy: body text without scripts, styles, comments and headings.
func visibleText(doc *goquery.Document) string {
	root := doc.Find("body").First()
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			if skippedContent[n.DataAtom] {
				b.WriteByte(' ')
				return
			}
		case html.DocumentNode:
		default:
			return
		}
		block := blockElements[n.DataAtom]
		if block {
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	for _, n := range root.Nodes {
		walk(n)
	}
	return b.String()
}

// readability computes the Flesch reading ease, clamped to [0, 100].
func readability(text string, words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	sentences := len(sentenceEndRe.FindAllStringIndex(text, -1))
	if sentences == 0 {
		sentences = 1
	}
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}
	wordCount := float64(len(words))
	score := 206.835 - 1.015*(wordCount/float64(sentences)) - 84.6*(float64(syllables)/wordCount)
	return round(math.Max(0, math.Min(100, score)), 1)
}

func countSyllables(word string) int {
	w := nonLetterWordsRe.ReplaceAllString(strings.ToLower(word), "")
	if w == "" {
		return 1
	}
	if len(w) <= 3 {
		return 1
	}
	w = silentSuffixRe.ReplaceAllString(w, "")
	w = leadingYRe.ReplaceAllString(w, "")
	n := len(vowelGroupRe.FindAllString(w, -1))
	if n == 0 {
		return 1
	}
	return n
}

// keywordDensity measures keywords against every token of the text, so a density never exceeds 100.
func keywordDensity(text string) []KeywordDensity {
	type tally struct {
		count int
		first int
	}
	counts := make(map[string]*tally)
	order := 0

	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
	totalTokens := 0
	for _, tok := range tokens {
		tok = strings.Trim(tok, "'")
		if tok == "" {
			continue
		}
		totalTokens++
		if len([]rune(tok)) < minKeywordLength || stopwords[tok] || isNumeric(tok) {
			continue
		}
		t, ok := counts[tok]
		if !ok {
			t = &tally{first: order}
			counts[tok] = t
			order++
		}
		t.count++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := counts[keys[i]], counts[keys[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})
	if len(keys) > topKeywords {
		keys = keys[:topKeywords]
	}

	density := make([]KeywordDensity, 0, len(keys))
	for _, k := range keys {
		density = append(density, KeywordDensity{
			Keyword: k,
			Count:   counts[k].count,
			Density: round(float64(counts[k].count)/float64(totalTokens)*100, 2),
		})
	}
	return density
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
