// Package extract holds the text heuristics that turn raw crawled page
// content into theme candidates: display-text selection, category matching,
// and title extraction.
//
// Crawled pages mix the article body with site chrome (menus, legal text,
// subscription prompts). Matching against the full text produces false
// category hits and garbage titles, so matching is restricted to a window
// that ends at the first footer marker, and title candidates are filtered
// through a noise denylist. Precision over recall: a human approves every
// theme before anything acts on it.
package extract

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/verdesa/theme-agent/internal/models"
)

const (
	// matchWindow bounds how far into the page category matching looks.
	matchWindow = 14000

	// titleSuffix is appended to titles recovered from search queries.
	titleSuffix = ": Latest News and Trends"

	maxQueryTitleLen = 79
	minTitleLineLen  = 15
	maxTitleLineLen  = 120
)

// footerMarkers end the category-matching window. Anything after the first
// of these is site furniture, not article text.
var footerMarkers = []string{
	"copyright",
	"all rights reserved",
	"subscribe to our",
	"newsletter",
	"follow us on",
	"privacy policy",
	"terms of use",
}

// noisePrefixes disqualify a line from being used as a title.
var noisePrefixes = []string{
	"sign in",
	"sign up",
	"log in",
	"login",
	"subscribe",
	"subscription",
	"cookie",
	"we use cookies",
	"accept all",
	"menu",
	"search",
	"skip to",
	"copyright",
	"all rights reserved",
	"privacy policy",
	"terms",
	"advertisement",
	"sponsored",
	"share this",
	"share on",
	"follow us",
	"newsletter",
	"read more",
	"click here",
	"download",
	"register",
	"get started",
	"back to top",
	"load more",
	"related articles",
	"you may also like",
	"recommended for you",
	"trending now",
	"most popular",
	"table of contents",
	"photo:",
	"image:",
	"credit:",
}

// navLabels are single-word navigation entries that pass the length check on
// some sites but never make a usable title.
var navLabels = map[string]struct{}{
	"topics":         {},
	"magazine":       {},
	"breaking":       {},
	"videos":         {},
	"podcasts":       {},
	"library":        {},
	"newsletters":    {},
	"trending":       {},
	"latest":         {},
	"opinion":        {},
	"business":       {},
	"technology":     {},
	"entertainment":  {},
	"international":  {},
	"investigations": {},
}

var searchResultRe = regexp.MustCompile(`(?i)result for\s*["'\x{201C}\x{201D}\x{2018}\x{2019}]([^"'\x{201C}\x{201D}\x{2018}\x{2019}]+)["'\x{201C}\x{201D}\x{2018}\x{2019}]`)

var titleCaser = cases.Title(language.Und)

// DisplayText returns the most informative text field of a crawl result,
// preferring readable plain text over markup. A result with none of the
// known fields falls back to its JSON representation so the admin still
// sees something reviewable; nil yields the empty string.
func DisplayText(r *models.CrawlResult) string {
	if r == nil {
		return ""
	}
	for _, s := range []string{r.RawContent, r.Text, r.Content, r.Markdown} {
		if s != "" {
			return s
		}
	}
	if len(r.Raw) > 0 {
		if b, err := json.Marshal(r.Raw); err == nil {
			return string(b)
		}
	}
	return ""
}

// ContentFromCrawl returns the field used as the persisted theme content.
// Same sources as DisplayText but markup-first, since the automation webhook
// downstream prefers markdown.
func ContentFromCrawl(r *models.CrawlResult) string {
	if r == nil {
		return ""
	}
	for _, s := range []string{r.RawContent, r.Markdown, r.Content, r.Text} {
		if s != "" {
			return s
		}
	}
	return ""
}

// MatchCategories returns the names of the categories that appear in text,
// deduplicated and sorted with a pt-BR collation. Matching is limited to the
// window before the first footer marker within the first 14k characters.
func MatchCategories(text string, categories []models.BlogCategory) []string {
	if text == "" || len(categories) == 0 {
		return nil
	}

	window := matchingWindow(text)
	if window == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var names []string

	for _, cat := range categories {
		if cat.Name == "" {
			continue
		}
		if _, dup := seen[cat.Name]; dup {
			continue
		}
		if categoryMatches(window, cat) {
			seen[cat.Name] = struct{}{}
			names = append(names, cat.Name)
		}
	}

	if len(names) > 1 {
		collate.New(language.BrazilianPortuguese).SortStrings(names)
	}
	return names
}

// matchingWindow lowercases the head of the text and truncates it at the
// earliest footer marker.
func matchingWindow(text string) string {
	runes := []rune(text)
	if len(runes) > matchWindow {
		runes = runes[:matchWindow]
	}
	window := strings.ToLower(string(runes))

	cut := -1
	for _, marker := range footerMarkers {
		if idx := strings.Index(window, marker); idx >= 0 && (cut < 0 || idx < cut) {
			cut = idx
		}
	}
	if cut >= 0 {
		window = window[:cut]
	}
	return window
}

func categoryMatches(window string, cat models.BlogCategory) bool {
	name := strings.ToLower(strings.TrimSpace(cat.Name))
	if name == "" {
		return false
	}
	if strings.Contains(window, name) {
		return true
	}
	if slug := strings.ToLower(strings.TrimSpace(cat.Slug)); slug != "" {
		if strings.Contains(window, slug) {
			return true
		}
		if spaced := strings.ReplaceAll(slug, "-", " "); spaced != slug && strings.Contains(window, spaced) {
			return true
		}
	}
	// Singular form: "Seeds" should match "seed oil".
	if len([]rune(name)) > 2 && strings.HasSuffix(name, "s") {
		if singular := strings.TrimSuffix(name, "s"); strings.Contains(window, singular) {
			return true
		}
	}
	return false
}

// ExtractTitle recovers a human-usable title from crawled text.
//
// Priority order is observable behavior and must not change:
//  1. a `Result for "<query>"` marker in the text
//  2. an s/q/search query parameter on the page URL
//  3. the first content-looking line of the text
//  4. an HTML <title>/<h1> when the content is markup
//
// Returns the empty string when nothing qualifies; the caller supplies a
// fallback.
func ExtractTitle(text, urlFallback string) string {
	if title := titleFromSearchMarker(text); title != "" {
		return title
	}
	if title := titleFromURLQuery(urlFallback); title != "" {
		return title
	}
	if title := titleFromLines(text); title != "" {
		return title
	}
	return TitleFromHTML(text)
}

func titleFromSearchMarker(text string) string {
	m := searchResultRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	query := strings.TrimSpace(m[1])
	n := len([]rune(query))
	if n < 1 || n > maxQueryTitleLen {
		return ""
	}
	return titleCaser.String(query) + titleSuffix
}

func titleFromURLQuery(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	values := u.Query()
	for _, key := range []string{"s", "q", "search"} {
		q := strings.TrimSpace(values.Get(key))
		n := len([]rune(q))
		if n >= 1 && n <= maxQueryTitleLen {
			return titleCaser.String(q) + titleSuffix
		}
	}
	return ""
}

func titleFromLines(text string) string {
	for _, line := range strings.Split(text, "\n") {
		candidate := strings.TrimSpace(strings.TrimLeft(line, "*# \t"))
		n := len([]rune(candidate))
		if n < minTitleLineLen || n > maxTitleLineLen {
			continue
		}
		if strings.HasPrefix(candidate, "<") {
			// Markup line; the HTML fallback handles these documents.
			continue
		}
		lower := strings.ToLower(candidate)
		if hasNoisePrefix(lower) {
			continue
		}
		if !containsLetter(candidate) {
			continue
		}
		if _, nav := navLabels[lower]; nav {
			continue
		}
		return candidate
	}
	return ""
}

func hasNoisePrefix(lower string) bool {
	for _, prefix := range noisePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// TitleFromTopics builds a display title from matched topic names when no
// title could be extracted from the page itself.
func TitleFromTopics(topics []string) string {
	switch len(topics) {
	case 0:
		return ""
	case 1:
		return "Novidades sobre " + topics[0]
	case 2:
		return topics[0] + " e " + topics[1]
	default:
		return topics[0] + ", " + topics[1] + " e mais"
	}
}

// NormalizeTitle is the soft-uniqueness key for themes: lowercased,
// whitespace-collapsed, truncated to 80 characters.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))
	runes := []rune(normalized)
	if len(runes) > 80 {
		normalized = string(runes[:80])
	}
	return normalized
}

// DedupKey identifies a theme for duplicate detection within and across
// generation runs.
func DedupKey(pageURL, title string) string {
	return pageURL + "|" + NormalizeTitle(title)
}
