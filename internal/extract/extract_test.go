package extract

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdesa/theme-agent/internal/models"
)

func TestDisplayText(t *testing.T) {
	t.Run("nil result", func(t *testing.T) {
		assert.Equal(t, "", DisplayText(nil))
	})

	t.Run("raw_content wins", func(t *testing.T) {
		r := &models.CrawlResult{RawContent: "raw", Text: "text", Content: "content", Markdown: "md"}
		assert.Equal(t, "raw", DisplayText(r))
	})

	t.Run("field priority order", func(t *testing.T) {
		assert.Equal(t, "text", DisplayText(&models.CrawlResult{Text: "text", Content: "content", Markdown: "md"}))
		assert.Equal(t, "content", DisplayText(&models.CrawlResult{Content: "content", Markdown: "md"}))
		assert.Equal(t, "md", DisplayText(&models.CrawlResult{Markdown: "md"}))
	})

	t.Run("json fallback when no text fields", func(t *testing.T) {
		r := &models.CrawlResult{Raw: map[string]interface{}{"snippet": "hello"}}
		got := DisplayText(r)
		assert.Contains(t, got, `"snippet"`)
		assert.Contains(t, got, `"hello"`)
	})

	t.Run("empty result", func(t *testing.T) {
		assert.Equal(t, "", DisplayText(&models.CrawlResult{}))
	})
}

func TestContentFromCrawl(t *testing.T) {
	assert.Equal(t, "", ContentFromCrawl(nil))
	assert.Equal(t, "raw", ContentFromCrawl(&models.CrawlResult{RawContent: "raw", Markdown: "md"}))
	// Markdown beats content and text here, unlike DisplayText.
	assert.Equal(t, "md", ContentFromCrawl(&models.CrawlResult{Markdown: "md", Content: "content", Text: "text"}))
	assert.Equal(t, "content", ContentFromCrawl(&models.CrawlResult{Content: "content", Text: "text"}))
	assert.Equal(t, "text", ContentFromCrawl(&models.CrawlResult{Text: "text"}))
}

func TestMatchCategories(t *testing.T) {
	categories := []models.BlogCategory{
		{ID: 1, Name: "Chia", Slug: "chia"},
		{ID: 2, Name: "Organic", Slug: "organic"},
		{ID: 3, Name: "Quinoa", Slug: "quinoa"},
	}

	t.Run("single page with two hits, alphabetical", func(t *testing.T) {
		text := "Our chia seeds are organic and sustainably sourced. Copyright 2024 Acme."
		got := MatchCategories(text, categories)
		assert.Equal(t, []string{"Chia", "Organic"}, got)
	})

	t.Run("empty inputs", func(t *testing.T) {
		assert.Empty(t, MatchCategories("", categories))
		assert.Empty(t, MatchCategories("chia everywhere", nil))
	})

	t.Run("idempotent and order stable", func(t *testing.T) {
		text := "quinoa bowls with chia and organic greens"
		first := MatchCategories(text, categories)
		second := MatchCategories(text, categories)
		assert.Equal(t, first, second)
	})

	t.Run("footer marker cuts the window", func(t *testing.T) {
		text := "All about chia pudding recipes. Copyright 2024. Organic certification details below."
		got := MatchCategories(text, categories)
		assert.Equal(t, []string{"Chia"}, got)
		assert.NotContains(t, got, "Organic")
	})

	t.Run("every footer marker truncates", func(t *testing.T) {
		for _, marker := range []string{"All Rights Reserved", "Subscribe to our", "NEWSLETTER", "Follow us on", "Privacy Policy", "Terms of Use"} {
			text := "chia is great. " + marker + " organic farming association"
			got := MatchCategories(text, categories)
			assert.Equal(t, []string{"Chia"}, got, "marker %q", marker)
		}
	})

	t.Run("match beyond 14k window ignored", func(t *testing.T) {
		text := strings.Repeat("x", 14200) + " organic"
		assert.Empty(t, MatchCategories(text, categories))
	})

	t.Run("slug with hyphens replaced by spaces", func(t *testing.T) {
		cats := []models.BlogCategory{{ID: 9, Name: "Açaí Berry", Slug: "acai-berry"}}
		assert.Equal(t, []string{"Açaí Berry"}, MatchCategories("fresh acai berry bowls daily", cats))
		assert.Equal(t, []string{"Açaí Berry"}, MatchCategories("tagged acai-berry on the menu", cats))
	})

	t.Run("trailing s stripped from name", func(t *testing.T) {
		cats := []models.BlogCategory{{ID: 4, Name: "Seeds"}}
		assert.Equal(t, []string{"Seeds"}, MatchCategories("cold-pressed seed oil benefits", cats))
	})

	t.Run("short plural name not stripped", func(t *testing.T) {
		// "As" is too short for singularization; only exact matching applies.
		cats := []models.BlogCategory{{ID: 5, Name: "As"}}
		assert.Empty(t, MatchCategories("quinoa bowl menu", cats))
	})

	t.Run("duplicate category names reported once", func(t *testing.T) {
		cats := []models.BlogCategory{{ID: 1, Name: "Chia"}, {ID: 7, Name: "Chia"}}
		assert.Equal(t, []string{"Chia"}, MatchCategories("chia chia chia", cats))
	})
}

func TestExtractTitle_SearchMarker(t *testing.T) {
	t.Run("quoted query wins regardless of other content", func(t *testing.T) {
		text := "Navigation\nSign in\nResult for \"chia seeds\"\nSome long article line that would otherwise match fine."
		assert.Equal(t, "Chia Seeds: Latest News and Trends", ExtractTitle(text, ""))
	})

	t.Run("case insensitive marker", func(t *testing.T) {
		assert.Equal(t, "Cacau: Latest News and Trends", ExtractTitle(`RESULT FOR 'cacau'`, ""))
	})

	t.Run("curly quotes", func(t *testing.T) {
		assert.Equal(t, "Maca Root: Latest News and Trends", ExtractTitle("Result for “maca root”", ""))
	})

	t.Run("query too long falls through", func(t *testing.T) {
		long := strings.Repeat("a", 90)
		got := ExtractTitle(`Result for "`+long+`"`, "")
		assert.NotContains(t, got, "Latest News and Trends")
	})
}

func TestExtractTitle_URLQuery(t *testing.T) {
	t.Run("s parameter", func(t *testing.T) {
		got := ExtractTitle("short text", "https://news.example.com/?s=golden+berries")
		assert.Equal(t, "Golden Berries: Latest News and Trends", got)
	})

	t.Run("q parameter with percent encoding", func(t *testing.T) {
		got := ExtractTitle("", "https://example.com/search?q=a%C3%A7a%C3%AD")
		assert.Equal(t, "Açaí: Latest News and Trends", got)
	})

	t.Run("search parameter", func(t *testing.T) {
		got := ExtractTitle("", "https://example.com/find?search=spirulina")
		assert.Equal(t, "Spirulina: Latest News and Trends", got)
	})

	t.Run("marker in text beats url query", func(t *testing.T) {
		got := ExtractTitle(`Result for "chia"`, "https://example.com/?s=quinoa")
		assert.Equal(t, "Chia: Latest News and Trends", got)
	})

	t.Run("unparseable url ignored", func(t *testing.T) {
		assert.Equal(t, "", ExtractTitle("", "://not-a-url"))
	})
}

func TestExtractTitle_LineScan(t *testing.T) {
	t.Run("first surviving line", func(t *testing.T) {
		text := strings.Join([]string{
			"Menu",
			"Sign in to your account now",
			"Subscribe to our daily digest",
			"2024-01-01 10:00",
			"  * Superfood exports reach record volumes in Latin America",
			"Another acceptable line that comes later in the page",
		}, "\n")
		assert.Equal(t, "Superfood exports reach record volumes in Latin America", ExtractTitle(text, ""))
	})

	t.Run("short and long lines skipped", func(t *testing.T) {
		text := "Tiny line\n" + strings.Repeat("long ", 40) + "\nA headline of a reasonable length here"
		assert.Equal(t, "A headline of a reasonable length here", ExtractTitle(text, ""))
	})

	t.Run("digit punctuation only lines skipped", func(t *testing.T) {
		text := "123456 — 789 / 2024!!!\nActual story about quinoa farming"
		assert.Equal(t, "Actual story about quinoa farming", ExtractTitle(text, ""))
	})

	t.Run("noise prefixes skipped", func(t *testing.T) {
		for _, noise := range []string{
			"Cookie preferences and consent settings",
			"Privacy policy updated for 2024 season",
			"Login or create a new account here",
			"Copyright 2024 Example Media Group",
		} {
			text := noise + "\nReal headline about cacao harvests"
			assert.Equal(t, "Real headline about cacao harvests", ExtractTitle(text, ""), "noise %q", noise)
		}
	})

	t.Run("nothing qualifies returns empty", func(t *testing.T) {
		assert.Equal(t, "", ExtractTitle("Menu\nHome\n2024", ""))
		assert.Equal(t, "", ExtractTitle("", ""))
	})
}

func TestExtractTitle_HTMLFallback(t *testing.T) {
	html := `<!DOCTYPE html><html><head><title>Camu Camu vitamin study | Verdesa News</title></head><body><h1>Ignored</h1></body></html>`
	assert.Equal(t, "Camu Camu vitamin study", ExtractTitle(html, ""))

	h1Only := `<html><head></head><body><h1>Lucuma powder demand grows</h1></body></html>`
	assert.Equal(t, "Lucuma powder demand grows", ExtractTitle(h1Only, ""))
}

func TestTitleFromTopics(t *testing.T) {
	assert.Equal(t, "", TitleFromTopics(nil))
	assert.Equal(t, "Novidades sobre Chia", TitleFromTopics([]string{"Chia"}))
	assert.Equal(t, "Chia e Organic", TitleFromTopics([]string{"Chia", "Organic"}))
	assert.Equal(t, "Chia, Organic e mais", TitleFromTopics([]string{"Chia", "Organic", "Quinoa"}))
}

func TestNormalizeTitle(t *testing.T) {
	assert.Equal(t, "chia seeds on the rise", NormalizeTitle("  Chia   Seeds\ton the RISE "))

	long := strings.Repeat("ab", 60)
	require.Greater(t, len(long), 80)
	assert.Len(t, []rune(NormalizeTitle(long)), 80)

	// Same normalized form means same dedup key.
	assert.Equal(t,
		DedupKey("https://x.test/a", "Chia  Seeds"),
		DedupKey("https://x.test/a", "chia seeds"))
	assert.NotEqual(t,
		DedupKey("https://x.test/a", "chia seeds"),
		DedupKey("https://x.test/b", "chia seeds"))
}
