package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TitleFromHTML pulls a title out of markup content. Some crawl results come
// back as raw HTML instead of readable text; in that case the document's
// <title> or first <h1> is the best candidate left. Non-HTML input returns
// the empty string.
func TitleFromHTML(content string) string {
	if !looksLikeHTML(content) {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return ""
	}

	if title := cleanHTMLTitle(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return cleanHTMLTitle(doc.Find("h1").First().Text())
}

func looksLikeHTML(content string) bool {
	head := strings.ToLower(content)
	if len(head) > 512 {
		head = head[:512]
	}
	return strings.Contains(head, "<html") ||
		strings.Contains(head, "<title") ||
		strings.Contains(head, "<!doctype html")
}

func cleanHTMLTitle(raw string) string {
	title := strings.Join(strings.Fields(raw), " ")
	// Drop the site-name tail many CMSes append ("Article | Site").
	for _, sep := range []string{" | ", " - ", " – "} {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
			break
		}
	}
	n := len([]rune(title))
	if n < 1 || n > maxTitleLineLen {
		return ""
	}
	return title
}
