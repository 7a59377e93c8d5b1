// Package suggest proposes new source URLs from an RSS or Atom feed, as an
// admin convenience for growing the source URL registry.
package suggest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/verdesa/theme-agent/pkg/logger"
)

// Suggestion is a candidate source URL taken from a feed entry.
type Suggestion struct {
	URL         string
	Title       string
	PublishedAt time.Time
}

// Suggester parses feeds into source URL candidates
type Suggester struct {
	parser *gofeed.Parser
	maxAge time.Duration
	log    *logger.Logger
}

// New creates a suggester. Entries older than maxAgeDays are skipped;
// zero disables the age filter.
func New(maxAgeDays int, log *logger.Logger) *Suggester {
	var maxAge time.Duration
	if maxAgeDays > 0 {
		maxAge = time.Duration(maxAgeDays) * 24 * time.Hour
	}
	return &Suggester{
		parser: gofeed.NewParser(),
		maxAge: maxAge,
		log:    log.WithComponent("suggest"),
	}
}

// FromFeed fetches a feed and returns up to limit entry links as candidate
// source URLs, newest first as the feed lists them. Entries without a link
// and duplicate links are skipped.
func (s *Suggester) FromFeed(ctx context.Context, feedURL string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}

	s.log.Debug().Str("feed", feedURL).Msg("Fetching feed for suggestions")

	feed, err := s.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	seen := make(map[string]struct{}, len(feed.Items))
	suggestions := make([]Suggestion, 0, limit)

	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}
		if _, dup := seen[link]; dup {
			continue
		}

		publishedAt := time.Time{}
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
			if s.maxAge > 0 && time.Since(publishedAt) > s.maxAge {
				continue
			}
		}

		seen[link] = struct{}{}
		suggestions = append(suggestions, Suggestion{
			URL:         link,
			Title:       cleanTitle(item.Title),
			PublishedAt: publishedAt,
		})
		if len(suggestions) == limit {
			break
		}
	}

	s.log.Info().
		Int("count", len(suggestions)).
		Str("feed", feedURL).
		Msg("Collected source URL suggestions")

	return suggestions, nil
}

// cleanTitle strips markup and collapses whitespace in a feed entry title.
func cleanTitle(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}
