// Package generator implements the theme generation orchestrator: it walks
// the source URL registry round-robin, crawls each target, matches page text
// against the blog category vocabulary, and persists deduplicated theme
// candidates until the requested quantity is reached or attempts run out.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/verdesa/theme-agent/internal/extract"
	"github.com/verdesa/theme-agent/internal/journal"
	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/logger"
)

const (
	minQuantity = 1
	maxQuantity = 50

	// extraRounds gives every source URL a few more chances beyond the
	// minimum number of passes needed to reach the quantity. Together with
	// the per-round attempt count this caps total crawl calls, so a registry
	// full of unmatchable pages still terminates.
	extraRounds = 2
)

// Backend is the slice of the REST API the orchestrator needs.
type Backend interface {
	CrawlConfigured(ctx context.Context) (bool, error)
	Crawl(ctx context.Context, url string) (*models.CrawlResponse, error)
	ListSourceURLs(ctx context.Context) ([]models.SourceURL, error)
	ListCategories(ctx context.Context) ([]models.BlogCategory, error)
	ListThemes(ctx context.Context) ([]models.Theme, error)
	CreateTheme(ctx context.Context, theme models.NewTheme) (*models.Theme, error)
}

// Agent runs theme generation passes
type Agent struct {
	backend    Backend
	journal    *journal.Journal
	minContent int
	log        *logger.Logger
}

// NewAgent creates a new generation agent. The journal may be nil; runs are
// then not recorded locally.
func NewAgent(backend Backend, jrnl *journal.Journal, minContentLength int, log *logger.Logger) *Agent {
	if minContentLength <= 0 {
		minContentLength = 50
	}
	return &Agent{
		backend:    backend,
		journal:    jrnl,
		minContent: minContentLength,
		log:        log.WithComponent("generator"),
	}
}

// Result contains the outcome of a generation run
type Result struct {
	Requested    int
	Created      int
	Attempts     int
	SkippedThin  int
	SkippedDupes int
	Errors       []error
	Duration     time.Duration
}

// Message renders the user-facing outcome line. A run that created nothing
// is reported distinctly from a hard failure: it completed, the sources just
// yielded nothing new.
func (r *Result) Message() string {
	if r.Created == 0 {
		return "no new themes found - the source URLs yielded no unmatched content this pass"
	}
	return fmt.Sprintf("created %d new theme(s)", r.Created)
}

// Generate runs one generation pass. quantity is clamped to [1, 50].
// Precondition failures (no sources, no categories, crawl provider not
// configured) return an error before any crawl call is made; per-URL crawl
// failures are recorded in the result but do not abort the run.
func (a *Agent) Generate(ctx context.Context, quantity int, triggeredBy string) (*Result, error) {
	startTime := time.Now()

	if quantity < minQuantity {
		quantity = minQuantity
	}
	if quantity > maxQuantity {
		quantity = maxQuantity
	}
	result := &Result{Requested: quantity}

	configured, err := a.backend.CrawlConfigured(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check crawl provider: %w", err)
	}
	if !configured {
		return nil, fmt.Errorf("crawl provider is not configured on the backend")
	}

	sources, err := a.backend.ListSourceURLs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load source URLs: %w", err)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no source URLs configured - register at least one before generating")
	}

	categories, err := a.backend.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load blog categories: %w", err)
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("no blog categories available - themes need a matching vocabulary")
	}

	// Dedup is re-derived from a fresh load every run; the backend is the
	// single source of truth and local state may be stale.
	existing, err := a.backend.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing themes: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for i := range existing {
		seen[extract.DedupKey(existing[i].URL, existing[i].Title)] = struct{}{}
	}

	maxRounds := (quantity+len(sources)-1)/len(sources) + extraRounds
	maxAttempts := maxRounds * len(sources)

	a.log.Info().
		Int("quantity", quantity).
		Int("source_urls", len(sources)).
		Int("max_attempts", maxAttempts).
		Msg("Starting theme generation")

	for attempts := 0; result.Created < quantity && attempts < maxAttempts; attempts++ {
		result.Attempts = attempts + 1
		src := sources[attempts%len(sources)]

		crawl, err := a.backend.Crawl(ctx, src.URL)
		if err != nil {
			// One dead URL must not kill the whole pass.
			a.log.Warn().Err(err).Str("url", src.URL).Msg("Crawl failed, moving to next source")
			result.Errors = append(result.Errors, fmt.Errorf("crawl %s: %w", src.URL, err))
			continue
		}

		for i := range crawl.Results {
			page := &crawl.Results[i]
			if a.considerPage(ctx, page, src, categories, seen, result) {
				result.Created++
				if result.Created == quantity {
					break
				}
			}
		}
	}

	result.Duration = time.Since(startTime)
	a.recordRun(ctx, triggeredBy, result)

	a.log.Info().
		Int("created", result.Created).
		Int("attempts", result.Attempts).
		Int("skipped_thin", result.SkippedThin).
		Int("skipped_dupes", result.SkippedDupes).
		Dur("duration", result.Duration).
		Msg("Generation completed")

	return result, nil
}

// considerPage evaluates one crawl result and persists it when it
// qualifies. Reports whether a theme was created.
func (a *Agent) considerPage(
	ctx context.Context,
	page *models.CrawlResult,
	src models.SourceURL,
	categories []models.BlogCategory,
	seen map[string]struct{},
	result *Result,
) bool {
	if page.RawContent == "" {
		// Expected for a fraction of pages, not an error.
		return false
	}

	text := extract.DisplayText(page)
	if len([]rune(text)) < a.minContent {
		result.SkippedThin++
		return false
	}

	topics := extract.MatchCategories(text, categories)
	categoryIDs := resolveCategoryIDs(topics, categories)
	if len(categoryIDs) == 0 {
		// No category matched: fall back to the registry's first category so
		// every theme carries at least one.
		a.log.Debug().Str("url", page.URL).Msg("No category matched, tagging with first category")
		categoryIDs = []uint{categories[0].ID}
	}

	title := extract.ExtractTitle(text, page.URL)
	if title == "" {
		title = extract.TitleFromTopics(topics)
	}

	pageURL := page.URL
	if pageURL == "" {
		pageURL = src.URL
	}

	key := extract.DedupKey(pageURL, title)
	if _, dup := seen[key]; dup {
		result.SkippedDupes++
		return false
	}

	theme := models.NewTheme{
		URL:             pageURL,
		Title:           title,
		BlogCategoryIDs: categoryIDs,
		Content:         extract.ContentFromCrawl(page),
		Topics:          topics,
	}
	if _, err := a.backend.CreateTheme(ctx, theme); err != nil {
		a.log.Warn().Err(err).Str("url", pageURL).Msg("Failed to persist theme")
		result.Errors = append(result.Errors, fmt.Errorf("create theme for %s: %w", pageURL, err))
		return false
	}

	seen[key] = struct{}{}
	a.log.Info().Str("url", pageURL).Str("title", title).Strs("topics", topics).Msg("Theme created")
	return true
}

// resolveCategoryIDs maps matched category names back to their ids,
// preserving the matched (sorted) order.
func resolveCategoryIDs(names []string, categories []models.BlogCategory) []uint {
	if len(names) == 0 {
		return nil
	}
	byName := make(map[string]uint, len(categories))
	for _, cat := range categories {
		if _, ok := byName[cat.Name]; !ok {
			byName[cat.Name] = cat.ID
		}
	}
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func (a *Agent) recordRun(ctx context.Context, triggeredBy string, result *Result) {
	if a.journal == nil {
		return
	}
	errs := make(models.StringSlice, 0, len(result.Errors))
	for _, e := range result.Errors {
		errs = append(errs, e.Error())
	}
	run := &models.GenerationRun{
		TriggeredBy:  triggeredBy,
		Requested:    result.Requested,
		Created:      result.Created,
		Attempts:     result.Attempts,
		SkippedThin:  result.SkippedThin,
		SkippedDupes: result.SkippedDupes,
		Errors:       errs,
		Duration:     result.Duration,
	}
	if err := a.journal.RecordRun(ctx, run); err != nil {
		a.log.Warn().Err(err).Msg("Failed to record run in journal")
	}
}
