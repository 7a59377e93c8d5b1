package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verdesa/theme-agent/internal/agent/generator"
	"github.com/verdesa/theme-agent/internal/agent/queue"
	"github.com/verdesa/theme-agent/internal/api"
	"github.com/verdesa/theme-agent/internal/config"
	"github.com/verdesa/theme-agent/internal/journal"
	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/internal/suggest"
	"github.com/verdesa/theme-agent/pkg/logger"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	client  *api.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "theme-agent",
		Short: "Blog theme generation and dispatch agent",
		Long: `An agent that crawls configured source URLs, extracts candidate blog
themes by matching page text against known categories, and manages their
approval and dispatch to the automation webhook.`,
		PersistentPreRunE: initializeApp,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yaml)")

	// Add subcommands
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(themesCmd())
	rootCmd.AddCommand(runsCmd())
	rootCmd.AddCommand(crawlCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initializeApp(cmd *cobra.Command, args []string) error {
	var err error

	// Load config
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	client = api.NewClient(cfg.API, newLimiter(cfg), log)

	return nil
}

// newLimiter builds the shared limiter from config, falling back to the
// defaults for anything unset.
func newLimiter(cfg *config.Config) *ratelimit.MultiLimiter {
	limiter := ratelimit.NewDefaultLimiter()
	if cfg.RateLimit.APIRequestsPerSecond > 0 {
		limiter.AddLimiter(ratelimit.LimiterAPI, cfg.RateLimit.APIRequestsPerSecond, 20)
	}
	if cfg.RateLimit.CrawlRequestsPerSecond > 0 {
		limiter.AddLimiter(ratelimit.LimiterCrawl, cfg.RateLimit.CrawlRequestsPerSecond, 2)
	}
	return limiter
}

// openJournal opens the local run journal. A broken journal only degrades
// history, so callers may treat a nil return as acceptable.
func openJournal() *journal.Journal {
	jrnl, err := journal.Open(cfg.Database.DSN)
	if err != nil {
		log.Warn().Err(err).Msg("Run journal unavailable, continuing without it")
		return nil
	}
	if err := jrnl.Migrate(); err != nil {
		log.Warn().Err(err).Msg("Run journal migration failed, continuing without it")
		jrnl.Close()
		return nil
	}
	return jrnl
}

// ============ SOURCES COMMANDS ============

func sourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage the source URL registry",
	}

	cmd.AddCommand(sourcesListCmd())
	cmd.AddCommand(sourcesAddCmd())
	cmd.AddCommand(sourcesRemoveCmd())
	cmd.AddCommand(sourcesSuggestCmd())
	return cmd
}

func sourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured source URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			sources, err := client.ListSourceURLs(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Source URLs (%d) ===\n\n", len(sources))
			for _, src := range sources {
				fmt.Printf("[%d] %s\n", src.ID, src.DisplayName())
				fmt.Printf("    URL: %s\n", src.URL)
				fmt.Println()
			}

			return nil
		},
	}
}

func sourcesAddCmd() *cobra.Command {
	var url string
	var label string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a new source URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			src, err := client.CreateSourceURL(ctx, url, label)
			if err != nil {
				return err
			}

			fmt.Printf("Source URL %d added: %s\n", src.ID, src.URL)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "URL to crawl for themes (required)")
	cmd.Flags().StringVar(&label, "label", "", "Display label for the URL")
	cmd.MarkFlagRequired("url")

	return cmd
}

func sourcesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [id]",
		Short: "Remove a source URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := client.DeleteSourceURL(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Source URL %d removed\n", id)
			return nil
		},
	}
}

func sourcesSuggestCmd() *cobra.Command {
	var feedURL string
	var limit int
	var add bool

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest source URLs from an RSS/Atom feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if limit <= 0 {
				limit = cfg.Suggest.DefaultLimit
			}

			suggester := suggest.New(cfg.Suggest.MaxAgeDays, log)
			suggestions, err := suggester.FromFeed(ctx, feedURL, limit)
			if err != nil {
				return err
			}

			if len(suggestions) == 0 {
				fmt.Println("No recent entries found in the feed")
				return nil
			}

			fmt.Printf("\n=== Suggestions (%d) ===\n\n", len(suggestions))
			for i, s := range suggestions {
				fmt.Printf("[%d] %s\n", i+1, s.Title)
				fmt.Printf("    URL: %s\n", s.URL)
				if !s.PublishedAt.IsZero() {
					fmt.Printf("    Published: %s\n", s.PublishedAt.Format(time.RFC1123))
				}
				fmt.Println()
			}

			if add {
				for _, s := range suggestions {
					src, err := client.CreateSourceURL(ctx, s.URL, s.Title)
					if err != nil {
						fmt.Printf("  [ERROR] %s: %v\n", s.URL, err)
						continue
					}
					fmt.Printf("  Added source URL %d: %s\n", src.ID, src.URL)
				}
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&feedURL, "feed", "", "Feed URL to read suggestions from (required)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum suggestions to show")
	cmd.Flags().BoolVar(&add, "add", false, "Register all suggestions as source URLs")
	cmd.MarkFlagRequired("feed")

	return cmd
}

// ============ THEMES COMMANDS ============

func themesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "Manage the theme approval and dispatch queue",
	}

	cmd.AddCommand(themesListCmd())
	cmd.AddCommand(themesGenerateCmd())
	cmd.AddCommand(themesShowCmd())
	cmd.AddCommand(themesApproveCmd())
	cmd.AddCommand(themesUnapproveCmd())
	cmd.AddCommand(themesDeleteCmd())
	cmd.AddCommand(themesSendCmd())
	return cmd
}

func themeState(t *models.Theme) string {
	switch {
	case !t.Dispatched && !t.Approved:
		return "queued"
	case !t.Dispatched:
		return "approved"
	case t.DispatchStatus != "":
		return "dispatched/" + string(t.DispatchStatus)
	default:
		return "dispatched"
	}
}

func themesListCmd() *cobra.Command {
	var queuedOnly bool
	var dispatchedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List themes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			q := queue.NewQueue(client, log)

			var themes []models.Theme
			var err error
			switch {
			case queuedOnly:
				themes, err = q.Queued(ctx)
			case dispatchedOnly:
				themes, err = q.Dispatched(ctx)
			default:
				themes, err = client.ListThemes(ctx)
			}
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Themes (%d) ===\n\n", len(themes))
			for i := range themes {
				t := &themes[i]
				fmt.Printf("[%d] %s | %s\n", t.ID, themeState(t), t.Title)
				fmt.Printf("    URL: %s\n", t.URL)
				if len(t.Topics) > 0 {
					fmt.Printf("    Topics: %s\n", strings.Join(t.Topics, ", "))
				}
				fmt.Printf("    Created: %s\n", t.CreatedAt.Format(time.RFC1123))
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&queuedOnly, "queued", false, "Show only non-dispatched themes")
	cmd.Flags().BoolVar(&dispatchedOnly, "dispatched", false, "Show only dispatched themes")

	return cmd
}

func themesGenerateCmd() *cobra.Command {
	var quantity int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run a theme generation pass over the source URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			if quantity <= 0 {
				quantity = cfg.Generation.DefaultQuantity
			}

			jrnl := openJournal()
			if jrnl != nil {
				defer jrnl.Close()
			}

			agent := generator.NewAgent(client, jrnl, cfg.Generation.MinContentLength, log)

			result, err := agent.Generate(ctx, quantity, "cli")
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generation Results ===\n")
			fmt.Printf("Requested:      %d\n", result.Requested)
			fmt.Printf("Created:        %d\n", result.Created)
			fmt.Printf("Attempts:       %d\n", result.Attempts)
			fmt.Printf("Skipped (thin): %d\n", result.SkippedThin)
			fmt.Printf("Skipped (dupe): %d\n", result.SkippedDupes)
			fmt.Printf("Duration:       %s\n", result.Duration)
			fmt.Printf("\n%s\n", result.Message())

			if len(result.Errors) > 0 {
				fmt.Printf("\nErrors:\n")
				for _, e := range result.Errors {
					fmt.Printf("  - %s\n", e)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&quantity, "quantity", 0, "Number of themes to generate (1-50)")

	return cmd
}

func themesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show a theme in full, including its content",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			theme, err := queue.NewQueue(client, log).Get(ctx, id)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Theme %d ===\n", theme.ID)
			fmt.Printf("State:      %s\n", themeState(theme))
			fmt.Printf("Title:      %s\n", theme.Title)
			fmt.Printf("URL:        %s\n", theme.URL)
			if len(theme.CategoryNames) > 0 {
				fmt.Printf("Categories: %s\n", strings.Join(theme.CategoryNames, ", "))
			}
			if len(theme.Topics) > 0 {
				fmt.Printf("Topics:     %s\n", strings.Join(theme.Topics, ", "))
			}
			fmt.Printf("Created:    %s\n", theme.CreatedAt.Format(time.RFC1123))
			if theme.ApprovedAt != nil {
				fmt.Printf("Approved:   %s\n", theme.ApprovedAt.Format(time.RFC1123))
			}
			if theme.DispatchedAt != nil {
				fmt.Printf("Dispatched: %s\n", theme.DispatchedAt.Format(time.RFC1123))
			}
			if theme.Content != "" {
				fmt.Printf("\n--- Content ---\n%s\n", theme.Content)
			}

			return nil
		},
	}
}

func themesApproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "approve [id]",
		Short: "Approve a theme for dispatch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := queue.NewQueue(client, log).Approve(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Theme %d approved\n", id)
			return nil
		},
	}
}

func themesUnapproveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unapprove [id]",
		Short: "Send an approved theme back to the queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := queue.NewQueue(client, log).Unapprove(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Theme %d unapproved\n", id)
			return nil
		},
	}
}

func themesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a non-dispatched theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			if err := queue.NewQueue(client, log).Delete(ctx, id); err != nil {
				return err
			}

			fmt.Printf("Theme %d deleted\n", id)
			return nil
		},
	}
}

func themesSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send [id]...",
		Short: "Dispatch approved themes to the automation webhook",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			q := queue.NewQueue(client, log)

			var result *queue.SendResult
			var err error

			if len(args) == 1 {
				var id uint
				id, err = parseID(args[0])
				if err != nil {
					return err
				}
				result, err = q.SendOne(ctx, id)
			} else {
				for _, arg := range args {
					id, perr := parseID(arg)
					if perr != nil {
						return perr
					}
					if serr := q.Select(ctx, id); serr != nil {
						return serr
					}
				}
				result, err = q.SendSelected(ctx)
			}

			if err != nil {
				return err
			}

			fmt.Printf("Dispatched %d theme(s) to the automation webhook\n", len(result.DispatchedIDs))
			if result.Body != "" {
				fmt.Printf("Webhook response: %s\n", result.Body)
			}

			return nil
		},
	}
}

// ============ RUNS COMMANDS ============

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the local generation-run journal",
	}

	cmd.AddCommand(runsListCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			jrnl := openJournal()
			if jrnl == nil {
				return fmt.Errorf("run journal is unavailable")
			}
			defer jrnl.Close()

			runs, err := jrnl.ListRuns(ctx, limit)
			if err != nil {
				return err
			}

			fmt.Printf("\n=== Generation Runs (%d) ===\n\n", len(runs))
			for _, run := range runs {
				fmt.Printf("[%d] %s | by %s\n", run.ID, run.StartedAt.Format(time.RFC1123), run.TriggeredBy)
				fmt.Printf("    Requested: %d | Created: %d | Attempts: %d\n", run.Requested, run.Created, run.Attempts)
				fmt.Printf("    Skipped: %d thin, %d duplicate | Duration: %s\n", run.SkippedThin, run.SkippedDupes, run.Duration)
				for _, e := range run.Errors {
					fmt.Printf("    Error: %s\n", e)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to show")

	return cmd
}

// ============ CRAWL COMMANDS ============

func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl provider utilities",
	}

	cmd.AddCommand(crawlCheckCmd())
	return cmd
}

func crawlCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check whether the crawl provider is configured on the backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			configured, err := client.CrawlConfigured(ctx)
			if err != nil {
				return err
			}

			if configured {
				fmt.Println("Crawl provider is configured - generation is available")
			} else {
				fmt.Println("Crawl provider is NOT configured - set the provider API key on the backend")
			}

			return nil
		},
	}
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid theme or source id %q", arg)
	}
	return uint(id), nil
}
