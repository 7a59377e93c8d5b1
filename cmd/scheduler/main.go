package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/verdesa/theme-agent/internal/agent/generator"
	"github.com/verdesa/theme-agent/internal/agent/queue"
	"github.com/verdesa/theme-agent/internal/api"
	"github.com/verdesa/theme-agent/internal/config"
	"github.com/verdesa/theme-agent/internal/journal"
	"github.com/verdesa/theme-agent/internal/server"
	"github.com/verdesa/theme-agent/pkg/logger"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "theme-scheduler",
		Short: "Background scheduler for the theme agent",
		Long: `Runs scheduled theme generation and dispatch-status polling in the
background, with an embedded status server. Run as a service for
autonomous operation.`,
		RunE: runScheduler,
	}

	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
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

	log.Info().Msg("Starting theme agent scheduler")

	// Open the run journal
	jrnl, err := journal.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open run journal: %w", err)
	}
	defer jrnl.Close()

	if err := jrnl.Migrate(); err != nil {
		return fmt.Errorf("failed to run journal migrations: %w", err)
	}

	// Initialize rate limiter and backend client
	limiter := ratelimit.NewDefaultLimiter()
	if cfg.RateLimit.APIRequestsPerSecond > 0 {
		limiter.AddLimiter(ratelimit.LimiterAPI, cfg.RateLimit.APIRequestsPerSecond, 20)
	}
	if cfg.RateLimit.CrawlRequestsPerSecond > 0 {
		limiter.AddLimiter(ratelimit.LimiterCrawl, cfg.RateLimit.CrawlRequestsPerSecond, 2)
	}
	client := api.NewClient(cfg.API, limiter, log)

	// Create agents
	genAgent := generator.NewAgent(client, jrnl, cfg.Generation.MinContentLength, log)
	poller := queue.NewStatusPoller(client, jrnl, log)

	// Start the embedded status server
	var statusServer *server.Server
	if cfg.Server.Enabled {
		statusServer = server.NewServer(client, genAgent, jrnl, cfg.Server.Port, cfg.Scheduler.GenerationCount, log)
		go func() {
			if err := statusServer.Start(); err != nil {
				log.Error().Err(err).Msg("Status server failed")
			}
		}()
	}

	// Create cron scheduler
	c := cron.New(cron.WithLogger(cronLogger{log}))

	// Schedule generation job
	_, err = c.AddFunc(cfg.Scheduler.GenerationCron, func() {
		ctx := context.Background()
		log.Info().Msg("Running scheduled generation")

		result, err := genAgent.Generate(ctx, cfg.Scheduler.GenerationCount, "cron")
		if err != nil {
			log.Error().Err(err).Msg("Scheduled generation failed")
			return
		}

		log.Info().
			Int("created", result.Created).
			Int("attempts", result.Attempts).
			Msg("Scheduled generation completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule generation job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.GenerationCron).Msg("Generation job scheduled")

	// Schedule dispatch-status polling job
	_, err = c.AddFunc(cfg.Scheduler.StatusPollCron, func() {
		ctx := context.Background()

		transitions, err := poller.Poll(ctx)
		if err != nil {
			log.Error().Err(err).Msg("Status poll failed")
			return
		}
		if transitions > 0 {
			log.Info().Int("transitions", transitions).Msg("Dispatch status transitions observed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule status poll job: %w", err)
	}
	log.Info().Str("cron", cfg.Scheduler.StatusPollCron).Msg("Status poll job scheduled")

	// Start scheduler
	c.Start()
	log.Info().Msg("Scheduler started")

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("Shutting down scheduler")
	c.Stop()

	if statusServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Status server shutdown failed")
		}
	}

	return nil
}

// cronLogger adapts our logger for cron
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Info().Msgf(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Msgf(msg, keysAndValues...)
}
