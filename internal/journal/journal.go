// Package journal keeps a local record of generation runs and observed
// dispatch-status transitions. Themes themselves live in the remote backend;
// this is agent-side operational telemetry only.
package journal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/verdesa/theme-agent/internal/models"
)

// Journal is the local run journal backed by SQLite
type Journal struct {
	db *gorm.DB
}

// Open creates or opens the journal database
func Open(dsn string) (*Journal, error) {
	// Ensure directory exists
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}

	return &Journal{db: db}, nil
}

// Migrate runs database migrations
func (j *Journal) Migrate() error {
	return j.db.AutoMigrate(
		&models.GenerationRun{},
		&models.StatusEvent{},
	)
}

// Close closes the database connection
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// RecordRun saves a completed generation run
func (j *Journal) RecordRun(ctx context.Context, run *models.GenerationRun) error {
	return j.db.WithContext(ctx).Create(run).Error
}

// ListRuns returns the most recent runs, newest first
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]*models.GenerationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []*models.GenerationRun
	err := j.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// LastRun returns the most recent run, or nil when none exist
func (j *Journal) LastRun(ctx context.Context) (*models.GenerationRun, error) {
	var run models.GenerationRun
	err := j.db.WithContext(ctx).Order("started_at DESC").First(&run).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// RecordStatusEvent saves an observed dispatch-status transition
func (j *Journal) RecordStatusEvent(ctx context.Context, event *models.StatusEvent) error {
	return j.db.WithContext(ctx).Create(event).Error
}

// ListStatusEvents returns recent transitions, newest first
func (j *Journal) ListStatusEvents(ctx context.Context, limit int) ([]*models.StatusEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []*models.StatusEvent
	err := j.db.WithContext(ctx).
		Order("observed_at DESC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}
