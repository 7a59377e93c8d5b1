package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// StringSlice is a custom type for storing string arrays in JSON
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	return json.Marshal(s)
}

func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = nil
		return nil
	}
	return json.Unmarshal(value.([]byte), s)
}

// GenerationRun is the journal record of one orchestrator pass. It is the
// only data the agent keeps locally; themes themselves live in the backend.
type GenerationRun struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	TriggeredBy  string        `gorm:"index" json:"triggered_by"` // cli, cron, http
	Requested    int           `json:"requested"`
	Created      int           `json:"created"`
	Attempts     int           `json:"attempts"`
	SkippedThin  int           `json:"skipped_thin"`
	SkippedDupes int           `json:"skipped_dupes"`
	Errors       StringSlice   `gorm:"type:json" json:"errors"`
	Duration     time.Duration `json:"duration"`
	StartedAt    time.Time     `gorm:"autoCreateTime" json:"started_at"`
}

// StatusEvent records an observed dispatch-status transition during polling.
// The backend drives these transitions; the agent only watches.
type StatusEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ThemeID    uint      `gorm:"index" json:"theme_id"`
	ThemeTitle string    `json:"theme_title"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ObservedAt time.Time `gorm:"autoCreateTime" json:"observed_at"`
}
