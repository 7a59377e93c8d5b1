package models

import (
	"time"
)

// SourceURL is an admin-curated crawl target kept in the backend's registry.
// The generation orchestrator walks these in Order, round-robin.
type SourceURL struct {
	ID        uint      `json:"id"`
	URL       string    `json:"url"`
	Label     string    `json:"label"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the label when set, otherwise the raw URL.
func (s *SourceURL) DisplayName() string {
	if s.Label != "" {
		return s.Label
	}
	return s.URL
}

// BlogCategory is the matching vocabulary for theme generation. Read-only
// from the agent's perspective.
type BlogCategory struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}
