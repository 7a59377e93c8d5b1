package models

import (
	"time"
)

// DispatchStatus represents the automation-side state of a dispatched theme.
// It is only meaningful once Dispatched is true; before dispatch the backend
// reports it as null, which decodes to the empty string.
type DispatchStatus string

const (
	DispatchStatusProcessing DispatchStatus = "processing"
	DispatchStatusCompleted  DispatchStatus = "completed"
	DispatchStatusFailed     DispatchStatus = "failed"
)

// Theme represents a candidate blog topic derived from a crawled page. It is
// owned by the remote backend; this agent only reads and mutates it over HTTP.
type Theme struct {
	ID              uint           `json:"id"`
	URL             string         `json:"url"`
	Title           string         `json:"title"`
	BlogCategoryIDs []uint         `json:"blog_category_ids"`
	CategoryNames   []string       `json:"category_names"`
	Content         string         `json:"content"`
	Topics          []string       `json:"topics"`
	Approved        bool           `json:"approved"`
	ApprovedAt      *time.Time     `json:"approved_at"`
	Dispatched      bool           `json:"dispatched"`
	DispatchedAt    *time.Time     `json:"dispatched_at"`
	DispatchStatus  DispatchStatus `json:"dispatch_status"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Sendable reports whether the theme may be handed to the automation webhook.
func (t *Theme) Sendable() bool {
	return t.Approved && !t.Dispatched
}

// Queued reports whether the theme is still awaiting dispatch.
func (t *Theme) Queued() bool {
	return !t.Dispatched
}

// NewTheme holds the fields the agent supplies when creating a theme.
type NewTheme struct {
	URL             string   `json:"url"`
	Title           string   `json:"title,omitempty"`
	BlogCategoryIDs []uint   `json:"blog_category_ids,omitempty"`
	Content         string   `json:"content,omitempty"`
	Topics          []string `json:"topics,omitempty"`
}
