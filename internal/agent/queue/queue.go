// Package queue manages the approval and dispatch lifecycle of generated
// themes: listing the non-dispatched backlog, flipping approval, maintaining
// a selection set, and handing approved themes to the automation webhook.
package queue

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/verdesa/theme-agent/internal/api"
	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/logger"
)

// Backend is the slice of the REST API the queue needs.
type Backend interface {
	ListThemes(ctx context.Context) ([]models.Theme, error)
	ApproveTheme(ctx context.Context, id uint) error
	UnapproveTheme(ctx context.Context, id uint) error
	DeleteTheme(ctx context.Context, id uint) error
	Dispatch(ctx context.Context, ids []uint) (*api.DispatchResult, error)
}

// Queue is the approval and dispatch service. The backend's theme records are
// the single source of truth; every mutating call is followed by a fresh load
// rather than patching local state.
type Queue struct {
	backend Backend
	log     *logger.Logger

	mu       sync.Mutex
	selected map[uint]struct{}
}

// NewQueue creates a new approval queue service
func NewQueue(backend Backend, log *logger.Logger) *Queue {
	return &Queue{
		backend:  backend,
		log:      log.WithComponent("queue"),
		selected: make(map[uint]struct{}),
	}
}

// Queued returns all non-dispatched themes, newest first.
func (q *Queue) Queued(ctx context.Context) ([]models.Theme, error) {
	themes, err := q.backend.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}

	queued := make([]models.Theme, 0, len(themes))
	for _, theme := range themes {
		if theme.Queued() {
			queued = append(queued, theme)
		}
	}
	sort.SliceStable(queued, func(i, j int) bool {
		return queued[i].CreatedAt.After(queued[j].CreatedAt)
	})
	return queued, nil
}

// Dispatched returns all dispatched themes, for status review.
func (q *Queue) Dispatched(ctx context.Context) ([]models.Theme, error) {
	themes, err := q.backend.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}

	dispatched := make([]models.Theme, 0, len(themes))
	for _, theme := range themes {
		if theme.Dispatched {
			dispatched = append(dispatched, theme)
		}
	}
	return dispatched, nil
}

// Get returns a single theme by id.
func (q *Queue) Get(ctx context.Context, id uint) (*models.Theme, error) {
	themes, err := q.backend.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}
	for i := range themes {
		if themes[i].ID == id {
			return &themes[i], nil
		}
	}
	return nil, fmt.Errorf("theme %d not found", id)
}

// Approve marks a theme ready for dispatch. Dispatched themes are frozen.
func (q *Queue) Approve(ctx context.Context, id uint) error {
	theme, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if theme.Dispatched {
		return fmt.Errorf("theme %d is already dispatched and cannot be changed", id)
	}
	if err := q.backend.ApproveTheme(ctx, id); err != nil {
		return err
	}
	q.log.Info().Uint("theme_id", id).Msg("Theme approved")
	return nil
}

// Unapprove sends an approved theme back to the plain queue.
func (q *Queue) Unapprove(ctx context.Context, id uint) error {
	theme, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if theme.Dispatched {
		return fmt.Errorf("theme %d is already dispatched and cannot be changed", id)
	}
	if err := q.backend.UnapproveTheme(ctx, id); err != nil {
		return err
	}
	q.log.Info().Uint("theme_id", id).Msg("Theme unapproved")
	return nil
}

// Delete removes a non-dispatched theme and drops it from the selection.
func (q *Queue) Delete(ctx context.Context, id uint) error {
	theme, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if theme.Dispatched {
		return fmt.Errorf("theme %d is already dispatched and cannot be deleted", id)
	}
	if err := q.backend.DeleteTheme(ctx, id); err != nil {
		return err
	}

	q.mu.Lock()
	delete(q.selected, id)
	q.mu.Unlock()

	q.log.Info().Uint("theme_id", id).Msg("Theme deleted")
	return nil
}

// Select adds a theme to the dispatch selection. Only sendable themes
// (approved and not yet dispatched) are eligible.
func (q *Queue) Select(ctx context.Context, id uint) error {
	theme, err := q.Get(ctx, id)
	if err != nil {
		return err
	}
	if !theme.Sendable() {
		return fmt.Errorf("theme %d is not sendable: it must be approved and not yet dispatched", id)
	}

	q.mu.Lock()
	q.selected[id] = struct{}{}
	q.mu.Unlock()
	return nil
}

// Deselect removes a theme from the dispatch selection.
func (q *Queue) Deselect(id uint) {
	q.mu.Lock()
	delete(q.selected, id)
	q.mu.Unlock()
}

// Selection returns the currently selected theme ids in ascending order.
func (q *Queue) Selection() []uint {
	q.mu.Lock()
	defer q.mu.Unlock()

	ids := make([]uint, 0, len(q.selected))
	for id := range q.selected {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SendResult reports a completed dispatch call.
type SendResult struct {
	DispatchedIDs []uint
	Body          string
}

// SendOne dispatches a single theme, without touching the selection set.
func (q *Queue) SendOne(ctx context.Context, id uint) (*SendResult, error) {
	return q.send(ctx, []uint{id}, false)
}

// SendSelected dispatches every currently selected theme. The selection is
// cleared only after the backend confirms the call.
func (q *Queue) SendSelected(ctx context.Context) (*SendResult, error) {
	return q.send(ctx, q.Selection(), true)
}

func (q *Queue) send(ctx context.Context, ids []uint, clearSelection bool) (*SendResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("no themes selected for dispatch")
	}

	// Re-verify eligibility against a fresh load; another session may have
	// dispatched or unapproved a theme since it was selected.
	themes, err := q.backend.ListThemes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load themes: %w", err)
	}
	byID := make(map[uint]*models.Theme, len(themes))
	for i := range themes {
		byID[themes[i].ID] = &themes[i]
	}
	for _, id := range ids {
		theme, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("theme %d not found", id)
		}
		if !theme.Sendable() {
			return nil, fmt.Errorf("theme %d is not sendable: it must be approved and not yet dispatched", id)
		}
	}

	result, err := q.backend.Dispatch(ctx, ids)
	if err != nil {
		// State is untouched on failure; the themes stay selectable.
		return nil, err
	}

	if clearSelection {
		q.mu.Lock()
		for _, id := range ids {
			delete(q.selected, id)
		}
		q.mu.Unlock()
	}

	q.log.Info().Uints("theme_ids", ids).Msg("Themes dispatched to automation webhook")
	return &SendResult{DispatchedIDs: ids, Body: result.Body}, nil
}
