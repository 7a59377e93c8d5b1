package queue

import (
	"context"
	"fmt"

	"github.com/verdesa/theme-agent/internal/journal"
	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/logger"
)

// StatusPoller watches dispatched themes for status transitions driven by
// the downstream automation. It never sets a status itself; it only observes
// the backend and records each transition in the local journal.
type StatusPoller struct {
	backend Backend
	journal *journal.Journal
	log     *logger.Logger

	// last known dispatch status per theme id, empty string before the
	// first observation
	known map[uint]string
}

// NewStatusPoller creates a poller. The journal may be nil; transitions are
// then only logged.
func NewStatusPoller(backend Backend, jrnl *journal.Journal, log *logger.Logger) *StatusPoller {
	return &StatusPoller{
		backend: backend,
		journal: jrnl,
		log:     log.WithComponent("status-poller"),
		known:   make(map[uint]string),
	}
}

// Poll loads dispatched themes and records every status change observed
// since the previous poll. Returns the number of transitions seen.
func (p *StatusPoller) Poll(ctx context.Context) (int, error) {
	themes, err := p.backend.ListThemes(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load themes: %w", err)
	}

	transitions := 0
	for i := range themes {
		theme := &themes[i]
		if !theme.Dispatched {
			continue
		}

		status := string(theme.DispatchStatus)
		prev, seen := p.known[theme.ID]
		if seen && prev == status {
			continue
		}
		p.known[theme.ID] = status
		if !seen && status == "" {
			continue
		}
		transitions++

		p.log.Info().
			Uint("theme_id", theme.ID).
			Str("from", prev).
			Str("to", status).
			Msg("Dispatch status changed")

		if p.journal != nil {
			event := &models.StatusEvent{
				ThemeID:    theme.ID,
				ThemeTitle: theme.Title,
				FromStatus: prev,
				ToStatus:   status,
			}
			if err := p.journal.RecordStatusEvent(ctx, event); err != nil {
				p.log.Warn().Err(err).Uint("theme_id", theme.ID).Msg("Failed to record status event")
			}
		}
	}

	return transitions, nil
}
