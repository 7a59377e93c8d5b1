package api

import (
	"context"
	"fmt"

	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

// ListThemes retrieves the full theme collection. The backend does not
// paginate this endpoint.
func (c *Client) ListThemes(ctx context.Context) ([]models.Theme, error) {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "GET", "/api/blog/themes", nil)
	if err != nil {
		return nil, err
	}

	var themes []models.Theme
	if err := c.decode(resp, &themes, "failed to list themes"); err != nil {
		return nil, err
	}
	return themes, nil
}

// CreateTheme persists a new candidate theme.
func (c *Client) CreateTheme(ctx context.Context, theme models.NewTheme) (*models.Theme, error) {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "POST", "/api/blog/themes", theme)
	if err != nil {
		return nil, err
	}

	var created models.Theme
	if err := c.decode(resp, &created, "failed to create theme"); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteTheme removes a theme by id.
func (c *Client) DeleteTheme(ctx context.Context, id uint) error {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "DELETE", fmt.Sprintf("/api/blog/themes/%d", id), nil)
	if err != nil {
		return err
	}
	return c.decode(resp, nil, "failed to delete theme")
}

// ApproveTheme flips the approved flag on a queued theme.
func (c *Client) ApproveTheme(ctx context.Context, id uint) error {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "POST", fmt.Sprintf("/api/blog/themes/%d/approve", id), nil)
	if err != nil {
		return err
	}
	return c.decode(resp, nil, "failed to approve theme")
}

// UnapproveTheme reverts an approved theme back to queued.
func (c *Client) UnapproveTheme(ctx context.Context, id uint) error {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "POST", fmt.Sprintf("/api/blog/themes/%d/unapprove", id), nil)
	if err != nil {
		return err
	}
	return c.decode(resp, nil, "failed to unapprove theme")
}
