package api

import (
	"context"

	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

// ListCategories returns the blog categories used as matching vocabulary.
// Read-only from the agent's perspective.
func (c *Client) ListCategories(ctx context.Context) ([]models.BlogCategory, error) {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "GET", "/api/blog-categories?per_page=100", nil)
	if err != nil {
		return nil, err
	}

	var categories []models.BlogCategory
	if err := c.decode(resp, &categories, "failed to list blog categories"); err != nil {
		return nil, err
	}
	return categories, nil
}
