package api

import (
	"context"
	"fmt"
	"sort"

	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

// ListSourceURLs returns the crawl-target registry sorted by display order.
func (c *Client) ListSourceURLs(ctx context.Context) ([]models.SourceURL, error) {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "GET", "/api/blog/source-urls", nil)
	if err != nil {
		return nil, err
	}

	var sources []models.SourceURL
	if err := c.decode(resp, &sources, "failed to list source URLs"); err != nil {
		return nil, err
	}

	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Order < sources[j].Order
	})
	return sources, nil
}

// CreateSourceURL registers a new crawl target.
func (c *Client) CreateSourceURL(ctx context.Context, url, label string) (*models.SourceURL, error) {
	body := map[string]string{"url": url}
	if label != "" {
		body["label"] = label
	}

	resp, err := c.do(ctx, ratelimit.LimiterAPI, "POST", "/api/blog/source-urls", body)
	if err != nil {
		return nil, err
	}

	var created models.SourceURL
	if err := c.decode(resp, &created, "failed to create source URL"); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteSourceURL removes a crawl target by id.
func (c *Client) DeleteSourceURL(ctx context.Context, id uint) error {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "DELETE", fmt.Sprintf("/api/blog/source-urls/%d", id), nil)
	if err != nil {
		return err
	}
	return c.decode(resp, nil, "failed to delete source URL")
}
