package api

import (
	"context"

	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

// crawlConfigResponse reports backend-side crawl provider configuration.
type crawlConfigResponse struct {
	TavilyConfigured bool `json:"tavily_configured"`
}

// CrawlConfigured reports whether the backend has crawl provider credentials.
// Used as a generation preflight so a misconfigured backend fails before any
// crawl credits are spent.
func (c *Client) CrawlConfigured(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, ratelimit.LimiterAPI, "GET", "/api/blog/tavily/config", nil)
	if err != nil {
		return false, err
	}

	var cfg crawlConfigResponse
	if err := c.decode(resp, &cfg, "failed to check crawl configuration"); err != nil {
		return false, err
	}
	return cfg.TavilyConfigured, nil
}

// Crawl asks the backend's crawl proxy to fetch one URL. Returns zero or
// more page results; sub-pages of the target may come back with their own
// URLs.
func (c *Client) Crawl(ctx context.Context, url string) (*models.CrawlResponse, error) {
	resp, err := c.do(ctx, ratelimit.LimiterCrawl, "POST", "/api/blog/tavily/crawl", map[string]string{"url": url})
	if err != nil {
		return nil, err
	}

	var crawl models.CrawlResponse
	if err := c.decode(resp, &crawl, "failed to crawl URL"); err != nil {
		return nil, err
	}
	return &crawl, nil
}
