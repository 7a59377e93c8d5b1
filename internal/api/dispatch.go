package api

import (
	"context"

	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

// DispatchResult is the backend's response to a webhook trigger. Body is the
// raw downstream automation response when the backend forwarded one.
type DispatchResult struct {
	Success bool   `json:"success"`
	Body    string `json:"body"`
}

// Dispatch hands approved themes to the automation webhook. A single id is
// sent as theme_id, multiples as theme_ids; the backend treats each call as
// atomic, so partial failure inside a batch is not decomposed here.
func (c *Client) Dispatch(ctx context.Context, ids []uint) (*DispatchResult, error) {
	var body interface{}
	if len(ids) == 1 {
		body = map[string]uint{"theme_id": ids[0]}
	} else {
		body = map[string][]uint{"theme_ids": ids}
	}

	resp, err := c.do(ctx, ratelimit.LimiterAPI, "POST", "/api/blog/trigger-create-post-webhook", body)
	if err != nil {
		return nil, err
	}

	var result DispatchResult
	if err := c.decode(resp, &result, "failed to dispatch themes"); err != nil {
		return nil, err
	}
	return &result, nil
}
