package models

import (
	"encoding/json"
)

// CrawlResult is one page returned by the crawl provider. It is ephemeral:
// the orchestrator turns it into a Theme or drops it, nothing is persisted.
//
// Providers are inconsistent about which field carries the readable text, so
// all known variants are decoded and the original document is retained for
// the JSON fallback in extract.DisplayText.
type CrawlResult struct {
	URL        string `json:"url"`
	RawContent string `json:"raw_content"`
	Text       string `json:"text"`
	Content    string `json:"content"`
	Markdown   string `json:"markdown"`
	Favicon    string `json:"favicon"`

	// Raw holds the undecoded document for fallback stringification.
	Raw map[string]interface{} `json:"-"`
}

// UnmarshalJSON decodes the known fields and keeps the raw document around.
func (r *CrawlResult) UnmarshalJSON(data []byte) error {
	type alias CrawlResult
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = CrawlResult(a)
	_ = json.Unmarshal(data, &r.Raw)
	return nil
}

// CrawlResponse is the envelope returned by the backend's crawl proxy.
type CrawlResponse struct {
	Success bool          `json:"success"`
	URL     string        `json:"url"`
	Results []CrawlResult `json:"results"`
}
