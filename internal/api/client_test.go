package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdesa/theme-agent/internal/config"
	"github.com/verdesa/theme-agent/pkg/logger"
	"github.com/verdesa/theme-agent/pkg/ratelimit"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	limiter := ratelimit.NewMultiLimiter()
	limiter.AddLimiter(ratelimit.LimiterAPI, 1000, 1000)
	limiter.AddLimiter(ratelimit.LimiterCrawl, 1000, 1000)

	log := logger.New(logger.Config{Level: "error", Format: "json"})

	client := NewClient(config.APIConfig{
		BaseURL:        srv.URL,
		Token:          "test-token",
		TimeoutSeconds: 5,
	}, limiter, log)

	return client, srv
}

func TestClient_AuthorizationHeader(t *testing.T) {
	var gotAuth, gotAccept string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`[]`))
	})

	_, err := client.ListThemes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "application/json", gotAccept)
}

func TestClient_EnvelopeUnwrapping(t *testing.T) {
	t.Run("data wrapped", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"data":[{"id":1,"name":"Chia","slug":"chia"}]}`))
		})
		cats, err := client.ListCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, "Chia", cats[0].Name)
	})

	t.Run("bare payload", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[{"id":2,"name":"Organic","slug":"organic"}]`))
		})
		cats, err := client.ListCategories(context.Background())
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, uint(2), cats[0].ID)
	})
}

func TestClient_ErrorSurfacesMessageAndWebhookBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(`{"message":"Automation error","data":{"body":"Timeout contacting n8n"}}`))
	})

	_, err := client.Dispatch(context.Background(), []uint{1, 2})
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, err.Error(), "Automation error")
	assert.Contains(t, err.Error(), "Timeout contacting n8n")
}

func TestClient_ErrorFallsBackToDefaultMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`not json at all`))
	})

	err := client.ApproveTheme(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to approve theme")
}

func TestClient_ListSourceURLs_SortedByOrder(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[
			{"id":3,"url":"https://c.test","order":2},
			{"id":1,"url":"https://a.test","order":0},
			{"id":2,"url":"https://b.test","order":1}
		]}`))
	})

	sources, err := client.ListSourceURLs(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "https://a.test", sources[0].URL)
	assert.Equal(t, "https://b.test", sources[1].URL)
	assert.Equal(t, "https://c.test", sources[2].URL)
}

func TestClient_Dispatch_PayloadShape(t *testing.T) {
	var got map[string]json.RawMessage
	handler := func(w http.ResponseWriter, r *http.Request) {
		got = map[string]json.RawMessage{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true}`))
	}

	t.Run("single id uses theme_id", func(t *testing.T) {
		client, _ := newTestClient(t, handler)
		result, err := client.Dispatch(context.Background(), []uint{42})
		require.NoError(t, err)
		assert.True(t, result.Success)
		assert.Contains(t, got, "theme_id")
		assert.NotContains(t, got, "theme_ids")
	})

	t.Run("multiple ids use theme_ids", func(t *testing.T) {
		client, _ := newTestClient(t, handler)
		_, err := client.Dispatch(context.Background(), []uint{1, 2, 3})
		require.NoError(t, err)
		assert.Contains(t, got, "theme_ids")
		assert.NotContains(t, got, "theme_id")
	})
}

func TestClient_CrawlConfigured(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/blog/tavily/config", r.URL.Path)
		w.Write([]byte(`{"tavily_configured":true}`))
	})

	ok, err := client.CrawlConfigured(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClient_Crawl(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://news.test", body["url"])
		w.Write([]byte(`{"success":true,"url":"https://news.test","results":[
			{"url":"https://news.test/article","raw_content":"chia is trending","favicon":"https://news.test/fav.ico"},
			{"url":"https://news.test/empty","raw_content":null}
		]}`))
	})

	resp, err := client.Crawl(context.Background(), "https://news.test")
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "chia is trending", resp.Results[0].RawContent)
	assert.Equal(t, "", resp.Results[1].RawContent)
}
