package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdesa/theme-agent/internal/agent/generator"
	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/logger"
)

type fakeLister struct {
	themes []models.Theme
	err    error
}

func (f *fakeLister) ListThemes(ctx context.Context) ([]models.Theme, error) {
	return f.themes, f.err
}

type fakeGenerator struct {
	block    chan struct{}
	quantity chan int
}

func (f *fakeGenerator) Generate(ctx context.Context, quantity int, triggeredBy string) (*generator.Result, error) {
	if f.quantity != nil {
		f.quantity <- quantity
	}
	if f.block != nil {
		<-f.block
	}
	return &generator.Result{Requested: quantity, Created: 1}, nil
}

func newTestServer(lister ThemeLister, gen Generator) *Server {
	log := logger.New(logger.Config{Level: "error", Format: "json"})
	return NewServer(lister, gen, nil, "0", 3, log)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(&fakeLister{}, &fakeGenerator{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestStatus_CountsThemesByState(t *testing.T) {
	lister := &fakeLister{themes: []models.Theme{
		{ID: 1},
		{ID: 2, Approved: true},
		{ID: 3, Approved: true, Dispatched: true, DispatchStatus: models.DispatchStatusProcessing},
		{ID: 4, Approved: true, Dispatched: true, DispatchStatus: models.DispatchStatusCompleted},
		{ID: 5, Approved: true, Dispatched: true, DispatchStatus: models.DispatchStatusFailed},
	}}
	srv := newTestServer(lister, &fakeGenerator{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Themes map[string]int `json:"themes"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Themes["queued"])
	assert.Equal(t, 1, body.Themes["approved"])
	assert.Equal(t, 1, body.Themes["processing"])
	assert.Equal(t, 1, body.Themes["completed"])
	assert.Equal(t, 1, body.Themes["failed"])
	assert.Equal(t, 5, body.Themes["total"])
}

func TestStatus_BackendFailure(t *testing.T) {
	lister := &fakeLister{err: assert.AnError}
	srv := newTestServer(lister, &fakeGenerator{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/status", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGenerate_AcceptsAndRejectsConcurrentRuns(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	srv := newTestServer(&fakeLister{}, gen)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/generate", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/generate", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(gen.block)
	require.Eventually(t, func() bool {
		return !srv.generationRunning()
	}, time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/generate", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestGenerate_QuantityHandling(t *testing.T) {
	gen := &fakeGenerator{quantity: make(chan int, 1)}
	srv := newTestServer(&fakeLister{}, gen)

	t.Run("explicit quantity", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{"quantity":7}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, 7, <-gen.quantity)
		require.Eventually(t, func() bool { return !srv.generationRunning() }, time.Second, 10*time.Millisecond)
	})

	t.Run("default quantity when body omitted", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest("POST", "/generate", nil))
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, 3, <-gen.quantity)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/generate", strings.NewReader(`{broken`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
