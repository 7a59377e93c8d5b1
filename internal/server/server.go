// Package server exposes the scheduler's embedded HTTP surface: a health
// probe, a queue status summary, and a manual generation trigger.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/verdesa/theme-agent/internal/agent/generator"
	"github.com/verdesa/theme-agent/internal/journal"
	"github.com/verdesa/theme-agent/internal/models"
	"github.com/verdesa/theme-agent/pkg/logger"
)

// ThemeLister loads the current theme collection from the backend.
type ThemeLister interface {
	ListThemes(ctx context.Context) ([]models.Theme, error)
}

// Generator runs one theme generation pass.
type Generator interface {
	Generate(ctx context.Context, quantity int, triggeredBy string) (*generator.Result, error)
}

// Server is the scheduler's status and trigger HTTP server
type Server struct {
	themes    ThemeLister
	generator Generator
	journal   *journal.Journal
	quantity  int
	log       *logger.Logger

	httpServer *http.Server

	mu      sync.Mutex
	running bool
}

// NewServer wires the routes. defaultQuantity is used when a trigger request
// does not carry its own. The journal may be nil.
func NewServer(themes ThemeLister, gen Generator, jrnl *journal.Journal, port string, defaultQuantity int, log *logger.Logger) *Server {
	s := &Server{
		themes:    themes,
		generator: gen,
		journal:   jrnl,
		quantity:  defaultQuantity,
		log:       log.WithComponent("server"),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.handleHealth)
	router.GET("/status", s.handleStatus)
	router.POST("/generate", s.handleGenerate)

	s.httpServer = &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	return s
}

// Start runs the server until Shutdown is called
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("Status server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the route tree, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	themes, err := s.themes.ListThemes(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load themes for status")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	var queued, approved, processing, completed, failed int
	for _, theme := range themes {
		switch {
		case !theme.Dispatched && theme.Approved:
			approved++
		case !theme.Dispatched:
			queued++
		case theme.DispatchStatus == models.DispatchStatusCompleted:
			completed++
		case theme.DispatchStatus == models.DispatchStatusFailed:
			failed++
		default:
			processing++
		}
	}

	status := gin.H{
		"themes": gin.H{
			"queued":     queued,
			"approved":   approved,
			"processing": processing,
			"completed":  completed,
			"failed":     failed,
			"total":      len(themes),
		},
		"generation_running": s.generationRunning(),
	}

	if s.journal != nil {
		if run, err := s.journal.LastRun(c.Request.Context()); err == nil && run != nil {
			status["last_run"] = gin.H{
				"triggered_by": run.TriggeredBy,
				"created":      run.Created,
				"attempts":     run.Attempts,
				"started_at":   run.StartedAt.Format(time.RFC3339),
			}
		}
	}

	c.JSON(http.StatusOK, status)
}

type generateRequest struct {
	Quantity int `json:"quantity"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}
	quantity := req.Quantity
	if quantity <= 0 {
		quantity = s.quantity
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		c.JSON(http.StatusConflict, gin.H{"error": "a generation run is already in progress"})
		return
	}
	s.running = true
	s.mu.Unlock()

	// The run can take minutes; detach it from the request lifetime.
	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		result, err := s.generator.Generate(context.Background(), quantity, "http")
		if err != nil {
			s.log.Error().Err(err).Msg("Triggered generation failed")
			return
		}
		s.log.Info().Int("created", result.Created).Msg("Triggered generation finished")
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": true,
		"quantity": quantity,
	})
}

func (s *Server) generationRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
