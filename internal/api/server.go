package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/odds-tracker/internal/analytics"
	"github.com/yourusername/odds-tracker/internal/ledger"
	"github.com/yourusername/odds-tracker/internal/logger"
	"github.com/yourusername/odds-tracker/internal/models"
)

const eventQueryParam = "eventIdentifier"

// StateSource returns the live state bundle
type StateSource interface {
	State() *ledger.State
}

// HistorySource reconstructs the price history of one event
type HistorySource interface {
	RaceHistory(ctx context.Context, event string) (models.RaceHistory, error)
}

// Config holds the dependencies of the read API server
type Config struct {
	Port           int
	Logger         *logrus.Logger
	State          StateSource
	Calculator     *analytics.Calculator
	History        HistorySource
	MetricsPath    string
	MetricsHandler http.Handler
}

// Server serves the odds and history queries over HTTP
type Server struct {
	cfg    Config
	server *http.Server
	logger *logrus.Logger
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// NewServer creates a new read API server
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = logger.Discard()
	}
	if cfg.Calculator == nil {
		cfg.Calculator = analytics.NewCalculator(analytics.DefaultTimeOffset, analytics.DefaultEventTimeLayout)
	}
	return &Server{cfg: cfg, logger: cfg.Logger}
}

// Handler returns the API routes with panic recovery and request logging
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/api/odds", s.handleOdds)
	r.GET("/api/history", s.handleHistory)
	if s.cfg.MetricsHandler != nil {
		path := s.cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(s.cfg.MetricsHandler))
	}
	return r
}

// Start starts the API server in the background and shuts it down when ctx ends
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.cfg.Port).Info("API server starting")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the API server
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("API server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleOdds(c *gin.Context) {
	groups := s.cfg.Calculator.Compute(s.cfg.State.State())
	c.JSON(http.StatusOK, NewOddsPayload(groups))
}

func (s *Server) handleHistory(c *gin.Context) {
	event := c.Query(eventQueryParam)
	if strings.TrimSpace(event) == "" {
		c.JSON(http.StatusBadRequest, ErrorPayload{Error: eventQueryParam + " is required"})
		return
	}

	h, err := s.cfg.History.RaceHistory(c.Request.Context(), event)
	switch {
	case errors.Is(err, models.ErrInvalidQuery):
		c.JSON(http.StatusBadRequest, ErrorPayload{Error: eventQueryParam + " is required"})
	case err != nil:
		s.logger.WithError(err).WithField("event", event).Error("History reconstruction failed")
		c.JSON(http.StatusInternalServerError, ErrorPayload{Error: "history unavailable"})
	default:
		c.JSON(http.StatusOK, NewHistoryPayload(h))
	}
}

// logRequests logs every request at debug level through logrus
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Debug("HTTP request")
	}
}
