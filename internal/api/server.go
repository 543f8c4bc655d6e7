// Package api exposes the backtest engine over HTTP for the dashboard:
// starting a run and polling the latest results.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	"btc-strategy-lab/internal/domain"
	"btc-strategy-lab/internal/observability"
	"btc-strategy-lab/internal/orchestrator"
	"btc-strategy-lab/internal/storage"
)

// BarLoader supplies the bar sequence replayed by /start_test.
type BarLoader func(ctx context.Context) ([]domain.Bar, error)

// Options wires the server's collaborators.
type Options struct {
	Orchestrator *orchestrator.Orchestrator
	Store        storage.ResultStore
	LoadBars     BarLoader
	Logger       *log.Logger
}

// Server is the HTTP adapter over the orchestrator and results store.
type Server struct {
	orch     *orchestrator.Orchestrator
	store    storage.ResultStore
	loadBars BarLoader
	logger   *log.Logger
	router   *gin.Engine

	startedAt     time.Time
	runsCompleted atomic.Int64
}

// New builds the server and its routes.
func New(opts Options) (*Server, error) {
	if opts.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if opts.Store == nil {
		return nil, errors.New("result store is required")
	}
	if opts.LoadBars == nil {
		return nil, errors.New("bar loader is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[api] ", log.LstdFlags)
	}

	s := &Server{
		orch:      opts.Orchestrator,
		store:     opts.Store,
		loadBars:  opts.LoadBars,
		logger:    logger,
		startedAt: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.instrument())

	// The dashboard triggers runs with a plain GET; POST is accepted
	// for clients that treat starting a run as a mutation.
	router.GET("/start_test", s.startTest)
	router.POST("/start_test", s.startTest)
	router.GET("/get_latest_results", s.latestResults)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", s.status)
	router.GET("/metrics", gin.WrapH(observability.Handler()))

	s.router = router
	return s, nil
}

// Handler returns the root http.Handler for serving.
func (s *Server) Handler() http.Handler {
	return s.router
}

// instrument records per-request counters and latency. The route
// template is used as the label to keep cardinality bounded.
func (s *Server) instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := strconv.Itoa(c.Writer.Status())
		observability.RecordHTTPRequest(path, code, time.Since(started).Seconds())
	}
}

func (s *Server) startTest(c *gin.Context) {
	bars, err := s.loadBars(c.Request.Context())
	if err != nil {
		s.logger.Printf("load bars: %v", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:    "DATA_ERROR",
			Message: err.Error(),
		}})
		return
	}
	if len(bars) == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
			Code:    "DATA_ERROR",
			Message: "no bars available for backtest",
		}})
		return
	}

	run, err := s.orch.Run(c.Request.Context(), bars)
	switch {
	case errors.Is(err, orchestrator.ErrRunInProgress):
		c.JSON(http.StatusConflict, ErrorResponse{Error: ErrorDetail{
			Code:    "BUSY",
			Message: "a test run is already in progress",
		}})
		return
	case err != nil:
		s.logger.Printf("run failed: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		}})
		return
	}

	s.runsCompleted.Add(1)
	c.JSON(http.StatusOK, toRunResponse(run))
}

func (s *Server) latestResults(c *gin.Context) {
	run, err := s.store.LatestRun(c.Request.Context())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: ErrorDetail{
			Code:    "NOT_FOUND",
			Message: "no completed test run",
		}})
		return
	case err != nil:
		s.logger.Printf("load latest run: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorDetail{
			Code:    "INTERNAL_ERROR",
			Message: err.Error(),
		}})
		return
	}

	c.JSON(http.StatusOK, toRunResponse(run))
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"running":        s.orch.Running(),
		"runs_completed": s.runsCompleted.Load(),
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
	})
}
