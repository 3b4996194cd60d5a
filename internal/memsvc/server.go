// Package memsvc exposes the memory layer as a standalone HTTP daemon
// so other processes (or a cluster of agents) can share one long-term
// store. The API mirrors the in-process capabilities: POST /query runs
// two-stage retrieval, POST /add appends a document.
package memsvc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MrSnowNB/project-alice/internal/memory"
)

// Backend is the slice of the memory layer the service exposes.
type Backend interface {
	Retrieve(ctx context.Context, query string) (*memory.RetrieveResult, error)
	Remember(ctx context.Context, text string, metadata map[string]string) error
	Count() int
}

// Server is the memory service daemon.
type Server struct {
	echo     *echo.Echo
	svc      Backend
	logger   *zap.Logger
	addr     string
	registry *prometheus.Registry
	requests *prometheus.CounterVec
}

// NewServer wires the routes, middleware, and metrics.
func NewServer(svc Backend, logger *zap.Logger, addr string) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("memory backend cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if addr == "" {
		addr = "localhost:8765"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		svc:      svc,
		logger:   logger,
		addr:     addr,
		registry: prometheus.NewRegistry(),
	}

	// Per-server registry so tests can build servers freely.
	s.requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alice_memory_requests_total",
			Help: "HTTP requests handled by the memory service, by route, method, and status.",
		},
		[]string{"route", "method", "status"},
	)
	s.registry.MustRegister(s.requests)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			s.requests.WithLabelValues(c.Path(), c.Request().Method, strconv.Itoa(c.Response().Status)).Inc()
			return err
		}
	})

	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.POST("/query", s.handleQuery)
	s.echo.POST("/add", s.handleAdd)
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// QueryRequest is the body for POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// PassageResponse is one retrieved passage.
type PassageResponse struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata"`
}

// QueryResponse is the body for a successful POST /query.
type QueryResponse struct {
	RelevantContext []PassageResponse `json:"relevant_context"`
}

// AddRequest is the body for POST /add.
type AddRequest struct {
	TextToRemember string `json:"text_to_remember"`
}

// AddResponse is the body for a successful POST /add.
type AddResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse is the body for any failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body for GET /healthz.
type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
}

// handleQuery runs two-stage retrieval. An empty store is a normal
// empty list, not an error.
func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Query) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query field is required"})
	}

	result, err := s.svc.Retrieve(c.Request().Context(), req.Query)
	if err != nil {
		s.logger.Error("query failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}

	passages := make([]PassageResponse, 0, len(result.Passages))
	for _, p := range result.Passages {
		md := p.Metadata
		if md == nil {
			md = map[string]string{}
		}
		passages = append(passages, PassageResponse{Content: p.Content, Metadata: md})
	}
	return c.JSON(http.StatusOK, QueryResponse{RelevantContext: passages})
}

// handleAdd appends one document to the store.
func (s *Server) handleAdd(c echo.Context) error {
	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.TextToRemember) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "text_to_remember field is required"})
	}

	if err := s.svc.Remember(c.Request().Context(), req.TextToRemember, map[string]string{"source": "api"}); err != nil {
		s.logger.Error("add failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, AddResponse{Status: "success", Message: memory.AddSuccessMessage})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Documents: s.svc.Count()})
}

// Start blocks serving the API.
func (s *Server) Start() error {
	s.logger.Info("starting memory service", zap.String("addr", s.addr))
	return s.echo.Start(s.addr)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down memory service")
	return s.echo.Shutdown(ctx)
}

// Run serves until the context is canceled, then shuts down
// gracefully with a 10 second drain window.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
