// Package server exposes the translation pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	kerrors "github.com/kdeps/kxlate/pkg/errors"
	"github.com/kdeps/kxlate/pkg/history"
	"github.com/kdeps/kxlate/pkg/intake"
	"github.com/kdeps/kxlate/pkg/ktx"
	"github.com/kdeps/kxlate/pkg/logging"
	"github.com/kdeps/kxlate/pkg/metrics"
	"github.com/kdeps/kxlate/pkg/pipeline"
	"github.com/kdeps/kxlate/pkg/translate"
)

const (
	RequestIDHeader = "X-Request-ID"
	shutdownTimeout = 10 * time.Second
)

// Runner executes one job.
type Runner interface {
	Run(ctx context.Context, job intake.Job, mode translate.Mode) (pipeline.Result, error)
	Supports(mode translate.Mode) bool
}

// HistoryReader looks up finished jobs.
type HistoryReader interface {
	Get(ctx context.Context, jobID string) (history.Entry, error)
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Config controls routing and CORS.
type Config struct {
	Addr                string
	DefaultMode         translate.Mode
	DefaultOutputBucket string
	AllowOrigins        []string
	// Metrics, when set, is served at GET /metrics.
	Metrics *metrics.JobMetrics
	Debug   bool
}

// Server is the HTTP front of the pipeline.
type Server struct {
	cfg     Config
	runner  Runner
	history HistoryReader
	logger  *logging.Logger
	router  *gin.Engine
}

// New builds the router. hist may be nil, in which case the /jobs routes are
// not registered.
func New(cfg Config, runner Runner, hist HistoryReader, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = translate.ModeAccuracy
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, runner: runner, history: hist, logger: logger, router: gin.New()}
	s.setupRoutes()
	return s
}

// Handler returns the router for use with httptest or a custom server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestID(), s.recoverPanic(), s.accessLog())

	if len(s.cfg.AllowOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins:  s.cfg.AllowOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
			ExposeHeaders: []string{RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	s.router.GET("/healthz", s.health)
	s.router.POST("/", s.translateHandler(s.cfg.DefaultMode))
	s.router.POST("/translate", s.translateHandler(translate.ModeAccuracy))
	s.router.POST("/translate_realignment", s.translateHandler(translate.ModeRealignment))

	if s.cfg.Metrics != nil {
		s.router.GET("/metrics", func(c *gin.Context) {
			c.JSON(http.StatusOK, s.cfg.Metrics.Overall())
		})
	}
	if s.history != nil {
		s.router.GET("/jobs", s.listJobs)
		s.router.GET("/jobs/:id", s.getJob)
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting API server", "addr", s.cfg.Addr, "mode", s.cfg.DefaultMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set("requestID", id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) recoverPanic() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("panic in API handler", "error", r, "stack", string(debug.Stack()))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"error":     fmt.Sprintf("Internal server error: %v", r),
					"requestID": c.GetString("requestID"),
				})
			}
		}()
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"requestID", c.GetString("requestID"))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "mode": s.cfg.DefaultMode})
}

func (s *Server) translateHandler(mode translate.Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := s.logger.With("requestID", c.GetString("requestID"), "mode", mode)

		if !s.runner.Supports(mode) {
			c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("mode %s is not enabled", mode)})
			return
		}

		body, err := c.GetRawData()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
			return
		}

		job, err := intake.Decode(body, s.cfg.DefaultOutputBucket)
		if err != nil {
			logger.Warn("rejected job trigger", "error", err)
			respondError(c, err, "")
			return
		}

		ctx := ktx.WithSource(ktx.WithCorrelationID(c.Request.Context(), c.GetString("requestID")), "http")
		res, err := s.runner.Run(ctx, job, mode)
		if err != nil {
			respondError(c, err, res.JobID)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":         "success",
			"message":        "Translations completed and uploaded for " + job.SourceObject,
			"output_files":   res.Targets,
			"artifacts":      res.OutputFiles,
			"jobId":          res.JobID,
			"sourceLanguage": res.SourceLanguage,
		})
	}
}

func respondError(c *gin.Context, err error, jobID string) {
	status := kerrors.HTTPStatus(err)
	body := gin.H{"error": err.Error()}
	if je, ok := kerrors.IsJobError(err); ok {
		body["code"] = je.Code
		if status == http.StatusBadRequest {
			body["error"] = je.Message
		}
	}
	if jobID != "" {
		body["jobId"] = jobID
	}
	c.JSON(status, body)
}

func (s *Server) getJob(c *gin.Context) {
	entry, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, history.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) listJobs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return
	}
	entries, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": entries})
}
