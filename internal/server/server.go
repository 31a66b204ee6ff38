// Package server exposes recorded prediction runs over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"StockPredictor/internal/recorder"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// APIHandler serves read-only run history.
type APIHandler struct {
	rec    recorder.Recorder
	logger *zap.Logger
}

// SetupRoutes registers the run endpoints on r.
func SetupRoutes(r *gin.RouterGroup, rec recorder.Recorder, logger *zap.Logger) *APIHandler {
	handler := &APIHandler{rec: rec, logger: logger}

	runs := r.Group("/runs")
	{
		runs.GET("", handler.ListRuns)
		runs.GET("/:id", handler.GetRun)
	}
	return handler
}

// NewRouter builds the gin engine with health check and /api/v1 routes.
func NewRouter(rec recorder.Recorder, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	SetupRoutes(r.Group("/api/v1"), rec, logger)
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (h *APIHandler) ListRuns(c *gin.Context) {
	limit := DefaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, MaxLimit)
	}

	runs, err := h.rec.ListRuns(limit)
	if err != nil {
		h.logger.Error("list runs", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(runs), "runs": runs})
}

func (h *APIHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	run, err := h.rec.GetRun(id)
	if errors.Is(err, recorder.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "run not found", "id": id})
		return
	}
	if err != nil {
		h.logger.Error("get run", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	c.JSON(http.StatusOK, run)
}

// Serve runs handler on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("http server stopped")
	return nil
}
