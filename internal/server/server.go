// Package server exposes the support lookup to the hosting UI over HTTP:
// an aggregate-record endpoint fed a device document and a connectivity
// test. Rendering is left entirely to the caller.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/netops-toolbox/supportwatch/internal/device"
	"github.com/netops-toolbox/supportwatch/internal/support"
	"github.com/netops-toolbox/supportwatch/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second
)

type Server struct {
	aggregator *support.Aggregator
	logger     *logrus.Logger
	listen     string
}

func New(aggregator *support.Aggregator, listenAddress string, logger *logrus.Logger) *Server {
	return &Server{
		aggregator: aggregator,
		logger:     logger,
		listen:     listenAddress,
	}
}

// Run serves the HTTP API until the context is canceled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.listen,
		Handler:           s.router(),
		ReadHeaderTimeout: 2 * time.Second, // nolint:gomnd // time duration value is clear as is.
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- server.ListenAndServe()
	}()

	s.logger.WithField("address", s.listen).Info("HTTP API listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	}
}

func (s *Server) router() *gin.Engine {
	if s.logger.Level < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.healthz)
	router.GET("/version", s.version)

	api := router.Group("/api/v1")
	{
		api.POST("/device/support", s.deviceSupport)
		api.GET("/connection/test", s.connectionTest)
	}

	return router
}

// requestLogger tags each request with an id and logs its outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Header("X-Request-Id", requestID)

		started := time.Now()

		c.Next()

		s.logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"elapsed":    time.Since(started).String(),
		}).Debug("request served")
	}
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) version(c *gin.Context) {
	c.JSON(http.StatusOK, version.Current())
}

// deviceSupport assembles the aggregate support record for the posted
// device document. Partial failure is not an HTTP error, the record
// carries per-section error text for the caller to render verbatim.
func (s *Server) deviceSupport(c *gin.Context) {
	d := &device.Device{}

	if err := c.ShouldBindJSON(d); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid device document: " + err.Error()})

		return
	}

	c.JSON(http.StatusOK, s.aggregator.Lookup(c.Request.Context(), d))
}

func (s *Server) connectionTest(c *gin.Context) {
	c.JSON(http.StatusOK, s.aggregator.TestConnection(c.Request.Context()))
}
