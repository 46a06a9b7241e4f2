// Package recommend exposes the price recommender over HTTP with gin.
package recommend

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kilianp07/freightrec/core/logger"
	"github.com/kilianp07/freightrec/core/monitoring"
	"github.com/kilianp07/freightrec/core/prediction"
	"github.com/kilianp07/freightrec/core/recommend"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// Trainer refits and persists the model.
type Trainer interface {
	Train(ctx context.Context) (prediction.FitReport, error)
}

// Server routes HTTP requests to a recommend.Service.
type Server struct {
	svc     *recommend.Service
	trainer Trainer
	log     logger.Logger
	router  *gin.Engine
}

// Option configures a Server.
type Option func(*Server)

// WithTrainer enables POST /api/ml/train-model.
func WithTrainer(t Trainer) Option { return func(s *Server) { s.trainer = t } }

// WithLogger sets the access logger.
func WithLogger(l logger.Logger) Option { return func(s *Server) { s.log = logger.OrNop(l) } }

// NewServer builds the gin router.
func NewServer(svc *recommend.Service, opts ...Option) *Server {
	s := &Server{svc: svc, log: logger.Nop{}}
	for _, o := range opts {
		o(s)
	}
	r := gin.New()
	r.Use(s.requestID(), s.accessLog(), s.recovery())

	r.GET("/healthz", s.healthz)
	ml := r.Group("/api/ml")
	ml.POST("/recommend-freight-price", s.recommendFreightPrice)
	ml.POST("/feedback", s.feedback)
	ml.GET("/state", s.state)
	ml.POST("/test-predictions", s.testPredictions)
	ml.POST("/train-model", s.trainModel)
	s.router = r
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http server shutdown: %v", err)
		}
	}()
	s.log.Infof("http server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Debugw("http request", map[string]any{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"request_id": c.GetString(requestIDKey),
		})
	}
}

func (s *Server) recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				monitoring.CapturePanic(r, map[string]string{"transport": "http", "path": c.FullPath()})
				s.log.Errorf("panic serving %s: %v", c.FullPath(), r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(monitoring.PanicError(r)))
			}
		}()
		c.Next()
	}
}

// requestContext tags the request context for the service.
func requestContext(c *gin.Context) context.Context {
	ctx := recommend.WithTransport(c.Request.Context(), "http")
	return recommend.WithRequestID(ctx, c.GetString(requestIDKey))
}

func errorResponse(err error) gin.H {
	return gin.H{"success": false, "error": err.Error()}
}
