// Package server exposes the risk calculator as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/abhisek/heartrisk/internal/metrics"
	"github.com/abhisek/heartrisk/internal/model"
	"github.com/abhisek/heartrisk/internal/predict"
	"github.com/abhisek/heartrisk/internal/session"
	"github.com/abhisek/heartrisk/internal/store"
)

// SessionHeader carries the session ID on requests and responses.
const SessionHeader = "X-Session-ID"

// Options wires the server's collaborators. Events and Metrics are
// optional.
type Options struct {
	Model       model.Source
	Adapter     *predict.Adapter
	Sessions    *session.Registry
	Events      store.EventRepo
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
	Version     string
	CORSOrigins []string
	SessionTTL  time.Duration
}

// Server is the HTTP API.
type Server struct {
	opts   Options
	engine *gin.Engine
	now    func() time.Time
}

// New builds the router. Call gin.SetMode before New to pick the mode.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewRegistry()
	}
	s := &Server{opts: opts, now: time.Now}

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(corsConfig(opts.CORSOrigins)))

	r.GET("/health", s.health)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	{
		api.GET("/options", s.options)
		api.POST("/decode", s.decode)
		api.POST("/predict", s.withSession, s.predict)
		api.GET("/sessions/:id/input.json", s.downloadInput)
		api.DELETE("/sessions/:id", s.clearSession)
		api.GET("/history", s.history)
	}

	s.engine = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if ttl := s.opts.SessionTTL; ttl > 0 {
		go s.expireSessions(ctx, ttl)
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.opts.Logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// sweepInterval is how often idle sessions are checked against ttl.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}

func (s *Server) expireSessions(ctx context.Context, ttl time.Duration) {
	tick := time.NewTicker(sweepInterval(ttl))
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			if n := s.opts.Sessions.Expire(ttl); n > 0 {
				s.opts.Logger.Debug("expired sessions", "count", n)
			}
		}
	}
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.DefaultConfig()
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	cfg.AllowHeaders = []string{"Content-Type", SessionHeader}
	cfg.ExposeHeaders = []string{SessionHeader, "Content-Disposition"}
	return cfg
}

// requestLogger logs one line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.opts.Logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// withSession resolves the caller's session ID, minting one when the
// header is absent or malformed, and echoes it on the response.
func (s *Server) withSession(c *gin.Context) {
	id := c.GetHeader(SessionHeader)
	if !session.ValidID(id) {
		id = session.NewID()
	}
	c.Set("session_id", id)
	c.Header(SessionHeader, id)
	c.Next()
}
