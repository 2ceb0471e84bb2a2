package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tender-server/docs/swagger"
	"tender-server/internal/config"
	middleware "tender-server/internal/interfaces/httpserver/middlewares"
	v1 "tender-server/internal/interfaces/httpserver/routes/v1"
)

const readinessTimeout = 3 * time.Second

// ReadinessCheck reports whether a dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Options carries the optional parts of the server.
type Options struct {
	// Readiness checks run by /readyz, keyed by dependency name.
	Readiness map[string]ReadinessCheck
	// FilesRoot, when set, is served under /files for the local attachment store.
	FilesRoot string
}

type HTTPServer struct {
	engine  *gin.Engine
	config  *config.Config
	v1Route *v1.V1Route
	log     zerolog.Logger
}

func NewHttpServer(cfg *config.Config, v1Route *v1.V1Route, opts Options, log zerolog.Logger) *HTTPServer {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	swagger.SwaggerInfo.BasePath = "/"

	server := &HTTPServer{
		engine:  gin.New(),
		config:  cfg,
		v1Route: v1Route,
		log:     log.With().Str("component", "http-server").Logger(),
	}
	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	server.engine.Use(middleware.TracingMiddleware(cfg.ServiceName))
	server.engine.Use(middleware.LoggingMiddleware(log))
	server.engine.Use(middleware.MetricsMiddleware())
	server.engine.Use(middleware.CORSMiddleware(cfg.CORSOrigins))

	server.registerCoreRoutes(opts)
	server.v1Route.RegisterRouter(server.engine)
	return server
}

// Handler exposes the engine, e.g. for httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

func (s *HTTPServer) registerCoreRoutes(opts Options) {
	s.engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": s.config.ServiceName, "status": "ok"})
	})
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		failures := gin.H{}
		for name, check := range opts.Readiness {
			if err := check(ctx); err != nil {
				s.log.Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "failures": failures})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if opts.FilesRoot != "" {
		s.engine.Static("/files", opts.FilesRoot)
	}
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *HTTPServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.config.Addr()).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
