package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sproutlabs/sprout/runtime/internal/api/middleware"
	"github.com/sproutlabs/sprout/runtime/internal/domain/runtime"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/config"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/logging"
	"github.com/sproutlabs/sprout/runtime/internal/infrastructure/monitoring"
	"github.com/sproutlabs/sprout/runtime/internal/ws"
)

// Server wraps the HTTP server and the runtime instance it fronts.
type Server struct {
	router   *gin.Engine
	instance *runtime.Instance
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
	httpSrv  *http.Server
}

// NewServer creates a server with a fresh runtime instance.
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		lg, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = lg
	}

	metrics := monitoring.NewMetrics()

	instance := runtime.New(runtime.Options{
		TickInterval: cfg.Reactive.TickInterval,
		PollInterval: cfg.Reactive.PollInterval,
		CallTimeout:  cfg.Sandbox.CallTimeout,
		MaxMemory:    cfg.Sandbox.MaxMemoryBytes,
		Logger:       logger,
		Metrics:      metrics,
	})

	logger.Info("Initializing runtime server",
		zap.String("port", cfg.Server.Port),
		zap.String("instance", instance.ID()),
		zap.Duration("tick_interval", cfg.Reactive.TickInterval),
		zap.Duration("poll_interval", cfg.Reactive.PollInterval),
	)

	return assemble(cfg, instance, logger, metrics), nil
}

// NewServerWith creates a server around a preconfigured runtime instance.
// Tests use it to inject an instance backed by a fake sandbox loader.
func NewServerWith(cfg *config.Config, instance *runtime.Instance) *Server {
	return assemble(cfg, instance, logging.NewNop(), monitoring.NewMetrics())
}

func assemble(cfg *config.Config, instance *runtime.Instance, logger *logging.Logger, metrics *monitoring.Metrics) *Server {
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	s := &Server{
		router:   router,
		instance: instance,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}
	s.registerRoutes()
	return s
}

// Instance returns the runtime instance this server fronts.
func (s *Server) Instance() *runtime.Instance {
	return s.instance
}

// Router returns the gin engine, for tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	wsHandler := ws.NewHandler(s.instance, s.logger)

	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)

	// State access
	s.router.GET("/stats", s.handleStats)
	s.router.GET("/snapshot", s.handleSnapshot)
	s.router.GET("/events", s.handleEvents)
	s.router.GET("/values/:key", s.handleGetValue)
	s.router.POST("/values/:key", s.handleSetValue)
	s.router.POST("/transaction", s.handleTransaction)
	s.router.POST("/computed", s.handleComputed)

	// Module lifecycle
	s.router.POST("/load", s.handleLoad)
	s.router.POST("/call/:name", s.handleCall)
	s.router.POST("/sync", s.handleSync)
	s.router.POST("/flush", s.handleFlush)

	// State stream
	s.router.GET("/stream", wsHandler.HandleConnection)

	// Metrics exposition
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(
		s.metrics.Registry(),
		promhttp.HandlerOpts{},
	)))
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.httpSrv = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}
	s.logger.Info("Server listening", zap.String("addr", addr))
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close shuts the HTTP listener down gracefully and disposes the runtime
// instance.
func (s *Server) Close() error {
	var err error
	if s.httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = s.httpSrv.Shutdown(ctx)
	}
	s.instance.Dispose()
	s.logger.Sync() //nolint:errcheck // best-effort flush on shutdown
	return err
}
