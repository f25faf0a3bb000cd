// Package server defines the core Server struct that composes the app's main dependencies.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - the dispatch gate (and its redis client in cluster mode)
//   - the Prometheus registry and service metrics
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/config"
	"github.com/deppfellow/meta-dispatcher/internal/gate"
	"github.com/deppfellow/meta-dispatcher/internal/metrics"
	"github.com/newrelic/go-agent/v3/integrations/nrredis-v9"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/meta-dispatcher/internal/logger"
)

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself. It holds:
//   - the config
//   - the logger(s)
//   - the dispatch gate and the optional redis connection behind it
//   - the metrics registry
//   - an internal *http.Server used to listen and serve requests
type Server struct {
	// Config holds all environment/config values for the app.
	Config *config.Config

	// Logger is the application's main structured logger.
	Logger *zerolog.Logger

	// LoggerService optionally holds the New Relic application instance.
	LoggerService *loggerPkg.LoggerService

	// Redis is only set when the gate runs in redis mode.
	Redis *redis.Client

	// Gate serialises dispatches.
	Gate gate.Gate

	// Registry is served on /metrics.
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics

	httpServer *http.Server
}

// New constructs a Server and initializes core dependencies.
//
// It does NOT start the HTTP server. That is done in SetupHTTPServer + Start.
//
// In redis gate mode the redis client must answer a PING at startup: a
// replica that cannot reach the shared lock would break the one-at-a-time
// guarantee, so startup fails instead.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	serviceMetrics := metrics.New(registry)
	if err := serviceMetrics.Register(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	server := &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		Registry:      registry,
		Metrics:       serviceMetrics,
	}

	switch cfg.Gate.Mode {
	case config.GateModeRedis:
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.Gate.RedisAddress,
		})

		// Hooks instrument Redis commands so lock traffic shows up in traces.
		if loggerService.GetApplication() != nil {
			redisClient.AddHook(nrredis.NewHook(redisClient.Options()))
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			_ = redisClient.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Gate.RedisAddress, err)
		}

		server.Redis = redisClient
		server.Gate = gate.NewRedisGate(
			redisClient,
			cfg.Gate.LockName,
			cfg.Gate.LockExpiry(cfg.Backends.TimeoutDuration()),
			cfg.Gate.RetryDelayDuration(),
		)

	default:
		server.Gate = gate.NewLocalGate()
	}

	logger.Info().
		Str("gate_mode", server.Gate.Mode()).
		Str("face_url", cfg.Backends.Face.URL).
		Str("image_url", cfg.Backends.Image.URL).
		Dur("backend_timeout", cfg.Backends.TimeoutDuration()).
		Msg("server dependencies initialized")

	return server, nil
}

// SetupHTTPServer configures the internal net/http server.
//
// The router (echo) is passed in as handler.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,

		// Config stores int values, interpreted here as seconds. A zero
		// WriteTimeout leaves long backend calls unbounded at this layer.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start runs the HTTP server. It blocks until the server stops.
//
// It requires SetupHTTPServer to be called first.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("port", s.Config.Server.Port).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server and its dependencies.
//
// In-flight dispatches finish (or the ctx deadline passes) before the redis
// connection is closed, so held locks are released first.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown HTTP server: %w", err)
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			return fmt.Errorf("failed to close redis connection: %w", err)
		}
	}

	return nil
}
