package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/backend"
	"github.com/deppfellow/meta-dispatcher/internal/config"
	"github.com/deppfellow/meta-dispatcher/internal/middleware"
	"github.com/deppfellow/meta-dispatcher/internal/server"
	"github.com/labstack/echo/v4"
)

// HealthHandler exposes a "system" endpoint that load balancers and uptime
// monitors use to verify the service is alive and its gate is usable.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth returns system health status and dependency checks.
//
// Response includes:
//   - overall status (healthy/unhealthy)
//   - timestamp (UTC) and environment
//   - checks: the gate mode and, in redis mode, redis connectivity
//   - backends: the configured downstream services
//
// Backends are listed, not probed: a health check must not queue behind
// the dispatch gate or load the backends.
//
// It returns 200 OK if all checks pass and 503 otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	checks := map[string]interface{}{
		"gate": map[string]interface{}{
			"status": "healthy",
			"mode":   h.server.Gate.Mode(),
		},
	}

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      checks,
		"backends":    describeBackends(&h.server.Config.Backends),
	}

	isHealthy := true

	if h.server.Redis != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		redisStart := time.Now()

		if err := h.server.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": time.Since(redisStart).String(),
				"error":         err.Error(),
			}

			// the redis gate cannot be acquired without redis
			isHealthy = false

			logger.Error().
				Err(err).
				Dur("response_time", time.Since(redisStart)).
				Msg("redis health check failed")

			if app := h.server.LoggerService.GetApplication(); app != nil {
				app.RecordCustomEvent("HealthCheckError", map[string]interface{}{
					"check_type":       "redis",
					"operation":        "health_check",
					"error_type":       "redis_unhealthy",
					"response_time_ms": time.Since(redisStart).Milliseconds(),
					"error_message":    err.Error(),
				})
			}
		} else {
			checks["redis"] = map[string]interface{}{
				"status":        "healthy",
				"response_time": time.Since(redisStart).String(),
			}

			logger.Debug().
				Dur("response_time", time.Since(redisStart)).
				Msg("redis health check passed")
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

func describeBackends(cfg *config.BackendsConfig) []map[string]string {
	descriptors := backend.Descriptors(cfg)

	out := make([]map[string]string, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, map[string]string{
			"kind":     string(d.Kind),
			"name":     d.Name,
			"url":      d.URL,
			"encoding": string(d.Encoding),
		})
	}

	return out
}
