package server

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/deppfellow/meta-dispatcher/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loggerPkg "github.com/deppfellow/meta-dispatcher/internal/logger"
)

func newServer(t *testing.T, cfg *config.Config) (*Server, error) {
	t.Helper()

	logger := zerolog.Nop()
	return New(cfg, &logger, loggerPkg.NewLoggerService(cfg.Observability))
}

func TestNew_LocalGate(t *testing.T) {
	s, err := newServer(t, config.Default())
	require.NoError(t, err)

	assert.Equal(t, "local", s.Gate.Mode())
	assert.Nil(t, s.Redis)
	require.NotNil(t, s.Metrics)

	families, err := s.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestNew_RedisGate(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.Default()
	cfg.Gate.Mode = config.GateModeRedis
	cfg.Gate.RedisAddress = mr.Addr()

	s, err := newServer(t, cfg)
	require.NoError(t, err)

	assert.Equal(t, "redis", s.Gate.Mode())
	require.NotNil(t, s.Redis)

	release, err := s.Gate.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, mr.Exists(cfg.Gate.LockName))
	release()

	assert.NoError(t, s.Shutdown(context.Background()))
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Gate.Mode = config.GateModeRedis
	cfg.Gate.RedisAddress = addr

	_, err := newServer(t, cfg)
	assert.ErrorContains(t, err, "failed to connect to redis")
}

func TestStart_WithoutSetup(t *testing.T) {
	s, err := newServer(t, config.Default())
	require.NoError(t, err)

	assert.EqualError(t, s.Start(), "HTTP server not initialized")
}
