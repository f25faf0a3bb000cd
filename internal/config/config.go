// Package config manages environment variables.
//
// It reads variables from the process environment (and from a `.env` file
// when one exists), loads them into structured Go types, and validates
// that required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Start from sane defaults so a bare environment still boots.
//   - Validate values so the app fails fast on bad config.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/deppfellow/meta-dispatcher/internal/validation"
	// Side-effect import: if a `.env` file exists, it gets loaded into the
	// process env before any variable is read.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the prefix DISPATCHER_.

	Keys are normalized: the prefix is removed, the rest is lowercased and
	a double underscore marks one level of nesting. A single underscore is
	kept as part of the key name.

	  DISPATCHER_SERVER__PORT             -> server.port
	  DISPATCHER_BACKENDS__FACE__URL      -> backends.face.url
	  DISPATCHER_GATE__REDIS_ADDRESS      -> gate.redis_address
*/

// EnvPrefix is the prefix every configuration variable must carry.
const EnvPrefix = "DISPATCHER_"

// Gate modes.
const (
	GateModeLocal = "local"
	GateModeRedis = "redis"
)

// Config is the root configuration object for the application.
//
// The `koanf:"..."` tags specify where koanf maps values from and the
// `validate:"..."` tags are enforced by go-playground/validator.
//
// Observability is a pointer because it is optional. If not provided,
// defaults are injected at load time.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Backends      BackendsConfig       `koanf:"backends" validate:"required"`
	Gate          GateConfig           `koanf:"gate" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Timeouts are whole seconds. A write timeout of 0 disables it, which is
// the safer choice here: requests may wait behind the exclusivity gate for
// as long as the in-flight backend call takes.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"gte=0"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"gte=0"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"gte=0"`
	BodyLimit          string   `koanf:"body_limit" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// BackendsConfig holds the address of every downstream service and the
// wall-clock budget of a single call to any of them.
type BackendsConfig struct {
	// Timeout is expressed in seconds.
	Timeout int           `koanf:"timeout" validate:"required,gt=0"`
	Face    BackendConfig `koanf:"face" validate:"required"`
	Image   BackendConfig `koanf:"image" validate:"required"`
}

// BackendConfig describes how to reach one downstream service.
type BackendConfig struct {
	URL string `koanf:"url" validate:"required,url"`
}

// GateConfig selects how the one-request-at-a-time gate is enforced.
//
// In "local" mode the gate is a process-wide semaphore. In "redis" mode the
// process-wide semaphore is additionally backed by a Redis lock so that
// several replicas serialize against each other.
type GateConfig struct {
	Mode         string `koanf:"mode" validate:"required,oneof=local redis"`
	RedisAddress string `koanf:"redis_address" validate:"required_if=Mode redis"`
	LockName     string `koanf:"lock_name" validate:"required"`
	// LockTTL and RetryDelay are expressed in seconds and milliseconds.
	LockTTL    int `koanf:"lock_ttl" validate:"gte=0"`
	RetryDelay int `koanf:"retry_delay" validate:"gt=0"`
}

// Default returns the configuration used when no environment variable
// overrides a value.
func Default() *Config {
	return &Config{
		Primary: Primary{
			Env: "development",
		},
		Server: ServerConfig{
			Port:               "8000",
			ReadTimeout:        30,
			WriteTimeout:       0,
			IdleTimeout:        60,
			BodyLimit:          "64M",
			CORSAllowedOrigins: []string{"*"},
		},
		Backends: BackendsConfig{
			Timeout: 300,
			Face: BackendConfig{
				URL: "http://localhost:8001",
			},
			Image: BackendConfig{
				URL: "http://localhost:5000/sdapi/v1/img2img",
			},
		},
		Gate: GateConfig{
			Mode:       GateModeLocal,
			LockName:   "meta-dispatcher:gate",
			RetryDelay: 100,
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// LoadConfig loads configuration from environment variables on top of
// Default(), validates it, applies observability defaults and returns it.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := Default()

	// Keys absent from the environment keep their default value.
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := mainConfig.Validate(); err != nil {
		return nil, err
	}

	return mainConfig, nil
}

// Validate checks struct tags through the shared validator, fills the
// observability block when it is missing and runs the cross-field rules.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %s", validation.Summary(validation.FieldErrors(err)))
	}

	if c.Observability == nil {
		c.Observability = DefaultObservabilityConfig()
	}

	// Service name is fixed; environment always follows primary.env so
	// logs and traces agree.
	c.Observability.ServiceName = ServiceName
	c.Observability.Environment = c.Primary.Env

	if err := c.Observability.Validate(); err != nil {
		return err
	}

	if c.Gate.Mode == GateModeRedis && c.Gate.LockTTL > 0 && c.Gate.LockTTL <= c.Backends.Timeout {
		return fmt.Errorf("gate lock_ttl (%ds) must exceed backends timeout (%ds)", c.Gate.LockTTL, c.Backends.Timeout)
	}

	return nil
}

// TimeoutDuration returns the per-call backend budget.
func (c BackendsConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// LockExpiry returns how long a Redis gate lock lives before it expires on
// its own. When lock_ttl is unset it is derived from the backend budget so a
// healthy holder never loses the lock mid-call.
func (c GateConfig) LockExpiry(backendTimeout time.Duration) time.Duration {
	if c.LockTTL > 0 {
		return time.Duration(c.LockTTL) * time.Second
	}
	return backendTimeout + 30*time.Second
}

// RetryDelayDuration returns the pause between two Redis lock attempts.
func (c GateConfig) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Millisecond
}
