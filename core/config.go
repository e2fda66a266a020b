package core

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration struct, grounded on the teacher's
// core/config.go nested anonymous TOML-tagged structs, generalized from
// AgentFlow's runtime/provider/memory sections to this spec's gateway,
// reliability, and context-memory sections.
type Config struct {
	Runtime struct {
		DefaultModel string `toml:"default_model"`
		AgentModels  map[string]string `toml:"agent_models"`
	} `toml:"runtime"`

	Logging struct {
		Level  string `toml:"level"`
		Dir    string `toml:"dir"`
	} `toml:"logging"`

	Providers map[string]ProviderEndpoint `toml:"providers"`

	ErrorRouting struct {
		CircuitBreaker BreakerConfig    `toml:"circuit_breaker"`
		Retry          RetryPolicy      `toml:"retry"`
		RateLimiter    RateLimiterConfig `toml:"rate_limiter"`
		Queue          QueueConfig      `toml:"queue"`
	} `toml:"error_routing"`

	Memory ContextMemoryConfig `toml:"memory"`

	Agent AgentEnvelopeConfig `toml:"agent"`

	Scheduler SchedulerConfig `toml:"scheduler"`

	Health HealthMonitorConfig `toml:"health"`
}

// DefaultConfig returns a Config populated with every subsystem's defaults.
func DefaultConfig() Config {
	var c Config
	c.Runtime.DefaultModel = "gpt-4o"
	c.Runtime.AgentModels = map[string]string{}
	c.Logging.Level = "info"
	c.Logging.Dir = "./logs"
	c.Providers = map[string]ProviderEndpoint{}
	c.ErrorRouting.CircuitBreaker = DefaultBreakerConfig()
	c.ErrorRouting.Retry = DefaultRetryPolicy()
	c.ErrorRouting.RateLimiter = DefaultRateLimiterConfig()
	c.ErrorRouting.Queue = DefaultQueueConfig()
	c.Memory = DefaultContextMemoryConfig()
	c.Agent = DefaultAgentEnvelopeConfig()
	c.Scheduler = DefaultSchedulerConfig()
	c.Health = HealthMonitorConfig{Interval: 60 * time.Second}
	return c
}

// LoadConfig reads path as TOML (if present) over DefaultConfig, then
// applies the environment variable overrides of spec.md §6, grounded on the
// teacher's core/config.go LoadConfig's os.Stat + BurntSushi/toml pattern.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if _, err := toml.DecodeFile(path, &cfg); err != nil {
				return cfg, fmt.Errorf("core: decode config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return cfg, fmt.Errorf("core: stat config %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// applyEnvOverrides mirrors spec.md §6's environment variable table.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ARGO_PROXY_URL"); v != "" {
		ep := cfg.Providers["default"]
		ep.BaseURL = v
		cfg.Providers["default"] = ep
	}
	if v := os.Getenv("ARGO_AUTH_USER"); v != "" {
		ep := cfg.Providers["default"]
		ep.AuthUser = v
		cfg.Providers["default"] = ep
	}
	if v := os.Getenv("ARGO_REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			ep := cfg.Providers["default"]
			ep.Timeout = n
			cfg.Providers["default"] = ep
		}
	}
	if v := os.Getenv("ARGO_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ErrorRouting.Retry.MaxRetries = n
		}
	}
	if v := os.Getenv("ARGO_QUEUE_MAX_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ErrorRouting.Queue.MaxSize = n
		}
	}
	if v := os.Getenv("ARGO_QUEUE_MAX_WAIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ErrorRouting.Queue.MaxWaitTime = time.Duration(n) * time.Second
		}
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		cfg.Runtime.DefaultModel = v
	}
	for _, a := range []AgentType{AgentGeneration, AgentReflection, AgentRanking, AgentEvolution, AgentProximity, AgentMetaReview} {
		envName := strings.ToUpper(strings.ReplaceAll(string(a), "-", "_")) + "_MODEL"
		if v := os.Getenv(envName); v != "" {
			cfg.Runtime.AgentModels[string(a)] = v
		}
	}
}
