package core

import (
	"context"
	"time"
)

// HealthMonitorConfig configures the probe loop of spec.md §4.5.
type HealthMonitorConfig struct {
	Interval time.Duration `toml:"interval_seconds"`
}

// HealthMonitorStats is the observable snapshot described in spec.md §4.5.
type HealthMonitorStats struct {
	CurrentStatus     map[string]ModelHealth `json:"current_status"`
	TotalChecks       int                    `json:"total_checks"`
	ErrorCount        int                    `json:"error_count"`
	ErrorRate         float64                `json:"error_rate"`
	UptimePercentage  float64                `json:"uptime_percentage"`
	LastStatusChange  time.Time              `json:"last_status_change"`
}

// HealthMonitor runs a cooperative loop invoking the Gateway's health probe
// on an interval, updating the Model Selector and circuit breakers on
// transitions, per spec.md §4.5.
type HealthMonitor interface {
	Start(ctx context.Context)
	Stop()
	Stats() HealthMonitorStats
	OnStatusChange(fn func(model string, old, new ModelHealth))
}

// HealthMonitorFactory constructs a HealthMonitor. Registered by
// internal/health at init() time.
type HealthMonitorFactory func(cfg HealthMonitorConfig, gw Gateway, selector ModelSelector, breakerReset func(model string)) HealthMonitor

var healthMonitorFactory HealthMonitorFactory

func RegisterHealthMonitorFactory(f HealthMonitorFactory) {
	healthMonitorFactory = f
}

func NewHealthMonitor(cfg HealthMonitorConfig, gw Gateway, selector ModelSelector, breakerReset func(model string)) HealthMonitor {
	if healthMonitorFactory == nil {
		panic("core: no health monitor factory registered (import internal/health)")
	}
	return healthMonitorFactory(cfg, gw, selector, breakerReset)
}
