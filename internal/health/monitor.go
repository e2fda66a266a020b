// Package health implements core.HealthMonitor: a cooperative goroutine
// loop probing the Gateway on an interval and updating the Model Selector
// and circuit breakers on transitions, grounded on the teacher's
// core/orchestrator.go Stop()-via-context-cancellation shutdown idiom
// (spec.md §4.5, §5).
package health

import (
	"context"
	"sync"
	"time"

	"github.com/jplfaria/cogniscient-runtime/core"
)

func init() {
	core.RegisterHealthMonitorFactory(newMonitor)
}

type monitor struct {
	cfg          core.HealthMonitorConfig
	gw           core.Gateway
	selector     core.ModelSelector
	breakerReset func(model string)

	mu         sync.Mutex
	current    map[string]core.ModelHealth
	totalChecks int
	errorCount  int
	lastChange  time.Time
	onChange    func(model string, old, new core.ModelHealth)

	cancel context.CancelFunc
	done   chan struct{}
}

func newMonitor(cfg core.HealthMonitorConfig, gw core.Gateway, selector core.ModelSelector, breakerReset func(model string)) core.HealthMonitor {
	return &monitor{
		cfg:          cfg,
		gw:           gw,
		selector:     selector,
		breakerReset: breakerReset,
		current:      make(map[string]core.ModelHealth),
	}
}

func (m *monitor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.mu.Lock()
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	interval := m.cfg.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		m.probe(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.probe(ctx)
			}
		}
	}()
}

func (m *monitor) probe(ctx context.Context) {
	status, err := m.gw.HealthStatus(ctx)

	m.mu.Lock()
	m.totalChecks++
	if err != nil {
		m.errorCount++
		m.mu.Unlock()
		return
	}
	changed := []func(){}
	for model, health := range status {
		old, had := m.current[model]
		if !had || old.Available != health.Available {
			m.lastChange = time.Now()
			if m.selector != nil {
				if health.Available {
					m.selector.MarkAvailable(model)
				} else {
					m.selector.MarkUnavailable(model)
				}
			}
			if health.Available && had && !old.Available && m.breakerReset != nil {
				m.breakerReset(model)
			}
			if m.onChange != nil {
				cb, mdl, o, n := m.onChange, model, old, health
				changed = append(changed, func() { cb(mdl, o, n) })
			}
		}
		m.current[model] = health
	}
	m.mu.Unlock()

	for _, fn := range changed {
		fn()
	}
}

func (m *monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (m *monitor) Stats() core.HealthMonitorStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]core.ModelHealth, len(m.current))
	for k, v := range m.current {
		snapshot[k] = v
	}

	var errorRate float64
	if m.totalChecks > 0 {
		errorRate = float64(m.errorCount) / float64(m.totalChecks)
	}
	return core.HealthMonitorStats{
		CurrentStatus:    snapshot,
		TotalChecks:      m.totalChecks,
		ErrorCount:       m.errorCount,
		ErrorRate:        errorRate,
		UptimePercentage: (1 - errorRate) * 100,
		LastStatusChange: m.lastChange,
	}
}

func (m *monitor) OnStatusChange(fn func(model string, old, new core.ModelHealth)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChange = fn
}
