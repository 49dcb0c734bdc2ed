package monitor

import (
	"context"
	"fmt"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/logic"
)

// Config configures the generic edge monitor.
type Config struct {
	Label string
	// Value is the key value that triggers the target: 1 (press, rising)
	// or 0 (release, falling).
	Value int
	// Target is the systemd unit to start. Empty means log only.
	Target string
	// Continue keeps monitoring after the first matching edge.
	Continue bool
}

// Monitor logs every edge on a line and starts Target on matching edges.
type Monitor struct {
	lineLoop
	cfg     Config
	starter bus.UnitStarter
}

// NewMonitor creates a monitor for line. starter may be nil when no target is set.
func NewMonitor(line gpio.Line, cfg Config, starter bus.UnitStarter, deps Deps) (*Monitor, error) {
	if _, err := logic.EdgeForValue(cfg.Value); err != nil {
		return nil, err
	}
	if cfg.Target != "" && starter == nil {
		return nil, fmt.Errorf("monitor: target %s set without a unit starter", cfg.Target)
	}
	loop, err := newLineLoop(line, cfg.Label, deps)
	if err != nil {
		return nil, err
	}
	m := &Monitor{lineLoop: loop, cfg: cfg, starter: starter}
	m.body = m.handleEdge
	return m, nil
}

// Start arms the first wait.
func (m *Monitor) Start(ctx context.Context) error {
	return m.start(ctx)
}

func (m *Monitor) handleEdge(ev gpio.EdgeEvent) bool {
	matched := logic.MatchEdge(ev.Edge, m.cfg.Value)
	var unit string
	if matched && m.cfg.Target != "" {
		if err := m.starter.StartUnit(m.ctx, m.cfg.Target); err != nil {
			m.logger.Error("starting unit failed", "unit", m.cfg.Target, "error", err)
		} else {
			unit = m.cfg.Target
		}
	}

	var event logic.Event
	if unit != "" {
		event = m.edgeEvent(ev, "unit", unit)
		event.Unit = unit
	} else {
		event = m.edgeEvent(ev)
	}
	m.publish(event)

	if matched && !m.cfg.Continue {
		m.logger.Debug("matching edge seen, monitoring complete", "value", m.cfg.Value)
		return false
	}
	return true
}
