package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/logic"
)

// PresenceConfig configures the presence tracker.
type PresenceConfig struct {
	Label     string
	Inventory string
	Name      string
	Polarity  logic.Polarity
}

// Presence tracks whether an inventory item is plugged in.
type Presence struct {
	lineLoop
	cfg       PresenceConfig
	inventory bus.InventoryPublisher
	state     logic.PresenceState
}

// NewPresence reads the current line level to determine initial presence.
// Nothing is published until Start.
func NewPresence(line gpio.Line, cfg PresenceConfig, inventory bus.InventoryPublisher, deps Deps) (*Presence, error) {
	if inventory == nil {
		return nil, errors.New("presence: nil inventory publisher")
	}
	if !bus.ValidInventoryPath(cfg.Inventory) {
		return nil, fmt.Errorf("presence: invalid inventory path %q", cfg.Inventory)
	}
	polarity, err := logic.ParsePolarity(string(cfg.Polarity))
	if err != nil {
		return nil, err
	}
	cfg.Polarity = polarity

	loop, err := newLineLoop(line, cfg.Label, deps)
	if err != nil {
		return nil, err
	}

	level, err := line.Value()
	if err != nil {
		return nil, fmt.Errorf("read initial level of %s: %w", cfg.Label, err)
	}

	p := &Presence{
		lineLoop:  loop,
		cfg:       cfg,
		inventory: inventory,
		state: logic.PresenceState{
			Present:   logic.PresentFromLevel(level, cfg.Polarity),
			Inventory: cfg.Inventory,
			Name:      cfg.Name,
		},
	}
	p.body = p.handleEdge
	return p, nil
}

// Start publishes the initial state unconditionally, establishing the
// inventory object, then arms the first wait.
func (p *Presence) Start(ctx context.Context) error {
	if ctx != nil {
		p.ctx = ctx
	}
	p.logger.Info("initial presence", "present", p.state.Present, "inventory", p.state.Inventory)
	p.publishPresence()
	return p.start(ctx)
}

// PresenceState returns the current presence.
func (p *Presence) PresenceState() logic.PresenceState {
	return p.state
}

func (p *Presence) handleEdge(ev gpio.EdgeEvent) bool {
	changed := p.state.Apply(logic.PresentFromEdge(ev.Edge, p.cfg.Polarity))
	p.publish(p.edgeEvent(ev, "present", p.state.Present, "changed", changed))

	if changed {
		p.publishPresence()
	}
	return true
}

// publishPresence sends the full property map. The local state has already
// advanced; a failed publication is only logged.
func (p *Presence) publishPresence() {
	if err := p.inventory.PublishPresence(p.ctx, p.state); err != nil {
		p.logger.Error("publishing presence failed", "inventory", p.state.Inventory, "error", err)
	}
	p.publish(p.state.PresenceEvent(p.label, p.now()))
}
