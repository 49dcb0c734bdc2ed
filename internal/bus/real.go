package bus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// Conn is a shared system bus client. Each call is independent; no locking
// discipline is needed beyond the cached inventory service name.
type Conn struct {
	conn   *dbus.Conn
	logger *slog.Logger

	mu               sync.Mutex
	inventoryService string
}

// ConnectSystem connects to the system bus.
func ConnectSystem(logger *slog.Logger) (*Conn, error) {
	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return NewConn(conn, logger), nil
}

// NewConn wraps an existing connection.
func NewConn(conn *dbus.Conn, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{conn: conn, logger: logger}
}

// StartUnit sends StartUnit(unit, "replace") without expecting a reply.
func (c *Conn) StartUnit(ctx context.Context, unit string) error {
	if unit == "" {
		return errors.New("start unit: empty unit name")
	}
	obj := c.conn.Object(systemdService, systemdPath)
	call := obj.GoWithContext(ctx, systemdInterface+".StartUnit", dbus.FlagNoReplyExpected, nil, unit, StartMode)
	if call.Err != nil {
		return fmt.Errorf("start unit %s: %w", unit, call.Err)
	}
	return nil
}

// PublishPresence sends Notify with the full object map for state.
func (c *Conn) PublishPresence(ctx context.Context, state logic.PresenceState) error {
	service := c.lookupInventoryService(ctx)
	obj := c.conn.Object(service, InventoryRoot)
	call := obj.CallWithContext(ctx, InventoryManagerInterface+".Notify", 0, PresenceObjectMap(state))
	if call.Err != nil {
		return fmt.Errorf("notify inventory %s: %w", state.Inventory, call.Err)
	}
	return nil
}

// lookupInventoryService asks the mapper which service implements the
// inventory manager. The answer is cached; failures fall back to the default name.
func (c *Conn) lookupInventoryService(ctx context.Context) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.inventoryService != "" {
		return c.inventoryService
	}

	var services map[string][]string
	mapper := c.conn.Object(mapperService, mapperPath)
	err := mapper.CallWithContext(ctx, mapperInterface+".GetObject", 0,
		InventoryRoot, []string{InventoryManagerInterface}).Store(&services)
	if err != nil || len(services) == 0 {
		c.logger.Warn("mapper lookup failed, using default inventory service",
			"service", DefaultInventoryService, "error", err)
		return DefaultInventoryService
	}
	for name := range services {
		c.inventoryService = name
		break
	}
	return c.inventoryService
}

// Close disconnects from the bus.
func (c *Conn) Close() error {
	return c.conn.Close()
}
