// Package bus publishes daemon results to system services: systemd unit starts
// and OpenBMC inventory updates over D-Bus, plus sd_notify readiness.
package bus

import (
	"context"

	"github.com/godbus/dbus/v5"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// systemd manager, used to kick off a target unit.
const (
	systemdService   = "org.freedesktop.systemd1"
	systemdPath      = "/org/freedesktop/systemd1"
	systemdInterface = "org.freedesktop.systemd1.Manager"

	// StartMode is the job mode passed to StartUnit.
	StartMode = "replace"
)

// OpenBMC object mapper and inventory manager.
const (
	mapperService   = "xyz.openbmc_project.ObjectMapper"
	mapperPath      = "/xyz/openbmc_project/object_mapper"
	mapperInterface = "xyz.openbmc_project.ObjectMapper"

	InventoryRoot             = "/xyz/openbmc_project/inventory"
	InventoryManagerInterface = "xyz.openbmc_project.Inventory.Manager"
	InventoryItemInterface    = "xyz.openbmc_project.Inventory.Item"

	// DefaultInventoryService is used when the mapper cannot be queried.
	DefaultInventoryService = "xyz.openbmc_project.Inventory.Manager"
)

// UnitStarter starts a named systemd unit.
type UnitStarter interface {
	// StartUnit requests the unit start and does not wait for the job.
	StartUnit(ctx context.Context, unit string) error
}

// InventoryPublisher replaces the presence properties of an inventory item.
type InventoryPublisher interface {
	PublishPresence(ctx context.Context, state logic.PresenceState) error
}

// PropertyMap associates property names with values.
type PropertyMap map[string]dbus.Variant

// InterfaceMap associates interface names with their properties.
type InterfaceMap map[string]PropertyMap

// ObjectMap associates object paths (relative to InventoryRoot) with interfaces.
type ObjectMap map[dbus.ObjectPath]InterfaceMap

// PresenceObjectMap builds the full Notify payload for state.
func PresenceObjectMap(state logic.PresenceState) ObjectMap {
	return ObjectMap{
		dbus.ObjectPath(state.Inventory): InterfaceMap{
			InventoryItemInterface: PropertyMap{
				"Present":    dbus.MakeVariant(state.Present),
				"PrettyName": dbus.MakeVariant(state.Name),
			},
		},
	}
}

// ValidInventoryPath reports whether p can be used as an inventory object path.
func ValidInventoryPath(p string) bool {
	return p != "" && dbus.ObjectPath(p).IsValid()
}
