package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/godbus/dbus/v5"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// Common holds the settings shared by both daemons.
type Common struct {
	Path      string
	Offset    int
	Label     string
	LogLevel  string
	LogFormat string
	Broker    string
	HTTPAddr  string
}

// Monitor holds validated gpio-monitor settings.
type Monitor struct {
	Common
	Value    int
	Target   string
	Continue bool
}

// Presence holds validated gpio-presence settings.
type Presence struct {
	Common
	Inventory string
	Name      string
	Polarity  logic.Polarity
}

// ValidateMonitor checks a gpio-monitor option table.
// path, code and value are required.
func ValidateMonitor(args Args) (Monitor, error) {
	var m Monitor
	if err := require(args, KeyPath, KeyCode, KeyValue); err != nil {
		return m, err
	}

	common, err := commonFrom(args, KeyCode)
	if err != nil {
		return m, err
	}
	m.Common = common

	value, err := parseInt(args, KeyValue)
	if err != nil {
		return m, err
	}
	if _, err := logic.EdgeForValue(value); err != nil {
		return m, fmt.Errorf("%w: --%s: %v", ErrInvalidArgument, KeyValue, err)
	}
	m.Value = value
	m.Target = strings.TrimSpace(args.Get(KeyTarget))

	m.Continue = true
	if s := args.Get(KeyContinue); s != "" {
		cont, err := strconv.ParseBool(s)
		if err != nil {
			return m, fmt.Errorf("%w: --%s=%q", ErrInvalidArgument, KeyContinue, s)
		}
		m.Continue = cont
	}
	return m, nil
}

// ValidatePresence checks a gpio-presence option table.
// inventory, key and path are required.
func ValidatePresence(args Args) (Presence, error) {
	var p Presence
	if err := require(args, KeyInventory, KeyKey, KeyPath); err != nil {
		return p, err
	}

	common, err := commonFrom(args, KeyKey)
	if err != nil {
		return p, err
	}
	p.Common = common

	inventory := args.Get(KeyInventory)
	if !dbus.ObjectPath(inventory).IsValid() {
		return p, fmt.Errorf("%w: --%s=%q is not an object path", ErrInvalidArgument, KeyInventory, inventory)
	}
	p.Inventory = inventory
	p.Name = args.Get(KeyName)

	polarity, err := logic.ParsePolarity(args.Get(KeyPolarity))
	if err != nil {
		return p, fmt.Errorf("%w: --%s: %v", ErrInvalidArgument, KeyPolarity, err)
	}
	p.Polarity = polarity
	return p, nil
}

func require(args Args, keys ...string) error {
	var missing []string
	for _, k := range keys {
		if args.Get(k) == "" {
			missing = append(missing, "--"+k)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingArgument, strings.Join(missing, ", "))
	}
	return nil
}

func commonFrom(args Args, offsetKey string) (Common, error) {
	offset, err := parseInt(args, offsetKey)
	if err != nil {
		return Common{}, err
	}
	if offset < 0 {
		return Common{}, fmt.Errorf("%w: --%s=%d must not be negative", ErrInvalidArgument, offsetKey, offset)
	}
	return Common{
		Path:      args.Get(KeyPath),
		Offset:    offset,
		Label:     args.Get(KeyLabel),
		LogLevel:  args.Get(KeyLogLevel),
		LogFormat: args.Get(KeyLogFormat),
		Broker:    args.Get(KeyBroker),
		HTTPAddr:  args.Get(KeyHTTP),
	}, nil
}

func parseInt(args Args, key string) (int, error) {
	s := strings.TrimSpace(args.Get(key))
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: --%s=%q is not an integer", ErrInvalidArgument, key, s)
	}
	return n, nil
}
