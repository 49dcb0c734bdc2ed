// Package config turns command-line options and an optional TOML file into
// validated daemon settings.
//
// Options are first collected into a flat string table (Args). Unset keys read
// as the empty string; typed parsing and validation happen afterwards, before
// any device is opened.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

var (
	// ErrMissingArgument is returned when a required option is absent.
	ErrMissingArgument = errors.New("missing required argument")
	// ErrInvalidArgument is returned when an option value cannot be parsed.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Option keys shared by both daemons.
const (
	KeyConfig    = "config"
	KeyPath      = "path"
	KeyLabel     = "label"
	KeyLogLevel  = "log-level"
	KeyLogFormat = "log-format"
	KeyBroker    = "broker"
	KeyHTTP      = "http"
)

// gpio-monitor keys.
const (
	KeyCode     = "code"
	KeyValue    = "value"
	KeyTarget   = "target"
	KeyContinue = "continue"
)

// gpio-presence keys.
const (
	KeyInventory = "inventory"
	KeyKey       = "key"
	KeyName      = "name"
	KeyPolarity  = "polarity"
)

// Args is a flat option table.
type Args map[string]string

// Get returns the value for key, or "" when it was never set.
func (a Args) Get(key string) string {
	return a[key]
}

// Has reports whether key was set, even to an empty value.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// Overlay returns a copy of a with every key in over replacing a's value.
func (a Args) Overlay(over Args) Args {
	out := make(Args, len(a)+len(over))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range over {
		out[k] = v
	}
	return out
}

// FromFlags collects the flags that were set on the command line.
// Flags left at their default are not part of the table.
func FromFlags(fs *pflag.FlagSet) Args {
	args := Args{}
	fs.Visit(func(f *pflag.Flag) {
		args[f.Name] = f.Value.String()
	})
	return args
}

// File is the optional TOML configuration file.
type File struct {
	Line     LineSection     `toml:"line"`
	Monitor  MonitorSection  `toml:"monitor"`
	Presence PresenceSection `toml:"presence"`
	MQTT     MQTTSection     `toml:"mqtt"`
	HTTP     HTTPSection     `toml:"http"`
	Logging  LoggingSection  `toml:"logging"`
}

// LineSection selects the monitored GPIO line.
type LineSection struct {
	Path   string `toml:"path"`
	Offset *int   `toml:"offset"`
	Label  string `toml:"label"`
}

// MonitorSection configures gpio-monitor.
type MonitorSection struct {
	Value    *int   `toml:"value"`
	Target   string `toml:"target"`
	Continue *bool  `toml:"continue"`
}

// PresenceSection configures gpio-presence.
type PresenceSection struct {
	Inventory string `toml:"inventory"`
	Name      string `toml:"name"`
	Polarity  string `toml:"polarity"`
}

// MQTTSection configures the event mirror.
type MQTTSection struct {
	Broker string `toml:"broker"`
}

// HTTPSection configures the status server.
type HTTPSection struct {
	Addr string `toml:"addr"`
}

// LoggingSection configures the logger.
type LoggingSection struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LoadFile decodes the TOML file at path. An empty path yields an empty File.
func LoadFile(path string) (File, error) {
	var f File
	if path == "" {
		return f, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	return f, nil
}

// Args flattens the file into the option table. The line offset is exposed
// under both the monitor (code) and presence (key) option names.
func (f File) Args() Args {
	args := Args{}
	set := func(key, value string) {
		if value != "" {
			args[key] = value
		}
	}

	set(KeyPath, f.Line.Path)
	set(KeyLabel, f.Line.Label)
	if f.Line.Offset != nil {
		offset := strconv.Itoa(*f.Line.Offset)
		args[KeyCode] = offset
		args[KeyKey] = offset
	}

	if f.Monitor.Value != nil {
		args[KeyValue] = strconv.Itoa(*f.Monitor.Value)
	}
	set(KeyTarget, f.Monitor.Target)
	if f.Monitor.Continue != nil {
		args[KeyContinue] = strconv.FormatBool(*f.Monitor.Continue)
	}

	set(KeyInventory, f.Presence.Inventory)
	set(KeyName, f.Presence.Name)
	set(KeyPolarity, f.Presence.Polarity)

	set(KeyBroker, f.MQTT.Broker)
	set(KeyHTTP, f.HTTP.Addr)
	set(KeyLogLevel, f.Logging.Level)
	set(KeyLogFormat, f.Logging.Format)
	return args
}

// Resolve builds the option table for a command: the file named by --config
// (if any) overlaid by every flag that was set.
func Resolve(fs *pflag.FlagSet) (Args, error) {
	flags := FromFlags(fs)
	file, err := LoadFile(flags.Get(KeyConfig))
	if err != nil {
		return nil, err
	}
	return file.Args().Overlay(flags), nil
}

// AddCommonFlags registers the options shared by both daemons.
func AddCommonFlags(fs *pflag.FlagSet) {
	fs.String(KeyConfig, "", "TOML configuration file; flags override its values")
	fs.String(KeyPath, "", "GPIO character device path or chip name (e.g. /dev/gpiochip0)")
	fs.String(KeyLabel, "", "name used for the line in logs, MQTT topics and the status page")
	fs.String(KeyLogLevel, "info", "log level: debug, info, warn or error")
	fs.String(KeyLogFormat, "auto", "log format: auto, text or json")
	fs.String(KeyBroker, "", "MQTT broker to mirror events to (empty disables)")
	fs.String(KeyHTTP, "", "HTTP status address (empty disables)")
}
