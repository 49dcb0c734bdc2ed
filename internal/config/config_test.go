package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

func TestArgsGetUnsetIsEmpty(t *testing.T) {
	args := Args{KeyPath: "/dev/gpiochip0"}
	if got := args.Get(KeyTarget); got != "" {
		t.Errorf("unset key: got %q, want empty", got)
	}
	if got := args.Get(KeyPath); got != "/dev/gpiochip0" {
		t.Errorf("path: got %q", got)
	}
	if args.Has(KeyTarget) {
		t.Error("Has(target) should be false")
	}
}

func TestOverlay(t *testing.T) {
	base := Args{KeyPath: "gpiochip0", KeyCode: "3"}
	got := base.Overlay(Args{KeyCode: "7"})

	if got.Get(KeyPath) != "gpiochip0" || got.Get(KeyCode) != "7" {
		t.Errorf("overlay: got %v", got)
	}
	if base.Get(KeyCode) != "3" {
		t.Error("overlay must not modify the base table")
	}
}

func newFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String(KeyConfig, "", "")
	fs.String(KeyPath, "", "")
	fs.String(KeyCode, "", "")
	fs.String(KeyValue, "", "")
	fs.String(KeyTarget, "", "")
	fs.Bool(KeyContinue, false, "")
	return fs
}

func TestFromFlagsOnlyChanged(t *testing.T) {
	fs := newFlags()
	if err := fs.Parse([]string{"--path=gpiochip1", "--continue"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	args := FromFlags(fs)
	if args.Get(KeyPath) != "gpiochip1" {
		t.Errorf("path: got %q", args.Get(KeyPath))
	}
	if args.Get(KeyContinue) != "true" {
		t.Errorf("continue: got %q", args.Get(KeyContinue))
	}
	if args.Has(KeyTarget) {
		t.Error("target was not set and should be absent")
	}
}

const sampleFile = `
[line]
path = "/dev/gpiochip0"
offset = 12
label = "power-button"

[monitor]
value = 1
target = "obmc-host-start@0.target"
continue = true

[presence]
inventory = "/system/chassis/motherboard/fan0"
name = "Fan 0"
polarity = "falling"

[mqtt]
broker = "tcp://localhost:1883"

[http]
addr = ":8080"

[logging]
level = "debug"
format = "json"
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gpio.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFile(t *testing.T) {
	f, err := LoadFile(writeFile(t, sampleFile))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	args := f.Args()
	want := map[string]string{
		KeyPath:      "/dev/gpiochip0",
		KeyCode:      "12",
		KeyKey:       "12",
		KeyLabel:     "power-button",
		KeyValue:     "1",
		KeyTarget:    "obmc-host-start@0.target",
		KeyContinue:  "true",
		KeyInventory: "/system/chassis/motherboard/fan0",
		KeyName:      "Fan 0",
		KeyPolarity:  "falling",
		KeyBroker:    "tcp://localhost:1883",
		KeyHTTP:      ":8080",
		KeyLogLevel:  "debug",
		KeyLogFormat: "json",
	}
	for k, v := range want {
		if got := args.Get(k); got != v {
			t.Errorf("%s: got %q, want %q", k, got, v)
		}
	}
}

func TestLoadFileZeroValuesKept(t *testing.T) {
	f, err := LoadFile(writeFile(t, "[line]\noffset = 0\n[monitor]\nvalue = 0\n"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	args := f.Args()
	if args.Get(KeyCode) != "0" || args.Get(KeyValue) != "0" {
		t.Errorf("zero offset/value must be kept: %v", args)
	}
}

func TestLoadFileEmptyPath(t *testing.T) {
	f, err := LoadFile("")
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(f.Args()) != 0 {
		t.Errorf("expected empty table, got %v", f.Args())
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: got %v", err)
	}
	if _, err := LoadFile(writeFile(t, "[line\npath=")); err == nil {
		t.Error("expected parse error")
	}
}

func TestResolveFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, sampleFile)
	fs := newFlags()
	if err := fs.Parse([]string{"--config=" + path, "--code=5"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	args, err := Resolve(fs)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if args.Get(KeyCode) != "5" {
		t.Errorf("code: got %q, want flag value 5", args.Get(KeyCode))
	}
	if args.Get(KeyPath) != "/dev/gpiochip0" {
		t.Errorf("path: got %q, want file value", args.Get(KeyPath))
	}
}

func TestValidateMonitor(t *testing.T) {
	m, err := ValidateMonitor(Args{
		KeyPath:   "/dev/gpiochip0",
		KeyCode:   "3",
		KeyValue:  "0",
		KeyTarget: " poweroff.target ",
		KeyBroker: "tcp://b:1883",
	})
	if err != nil {
		t.Fatalf("ValidateMonitor: %v", err)
	}
	if m.Path != "/dev/gpiochip0" || m.Offset != 3 || m.Value != 0 {
		t.Errorf("unexpected settings: %+v", m)
	}
	if m.Target != "poweroff.target" {
		t.Errorf("target: got %q", m.Target)
	}
	if !m.Continue {
		t.Error("monitor should keep running by default")
	}

	oneShot, err := ValidateMonitor(Args{KeyPath: "gpiochip0", KeyCode: "3", KeyValue: "1", KeyContinue: "false"})
	if err != nil {
		t.Fatalf("ValidateMonitor: %v", err)
	}
	if oneShot.Continue {
		t.Error("--continue=false should select one-shot")
	}
	if m.Broker != "tcp://b:1883" {
		t.Errorf("broker: got %q", m.Broker)
	}
}

func TestValidateMonitorErrors(t *testing.T) {
	full := Args{KeyPath: "gpiochip0", KeyCode: "3", KeyValue: "1"}
	tests := []struct {
		name string
		args Args
		want error
	}{
		{"missing path", Args{KeyCode: "3", KeyValue: "1"}, ErrMissingArgument},
		{"missing code", Args{KeyPath: "gpiochip0", KeyValue: "1"}, ErrMissingArgument},
		{"missing value", Args{KeyPath: "gpiochip0", KeyCode: "3"}, ErrMissingArgument},
		{"empty", Args{}, ErrMissingArgument},
		{"code not a number", full.Overlay(Args{KeyCode: "x"}), ErrInvalidArgument},
		{"negative code", full.Overlay(Args{KeyCode: "-1"}), ErrInvalidArgument},
		{"value out of range", full.Overlay(Args{KeyValue: "2"}), ErrInvalidArgument},
		{"bad continue", full.Overlay(Args{KeyContinue: "maybe"}), ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidateMonitor(tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidatePresence(t *testing.T) {
	p, err := ValidatePresence(Args{
		KeyInventory: "/system/chassis/motherboard/fan0",
		KeyKey:       "7",
		KeyPath:      "gpiochip0",
		KeyName:      "Fan 0",
	})
	if err != nil {
		t.Fatalf("ValidatePresence: %v", err)
	}
	if p.Offset != 7 || p.Inventory != "/system/chassis/motherboard/fan0" || p.Name != "Fan 0" {
		t.Errorf("unexpected settings: %+v", p)
	}
	if p.Polarity != logic.PolarityRising {
		t.Errorf("polarity default: got %q, want rising", p.Polarity)
	}
}

func TestValidatePresenceErrors(t *testing.T) {
	full := Args{KeyInventory: "/system/fan0", KeyKey: "7", KeyPath: "gpiochip0"}
	tests := []struct {
		name string
		args Args
		want error
	}{
		{"missing inventory", Args{KeyKey: "7", KeyPath: "gpiochip0"}, ErrMissingArgument},
		{"missing key", Args{KeyInventory: "/system/fan0", KeyPath: "gpiochip0"}, ErrMissingArgument},
		{"missing path", Args{KeyInventory: "/system/fan0", KeyKey: "7"}, ErrMissingArgument},
		{"bad inventory", full.Overlay(Args{KeyInventory: "fan0"}), ErrInvalidArgument},
		{"bad key", full.Overlay(Args{KeyKey: "seven"}), ErrInvalidArgument},
		{"bad polarity", full.Overlay(Args{KeyPolarity: "sideways"}), ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePresence(tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAddCommonFlagsDefaultsAreNotSet(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddCommonFlags(fs)
	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if args := FromFlags(fs); len(args) != 0 {
		t.Errorf("defaults must not enter the table: %v", args)
	}
}
