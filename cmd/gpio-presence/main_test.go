package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/logic"
)

type fakeBus struct {
	*bus.FakeInventory
	closed bool
}

func (f *fakeBus) Close() error {
	f.closed = true
	return nil
}

type testEnv struct {
	env
	line   *gpio.FakeLine
	opened int
	bus    *fakeBus
}

func newTestEnv(level int) *testEnv {
	te := &testEnv{
		line: gpio.NewFakeLine(level),
		bus:  &fakeBus{FakeInventory: &bus.FakeInventory{}},
	}
	te.env = env{
		openLine: func(gpio.LineConfig, *slog.Logger) (gpio.Line, error) {
			te.opened++
			return te.line, nil
		},
		connectBus: func(*slog.Logger) (inventoryBus, error) {
			return te.bus, nil
		},
	}
	return te
}

func (te *testEnv) execute(t *testing.T, timeout time.Duration, argv ...string) (int, string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	var stdout, stderr bytes.Buffer
	code := execute(ctx, argv, &stdout, &stderr, te.env)
	return code, stdout.String() + stderr.String()
}

func TestMissingArgumentsAreFatal(t *testing.T) {
	tests := [][]string{
		{"--key=7", "--path=gpiochip0"},
		{"--inventory=/system/fan0", "--path=gpiochip0"},
		{"--inventory=/system/fan0", "--key=7"},
		{"--inventory=fan0", "--key=7", "--path=gpiochip0"},
		{"--inventory=/system/fan0", "--key=7", "--path=gpiochip0", "--polarity=up"},
	}
	for _, argv := range tests {
		te := newTestEnv(0)
		code, out := te.execute(t, time.Second, argv...)
		if code == 0 {
			t.Errorf("%v: expected non-zero exit status", argv)
		}
		if te.opened != 0 {
			t.Errorf("%v: no device may be opened", argv)
		}
		if !strings.Contains(out, "Usage:") {
			t.Errorf("%v: usage should be printed", argv)
		}
	}
}

func TestPresenceRunsUntilSignalled(t *testing.T) {
	te := newTestEnv(0)
	te.line.Inject(logic.EdgeRising)
	te.line.Inject(logic.EdgeRising)

	code, out := te.execute(t, 200*time.Millisecond,
		"--inventory=/system/chassis/motherboard/fan0", "--key=7", "--path=gpiochip0",
		"--name=Fan 0", "--log-format=json")

	if code != 0 {
		t.Fatalf("exit status: got %d, want 0\n%s", code, out)
	}
	states := te.bus.States
	if len(states) != 2 {
		t.Fatalf("publications: got %d (%+v), want startup + one change", len(states), states)
	}
	if states[0].Present || !states[1].Present {
		t.Errorf("expected absent then present, got %+v", states)
	}
	if states[1].Name != "Fan 0" || states[1].Inventory != "/system/chassis/motherboard/fan0" {
		t.Errorf("published state: got %+v", states[1])
	}
	if !te.bus.closed || !te.line.Closed {
		t.Error("bus and line must be released")
	}
}

func TestPresenceFallingPolarity(t *testing.T) {
	te := newTestEnv(0)

	code, out := te.execute(t, 100*time.Millisecond,
		"--inventory=/system/fan0", "--key=7", "--path=gpiochip0", "--polarity=falling")

	if code != 0 {
		t.Fatalf("exit status: got %d, want 0\n%s", code, out)
	}
	if last, ok := te.bus.Last(); !ok || !last.Present {
		t.Errorf("low level with falling polarity should be present, got %+v", te.bus.States)
	}
}

func TestPresenceTerminationIsFatal(t *testing.T) {
	te := newTestEnv(1)
	te.line.InjectRaw(42)

	code, _ := te.execute(t, 5*time.Second, "--inventory=/system/fan0", "--key=7", "--path=gpiochip0")
	if code == 0 {
		t.Error("expected non-zero exit status when monitoring stops")
	}
}
