package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/daemon"
	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/logic"
	"github.com/sweeney/gpio-monitor/internal/mqtt"
)

type fakeBus struct {
	*bus.FakeUnitStarter
	closed bool
}

func (f *fakeBus) Close() error {
	f.closed = true
	return nil
}

type testEnv struct {
	env
	line    *gpio.FakeLine
	opened  []gpio.LineConfig
	bus     *fakeBus
	pub     *mqtt.FakePublisher
	openErr error
}

func newTestEnv() *testEnv {
	te := &testEnv{
		line: gpio.NewFakeLine(0),
		bus:  &fakeBus{FakeUnitStarter: &bus.FakeUnitStarter{}},
		pub:  mqtt.NewFakePublisher(),
	}
	te.env = env{
		openLine: func(cfg gpio.LineConfig, _ *slog.Logger) (gpio.Line, error) {
			te.opened = append(te.opened, cfg)
			if te.openErr != nil {
				return nil, te.openErr
			}
			return te.line, nil
		},
		connectBus: func(*slog.Logger) (unitBus, error) {
			return te.bus, nil
		},
		newPublisher: func(string, string, string, *slog.Logger) (daemon.Publisher, error) {
			return te.pub, nil
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

func TestMissingPathExitsBeforeOpening(t *testing.T) {
	te := newTestEnv()

	code, out := te.execute(t, time.Second, "--code=3", "--value=1", "--target=foo.service")

	if code == 0 {
		t.Error("expected non-zero exit status")
	}
	if len(te.opened) != 0 {
		t.Errorf("no device may be opened, got %v", te.opened)
	}
	if !strings.Contains(out, "--path") {
		t.Errorf("error should name the missing option:\n%s", out)
	}
	if !strings.Contains(out, "Usage:") {
		t.Errorf("usage should be printed:\n%s", out)
	}
}

func TestMissingArgumentsExit(t *testing.T) {
	tests := [][]string{
		{},
		{"--path=gpiochip0", "--value=1"},
		{"--path=gpiochip0", "--code=3"},
		{"--path=gpiochip0", "--code=3", "--value=7"},
		{"--path=gpiochip0", "--code=3", "--value=1", "--log-level=loud"},
		{"--bogus"},
	}
	for _, argv := range tests {
		te := newTestEnv()
		code, _ := te.execute(t, time.Second, argv...)
		if code != 1 {
			t.Errorf("%v: exit status got %d, want 1", argv, code)
		}
		if len(te.opened) != 0 {
			t.Errorf("%v: no device may be opened", argv)
		}
	}
}

func TestHelpExitsZero(t *testing.T) {
	te := newTestEnv()
	code, out := te.execute(t, time.Second, "--help")
	if code != 0 {
		t.Errorf("exit status: got %d, want 0", code)
	}
	if !strings.Contains(out, "--target") {
		t.Errorf("help should list options:\n%s", out)
	}
}

func TestOneShotStartsTargetAndExits(t *testing.T) {
	te := newTestEnv()
	te.line.Inject(logic.EdgeFalling)
	te.line.Inject(logic.EdgeRising)

	code, out := te.execute(t, 5*time.Second,
		"--path=/dev/gpiochip0", "--code=3", "--value=1", "--target=foo.service",
		"--continue=false", "--broker=tcp://b:1883", "--log-format=text")

	if code != 0 {
		t.Fatalf("exit status: got %d, want 0\n%s", code, out)
	}
	if got := te.bus.Units; len(got) != 1 || got[0] != "foo.service" {
		t.Errorf("unit starts: got %v", got)
	}
	if !te.bus.closed || !te.line.Closed {
		t.Error("bus and line must be released")
	}
	if len(te.opened) != 1 || te.opened[0].Offset != 3 || te.opened[0].Mode != gpio.BothEdges {
		t.Errorf("opened: got %+v", te.opened)
	}
	if !strings.Contains(out, "msg=Deasserted") || !strings.Contains(out, "msg=Asserted") {
		t.Errorf("expected both edges logged:\n%s", out)
	}
	if len(te.pub.Events) != 2 {
		t.Errorf("mirrored events: got %d, want 2", len(te.pub.Events))
	}
	var lifecycle []string
	for _, ev := range te.pub.SystemEvents {
		lifecycle = append(lifecycle, ev.Event)
	}
	if strings.Join(lifecycle, ",") != "STARTUP,SHUTDOWN" {
		t.Errorf("lifecycle events: got %v", lifecycle)
	}
}

func TestContinueRunsUntilCancelled(t *testing.T) {
	te := newTestEnv()
	te.line.Inject(logic.EdgeRising)
	te.line.Inject(logic.EdgeFalling)
	te.line.Inject(logic.EdgeRising)

	code, out := te.execute(t, 200*time.Millisecond,
		"--path=gpiochip0", "--code=3", "--value=1", "--target=foo.service")

	if code != 0 {
		t.Fatalf("exit status: got %d, want 0\n%s", code, out)
	}
	if len(te.bus.Units) != 2 {
		t.Errorf("unit starts: got %d, want 2", len(te.bus.Units))
	}
}

func TestNoTargetDoesNotConnectBus(t *testing.T) {
	te := newTestEnv()
	te.connectBus = func(*slog.Logger) (unitBus, error) {
		t.Error("bus must not be connected without a target")
		return nil, errors.New("unexpected")
	}
	te.line.Inject(logic.EdgeRising)

	code, out := te.execute(t, 5*time.Second, "--path=gpiochip0", "--code=3", "--value=1", "--continue=false")
	if code != 0 {
		t.Errorf("exit status: got %d, want 0\n%s", code, out)
	}
}

func TestBusyLineExitsWithErrno(t *testing.T) {
	te := newTestEnv()
	te.openErr = errors.Join(gpio.ErrLineBusy, unix.EBUSY)

	code, _ := te.execute(t, time.Second, "--path=gpiochip0", "--code=3", "--value=1")
	if code != int(unix.EBUSY) {
		t.Errorf("exit status: got %d, want %d", code, int(unix.EBUSY))
	}
}

func TestDecodeFailureExitsNonZero(t *testing.T) {
	te := newTestEnv()
	te.line.InjectRaw(42)

	code, out := te.execute(t, 5*time.Second, "--path=gpiochip0", "--code=3", "--value=1")
	if code != 1 {
		t.Errorf("exit status: got %d, want 1\n%s", code, out)
	}
}
