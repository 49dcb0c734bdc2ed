// Package monitor runs the per-line policies on top of the reactor: the
// generic edge monitor that starts a systemd unit and the presence tracker
// that publishes inventory state.
//
// Each policy owns one gpio.Line. Every readiness notification decodes
// exactly one edge record and runs the policy body on the reactor goroutine;
// the body decides whether to arm the next wait.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/logic"
	"github.com/sweeney/gpio-monitor/internal/reactor"
)

// Sink mirrors policy events (MQTT publisher, status tracker).
// Failures are logged and never stop monitoring.
type Sink interface {
	Publish(event logic.Event) error
}

// Deps are the collaborators shared by both policies.
type Deps struct {
	Reactor *reactor.Reactor
	Sinks   []Sink
	Logger  *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// OnState, if set, is called after every state transition.
	OnState func(logic.State)
}

// body handles one decoded edge and reports whether to keep monitoring.
type body func(ev gpio.EdgeEvent) bool

// lineLoop is the dispatch machinery common to both policies.
type lineLoop struct {
	line    gpio.Line
	label   string
	reactor *reactor.Reactor
	sinks   []Sink
	logger  *slog.Logger
	now     func() time.Time
	onState func(logic.State)

	machine logic.Machine
	body    body
	ctx     context.Context
	err     error
}

func newLineLoop(line gpio.Line, label string, deps Deps) (lineLoop, error) {
	if line == nil {
		return lineLoop{}, errors.New("monitor: nil line")
	}
	if deps.Reactor == nil {
		return lineLoop{}, errors.New("monitor: nil reactor")
	}
	l := lineLoop{
		line:    line,
		label:   label,
		reactor: deps.Reactor,
		sinks:   deps.Sinks,
		logger:  deps.Logger,
		now:     deps.Now,
		onState: deps.OnState,
		ctx:     context.Background(),
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	if l.now == nil {
		l.now = time.Now
	}
	l.logger = l.logger.With("line", label)
	return l, nil
}

// start arms the first wait. ctx bounds the remote calls made by the body.
func (l *lineLoop) start(ctx context.Context) error {
	if ctx != nil {
		l.ctx = ctx
	}
	if err := l.arm(); err != nil {
		l.logger.Error("arming wait failed", "error", err)
		l.terminate(fmt.Errorf("arm wait on %s: %w", l.label, err))
		return l.err
	}
	l.logger.Info("monitoring started")
	return nil
}

func (l *lineLoop) arm() error {
	return l.reactor.ArmWait(l.line, l.handleReady)
}

// handleReady is the reactor callback. It consumes one record at most.
func (l *lineLoop) handleReady(err error) {
	if err != nil {
		l.logger.Error("wait failed", "error", err)
		l.terminate(fmt.Errorf("wait on %s: %w", l.label, err))
		return
	}
	if err := l.machine.Begin(); err != nil {
		l.logger.Warn("readiness ignored", "state", l.machine.State(), "error", err)
		return
	}
	l.setState()

	l.finish(l.dispatch())
}

func (l *lineLoop) dispatch() bool {
	ev, err := l.line.ReadEvent()
	switch {
	case errors.Is(err, gpio.ErrNoEvent):
		l.logger.Debug("spurious wake, no event pending")
		return true
	case err != nil:
		l.logger.Error("reading edge event failed, monitoring stopped", "error", err)
		l.err = fmt.Errorf("read event on %s: %w", l.label, err)
		return false
	}
	return l.body(ev)
}

func (l *lineLoop) finish(rearm bool) {
	if rearm {
		if err := l.arm(); err != nil {
			l.logger.Error("re-arming wait failed, monitoring stopped", "error", err)
			l.err = fmt.Errorf("arm wait on %s: %w", l.label, err)
			rearm = false
		}
	}
	l.machine.Finish(rearm)
	l.setState()
}

func (l *lineLoop) terminate(err error) {
	if l.err == nil {
		l.err = err
	}
	l.machine.Terminate()
	l.setState()
}

func (l *lineLoop) setState() {
	if l.onState != nil {
		l.onState(l.machine.State())
	}
}

// edgeEvent writes the single log record for the edge and builds its
// mirror event. attrs are appended to that record.
func (l *lineLoop) edgeEvent(ev gpio.EdgeEvent, attrs ...any) logic.Event {
	args := append([]any{"edge", ev.Edge, "timestamp", ev.Timestamp, "seqno", ev.Seqno}, attrs...)
	l.logger.Info(ev.Edge.Assertion(), args...)
	t := logic.EventDeasserted
	if ev.Edge == logic.EdgeRising {
		t = logic.EventAsserted
	}
	return logic.Event{Timestamp: l.now(), Type: t, Line: l.label}
}

func (l *lineLoop) publish(event logic.Event) {
	for _, s := range l.sinks {
		if err := s.Publish(event); err != nil {
			l.logger.Warn("event mirror failed", "event", event.Type, "error", err)
		}
	}
}

// State returns the current dispatch state.
func (l *lineLoop) State() logic.State {
	return l.machine.State()
}

// Err returns the error that terminated monitoring, or nil if monitoring
// is still running or ended normally.
func (l *lineLoop) Err() error {
	return l.err
}
