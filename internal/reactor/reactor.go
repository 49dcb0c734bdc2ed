// Package reactor runs readiness callbacks for GPIO lines on a single goroutine.
//
// A source has at most one pending wait. When its readiness channel fires the
// wait is consumed and the callback runs on the reactor goroutine; the callback
// alone decides whether to arm the next wait. Waits have no timeout.
package reactor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

var (
	// ErrAlreadyArmed is returned when a source already has a pending wait.
	ErrAlreadyArmed = errors.New("reactor: wait already armed")
	// ErrSourceClosed is passed to a callback whose source stopped delivering.
	ErrSourceClosed = errors.New("reactor: source closed")
	// ErrIdle is returned by Step when no wait is pending.
	ErrIdle = errors.New("reactor: no pending waits")
)

// Source is anything with a readiness channel, e.g. a gpio.Line.
type Source interface {
	Ready() <-chan struct{}
}

// Handler is called once per armed wait. err is non-nil when the wait itself
// failed (source closed or invalid); the handler must not read from the source then.
type Handler func(err error)

type wait struct {
	src Source
	fn  Handler
}

// Reactor dispatches readiness notifications. All methods must be called from
// the reactor goroutine, i.e. before Run or from inside a Handler.
type Reactor struct {
	logger *slog.Logger
	waits  []wait
}

// New creates an empty reactor.
func New(logger *slog.Logger) *Reactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reactor{logger: logger}
}

// ArmWait registers one pending wait for src.
func (r *Reactor) ArmWait(src Source, fn Handler) error {
	if src == nil || fn == nil {
		return errors.New("reactor: nil source or handler")
	}
	for _, w := range r.waits {
		if w.src == src {
			return ErrAlreadyArmed
		}
	}
	if src.Ready() == nil {
		return fmt.Errorf("%w: no readiness channel", ErrSourceClosed)
	}
	r.waits = append(r.waits, wait{src: src, fn: fn})
	return nil
}

// Armed reports whether src has a pending wait.
func (r *Reactor) Armed(src Source) bool {
	for _, w := range r.waits {
		if w.src == src {
			return true
		}
	}
	return false
}

// Pending returns the number of pending waits.
func (r *Reactor) Pending() int {
	return len(r.waits)
}

// Run dispatches until no wait is pending or ctx is done.
// It returns nil when the last wait completed without being re-armed.
func (r *Reactor) Run(ctx context.Context) error {
	for {
		err := r.Step(ctx)
		if errors.Is(err, ErrIdle) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Step blocks until one pending wait fires, then runs its handler.
func (r *Reactor) Step(ctx context.Context) error {
	if len(r.waits) == 0 {
		return ErrIdle
	}

	cases := make([]reflect.SelectCase, 0, len(r.waits)+1)
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})
	for _, w := range r.waits {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(w.src.Ready()),
		})
	}

	chosen, _, ok := reflect.Select(cases)
	if chosen == 0 {
		return ctx.Err()
	}

	i := chosen - 1
	w := r.waits[i]
	r.waits = append(r.waits[:i], r.waits[i+1:]...)

	var err error
	if !ok {
		err = ErrSourceClosed
	}
	r.dispatch(w, err)
	return nil
}

// dispatch runs the handler; a panic is logged here and never unwinds through the loop.
func (r *Reactor) dispatch(w wait, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("callback panicked, wait not re-armed", "panic", p)
			r.disarm(w.src)
		}
	}()
	w.fn(err)
}

func (r *Reactor) disarm(src Source) {
	for i, w := range r.waits {
		if w.src == src {
			r.waits = append(r.waits[:i], r.waits[i+1:]...)
			return
		}
	}
}
