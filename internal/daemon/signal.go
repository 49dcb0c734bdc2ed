package daemon

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

type signalCause struct {
	sig os.Signal
}

func (c signalCause) Error() string {
	return "received " + signalName(c.sig)
}

// WithSignals returns a context cancelled on SIGINT or SIGTERM. The signal is
// recorded as the context's cause; see ShutdownReason.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(parent)
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-ch:
			cancel(signalCause{sig: s})
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(ch)
		cancel(nil)
	}
}

// ShutdownReason names the signal that cancelled ctx, or "" when none did.
func ShutdownReason(ctx context.Context) string {
	var sc signalCause
	if errors.As(context.Cause(ctx), &sc) {
		return signalName(sc.sig)
	}
	return ""
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// ExitCode maps a fatal error to a process exit status: the underlying errno
// when there is one, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var errno unix.Errno
	if errors.As(err, &errno) && errno != 0 && int(errno) < 256 {
		return int(errno)
	}
	return 1
}
