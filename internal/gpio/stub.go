//go:build !linux

package gpio

import (
	"errors"
	"log/slog"
)

// RealLine is not available on non-Linux platforms.
type RealLine struct{}

// Open returns an error on non-Linux platforms.
func Open(cfg LineConfig, logger *slog.Logger) (*RealLine, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Config is not implemented on non-Linux platforms.
func (r *RealLine) Config() LineConfig {
	return LineConfig{}
}

// Ready is not implemented on non-Linux platforms.
func (r *RealLine) Ready() <-chan struct{} {
	return nil
}

// ReadEvent is not implemented on non-Linux platforms.
func (r *RealLine) ReadEvent() (EdgeEvent, error) {
	return EdgeEvent{}, errors.New("gpio: not supported")
}

// Value is not implemented on non-Linux platforms.
func (r *RealLine) Value() (int, error) {
	return 0, errors.New("gpio: not supported")
}

// Dropped is not implemented on non-Linux platforms.
func (r *RealLine) Dropped() int {
	return 0
}

// Close is not implemented on non-Linux platforms.
func (r *RealLine) Close() error {
	return nil
}
