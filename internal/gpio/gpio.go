// Package gpio provides an edge-notifying GPIO line handle with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/gpio-monitor/internal/logic"
)

// EdgeMode selects which transitions the kernel reports for a line.
type EdgeMode string

const (
	RisingEdge  EdgeMode = "rising"
	FallingEdge EdgeMode = "falling"
	BothEdges   EdgeMode = "both"
)

// ParseEdgeMode validates an edge mode option value. Empty means BothEdges.
func ParseEdgeMode(s string) (EdgeMode, error) {
	switch EdgeMode(s) {
	case RisingEdge, FallingEdge, BothEdges:
		return EdgeMode(s), nil
	case "":
		return BothEdges, nil
	}
	return "", fmt.Errorf("edge mode %q: must be rising, falling or both", s)
}

// DefaultEventBufferSize is the number of undelivered event records kept per line.
const DefaultEventBufferSize = 16

// DefaultConsumer is the consumer label the kernel reports for requested lines.
const DefaultConsumer = "gpio-monitor"

var (
	// ErrNoEvent is returned by ReadEvent when no record is pending (spurious wake).
	ErrNoEvent = errors.New("gpio: no event pending")
	// ErrClosed is returned once the line has been released.
	ErrClosed = errors.New("gpio: line closed")
	// ErrUnknownEvent is returned for a record with an unrecognised event type.
	ErrUnknownEvent = errors.New("gpio: unknown event type")

	ErrDeviceNotFound = errors.New("gpio: device not found")
	ErrLineBusy       = errors.New("gpio: line busy")
	ErrPermission     = errors.New("gpio: permission denied")
	ErrInvalidOffset  = errors.New("gpio: invalid offset")
)

// LineConfig identifies one monitored line. It is immutable once opened.
type LineConfig struct {
	Path     string // device path (/dev/gpiochip0) or chip name (gpiochip0)
	Offset   int
	Mode     EdgeMode
	Label    string // used in log messages
	Consumer string // reported to the kernel; DefaultConsumer when empty
}

// Validate checks the fields that can be checked without touching the device.
func (c LineConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("%w: empty device path", ErrDeviceNotFound)
	}
	if c.Offset < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, c.Offset)
	}
	if _, err := ParseEdgeMode(string(c.Mode)); err != nil {
		return err
	}
	return nil
}

// String returns the label, or path:offset when no label is set.
func (c LineConfig) String() string {
	if c.Label != "" {
		return c.Label
	}
	return fmt.Sprintf("%s:%d", c.Path, c.Offset)
}

// EdgeEvent is one decoded edge record.
type EdgeEvent struct {
	Edge logic.Edge
	// Timestamp is the kernel event time. It is only meaningful for
	// measuring intervals between events.
	Timestamp time.Duration
	Offset    int
	// Seqno is zero unless the kernel supplies sequence numbers (uAPI v2).
	Seqno uint32
}

// Line is a reserved GPIO line with edge detection enabled.
type Line interface {
	// Ready delivers a notification while event records are pending.
	// It is closed when the line is closed.
	Ready() <-chan struct{}

	// ReadEvent decodes exactly one pending record.
	// Returns ErrNoEvent if none is pending and ErrClosed after Close.
	ReadEvent() (EdgeEvent, error)

	// Value returns the instantaneous line level (0 or 1).
	Value() (int, error)

	// Close releases the line reservation.
	Close() error
}
