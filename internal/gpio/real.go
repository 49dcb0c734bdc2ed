//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/warthog618/go-gpiocdev"
	"golang.org/x/sys/unix"
)

// RealLine is a line requested from a Linux GPIO character device.
type RealLine struct {
	cfg       LineConfig
	line      *gpiocdev.Line
	queue     *eventQueue
	closeOnce sync.Once
	closeErr  error
}

// Open requests cfg's line as an input with edge detection.
// The line stays reserved until Close; a second request for it fails with ErrLineBusy.
func Open(cfg LineConfig, logger *slog.Logger) (*RealLine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = BothEdges
	}
	consumer := cfg.Consumer
	if consumer == "" {
		consumer = DefaultConsumer
	}
	if logger == nil {
		logger = slog.Default()
	}

	chip, err := gpiocdev.NewChip(cfg.Path, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", cfg.Path, classify(err))
	}
	// Requested lines outlive the chip handle.
	defer chip.Close()

	q := newEventQueue(DefaultEventBufferSize, logger.With("line", cfg.String()))
	l, err := chip.RequestLine(cfg.Offset,
		gpiocdev.AsInput,
		edgeOption(cfg.Mode),
		gpiocdev.WithEventHandler(func(evt gpiocdev.LineEvent) {
			q.push(record{
				kind:      int(evt.Type),
				timestamp: evt.Timestamp,
				offset:    evt.Offset,
				seqno:     evt.Seqno,
			})
		}))
	if err != nil {
		return nil, fmt.Errorf("request line %s: %w", cfg, classify(err))
	}

	return &RealLine{
		cfg:   cfg,
		line:  l,
		queue: q,
	}, nil
}

func edgeOption(mode EdgeMode) gpiocdev.LineReqOption {
	switch mode {
	case RisingEdge:
		return gpiocdev.WithRisingEdge
	case FallingEdge:
		return gpiocdev.WithFallingEdge
	}
	return gpiocdev.WithBothEdges
}

// classify tags err with the matching resource-acquisition sentinel while
// keeping the underlying errno reachable through errors.Is.
func classify(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, gpiocdev.ErrNotCharacterDevice):
		return fmt.Errorf("%w: %w", ErrDeviceNotFound, err)
	case errors.Is(err, unix.EBUSY):
		return fmt.Errorf("%w: %w", ErrLineBusy, err)
	case errors.Is(err, fs.ErrPermission), errors.Is(err, unix.EACCES), errors.Is(err, unix.EPERM):
		return fmt.Errorf("%w: %w", ErrPermission, err)
	case errors.Is(err, gpiocdev.ErrInvalidOffset):
		return fmt.Errorf("%w: %w", ErrInvalidOffset, err)
	}
	return err
}

// Config returns the configuration the line was opened with.
func (r *RealLine) Config() LineConfig {
	return r.cfg
}

// Ready delivers a notification while event records are pending.
func (r *RealLine) Ready() <-chan struct{} {
	return r.queue.ready
}

// ReadEvent decodes the oldest pending record.
func (r *RealLine) ReadEvent() (EdgeEvent, error) {
	return readEvent(r.queue)
}

// Value returns the current line level.
func (r *RealLine) Value() (int, error) {
	v, err := r.line.Value()
	if err != nil {
		if errors.Is(err, gpiocdev.ErrClosed) {
			return 0, ErrClosed
		}
		return 0, fmt.Errorf("read %s: %w", r.cfg, err)
	}
	return v, nil
}

// Dropped returns the number of records lost to buffer overflow.
func (r *RealLine) Dropped() int {
	return r.queue.droppedCount()
}

// Close releases the line. It is safe to call more than once.
func (r *RealLine) Close() error {
	r.closeOnce.Do(func() {
		if err := r.line.Close(); err != nil {
			r.closeErr = fmt.Errorf("close %s: %w", r.cfg, err)
		}
		r.queue.close()
	})
	return r.closeErr
}
