// Package daemon holds the process plumbing shared by gpio-monitor and
// gpio-presence: logger construction, the status tracker and its HTTP
// server, the MQTT mirror, systemd notifications, signals and exit codes.
package daemon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/config"
	"github.com/sweeney/gpio-monitor/internal/logging"
	"github.com/sweeney/gpio-monitor/internal/logic"
	"github.com/sweeney/gpio-monitor/internal/monitor"
	"github.com/sweeney/gpio-monitor/internal/mqtt"
	"github.com/sweeney/gpio-monitor/internal/status"
	"github.com/sweeney/gpio-monitor/internal/web"
)

// Publisher is an MQTT mirror that can report its connection state.
type Publisher interface {
	mqtt.Publisher
	mqtt.ConnectionStatus
}

// PublisherFactory connects an MQTT mirror.
type PublisherFactory func(broker, clientName, label string, logger *slog.Logger) (Publisher, error)

// NewRealPublisher connects to a real broker.
func NewRealPublisher(broker, clientName, label string, logger *slog.Logger) (Publisher, error) {
	p, err := mqtt.NewRealPublisher(broker, clientName, label, logger)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options configures a Runtime.
type Options struct {
	// Name is the daemon name, used as log component and MQTT client name.
	Name   string
	Label  string
	Common config.Common
	Status status.Config
	// Output receives log records; os.Stderr when nil.
	Output io.Writer
	// NewPublisher, if set, is used when a broker is configured.
	NewPublisher PublisherFactory
	Now          func() time.Time
}

// Runtime is the ambient state around one monitored line.
type Runtime struct {
	Logger  *slog.Logger
	Tracker *status.Tracker

	name      string
	publisher Publisher
	server    *web.Server
	now       func() time.Time
}

// Setup builds the logger, status tracker, MQTT mirror and HTTP server.
// A broker that cannot be reached disables the mirror; it is not fatal.
func Setup(opts Options) (*Runtime, error) {
	logger, err := logging.New(logging.Options{
		Level:  opts.Common.LogLevel,
		Format: opts.Common.LogFormat,
		Output: opts.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidArgument, err)
	}
	logger = logging.NewComponentLogger(logger, opts.Name)

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	rt := &Runtime{
		Logger:  logger,
		Tracker: status.NewTracker(opts.Label, now(), opts.Status),
		name:    opts.Name,
		now:     now,
	}

	if broker := opts.Common.Broker; broker != "" && opts.NewPublisher != nil {
		pub, err := opts.NewPublisher(broker, opts.Name, opts.Label, logger)
		if err != nil {
			logger.Warn("mqtt mirror disabled", "broker", broker, "error", err)
		} else {
			rt.publisher = pub
		}
	}

	if addr := opts.Common.HTTPAddr; addr != "" {
		rt.server = web.New(addr, rt.Tracker, logger)
	}
	return rt, nil
}

// Sinks returns the event mirrors for the monitor: the status tracker and,
// when connected, the MQTT publisher.
func (rt *Runtime) Sinks() []monitor.Sink {
	sinks := []monitor.Sink{rt.Tracker}
	if rt.publisher != nil {
		sinks = append(sinks, mqttSink{pub: rt.publisher, tracker: rt.Tracker})
	}
	return sinks
}

// mqttSink publishes to MQTT and keeps the tracker's connection flag fresh.
type mqttSink struct {
	pub     Publisher
	tracker *status.Tracker
}

func (s mqttSink) Publish(event logic.Event) error {
	err := s.pub.Publish(event)
	s.tracker.SetMQTTConnected(s.pub.IsConnected())
	return err
}

// Started runs once the first wait is armed: it starts the HTTP server,
// publishes a retained STARTUP status and tells systemd the daemon is ready.
func (rt *Runtime) Started() {
	if rt.server != nil {
		rt.server.Start()
	}
	rt.publishSystem("STARTUP", "")
	bus.NotifyReady(rt.Logger)
	rt.Logger.Info("started")
}

// Stopping publishes a retained SHUTDOWN status and notifies systemd.
func (rt *Runtime) Stopping(reason string) {
	bus.NotifyStopping(rt.Logger)
	rt.publishSystem("SHUTDOWN", reason)
	rt.Logger.Info("shutting down", "reason", reason)
}

func (rt *Runtime) publishSystem(event, reason string) {
	if rt.publisher == nil {
		return
	}
	rt.Tracker.SetMQTTConnected(rt.publisher.IsConnected())
	snap := rt.Tracker.Snapshot()
	err := rt.publisher.PublishSystem(mqtt.SystemEvent{
		Timestamp:  rt.now(),
		Event:      event,
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	})
	if err != nil {
		rt.Logger.Warn("failed to publish system event", "event", event, "error", err)
		return
	}
	rt.Logger.Debug("published system event", "event", event)
}

// Close stops the HTTP server and disconnects the MQTT mirror.
func (rt *Runtime) Close() {
	if rt.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := rt.server.Shutdown(ctx); err != nil {
			rt.Logger.Warn("http server shutdown", "error", err)
		}
	}
	if rt.publisher != nil {
		rt.publisher.Close()
	}
}
