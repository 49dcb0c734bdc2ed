// Command gpio-monitor watches one GPIO line for edges and starts a systemd
// unit when an edge matches the configured key value.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/config"
	"github.com/sweeney/gpio-monitor/internal/daemon"
	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/monitor"
	"github.com/sweeney/gpio-monitor/internal/reactor"
	"github.com/sweeney/gpio-monitor/internal/status"
)

const name = "gpio-monitor"

// unitBus is a system bus connection able to start units.
type unitBus interface {
	bus.UnitStarter
	Close() error
}

// env holds the process's connections to the outside world.
type env struct {
	openLine     func(cfg gpio.LineConfig, logger *slog.Logger) (gpio.Line, error)
	connectBus   func(logger *slog.Logger) (unitBus, error)
	newPublisher daemon.PublisherFactory
}

func realEnv() env {
	return env{
		openLine: func(cfg gpio.LineConfig, logger *slog.Logger) (gpio.Line, error) {
			l, err := gpio.Open(cfg, logger)
			if err != nil {
				return nil, err
			}
			return l, nil
		},
		connectBus: func(logger *slog.Logger) (unitBus, error) {
			c, err := bus.ConnectSystem(logger)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		newPublisher: daemon.NewRealPublisher,
	}
}

func main() {
	os.Exit(execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr, realEnv()))
}

// execute runs the command and returns the process exit status.
func execute(ctx context.Context, argv []string, stdout, stderr io.Writer, e env) int {
	ctx, stop := daemon.WithSignals(ctx)
	defer stop()

	cmd := newRootCmd(e)
	cmd.SetArgs(argv)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", name, err)
		return daemon.ExitCode(err)
	}
	return 0
}

func newRootCmd(e env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   name + " --path=<device> --code=<offset> --value=<0|1> [--target=<unit>]",
		Short: "Start a systemd unit when a GPIO line changes",
		Long: `Watch one GPIO line for edges. Every edge is logged as Asserted (rising)
or Deasserted (falling). An edge matching --value (1 = rising, 0 = falling)
starts --target, if given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := config.Resolve(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.ValidateMonitor(args)
			if err != nil {
				cmd.Usage()
				return err
			}
			return run(cmd.Context(), cfg, e, cmd.ErrOrStderr())
		},
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		c.Usage()
		return fmt.Errorf("%w: %v", config.ErrInvalidArgument, err)
	})

	fs := cmd.Flags()
	config.AddCommonFlags(fs)
	fs.String(config.KeyCode, "", "line offset within the chip")
	fs.String(config.KeyValue, "", "key value that triggers the target: 1 (press, rising) or 0 (release, falling)")
	fs.String(config.KeyTarget, "", "systemd unit to start on a matching edge")
	fs.Bool(config.KeyContinue, true, "keep monitoring after a matching edge (--continue=false exits after the first)")
	return cmd
}

func run(ctx context.Context, cfg config.Monitor, e env, logOutput io.Writer) error {
	lineCfg := gpio.LineConfig{
		Path:     cfg.Path,
		Offset:   cfg.Offset,
		Mode:     gpio.BothEdges,
		Label:    cfg.Label,
		Consumer: name,
	}
	label := lineCfg.String()

	rt, err := daemon.Setup(daemon.Options{
		Name:   name,
		Label:  label,
		Common: cfg.Common,
		Status: status.Config{
			Daemon:   name,
			Path:     cfg.Path,
			Offset:   cfg.Offset,
			Broker:   cfg.Broker,
			HTTPAddr: cfg.HTTPAddr,
			Value:    cfg.Value,
			Target:   cfg.Target,
			Continue: cfg.Continue,
		},
		Output:       logOutput,
		NewPublisher: e.newPublisher,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger

	line, err := e.openLine(lineCfg, logger)
	if err != nil {
		logger.Error("requesting line failed", "line", label, "error", err)
		return fmt.Errorf("open %s: %w", label, err)
	}
	defer line.Close()

	var starter bus.UnitStarter
	if cfg.Target != "" {
		conn, err := e.connectBus(logger)
		if err != nil {
			return err
		}
		defer conn.Close()
		starter = conn
	}

	r := reactor.New(logger)
	m, err := monitor.NewMonitor(line, monitor.Config{
		Label:    label,
		Value:    cfg.Value,
		Target:   cfg.Target,
		Continue: cfg.Continue,
	}, starter, monitor.Deps{
		Reactor: r,
		Sinks:   rt.Sinks(),
		Logger:  logger,
		OnState: rt.Tracker.SetState,
	})
	if err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return err
	}
	rt.Started()

	err = r.Run(ctx)
	rt.Stopping(daemon.ShutdownReason(ctx))
	if err != nil && ctx.Err() == nil {
		return err
	}
	return m.Err()
}
