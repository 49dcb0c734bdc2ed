// Command gpio-presence infers whether an inventory item is plugged in from
// a GPIO line and publishes it to the OpenBMC inventory manager.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sweeney/gpio-monitor/internal/bus"
	"github.com/sweeney/gpio-monitor/internal/config"
	"github.com/sweeney/gpio-monitor/internal/daemon"
	"github.com/sweeney/gpio-monitor/internal/gpio"
	"github.com/sweeney/gpio-monitor/internal/logic"
	"github.com/sweeney/gpio-monitor/internal/monitor"
	"github.com/sweeney/gpio-monitor/internal/reactor"
	"github.com/sweeney/gpio-monitor/internal/status"
)

const name = "gpio-presence"

type inventoryBus interface {
	bus.InventoryPublisher
	Close() error
}

type env struct {
	openLine     func(cfg gpio.LineConfig, logger *slog.Logger) (gpio.Line, error)
	connectBus   func(logger *slog.Logger) (inventoryBus, error)
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
		connectBus: func(logger *slog.Logger) (inventoryBus, error) {
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
		Use:   name + " --inventory=<object-path> --key=<offset> --path=<device> [--name=<pretty-name>]",
		Short: "Publish inventory presence from a GPIO line",
		Long: `Watch one GPIO line and publish the Present and PrettyName properties of
an inventory item. With --polarity=rising a high level means present; with
--polarity=falling a low level does. The daemon runs until signalled.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			args, err := config.Resolve(cmd.Flags())
			if err != nil {
				return err
			}
			cfg, err := config.ValidatePresence(args)
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
	fs.String(config.KeyInventory, "", "inventory object path, relative to "+bus.InventoryRoot)
	fs.String(config.KeyKey, "", "line offset within the chip")
	fs.String(config.KeyName, "", "PrettyName published with the item")
	fs.String(config.KeyPolarity, string(logic.PolarityRising), "edge that means present: rising or falling")
	return cmd
}

func run(ctx context.Context, cfg config.Presence, e env, logOutput io.Writer) error {
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
			Daemon:    name,
			Path:      cfg.Path,
			Offset:    cfg.Offset,
			Broker:    cfg.Broker,
			HTTPAddr:  cfg.HTTPAddr,
			Inventory: cfg.Inventory,
			Polarity:  cfg.Polarity,
		},
		Output:       logOutput,
		NewPublisher: e.newPublisher,
	})
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.Logger
	rt.Tracker.SetPrettyName(cfg.Name)

	line, err := e.openLine(lineCfg, logger)
	if err != nil {
		logger.Error("requesting line failed", "line", label, "error", err)
		return fmt.Errorf("open %s: %w", label, err)
	}
	defer line.Close()

	conn, err := e.connectBus(logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	r := reactor.New(logger)
	p, err := monitor.NewPresence(line, monitor.PresenceConfig{
		Label:     label,
		Inventory: cfg.Inventory,
		Name:      cfg.Name,
		Polarity:  cfg.Polarity,
	}, conn, monitor.Deps{
		Reactor: r,
		Sinks:   rt.Sinks(),
		Logger:  logger,
		OnState: rt.Tracker.SetState,
	})
	if err != nil {
		return err
	}
	if err := p.Start(ctx); err != nil {
		return err
	}
	rt.Started()

	err = r.Run(ctx)
	rt.Stopping(daemon.ShutdownReason(ctx))
	switch {
	case err != nil && ctx.Err() == nil:
		return err
	case ctx.Err() != nil:
		return nil
	case p.Err() != nil:
		return p.Err()
	}
	return errors.New("presence monitoring stopped")
}
