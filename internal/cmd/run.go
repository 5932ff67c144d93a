package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/logmule/logmule/internal/buffer"
	"github.com/logmule/logmule/internal/config"
	"github.com/logmule/logmule/internal/diag"
	"github.com/logmule/logmule/internal/dispatch"
	"github.com/logmule/logmule/internal/flush"
	"github.com/logmule/logmule/internal/identity"
	"github.com/logmule/logmule/internal/intake"
	"github.com/logmule/logmule/internal/logging"
	"github.com/logmule/logmule/internal/netmon"
	"github.com/logmule/logmule/internal/sink"
	pebblestore "github.com/logmule/logmule/internal/storage/pebble"
)

const shutdownTimeout = 5 * time.Second

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the logmule agent daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			debug, _ := cmd.Flags().GetBool("debug")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runAgent(ctx, configPath, debug)
		},
	}
	cmd.Flags().Bool("debug", false, "echo submitted events to the local log instead of shipping")
	return cmd
}

// runAgent wires the whole agent together and blocks until ctx is done.
func runAgent(ctx context.Context, configPath string, debugFlag bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := logging.Init(true, logging.ParseLevel(cfg.LogLevel))
	debug := debugFlag || cfg.Debug
	slog.Info("logmule starting",
		"config", configPath,
		"data_dir", cfg.DataDir,
		"sink", cfg.Sink.Endpoint,
		"netmon_source", cfg.Netmon.Source,
		"debug", debug,
	)

	kv, err := pebblestore.Open(pebblestore.Options{DataDir: filepath.Join(cfg.DataDir, "db")})
	if err != nil {
		return fmt.Errorf("open buffer db: %w", err)
	}
	defer kv.Close()

	agentID, err := identity.Ensure(filepath.Join(cfg.DataDir, identity.Filename))
	if err != nil {
		return err
	}
	slog.Info("agent identity", "id", agentID)

	store := buffer.New(kv, cfg.Buffer.MaxBytes)
	snk, err := sink.New(cfg.Sink, agentID)
	if err != nil {
		return fmt.Errorf("build sink client: %w", err)
	}
	dch := diag.NewLogger(nil)
	coord := flush.New(store, snk, dch)

	prober, source, err := buildNetmon(cfg.Netmon)
	if err != nil {
		return err
	}

	disp := dispatch.New(prober, snk, store, dch, debug)
	api := intake.New(cfg.Intake, agentID, disp, coord, store, prober)

	go func() {
		if err := source.Run(ctx); err != nil && ctx.Err() == nil {
			slog.Error("connectivity source stopped", "err", err)
		}
	}()

	// Every classified upgrade triggers a bulk flush of the buffer.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case t := <-source.Transitions():
				slog.Info("link transition",
					"from", t.Prev.String(), "to", t.Cur.String(), "upgrade", t.Upgrade())
				if t.Upgrade() {
					coord.Flush(ctx)
				}
			}
		}
	}()

	// Hot-reload adjusts the log level; everything else needs a restart.
	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			level.Set(logging.ParseLevel(updated.LogLevel))
			slog.Info("config reloaded", "log_level", updated.LogLevel)
		}); err != nil && ctx.Err() == nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	errc := api.Start()
	select {
	case err := <-errc:
		return fmt.Errorf("intake server: %w", err)
	case <-ctx.Done():
	}

	slog.Info("logmule shutting down")
	shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return api.Stop(shutCtx)
}

// buildNetmon assembles the connectivity prober and transition source
// for the configured monitoring mode.
func buildNetmon(cfg config.NetmonConfig) (netmon.Prober, netmon.Source, error) {
	switch cfg.Source {
	case "feed":
		feed := netmon.NewFeed(cfg.FeedURL)
		return feed, feed, nil
	case "exporter":
		prober := netmon.NewExporterProber(cfg.ExporterURL, cfg.ProbeTimeout)
		return prober, netmon.NewWatcher(prober, cfg.PollInterval), nil
	default:
		return nil, nil, fmt.Errorf("netmon: unknown source %q", cfg.Source)
	}
}
