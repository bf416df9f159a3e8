package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/txengine/internal/adapter/csvio"
	"github.com/iho/txengine/internal/adapter/idgen"
	"github.com/iho/txengine/internal/infrastructure/config"
	"github.com/iho/txengine/internal/infrastructure/logger"
	"github.com/iho/txengine/internal/infrastructure/metrics"
	"github.com/iho/txengine/internal/usecase"
)

// app carries what every subcommand needs once flags and env are resolved.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	exports []string
	stdout  io.Writer
	stderr  io.Writer
}

type rootOptions struct {
	workers       int
	logLevel      string
	logRejections bool
	exports       []string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &rootOptions{}
	a := &app{stdout: stdout, stderr: stderr}

	cmd := &cobra.Command{
		Use:   "txengine <transactions.csv>",
		Short: "Replay a transaction log and print client balances",
		Long: `txengine reads deposits, withdrawals, disputes, resolves and chargebacks
from a CSV file, applies them in order and writes the final balance of every
client to stdout as CSV. Diagnostics go to stderr.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.replayFile(cmd.Context(), args[0])
		},
	}

	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	flags := cmd.PersistentFlags()
	flags.IntVar(&opts.workers, "workers", 1, "number of replay workers partitioned by client (env REPLAY_WORKERS)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "log level: debug, info, warn, error (env LOG_LEVEL)")
	flags.BoolVar(&opts.logRejections, "log-rejections", false, "log every rejected record at debug level (env LOG_REJECTIONS)")
	flags.StringSliceVar(&opts.exports, "export", nil, "export balances to: redis, postgres (repeatable)")

	cmd.AddCommand(newServeCmd(a), newMigrateCmd(a))
	return cmd
}

// init loads the environment and lets explicitly set flags override it.
func (a *app) init(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		cfg.ReplayWorkers = opts.workers
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	if flags.Changed("log-rejections") {
		cfg.LogRejections = opts.logRejections
	}
	if cfg.ReplayWorkers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", cfg.ReplayWorkers)
	}

	a.cfg = cfg
	a.exports = opts.exports
	a.log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    a.stderr,
	})
	return nil
}

func (a *app) rejectionHook() usecase.RejectionHook {
	if !a.cfg.LogRejections {
		return usecase.DiscardRejections
	}
	return usecase.LogRejections(a.log)
}

func (a *app) replayFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	b, err := connectBackends(ctx, a.cfg, a.exports, false, a.log)
	if err != nil {
		return err
	}
	defer b.Close()

	// A private registry keeps one-shot runs off the process-wide default.
	m := metrics.New(prometheus.NewRegistry())
	replay := usecase.NewReplayUseCase(idgen.NewULIDGenerator(), a.rejectionHook(), m)

	report, err := replay.ReplayPartitioned(ctx, csvio.NewReader(bufio.NewReader(f)), a.cfg.ReplayWorkers)
	if err != nil {
		return err
	}

	a.log.Info().
		Str("run_id", report.RunID).
		Str("input", path).
		Int("applied", report.Applied).
		Int("rejected", report.Rejected).
		Int("malformed", report.Malformed).
		Int("accounts", len(report.Accounts)).
		Dur("duration", report.Duration).
		Msg("replay completed")

	out := bufio.NewWriter(a.stdout)
	if err := report.Render(csvio.NewWriter(out)); err != nil {
		return fmt.Errorf("failed to write balances: %w", err)
	}
	if err := out.Flush(); err != nil {
		return fmt.Errorf("failed to write balances: %w", err)
	}

	exporter := usecase.NewExportUseCase(b.exporters, a.cfg.ExportTimeout, m)
	if err := exporter.Export(ctx, report); err != nil {
		return err
	}
	if exporter.Enabled() {
		a.log.Info().Str("run_id", report.RunID).Strs("exporters", a.exports).Msg("balances exported")
	}

	return nil
}
