// Command expertgraph serves the faculty expertise API and answers one-off
// collaborator queries from the command line.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/okian/expertgraph/internal/config"
	"github.com/okian/expertgraph/pkg/logger"
	"github.com/okian/expertgraph/pkg/metrics"
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics.
	// We collect our own custom system metrics instead.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "expertgraph",
		Short:         "Faculty expertise graph and collaborator recommender",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"YAML config file (default $EXPERTGRAPH_CONFIG)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		ctx := cmd.Context()
		var (
			cfg *config.Config
			err error
		)
		if configPath != "" {
			cfg, err = config.LoadFile(ctx, configPath)
		} else {
			cfg, err = config.Load(ctx)
		}
		if err != nil {
			return nil, err
		}
		if err := initLogging(cfg, cmd.ErrOrStderr()); err != nil {
			return nil, err
		}
		initMetrics(cfg)
		return cfg, nil
	}

	root.AddCommand(newServeCmd(load), newRecommendCmd(load))
	return root
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)

func initLogging(cfg *config.Config, out io.Writer) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(out)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

// initMetrics rebuilds the metric registry with the configured names. It runs
// before the service and the /metrics handler are created.
func initMetrics(cfg *config.Config) {
	metrics.Init(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithSubsystem(cfg.Metrics.Subsystem),
		metrics.WithConstLabels(cfg.Metrics.ConstLabels),
		metrics.WithHistogramBuckets(cfg.Metrics.LatencyBucketsMs),
	)
}
