package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/liquidfi/supplysync/internal/supplysync/chain"
	"github.com/liquidfi/supplysync/internal/supplysync/config"
	"github.com/liquidfi/supplysync/internal/supplysync/dedup"
	"github.com/liquidfi/supplysync/internal/supplysync/engine"
	"github.com/liquidfi/supplysync/internal/supplysync/metrics"
	"github.com/liquidfi/supplysync/internal/supplysync/outcome"
	"github.com/liquidfi/supplysync/internal/supplysync/retry"
	"github.com/liquidfi/supplysync/internal/supplysync/sched"
	"github.com/liquidfi/supplysync/internal/supplysync/store"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:           "supplysyncd",
		Short:         "Reconciles ledger trade events into token supply mutations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the reconciliation loop",
			RunE:  func(*cobra.Command, []string) error { return run() },
		},
		&cobra.Command{
			Use:   "schema",
			Short: "Bootstrap the processed_trades schema and exit",
			RunE:  func(*cobra.Command, []string) error { return schema() },
		},
	)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("exiting")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	hot, err := openHotDedup(cfg)
	if err != nil {
		return err
	}
	defer hot.Close()

	params := engine.Params{
		Source:   chain.NewClient(cfg.NodeURL, cfg.ContractAddress),
		Gate:     chain.NewTreasury(cfg.TreasuryURL),
		Mutator:  chain.NewTreasury(cfg.TreasuryURL),
		Records:  st,
		Hot:      hot,
		PageSize: cfg.PageSize,
	}

	if cfg.Kafka.Brokers != "" {
		var pub *outcome.Kafka
		err := retry.Do(ctx, "kafka connect", retry.Options{}, func(context.Context) error {
			var err error
			pub, err = outcome.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			return err
		})
		if err != nil {
			return fmt.Errorf("outcome publisher: %w", err)
		}
		defer pub.Close()
		params.Publisher = pub
	}

	eng, err := engine.New(params)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	mset := metrics.New(reg)

	runner := sched.NewRunner(cfg.PollInterval())
	runner.OnSkip = mset.TicksSkipped.Inc

	log.Info().
		Str("contract", cfg.ContractAddress).
		Str("node", cfg.NodeURL).
		Int("page_size", cfg.PageSize).
		Dur("interval", cfg.PollInterval()).
		Msg("supplysyncd starting")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return metrics.Serve(ctx, cfg.MetricsAddr, reg)
	})
	g.Go(func() error {
		return runner.Run(ctx, func(ctx context.Context) error {
			res, err := eng.RunCycle(ctx)
			if err != nil {
				mset.CycleFailures.Inc()
				return err
			}
			mset.ObserveCycle(res)
			return nil
		})
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	log.Info().Msg("supplysyncd stopped")
	return nil
}

func schema() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	log.Info().Msg("schema ready")
	return nil
}

func openStore(ctx context.Context, cfg config.Config) (*store.Postgres, error) {
	st, err := store.Open(cfg.Postgres.DSN, cfg.PostgresTimeout())
	if err != nil {
		return nil, err
	}
	err = retry.Do(ctx, "postgres connect", retry.Options{}, func(ctx context.Context) error {
		if err := st.Ping(ctx); err != nil {
			return err
		}
		return st.EnsureSchema(ctx)
	})
	if err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func openHotDedup(cfg config.Config) (dedup.Cache, error) {
	switch cfg.HotDedup.Mode {
	case "off":
		return dedup.None{}, nil
	case "memory":
		return dedup.NewMemory(cfg.HotDedupTTL(), 4096), nil
	case "rocksdb":
		return dedup.OpenRocks(cfg.HotDedup.Path, cfg.HotDedupTTL())
	}
	return nil, fmt.Errorf("unknown hot_dedup.mode %q", cfg.HotDedup.Mode)
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(os.Stderr)
}
