// Package cmd wires the command-line interface for the climate ETL.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/admin"
	"github.com/heatisland/climate-etl/internal/archive"
	"github.com/heatisland/climate-etl/internal/catalog"
	"github.com/heatisland/climate-etl/internal/config"
	"github.com/heatisland/climate-etl/internal/logging"
	"github.com/heatisland/climate-etl/internal/metrics"
	"github.com/heatisland/climate-etl/internal/normalize"
	"github.com/heatisland/climate-etl/internal/pipeline"
	"github.com/heatisland/climate-etl/internal/progress"
	"github.com/heatisland/climate-etl/internal/store"
)

var cfgFile string

// app bundles the long-lived services a command needs.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	hub     *progress.Hub
	store   *store.Store
	pipe    *pipeline.Pipeline
	admin   *admin.Server
}

// buildApp connects every collaborator. The database DSN is required here
// because all subcommands persist their output.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if cfg.DB.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required (set CLIMATE_ETL_DB_DSN or the config file)")
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}

	st, err := store.New(ctx, store.Config{
		DSN:          cfg.DB.DSN,
		MaxConns:     int32(cfg.DB.MaxConns),
		BatchSize:    cfg.DB.BatchSize,
		HourlyTable:  cfg.DB.HourlyTable,
		LegacyTable:  cfg.DB.LegacyTable,
		DailyTable:   cfg.DB.DailyTable,
		StationTable: cfg.DB.StationTable,
	}, logger)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	hub := progress.NewHub(progress.Config{Logger: logger},
		progress.NewLogSink(logger),
		progress.NewMetricsSink(prometheus.DefaultRegisterer))

	fetcher := archive.NewFetcher(archive.FetcherConfig{
		URLTemplate:    cfg.Archive.URLTemplate,
		DestDir:        cfg.Archive.DataDir,
		Timeout:        cfg.FetchTimeout(),
		MaxRetries:     cfg.Archive.MaxRetries,
		BackoffInitial: time.Duration(cfg.Archive.BackoffInitial) * time.Millisecond,
	}, logger)

	cat := catalog.New(st, clockwork.NewRealClock(),
		cfg.Region.StartYear, cfg.Region.EndYear, logger)
	norm := normalize.New(cfg.Region.Code, cfg.Region.UTCOffset, logger)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		hub:     hub,
		store:   st,
		pipe: pipeline.New(pipeline.Config{
			Region:      cfg.Region.Code,
			FileWorkers: cfg.Pipeline.FileWorkers,
		}, fetcher, cat, st, norm, hub, m, logger),
	}
	if cfg.Admin.Addr != "" {
		a.admin = admin.NewServer(cfg.Admin.Addr, logger)
	}
	return a, nil
}

// close flushes the progress hub and releases the pool.
func (a *app) close(ctx context.Context) {
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("progress hub close", zap.Error(err))
	}
	a.store.Close()
	_ = a.logger.Sync()
}

// runWithApp boots the app, optionally serves the admin endpoints for the
// duration of fn, and tears everything down afterwards.
func runWithApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if a.admin != nil {
		adminCtx, stopAdmin := context.WithCancel(ctx)
		defer stopAdmin()
		go func() {
			if err := a.admin.Run(adminCtx); err != nil {
				a.logger.Error("admin server failed", zap.Error(err))
			}
		}()
		a.admin.SetReady(true)
	}

	return fn(ctx, a)
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "climate-etl",
		Short: "Batch ETL for hourly weather observations and daily heat metrics",
		Long: `climate-etl ingests yearly weather archives, normalizes hourly
observations for one region, derives heat-stress metrics and loads both the
hourly and daily aggregate layers into Postgres idempotently.`,
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newRunFullCmd(), newRunIncCmd(), newStationsCmd())
	return cmd
}

// Execute runs the CLI.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
