package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/heatisland/climate-etl/internal/stations"
)

func newStationsCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "stations",
		Short: "Harvest station metadata from extracted archives into the dimension table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWithApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.store.Migrate(ctx); err != nil {
					return err
				}

				sts, err := stations.Harvest(dir, a.cfg.Region.Code, a.logger)
				if err != nil {
					return fmt.Errorf("harvest stations: %w", err)
				}
				if len(sts) == 0 {
					a.logger.Warn("no stations found", zap.String("dir", dir))
					return nil
				}
				if err := a.store.UpsertStations(ctx, sts); err != nil {
					return err
				}
				a.logger.Info("station dimension updated",
					zap.Int("stations", len(sts)), zap.String("dir", dir))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "directory of extracted archive CSVs")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}
