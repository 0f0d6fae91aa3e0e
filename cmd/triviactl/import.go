package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gokatarajesh/trivia-engine/internal/app"
	"github.com/gokatarajesh/trivia-engine/internal/config"
	"github.com/gokatarajesh/trivia-engine/internal/logging"
)

func newImportCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file.json|file.yaml>",
		Short: "Validate a package file and store it, replacing any package with the same id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := loadPackageFile(args[0])
			if err != nil {
				return err
			}
			summary := pkg.Summarize()
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "valid: %s (%d items, %d attributes)\n", summary.ID, summary.ItemCount, len(summary.Attributes))
				return nil
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cfg, err := config.Load(ctx)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Name, cfg.Env, cfg.LogLevel)

			pool, redisClient, err := app.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()
			defer redisClient.Close()

			if err := app.NewCatalog(pool, redisClient, cfg, logger).Import(ctx, pkg); err != nil {
				return fmt.Errorf("import %s: %w", summary.ID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported: %s (%d items)\n", summary.ID, summary.ItemCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate the file without writing to the database")
	return cmd
}
