package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/app"
	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/usecase"
	"github.com/user/coffee-ingest/pkg/config"
	"github.com/user/coffee-ingest/pkg/logger"
)

var errRunFailures = errors.New("some artifacts could not be processed")

type runOptions struct {
	roasterID    string
	platform     string
	metadataOnly bool
	dryRun       bool
	force        bool
	fromStorage  bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run FILE...",
		Short: "Run the pipeline over artifact files",
		Long: "Run the pipeline over artifact files. Files are local paths unless\n" +
			"--from-storage is set, in which case they are names under\n" +
			"<roaster>/<platform>/ in the configured artifact storage.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.envFile)
			if err != nil {
				return err
			}
			if root.logLevel != "" {
				cfg.LogLevel = root.logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer log.Sync()

			a, err := app.New(cmd.Context(), cfg, app.Options{DryRun: opts.dryRun}, log)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := execute(cmd, a.Pipeline, opts, args)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			log.Info("run finished", zap.String("run_id", res.RunID), zap.Int("total", res.Stats.Total))

			if res.Stats.Count(entity.OutcomeError) > 0 || res.Stats.Count(entity.OutcomeFailed) > 0 {
				return errRunFailures
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.roasterID, "roaster-id", "", "roaster the artifacts belong to (required)")
	f.StringVar(&opts.platform, "platform", "", "source platform, e.g. shopify or woocommerce (required)")
	f.BoolVar(&opts.metadataOnly, "metadata-only", false, "skip image writes")
	f.BoolVar(&opts.dryRun, "dry-run", false, "map artifacts without writing anything")
	f.BoolVar(&opts.force, "force", false, "reprocess payloads seen recently")
	f.BoolVar(&opts.fromStorage, "from-storage", false, "read FILE names from the configured artifact storage")
	_ = cmd.MarkFlagRequired("roaster-id")
	_ = cmd.MarkFlagRequired("platform")
	return cmd
}

// batchRunner is the part of the pipeline the run command needs.
type batchRunner interface {
	ProcessBatch(ctx context.Context, b usecase.Batch) *usecase.BatchResult
	ProcessJob(ctx context.Context, job *entity.IngestJob) (*usecase.BatchResult, error)
}

func execute(cmd *cobra.Command, p batchRunner, opts *runOptions, args []string) (*usecase.BatchResult, error) {
	if opts.fromStorage {
		return p.ProcessJob(cmd.Context(), &entity.IngestJob{
			RoasterID:    opts.roasterID,
			Platform:     opts.platform,
			Filenames:    args,
			MetadataOnly: opts.metadataOnly,
			Force:        opts.force,
		})
	}

	items := make([][]byte, len(args))
	for i, path := range args {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		items[i] = b
	}
	return p.ProcessBatch(cmd.Context(), usecase.Batch{
		RoasterID:    opts.roasterID,
		Platform:     opts.platform,
		MetadataOnly: opts.metadataOnly,
		Force:        opts.force,
		Items:        items,
	}), nil
}
