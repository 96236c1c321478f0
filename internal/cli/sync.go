package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/sdejongh/bucketsync/pkg/config"
	"github.com/sdejongh/bucketsync/pkg/logging"
	"github.com/sdejongh/bucketsync/pkg/models"
	"github.com/sdejongh/bucketsync/pkg/output"
	"github.com/sdejongh/bucketsync/pkg/ratelimit"
	"github.com/sdejongh/bucketsync/pkg/sync"
	"github.com/sdejongh/bucketsync/pkg/transfer"
)

// SyncFlags holds sync command flags
type SyncFlags struct {
	Concurrency        int
	PreserveTimestamps bool
	Exclude            []string
	DryRun             bool
	Output             string
	Every              time.Duration
	Bandwidth          string
}

func (s *session) newSyncCommand() *cobra.Command {
	var flags SyncFlags

	cmd := &cobra.Command{
		Use:   "sync <source> <destination>",
		Short: "Make a destination tree mirror a source tree",
		Long: `Compare source and destination by key and modification time, delete
destination keys missing from the source, then transfer new and newer keys.
Either side may be a local directory or an s3:// prefix.`,
		Example: `  bucketsync sync ./site s3://bucket/site/ --exclude '*.tmp'
  bucketsync sync s3://bucket/photos/ ./photos/ -c 8 --preserve-timestamps
  bucketsync sync ./data s3://bucket/data/ --every 15m --bandwidth 10M`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runSync(cmd, &flags, args[0], args[1])
		},
	}

	cmd.Flags().IntVarP(&flags.Concurrency, "concurrency", "c", 0, "number of parallel transfers (default from config)")
	cmd.Flags().BoolVar(&flags.PreserveTimestamps, "preserve-timestamps", false, "carry modification times to the destination")
	cmd.Flags().StringArrayVar(&flags.Exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "print the plan, don't sync")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "output format: human, json, progress")
	cmd.Flags().DurationVar(&flags.Every, "every", 0, "repeat the sync at this interval until interrupted")
	cmd.Flags().StringVarP(&flags.Bandwidth, "bandwidth", "b", "", "bandwidth limit (e.g., \"10M\", \"1G\")")

	return cmd
}

// newCompareCommand is sync --dry-run under its own name
func (s *session) newCompareCommand() *cobra.Command {
	var flags SyncFlags

	cmd := &cobra.Command{
		Use:   "compare <source> <destination>",
		Short: "Show what sync would do without changing anything",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.DryRun = true
			return s.runSync(cmd, &flags, args[0], args[1])
		},
	}

	cmd.Flags().StringArrayVar(&flags.Exclude, "exclude", nil, "glob pattern to exclude (repeatable)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "", "output format: human, json")

	return cmd
}

// applyFlagsToConfig overrides config values with sync flags
func applyFlagsToConfig(cfg *config.Config, flags *SyncFlags) {
	if flags.Concurrency != 0 {
		cfg.Transfer.Concurrency = flags.Concurrency
	}
	if flags.PreserveTimestamps {
		cfg.Transfer.PreserveTimestamps = true
	}
	if flags.Bandwidth != "" {
		cfg.Transfer.BandwidthLimit = flags.Bandwidth
	}
	if len(flags.Exclude) > 0 {
		cfg.Exclude = append(cfg.Exclude, flags.Exclude...)
	}
	if flags.Output != "" {
		cfg.Output.Format = flags.Output
	}
}

// createSyncOperation merges config and flags into a validated operation
func createSyncOperation(cfg *config.Config, flags *SyncFlags, source, destination string) (*models.SyncOperation, error) {
	limit, err := ratelimit.ParseRate(cfg.Transfer.BandwidthLimit)
	if err != nil {
		return nil, models.NewArgumentError(err, "--bandwidth")
	}

	operation := &models.SyncOperation{
		ID:                 uuid.NewString(),
		SourcePath:         source,
		DestPath:           destination,
		Concurrency:        cfg.Transfer.Concurrency,
		PreserveTimestamps: cfg.Transfer.PreserveTimestamps,
		ExcludePatterns:    cfg.Exclude,
		DryRun:             flags.DryRun,
		BandwidthLimit:     limit,
		CreatedAt:          time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}
	return operation, nil
}

func (s *session) runSync(cmd *cobra.Command, flags *SyncFlags, source, destination string) error {
	if flags.Every < 0 {
		return models.NewArgumentError(models.ErrArgumentOutOfRange, fmt.Sprintf("--every %s", flags.Every))
	}

	cfg, err := s.loadConfig(cmd)
	if err != nil {
		return err
	}
	applyFlagsToConfig(cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	operation, err := createSyncOperation(cfg, flags, source, destination)
	if err != nil {
		return err
	}

	// The bandwidth limit is shared by all workers of a run
	env, err := s.environmentFor(cmd, cfg, transfer.WithBandwidthLimit(operation.BandwidthLimit))
	if err != nil {
		return err
	}
	defer env.Close()

	if flags.Every == 0 {
		code, err := s.syncOnce(cmd.Context(), env, operation)
		if err != nil {
			return err
		}
		if code != 0 {
			return &ExitError{Code: code}
		}
		return nil
	}

	return s.syncEvery(cmd.Context(), env, operation, flags.Every)
}

// syncOnce runs one sync and returns the exit code of its status
func (s *session) syncOnce(ctx context.Context, env *environment, op *models.SyncOperation) (int, error) {
	formatter, err := s.formatter(env.cfg)
	if err != nil {
		return 0, err
	}

	logger := env.logger.WithFields(logging.Fields{"operation_id": op.ID})
	logger.Info(ctx, "sync started", logging.Fields{
		"source":      op.SourcePath,
		"destination": op.DestPath,
		"dry_run":     op.DryRun,
		"concurrency": op.Concurrency,
	})

	synchronizer := sync.New(env.orchestrator, sync.WithOperationIDs(func() string { return op.ID }))
	report, err := synchronizer.Sync(ctx, op.SourcePath, op.DestPath, sync.Options{
		Concurrency:        op.Concurrency,
		PreserveTimestamps: op.PreserveTimestamps,
		DryRun:             op.DryRun,
		Exclude:            op.ExcludePatterns,
		Formatter:          formatter,
	})
	if report == nil {
		logger.Error(ctx, "sync failed", err, nil)
		return 0, err
	}

	for _, e := range report.Errors {
		logger.Warn(ctx, "transfer failed", logging.Fields{
			"key":    e.FilePath,
			"action": string(e.Operation),
			"error":  e.Error,
		})
	}
	logger.Info(ctx, "sync finished", logging.Fields{
		"status":      string(report.Status),
		"copied":      report.Stats.FilesCopied,
		"updated":     report.Stats.FilesUpdated,
		"deleted":     report.Stats.FilesDeleted,
		"errored":     report.Stats.FilesErrored,
		"bytes":       report.Stats.BytesTransferred,
		"duration_ms": report.Duration.Milliseconds(),
	})

	return report.Status.ExitCode(), nil
}

// syncEvery repeats the sync on a schedule until ctx ends. Runs never
// overlap.
func (s *session) syncEvery(ctx context.Context, env *environment, op *models.SyncOperation, every time.Duration) error {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(every).SingletonMode().Do(func() {
		run := *op
		run.ID = uuid.NewString()
		run.CreatedAt = time.Now()

		if _, err := s.syncOnce(ctx, env, &run); err != nil && ctx.Err() == nil {
			fmt.Fprintf(s.app.Err, "Error: %v\n", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sync: %w", err)
	}

	env.logger.Info(ctx, "sync scheduled", logging.Fields{"every": every.String()})
	scheduler.StartAsync()
	<-ctx.Done()
	scheduler.Stop()

	return nil
}

// formatter picks the sync output for the configured format
func (s *session) formatter(cfg *config.Config) (output.Formatter, error) {
	if cfg.Output.Quiet {
		return output.NewNullFormatter(), nil
	}

	format := cfg.Output.Format
	if format == "human" && s.interactive(cfg, s.app.Out) {
		format = "progress"
	}
	return output.New(format, s.app.Out)
}
