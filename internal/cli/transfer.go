package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/bucketsync/pkg/logging"
	"github.com/sdejongh/bucketsync/pkg/output"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/transfer"
)

func (s *session) newCopyCommand() *cobra.Command {
	var exclude []string

	cmd := &cobra.Command{
		Use:   "cp <source> <destination>",
		Short: "Copy files between a local folder and S3",
		Long: `Copy a file, a directory (non-recursively) or a wildcard selection of
files between the local filesystem and a bucket. Local paths ending with a
separator and object keys ending with "/" are directories.`,
		Example: `  bucketsync cp ./report.pdf s3://bucket/reports/
  bucketsync cp './logs/*.log' s3://bucket/logs/
  bucketsync cp s3://bucket/reports/ ./reports/`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := resource.CompileExcludes(exclude)
			if err != nil {
				return err
			}

			env, err := s.environment(cmd, transfer.WithExclude(set))
			if err != nil {
				return err
			}
			defer env.Close()

			return s.runCopy(cmd, env, args[0], args[1])
		},
	}

	cmd.Flags().StringArrayVar(&exclude, "exclude", nil, "glob pattern to skip in wildcard copies (repeatable)")

	return cmd
}

func (s *session) runCopy(cmd *cobra.Command, env *environment, source, destination string) error {
	ctx := cmd.Context()

	outcomes, err := env.orchestrator.Copy(ctx, source, destination)
	if err != nil {
		return err
	}

	spinner := output.NewSpinner(s.app.Err, "copying", s.interactive(env.cfg, s.app.Err))
	defer spinner.Finish()

	for outcome, err := range outcomes {
		if err != nil {
			env.logger.Error(ctx, "copy aborted", err, logging.Fields{"source": source})
			return err
		}

		fields := logging.Fields{"source": outcome.Source, "destination": outcome.Destination}
		if outcome.Succeeded() {
			fields["bytes"] = outcome.Bytes
			env.logger.Info(ctx, "copied", fields)
			if !env.cfg.Output.Quiet {
				spinner.Printf(s.app.Out, "Successfully copied %s to %s", outcome.Source, outcome.Destination)
			}
		} else {
			env.logger.Error(ctx, "copy failed", outcome.Err, fields)
			spinner.Printf(s.app.Out, "Failed to copy %s to %s: %v", outcome.Source, outcome.Destination, outcome.Err)
		}
		spinner.Add()
	}

	return nil
}

func (s *session) newMoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <source> <destination>",
		Short: "Move files between a local folder and S3",
		Long: `Copy like cp, then delete every source that was copied. Sources whose
copy failed are kept.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx := cmd.Context()
			fields := logging.Fields{"source": args[0], "destination": args[1]}

			if err := env.orchestrator.Move(ctx, args[0], args[1]); err != nil {
				env.logger.Error(ctx, "move failed", err, fields)
				return err
			}

			env.logger.Info(ctx, "moved", fields)
			if !env.cfg.Output.Quiet {
				fmt.Fprintf(s.app.Out, "Successfully moved %s to %s\n", args[0], args[1])
			}
			return nil
		},
	}
}
