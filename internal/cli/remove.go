package cli

import (
	"context"
	"fmt"
	"iter"

	"github.com/spf13/cobra"

	"github.com/sdejongh/bucketsync/pkg/logging"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

func (s *session) newRemoveCommand() *cobra.Command {
	var includeVersions, force bool

	cmd := &cobra.Command{
		Use:   "rm <s3://bucket/key>",
		Short: "Delete an object or every object under a prefix",
		Long: `Delete one object, or every object under a prefix when the key ends
with "/". Deleting a whole bucket's content needs --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			failures, err := env.orchestrator.Delete(cmd.Context(), args[0], includeVersions, force)
			if err != nil {
				return err
			}
			return s.reportDeletes(cmd.Context(), env, failures, "Successfully deleted "+args[0])
		},
	}

	cmd.Flags().BoolVarP(&includeVersions, "include-versions", "i", false, "delete every version and delete marker")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "allow deleting a whole bucket's content")

	return cmd
}

func (s *session) newBucketCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bucket",
		Short: "Bucket-wide operations",
	}
	cmd.AddCommand(s.newBucketEmptyCommand())
	return cmd
}

func (s *session) newBucketEmptyCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "empty <bucket>",
		Short: "Delete every object version and delete marker of a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			failures, err := env.orchestrator.Empty(cmd.Context(), args[0], force)
			if err != nil {
				return err
			}
			return s.reportDeletes(cmd.Context(), env, failures, "Successfully emptied "+args[0])
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "confirm emptying the bucket")

	return cmd
}

// reportDeletes prints one line per refused key, or success when there
// were none. A failed request ends the command.
func (s *session) reportDeletes(ctx context.Context, env *environment, failures iter.Seq2[storage.DeleteError, error], success string) error {
	failed := 0
	for failure, err := range failures {
		if err != nil {
			env.logger.Error(ctx, "delete aborted", err, nil)
			return err
		}

		failed++
		env.logger.Warn(ctx, "delete refused", logging.Fields{
			"key":     failure.Key,
			"version": failure.VersionID,
			"code":    failure.Code,
		})
		fmt.Fprintf(s.app.Out, "Failed to delete %s\n", failure.Key)
	}

	if failed == 0 {
		env.logger.Info(ctx, success, nil)
		if !env.cfg.Output.Quiet {
			fmt.Fprintln(s.app.Out, success)
		}
	}
	return nil
}
