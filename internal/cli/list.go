package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/bucketsync/pkg/output"
	"github.com/sdejongh/bucketsync/pkg/resource"
	"github.com/sdejongh/bucketsync/pkg/storage"
)

// bucketURL accepts a bare bucket name where an s3:// path is expected
func bucketURL(arg string) string {
	if resource.IsRemote(arg) {
		return arg
	}
	return resource.ObjectURL(arg, "")
}

func (s *session) newListCommand() *cobra.Command {
	var owner bool

	cmd := &cobra.Command{
		Use:     "ls <bucket|s3://bucket/prefix>",
		Short:   "List the objects of a bucket",
		Args:    cobra.ExactArgs(1),
		Aliases: []string{"list"},
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			objects, err := env.orchestrator.List(cmd.Context(), bucketURL(args[0]), owner)
			if err != nil {
				return err
			}

			var rows []storage.ObjectInfo
			for obj, err := range objects {
				if err != nil {
					return fmt.Errorf("failed to list %s: %w", args[0], err)
				}
				rows = append(rows, obj)
			}

			return output.ObjectTable(rows).Render(s.app.Out)
		},
	}

	cmd.Flags().BoolVar(&owner, "owner", false, "fetch the owner of each object")

	return cmd
}

func (s *session) newListVersionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "listversions <bucket|s3://bucket/prefix>",
		Short: "List object versions and delete markers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := s.environment(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			versions, err := env.orchestrator.ListVersions(cmd.Context(), bucketURL(args[0]))
			if err != nil {
				return err
			}

			var rows []storage.ObjectVersion
			for v, err := range versions {
				if err != nil {
					return fmt.Errorf("failed to list versions of %s: %w", args[0], err)
				}
				rows = append(rows, v)
			}

			if len(rows) == 0 {
				fmt.Fprintln(s.app.Out, "There were no object versions.")
				return nil
			}
			return output.VersionTable(rows).Render(s.app.Out)
		},
	}
}
