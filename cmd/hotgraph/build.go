package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hotgraph/internal/snapshot"
)

func buildCmd() *cobra.Command {
	var name string
	var publish bool
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a new snapshot from the markdown sources",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, name, publish)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Snapshot file name (default: <project>-<timestamp>.db)")
	cmd.Flags().BoolVar(&publish, "publish", false, "Point the dataset at the new snapshot when the build is clean")
	return cmd
}

func runBuild(cmd *cobra.Command, name string, publish bool) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	result, err := snapshot.Build(cmd.Context(), cfg, schema, snapshot.Options{
		Dir:     cfg.Dataset.Path,
		Name:    name,
		Publish: publish,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Snapshot %s built.\n", result.Name)
	fmt.Fprintf(out, "  Entities:      %d\n", result.Entities)
	fmt.Fprintf(out, "  Edges:         %d\n", result.Edges)
	fmt.Fprintf(out, "  Files skipped: %d\n", result.FilesSkipped)
	if result.Published {
		fmt.Fprintln(out, "  Published:     yes")
	}

	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
		for _, item := range result.Errors {
			fmt.Fprintf(out, "  - %v\n", item)
		}
		return fmt.Errorf("build completed with errors")
	}
	return nil
}
