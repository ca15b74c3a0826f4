package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"hotgraph/internal/livegraph"
)

func queryInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the snapshot the dataset currently points at",
		Args:  cobra.NoArgs,
		RunE:  runQueryInfo,
	}
}

func runQueryInfo(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withGraph(ctx, func(graph *livegraph.Handle) error {
		info, err := graph.Info(ctx)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Snapshot: %s\n", graph.Current())
		fmt.Fprintf(out, "Project:  %s\n", info.Project)
		fmt.Fprintf(out, "Format:   %d\n", info.FormatVersion)
		if !info.BuiltAt.IsZero() {
			fmt.Fprintf(out, "Built:    %s\n", info.BuiltAt.UTC().Format(time.RFC3339))
		}
		fmt.Fprintf(out, "Entities: %d\n", info.Entities)
		fmt.Fprintf(out, "Edges:    %d\n", info.Edges)
		return nil
	})
}
