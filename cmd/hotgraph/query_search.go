package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"hotgraph/internal/livegraph"
)

func querySearchCmd() *cobra.Command {
	var entityType string
	var layer string
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search the snapshot's full-text index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuerySearch(cmd, strings.Join(args, " "), entityType, layer)
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "Entity type to filter")
	cmd.Flags().StringVar(&layer, "layer", "", "Layer to filter")
	return cmd
}

func runQuerySearch(cmd *cobra.Command, query, entityType, layer string) error {
	ctx := cmd.Context()
	return withGraph(ctx, func(graph *livegraph.Handle) error {
		results, err := graph.Search(ctx, query, layer, entityType)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(results) == 0 {
			fmt.Fprintln(out, "No matches found.")
			return nil
		}
		for _, result := range results {
			fmt.Fprintf(out, "%s (%s) [%s] score=%.2f\n", result.Name, result.EntityType, result.Layer, result.Score)
			if result.Snippet != "" {
				fmt.Fprintf(out, "    %s\n", result.Snippet)
			}
		}
		return nil
	})
}
