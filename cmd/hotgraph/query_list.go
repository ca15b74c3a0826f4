package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hotgraph/internal/livegraph"
)

func queryListCmd() *cobra.Command {
	var entityType string
	var layer string
	var tag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities in the current snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryList(cmd, entityType, layer, tag)
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "Entity type to filter")
	cmd.Flags().StringVar(&layer, "layer", "", "Layer to filter")
	cmd.Flags().StringVar(&tag, "tag", "", "Tag to filter")
	return cmd
}

func runQueryList(cmd *cobra.Command, entityType, layer, tag string) error {
	ctx := cmd.Context()
	return withGraph(ctx, func(graph *livegraph.Handle) error {
		entities, err := graph.ListEntities(ctx, entityType, layer, tag)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(entities) == 0 {
			fmt.Fprintln(out, "No entities found.")
			return nil
		}
		for _, entity := range entities {
			fmt.Fprintf(out, "%s (%s) [%s]\n", entity.Name, entity.EntityType, entity.Layer)
		}
		return nil
	})
}
