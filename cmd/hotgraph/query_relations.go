package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hotgraph/internal/livegraph"
)

func queryRelationsCmd() *cobra.Command {
	var relType string
	var direction string
	var depth int
	cmd := &cobra.Command{
		Use:   "relations <name>",
		Short: "Display relationships for an entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueryRelations(cmd, args[0], relType, direction, depth)
		},
	}
	cmd.Flags().StringVar(&relType, "type", "", "Relationship type to filter")
	cmd.Flags().StringVar(&direction, "direction", "both", "Direction: outgoing, incoming, or both")
	cmd.Flags().IntVar(&depth, "depth", 1, "Traversal depth (1-5)")
	return cmd
}

func runQueryRelations(cmd *cobra.Command, name, relType, direction string, depth int) error {
	ctx := cmd.Context()
	return withGraph(ctx, func(graph *livegraph.Handle) error {
		rels, err := graph.GetRelationships(ctx, name, relType, direction, depth)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(rels) == 0 {
			fmt.Fprintf(out, "No relationships found for %q.\n", name)
			return nil
		}
		for _, rel := range rels {
			fmt.Fprintf(out, "[%d] %s (%s) -%s-> %s (%s) [%s]\n",
				rel.Depth,
				rel.From.Name,
				rel.From.EntityType,
				rel.Type,
				rel.To.Name,
				rel.To.EntityType,
				rel.Direction,
			)
		}
		return nil
	})
}
