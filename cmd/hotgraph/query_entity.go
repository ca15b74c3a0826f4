package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"hotgraph/internal/livegraph"
)

func queryEntityCmd() *cobra.Command {
	var entityType string
	var showBody bool
	cmd := &cobra.Command{
		Use:   "entity <name>",
		Short: "Display an entity and its properties",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.Join(args, " ")
			return runQueryEntity(cmd, name, entityType, showBody)
		},
	}
	cmd.Flags().StringVar(&entityType, "type", "", "Entity type to disambiguate")
	cmd.Flags().BoolVar(&showBody, "body", false, "Print the document body")
	return cmd
}

func runQueryEntity(cmd *cobra.Command, name, entityType string, showBody bool) error {
	ctx := cmd.Context()
	return withGraph(ctx, func(graph *livegraph.Handle) error {
		out := cmd.OutOrStdout()
		entity, err := graph.GetEntity(ctx, name, entityType)
		if err != nil {
			return err
		}
		if entity == nil {
			fmt.Fprintf(out, "No entity found for %q.\n", name)
			return nil
		}

		fmt.Fprintf(out, "Name: %s\n", entity.Name)
		fmt.Fprintf(out, "Type: %s\n", entity.EntityType)
		fmt.Fprintf(out, "Layer: %s\n", entity.Layer)
		if len(entity.Tags) > 0 {
			fmt.Fprintf(out, "Tags: %s\n", strings.Join(entity.Tags, ", "))
		}
		if entity.SourceFile != "" {
			fmt.Fprintf(out, "Source: %s\n", entity.SourceFile)
		}

		if len(entity.Properties) > 0 {
			keys := make([]string, 0, len(entity.Properties))
			for key := range entity.Properties {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			fmt.Fprintln(out, "Properties:")
			for _, key := range keys {
				fmt.Fprintf(out, "  %s: %v\n", key, entity.Properties[key])
			}
		}
		if showBody && entity.Body != "" {
			fmt.Fprintf(out, "\n%s\n", entity.Body)
		}
		return nil
	})
}
