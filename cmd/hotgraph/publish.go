package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hotgraph/internal/dataset"
	"hotgraph/internal/snapshot"
)

func publishCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "publish [snapshot]",
		Short: "Point the dataset at an existing snapshot",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return runPublishList(cmd)
			}
			if len(args) != 1 {
				return fmt.Errorf("snapshot name is required")
			}
			return runPublish(cmd, args[0])
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List the snapshots in the dataset directory")
	return cmd
}

func runPublish(cmd *cobra.Command, name string) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	id, err := snapshot.Publish(cmd.Context(), cfg.Dataset.Path, name, dataset.Default, dataset.ModeFor(cfg.Dataset.InMemory))
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s.\n", id)
	return nil
}

func runPublishList(cmd *cobra.Command) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}

	entries, err := snapshot.List(cfg.Dataset.Path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No snapshots found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		marker := " "
		if entry.Current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\t%d\t%s\n", marker, entry.Name, entry.Size, entry.ModTime.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}
