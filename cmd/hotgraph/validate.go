package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"hotgraph/internal/config"
	"hotgraph/internal/livegraph"
	"hotgraph/internal/validate"
)

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run consistency checks against the current snapshot",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	return cmd
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	schema, err := loadOptionalSchema()
	if err != nil {
		return err
	}

	var report *validate.Report
	err = withGraph(ctx, func(graph *livegraph.Handle) error {
		if schema == nil {
			info, err := graph.Info(ctx)
			if err != nil {
				return err
			}
			if schema, err = config.ParseSchema(info.Schema); err != nil {
				return fmt.Errorf("no schema file and snapshot schema unreadable: %w", err)
			}
		}
		r, err := validate.Run(ctx, schema, graph)
		report = r
		return err
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	var errorIssues []validate.Issue
	var warnIssues []validate.Issue
	for _, issue := range report.Issues {
		switch issue.Severity {
		case validate.SeverityError:
			errorIssues = append(errorIssues, issue)
		case validate.SeverityWarn:
			warnIssues = append(warnIssues, issue)
		}
	}

	if len(errorIssues) == 0 && len(warnIssues) == 0 {
		fmt.Fprintln(out, "No issues found.")
		return nil
	}

	if len(errorIssues) > 0 {
		fmt.Fprintf(out, "Errors (%d):\n", len(errorIssues))
		printIssues(out, errorIssues)
	}
	if len(warnIssues) > 0 {
		if len(errorIssues) > 0 {
			fmt.Fprintln(out, "")
		}
		fmt.Fprintf(out, "Warnings (%d):\n", len(warnIssues))
		printIssues(out, warnIssues)
	}

	if !report.OK() {
		return fmt.Errorf("validation found errors")
	}
	return nil
}

func printIssues(out io.Writer, issues []validate.Issue) {
	for _, issue := range issues {
		location := issue.Entity
		if issue.Layer != "" {
			location = fmt.Sprintf("%s [%s]", issue.Entity, issue.Layer)
		}
		if issue.FilePath != "" {
			location = fmt.Sprintf("%s (%s)", location, issue.FilePath)
		}
		fmt.Fprintf(out, "  - %s: %s (%s)\n", location, issue.Message, issue.Code)
	}
}
