package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"hotgraph/internal/config"
)

const defaultSchema = `version: 1

entity_types:
  - name: npc
    properties:
      - name: role
        type: string
      - name: status
        type: enum
        values: [alive, dead, unknown]
        default: alive
    field_mappings:
      - field: faction
        relationship: MEMBER_OF
        target_type: [faction]
      - field: location
        relationship: LOCATED_IN
        target_type: [settlement]
  - name: faction
  - name: settlement
    properties:
      - name: population
        type: integer

relationship_types:
  - name: MEMBER_OF
    inverse: HAS_MEMBER
  - name: LOCATED_IN
    inverse: CONTAINS
  - name: RELATED_TO
    symmetric: true
`

func initCmd() *cobra.Command {
	var projectName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new hotgraph project",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(projectName) == "" {
				return fmt.Errorf("--name is required")
			}
			return runInit(cmd, projectName)
		},
	}
	cmd.Flags().StringVar(&projectName, "name", "", "Project name")
	return cmd
}

func runInit(cmd *cobra.Command, projectName string) error {
	schemaFile := resolveSchemaPath()
	for _, path := range []string{configPath, schemaFile} {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}

	configContents := fmt.Sprintf(`project: %s
version: 1

dataset:
  path: ./snapshots
  in_memory: false
  poll_interval: %s
  drain_timeout: %s
  watch: true

layers:
  - name: setting
    paths:
      - ./lore/
    canonical: true

exclude:
  - ./assets/

log:
  level: info
`, projectName, config.DefaultPollInterval, config.DefaultDrainTimeout)

	if err := os.WriteFile(configPath, []byte(configContents), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(schemaFile, []byte(defaultSchema), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", schemaFile, err)
	}
	base := filepath.Dir(configPath)
	for _, dir := range []string{"lore", "snapshots"} {
		if err := os.MkdirAll(filepath.Join(base, dir), 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s and %s.\n", configPath, schemaFile)
	return nil
}
