package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"hotgraph/internal/config"
	"hotgraph/internal/logger"
	"hotgraph/internal/store/sqlite"
)

var (
	configPath string
	schemaPath string
	logJSON    bool
)

func main() {
	sqlite.Register()

	err := rootCmd().ExecuteContext(context.Background())
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "hotgraph",
		Short:        "Serve live-reloadable knowledge graph snapshots",
		SilenceUsage: true,
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath, "Project config file")
	root.PersistentFlags().StringVar(&schemaPath, "schema", "", "Schema file (default: schema.yaml next to the config)")
	root.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return logger.Initialize(logJSON, "")
	}

	root.AddCommand(initCmd())
	root.AddCommand(buildCmd())
	root.AddCommand(publishCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(validateCmd())
	root.AddCommand(versionCmd())
	return root
}
