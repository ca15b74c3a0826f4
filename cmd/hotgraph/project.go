package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"hotgraph/internal/config"
	"hotgraph/internal/livegraph"
	"hotgraph/internal/logger"
)

// loadProject reads the project config and re-initializes logging with its
// settings. --log-json always wins over the file.
func loadProject() (*config.ProjectConfig, error) {
	cfg, err := config.LoadProjectConfig(configPath)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(logJSON || cfg.Log.JSON, cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveSchemaPath() string {
	if schemaPath != "" {
		return schemaPath
	}
	return filepath.Join(filepath.Dir(configPath), config.DefaultSchemaPath)
}

func loadSchema() (*config.Schema, error) {
	return config.LoadSchema(resolveSchemaPath())
}

// loadOptionalSchema returns nil without error when there is no schema file;
// snapshots carry their own copy.
func loadOptionalSchema() (*config.Schema, error) {
	path := resolveSchemaPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return config.LoadSchema(path)
}

func openGraph(ctx context.Context, cfg *config.ProjectConfig) (*livegraph.Handle, *livegraph.Watcher, error) {
	return livegraph.Open(ctx, livegraph.OptionsFromConfig(cfg.Dataset))
}

// withGraph opens the current snapshot for a one-shot command.
func withGraph(ctx context.Context, fn func(*livegraph.Handle) error) error {
	cfg, err := loadProject()
	if err != nil {
		return err
	}
	handle, _, err := openGraph(ctx, cfg)
	if err != nil {
		return err
	}
	defer handle.Close(ctx)
	return fn(handle)
}
