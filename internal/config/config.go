package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath   = "hotgraph.yaml"
	DefaultSchemaPath   = "schema.yaml"
	DefaultPollInterval = time.Minute
	DefaultDrainTimeout = 30 * time.Second
)

type ProjectConfig struct {
	Project string        `yaml:"project"`
	Version int           `yaml:"version"`
	Dataset DatasetConfig `yaml:"dataset"`
	Layers  []Layer       `yaml:"layers"`
	Exclude []string      `yaml:"exclude"`
	Log     LogConfig     `yaml:"log"`
}

// DatasetConfig locates the snapshots to serve. Path is either a single snapshot
// file or a directory holding a pointer file and versioned snapshots.
type DatasetConfig struct {
	Path         string        `yaml:"path"`
	InMemory     bool          `yaml:"in_memory"`
	PollInterval time.Duration `yaml:"poll_interval"`
	DrainTimeout time.Duration `yaml:"drain_timeout"`
	Watch        *bool         `yaml:"watch"`
}

type Layer struct {
	Name      string   `yaml:"name"`
	Paths     []string `yaml:"paths"`
	Canonical bool     `yaml:"canonical"`
	DependsOn []string `yaml:"depends_on"`
}

type LogConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
}

func LoadProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	if err := validateProjectConfig(&cfg); err != nil {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))
	return &cfg, nil
}

// WatchEnabled reports whether filesystem events should wake the reload watcher.
// Unset means enabled.
func (d DatasetConfig) WatchEnabled() bool {
	return d.Watch == nil || *d.Watch
}

func (c *ProjectConfig) applyDefaults(baseDir string) {
	if c.Dataset.PollInterval == 0 {
		c.Dataset.PollInterval = DefaultPollInterval
	}
	if c.Dataset.DrainTimeout == 0 {
		c.Dataset.DrainTimeout = DefaultDrainTimeout
	}
	if !filepath.IsAbs(c.Dataset.Path) && baseDir != "" {
		c.Dataset.Path = filepath.Join(baseDir, c.Dataset.Path)
	}
}

func validateProjectConfig(cfg *ProjectConfig) error {
	if strings.TrimSpace(cfg.Project) == "" {
		return fmt.Errorf("project name is required")
	}
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported version: %d", cfg.Version)
	}
	if strings.TrimSpace(cfg.Dataset.Path) == "" {
		return fmt.Errorf("dataset path is required")
	}
	if cfg.Dataset.PollInterval < 0 {
		return fmt.Errorf("dataset poll_interval must not be negative")
	}
	if cfg.Dataset.DrainTimeout < 0 {
		return fmt.Errorf("dataset drain_timeout must not be negative")
	}

	seen := make(map[string]struct{})
	for i, layer := range cfg.Layers {
		if strings.TrimSpace(layer.Name) == "" {
			return fmt.Errorf("layer %d name is required", i)
		}
		if len(layer.Paths) == 0 {
			return fmt.Errorf("layer %d paths are required", i)
		}
		key := strings.ToLower(layer.Name)
		if _, exists := seen[key]; exists {
			return fmt.Errorf("duplicate layer name: %s", layer.Name)
		}
		seen[key] = struct{}{}
	}
	for _, layer := range cfg.Layers {
		for _, dep := range layer.DependsOn {
			if _, ok := seen[strings.ToLower(dep)]; !ok {
				return fmt.Errorf("layer %s depends on unknown layer: %s", layer.Name, dep)
			}
		}
	}

	return nil
}
