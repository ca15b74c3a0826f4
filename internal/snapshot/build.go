// Package snapshot builds graph snapshots from markdown sources and publishes
// them into a dataset directory.
package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"hotgraph/internal/config"
	"hotgraph/internal/dataset"
	"hotgraph/internal/logger"
	"hotgraph/internal/store/sqlite"
)

const timestampLayout = "20060102T150405Z"

// Result reports what a build wrote.
type Result struct {
	Path         string
	Name         string
	Entities     int
	Edges        int
	FilesSkipped int
	// Errors holds per-file failures. The snapshot is still written without
	// the affected documents.
	Errors    []error
	Published bool
}

type Options struct {
	// Dir is the dataset directory the snapshot is written to.
	Dir string
	// Name overrides the generated <project>-<timestamp>.db file name.
	Name string
	// Publish points the dataset at the new snapshot once it is sealed. A build
	// with per-file errors is never published.
	Publish bool
	// Now stamps the snapshot; defaults to time.Now.
	Now func() time.Time
}

// Build writes a new snapshot of cfg's layers. The file is assembled under a
// temporary name and renamed into place only once it is complete, so a
// dataset directory never contains a partial snapshot.
func Build(ctx context.Context, cfg *config.ProjectConfig, schema *config.Schema, opts Options) (*Result, error) {
	log := logger.Named("snapshot")
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	builtAt := now().UTC()

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("%s-%s.db", fileSafe(cfg.Project), builtAt.Format(timestampLayout))
	}
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("snapshot name %q must not contain a directory", name)
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating dataset directory: %w", err)
	}

	final := filepath.Join(opts.Dir, name)
	if _, err := os.Stat(final); err == nil {
		return nil, fmt.Errorf("snapshot %s already exists", final)
	}
	tmp := filepath.Join(opts.Dir, "."+name+".building")
	os.Remove(tmp)

	builder, err := sqlite.Create(ctx, tmp)
	if err != nil {
		return nil, err
	}

	result := &Result{Path: final, Name: name}
	log.Infow("Building snapshot", "snapshot", name, "layers", len(cfg.Layers))
	if err := populate(ctx, cfg, schema, builder, result); err != nil {
		builder.Abort()
		return nil, err
	}

	if err := builder.Finish(ctx, sqlite.BuildMeta{
		Project: cfg.Project,
		Schema:  schema.Raw(),
		BuiltAt: builtAt,
	}); err != nil {
		builder.Abort()
		return nil, err
	}
	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("moving snapshot into place: %w", err)
	}
	log.Infow("Snapshot built",
		"snapshot", final,
		"entities", result.Entities,
		"edges", result.Edges,
		"skipped", result.FilesSkipped,
		"errors", len(result.Errors))

	if opts.Publish {
		if len(result.Errors) > 0 {
			log.Warnw("Not publishing snapshot built with errors", "snapshot", name, "errors", len(result.Errors))
			return result, nil
		}
		if err := dataset.WritePointer(opts.Dir, name); err != nil {
			return result, fmt.Errorf("publishing snapshot: %w", err)
		}
		result.Published = true
		log.Infow("Snapshot published", "snapshot", name)
	}
	return result, nil
}

func fileSafe(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
