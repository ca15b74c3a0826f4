package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"hotgraph/internal/dataset"
	"hotgraph/internal/logger"
)

// Publish points the dataset in dir at the snapshot name after checking that it
// loads with loader.
func Publish(ctx context.Context, dir, name string, loader dataset.Loader, mode dataset.Mode) (dataset.Identity, error) {
	id, err := dataset.IdentityOf(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	graph, err := loader.Load(ctx, id.Path(), mode)
	if err != nil {
		return "", fmt.Errorf("verifying snapshot: %w", err)
	}
	if err := graph.Close(ctx); err != nil {
		logger.Named("snapshot").Warnw("Closing verified snapshot failed", "snapshot", id, "error", err)
	}

	if err := dataset.WritePointer(dir, name); err != nil {
		return "", err
	}
	logger.Named("snapshot").Infow("Snapshot published", "snapshot", id)
	return id, nil
}

// Entry describes one snapshot file in a dataset directory.
type Entry struct {
	Name    string
	Size    int64
	ModTime time.Time
	Current bool
}

// List returns the snapshot files in dir that have a registered loader, oldest
// first, marking the one the pointer designates.
func List(dir string) ([]Entry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	current, _ := dataset.Resolve(dir)
	loadable := make(map[string]bool)
	for _, ext := range dataset.Registered() {
		loadable[ext] = true
	}

	var out []Entry
	for _, e := range entries {
		if !e.Type().IsRegular() || !loadable[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Entry{
			Name:    e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Current: current != "" && current.Name() == e.Name(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ModTime.Equal(out[j].ModTime) {
			return out[i].Name < out[j].Name
		}
		return out[i].ModTime.Before(out[j].ModTime)
	})
	return out, nil
}
