package dataset

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"

	"hotgraph/internal/store"
)

// Mode selects how a snapshot is opened.
type Mode int

const (
	// ModeMapped opens the file in place. It opens fast and the file must stay
	// on disk while the graph is in use.
	ModeMapped Mode = iota
	// ModeMaterialized copies the snapshot into memory. Slower to open, after
	// which the file is no longer needed.
	ModeMaterialized
)

// ModeFor maps the in_memory configuration flag to a Mode.
func ModeFor(inMemory bool) Mode {
	if inMemory {
		return ModeMaterialized
	}
	return ModeMapped
}

func (m Mode) String() string {
	switch m {
	case ModeMapped:
		return "mapped"
	case ModeMaterialized:
		return "materialized"
	default:
		return "unknown"
	}
}

// Loader opens the snapshot at path. It returns either a fully usable graph or an
// error, never both, and each call returns an independent graph.
type Loader interface {
	Load(ctx context.Context, path string, mode Mode) (store.Graph, error)
}

type LoaderFunc func(ctx context.Context, path string, mode Mode) (store.Graph, error)

func (f LoaderFunc) Load(ctx context.Context, path string, mode Mode) (store.Graph, error) {
	return f(ctx, path, mode)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Loader)
)

// Register associates a file extension such as ".db" with a loader. Extensions
// are case-insensitive; registering an extension again replaces its loader.
func Register(ext string, loader Loader) {
	ext = normalizeExt(ext)
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[ext] = loader
}

// Registered lists the extensions that have a loader.
func Registered() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load opens path with the loader registered for its extension. All failures are
// marked ErrLoad.
func Load(ctx context.Context, path string, mode Mode) (store.Graph, error) {
	ext := normalizeExt(filepath.Ext(path))
	registryMu.RLock()
	loader, ok := registry[ext]
	registryMu.RUnlock()
	if !ok {
		return nil, LoadError(path, errors.Newf("no loader registered for extension %q", ext))
	}

	graph, err := loader.Load(ctx, path, mode)
	if err != nil {
		return nil, LoadError(path, err)
	}
	if graph == nil {
		return nil, LoadError(path, errors.New("loader returned no graph"))
	}
	return graph, nil
}

// Default resolves loaders through the registry.
var Default Loader = LoaderFunc(Load)

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
