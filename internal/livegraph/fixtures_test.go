package livegraph

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"hotgraph/internal/dataset"
	"hotgraph/internal/store"
	"hotgraph/internal/store/storetest"
)

// fakeLoader hands out storetest graphs named after the loaded file and counts
// calls. Files listed in fail or panics fail to load.
type fakeLoader struct {
	mu     sync.Mutex
	calls  []string
	modes  []dataset.Mode
	graphs map[string][]*storetest.Graph
	fail   map[string]error
	panics map[string]bool
}

func newFakeLoader() *fakeLoader {
	return &fakeLoader{
		graphs: make(map[string][]*storetest.Graph),
		fail:   make(map[string]error),
		panics: make(map[string]bool),
	}
}

func (l *fakeLoader) Load(ctx context.Context, path string, mode dataset.Mode) (store.Graph, error) {
	name := filepath.Base(path)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
	l.modes = append(l.modes, mode)
	if l.panics[name] {
		panic("corrupt index in " + name)
	}
	if err := l.fail[name]; err != nil {
		return nil, dataset.LoadError(path, err)
	}
	g := storetest.New(name, "Mara")
	l.graphs[name] = append(l.graphs[name], g)
	return g, nil
}

func (l *fakeLoader) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.calls)
}

// graph returns the most recent graph loaded from name.
func (l *fakeLoader) graph(t *testing.T, name string) *storetest.Graph {
	t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	graphs := l.graphs[name]
	require.NotEmpty(t, graphs, "no graph loaded from %s", name)
	return graphs[len(graphs)-1]
}

func (l *fakeLoader) setFail(name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.fail, name)
		return
	}
	l.fail[name] = err
}

// datasetDir creates a directory holding the named (empty) snapshot files with
// the pointer set to current.
func datasetDir(t *testing.T, current string, files ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, f), nil, 0o600))
	}
	if current != "" {
		require.NoError(t, dataset.WritePointer(dir, current))
	}
	return dir
}

func identity(t *testing.T, dir, name string) dataset.Identity {
	t.Helper()
	id, err := dataset.IdentityOf(filepath.Join(dir, name))
	require.NoError(t, err)
	return id
}

func versionOf(t *testing.T, h *Handle) string {
	t.Helper()
	entity, err := h.GetEntity(context.Background(), "Mara", "")
	require.NoError(t, err)
	require.NotNil(t, entity)
	return entity.Properties["version"].(string)
}

var errCorrupt = errors.New("corrupt snapshot")
