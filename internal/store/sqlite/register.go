package sqlite

import (
	"context"
	"sync"

	"hotgraph/internal/dataset"
	"hotgraph/internal/store"
)

// Extensions are the snapshot file extensions served by this package.
var Extensions = []string{".db", ".sqlite", ".sqlite3"}

var registerOnce sync.Once

// Register installs the SQLite loader into the dataset registry. Only the first
// call has an effect.
func Register() {
	registerOnce.Do(func() {
		for _, ext := range Extensions {
			dataset.Register(ext, dataset.LoaderFunc(load))
		}
	})
}

func load(ctx context.Context, path string, mode dataset.Mode) (store.Graph, error) {
	snap, err := Open(ctx, path, mode)
	if err != nil {
		return nil, err
	}
	return snap, nil
}
