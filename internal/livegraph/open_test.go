package livegraph

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotgraph/internal/config"
	"hotgraph/internal/dataset"
)

func TestOpenFailsFast(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		mark   error
		loaded int
	}{
		{
			name: "pointer missing",
			setup: func(t *testing.T) string {
				return datasetDir(t, "", "v1.dat")
			},
			mark: dataset.ErrPointerMissing,
		},
		{
			name: "pointer names missing file",
			setup: func(t *testing.T) string {
				return datasetDir(t, "missing.dat", "v1.dat")
			},
			mark: dataset.ErrTargetMissing,
		},
		{
			name: "pointer names a directory",
			setup: func(t *testing.T) string {
				dir := datasetDir(t, "nested", "v1.dat")
				require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o700))
				return dir
			},
			mark: dataset.ErrTargetMissing,
		},
		{
			name: "empty pointer",
			setup: func(t *testing.T) string {
				dir := datasetDir(t, "", "v1.dat")
				require.NoError(t, os.WriteFile(filepath.Join(dir, dataset.PointerFile), []byte("\n"), 0o600))
				return dir
			},
			mark: dataset.ErrTargetMissing,
		},
		{
			name: "load fails",
			setup: func(t *testing.T) string {
				return datasetDir(t, "bad.dat", "bad.dat")
			},
			mark:   dataset.ErrLoad,
			loaded: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := newFakeLoader()
			loader.setFail("bad.dat", errCorrupt)

			h, w, err := Open(context.Background(), Options{Path: tt.setup(t), Loader: loader})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.mark), "got %v", err)
			assert.Nil(t, h)
			assert.Nil(t, w)
			assert.Equal(t, tt.loaded, loader.Calls())
		})
	}
}

func TestOpenMissingPath(t *testing.T) {
	_, _, err := Open(context.Background(), Options{
		Path:   filepath.Join(t.TempDir(), "nope"),
		Loader: newFakeLoader(),
	})
	assert.Error(t, err)
}

func TestOpenSingleFileIsStatic(t *testing.T) {
	dir := datasetDir(t, "", "lore.dat")
	path := filepath.Join(dir, "lore.dat")
	loader := newFakeLoader()

	h, w, err := Open(context.Background(), Options{Path: path, Loader: loader})
	require.NoError(t, err)
	defer h.Close(context.Background())

	assert.Nil(t, w)
	assert.Equal(t, identity(t, dir, "lore.dat"), h.Current())
	assert.Equal(t, "lore.dat", versionOf(t, h))
}

func TestOpenRelativeDirectory(t *testing.T) {
	dir := datasetDir(t, "v1.dat", "v1.dat")
	t.Chdir(filepath.Dir(dir))
	loader := newFakeLoader()

	h, w, err := Open(context.Background(), Options{Path: filepath.Base(dir), Loader: loader})
	require.NoError(t, err)
	defer h.Close(context.Background())

	require.NotNil(t, w)
	assert.True(t, filepath.IsAbs(h.Current().Path()))
	assert.Equal(t, identity(t, dir, "v1.dat"), h.Current())
}

func TestOptionsFromConfig(t *testing.T) {
	watch := false
	opts := OptionsFromConfig(config.DatasetConfig{
		Path:         "/srv/snapshots",
		InMemory:     true,
		PollInterval: 2 * time.Minute,
		DrainTimeout: 5 * time.Second,
		Watch:        &watch,
	})
	assert.Equal(t, "/srv/snapshots", opts.Path)
	assert.Equal(t, dataset.ModeMaterialized, opts.Mode)
	assert.Equal(t, 2*time.Minute, opts.Interval)
	assert.Equal(t, 5*time.Second, opts.DrainTimeout)
	assert.False(t, opts.Watch)

	opts = Options{}
	opts.setDefaults()
	assert.Equal(t, config.DefaultPollInterval, opts.Interval)
	assert.Equal(t, config.DefaultDrainTimeout, opts.DrainTimeout)
	assert.NotNil(t, opts.Loader)
	assert.NotNil(t, opts.Logger)
}
