package sqlite

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotgraph/internal/dataset"
)

func TestReadOnlyDSN(t *testing.T) {
	dsn := readOnlyDSN("/srv/snapshots/lore 1.db")
	require.True(t, strings.HasPrefix(dsn, "file://"))

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "/srv/snapshots/lore 1.db", u.Path)
	q := u.Query()
	assert.Equal(t, "ro", q.Get("mode"))
	assert.Equal(t, "1", q.Get("immutable"))
	assert.Equal(t, []string{"query_only(1)"}, q["_pragma"])
}

func TestWritableDSN(t *testing.T) {
	u, err := url.Parse(writableDSN("/tmp/build.db"))
	require.NoError(t, err)
	assert.Empty(t, u.Query().Get("mode"))
	assert.Contains(t, u.Query()["_pragma"], "foreign_keys(1)")
}

func TestDSNResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	want := filepath.ToSlash(filepath.Join(wd, "snapshots", "v1.db"))

	for name, dsn := range map[string]string{
		"read-only": readOnlyDSN("snapshots/v1.db"),
		"writable":  writableDSN("./snapshots/v1.db"),
	} {
		t.Run(name, func(t *testing.T) {
			u, err := url.Parse(dsn)
			require.NoError(t, err)
			assert.Empty(t, u.Host, "no path segment may become the URI authority")
			assert.Equal(t, want, u.Path)
		})
	}
}

func TestCreateAndOpenRelativePath(t *testing.T) {
	ctx := context.Background()
	t.Chdir(t.TempDir())
	require.NoError(t, os.Mkdir("snapshots", 0o755))

	buildTestSnapshot(t, filepath.Join("snapshots", "v1.db"))
	for _, mode := range []dataset.Mode{dataset.ModeMapped, dataset.ModeMaterialized} {
		snap, err := Open(ctx, filepath.Join("snapshots", "v1.db"), mode)
		require.NoError(t, err, mode.String())
		assert.Equal(t, "test", snap.info.Project)
		require.NoError(t, snap.Close(ctx))
	}
}
