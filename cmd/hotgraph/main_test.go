package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotgraph/internal/store/sqlite"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, schemaPath, logJSON = "", "", false
	var out bytes.Buffer
	root := rootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestBuildPublishAndQuery(t *testing.T) {
	sqlite.Register()
	t.Chdir(t.TempDir())

	_, err := run(t, "init")
	require.Error(t, err, "--name is required")

	_, err = run(t, "init", "--name", "Harbour Town")
	require.NoError(t, err)
	_, err = run(t, "init", "--name", "Harbour Town")
	require.Error(t, err, "init refuses to overwrite")

	require.NoError(t, os.WriteFile(filepath.Join("lore", "mara.md"),
		[]byte("---\ntitle: Mara Vell\ntype: npc\nrole: Harbourmaster\nfaction: Harbour Guild\n---\nKeeps the docks.\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join("lore", "westport.md"),
		[]byte("---\ntitle: Westport\ntype: settlement\ntags: [coastal]\n---\nA harbour town.\n"), 0o600))

	_, err = run(t, "query", "info")
	require.Error(t, err, "nothing is published yet")

	out, err := run(t, "build", "--name", "v1.db", "--publish")
	require.NoError(t, err)
	assert.Contains(t, out, "Snapshot v1.db built.")
	assert.Contains(t, out, "Published:     yes")

	out, err = run(t, "query", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "v1.db")
	assert.Contains(t, out, "Project:  Harbour Town")

	out, err = run(t, "query", "entity", "Mara", "Vell")
	require.NoError(t, err)
	assert.Contains(t, out, "role: Harbourmaster")

	out, err = run(t, "query", "list", "--type", "settlement")
	require.NoError(t, err)
	assert.Contains(t, out, "Westport (settlement) [setting]")

	out, err = run(t, "query", "sql", "SELECT name FROM entities WHERE name = ?", "--param", "1=Westport")
	require.NoError(t, err)
	assert.Contains(t, out, `"Westport"`)

	_, err = run(t, "build", "--name", "v2.db")
	require.NoError(t, err)
	out, err = run(t, "publish", "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "* v1.db")
	assert.Contains(t, out, "  v2.db")

	_, err = run(t, "publish", "missing.db")
	require.Error(t, err)
	_, err = run(t, "publish", "v2.db")
	require.NoError(t, err)
	out, err = run(t, "query", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "v2.db")

	out, err = run(t, "validate")
	require.Error(t, err, "the guild is linked but never written")
	assert.Contains(t, out, "dangling_placeholder")
}

func TestParseParamPairs(t *testing.T) {
	params, err := parseParamPairs([]string{"name = Westport", "", "1=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Westport", "1": "x=y"}, params)

	_, err = parseParamPairs([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseParamPairs([]string{"=x"})
	assert.Error(t, err)
}
