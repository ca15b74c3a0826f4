package snapshot

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
	"hotgraph/internal/store"
	"hotgraph/internal/store/sqlite"
)

const testSchemaYAML = `version: 1
entity_types:
  - name: npc
    properties:
      - { name: role, type: string }
      - { name: status, type: enum, values: [alive, dead], default: alive }
    field_mappings:
      - { field: faction, relationship: MEMBER_OF }
  - name: faction
  - name: event
relationship_types:
  - name: MEMBER_OF
  - name: RELATED_TO
`

type edge struct {
	fromName, fromLayer, toName, toLayer, relType string
}

type mockWriter struct {
	entities      []store.EntityInput
	relationships []edge
	layers        map[string]string
	failUpsert    string
}

func (m *mockWriter) UpsertEntity(ctx context.Context, e store.EntityInput) error {
	if e.Name == m.failUpsert {
		return errors.New("forced error")
	}
	m.entities = append(m.entities, e)
	return nil
}

func (m *mockWriter) UpsertRelationship(ctx context.Context, fromName, fromLayer, toName, toLayer, relType string) error {
	m.relationships = append(m.relationships, edge{fromName, fromLayer, toName, toLayer, relType})
	return nil
}

func (m *mockWriter) FindEntityLayer(ctx context.Context, name string, layers []string) (string, error) {
	return m.layers[name], nil
}

// writeSources lays out a small project: a setting layer and a campaign layer
// depending on it.
func writeSources(t *testing.T) (*config.ProjectConfig, *config.Schema) {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"lore/guard.md":      "---\ntitle: Test NPC\ntype: npc\nrole: Guard Captain\nfaction: The Watch\nsecret: hidden\nrelated: [Mayor Teston]\n---\nGuards the harbour.\n",
		"lore/watch.md":      "---\ntitle: The Watch\ntype: faction\n---\nCity guard.\n",
		"lore/notes.md":      "Plain notes without frontmatter.\n",
		"lore/spell.md":      "---\ntitle: Fireball\ntype: spell\n---\n",
		"lore/broken.md":     "---\ntitle: [\n---\n",
		"lore/drafts/wip.md": "---\ntitle: Draft\ntype: npc\n---\n",
		"lore/readme.txt":    "ignored",
		"campaign/ambush.md": "---\ntitle: Ambush\ntype: event\nrelated: [Test NPC]\n---\n",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}

	schema, err := config.ParseSchema([]byte(testSchemaYAML))
	require.NoError(t, err)

	cfg := &config.ProjectConfig{
		Project: "Test Project",
		Version: 1,
		Dataset: config.DatasetConfig{Path: filepath.Join(root, "snapshots")},
		Layers: []config.Layer{
			{Name: "setting", Paths: []string{filepath.Join(root, "lore")}},
			{Name: "campaign", Paths: []string{filepath.Join(root, "campaign")}, DependsOn: []string{"setting"}},
		},
		Exclude: []string{filepath.Join(root, "lore", "drafts")},
	}
	return cfg, schema
}

func TestPopulate(t *testing.T) {
	cfg, schema := writeSources(t)
	w := &mockWriter{layers: map[string]string{"Test NPC": "setting"}}
	result := &Result{}

	require.NoError(t, populate(context.Background(), cfg, schema, w, result))

	assert.Equal(t, 3, result.Entities)
	assert.Equal(t, 2, result.FilesSkipped, "no frontmatter and unknown type are skipped")
	require.Len(t, result.Errors, 1, "invalid yaml is reported")
	assert.ErrorContains(t, result.Errors[0], "broken.md")

	var guard store.EntityInput
	for _, e := range w.entities {
		assert.NotEqual(t, "Draft", e.Name, "excluded paths are not walked")
		if e.Name == "Test NPC" {
			guard = e
		}
	}
	assert.Equal(t, "setting", guard.Layer)
	assert.Equal(t, map[string]any{"role": "Guard Captain", "status": "alive"}, guard.Properties)
	assert.Len(t, guard.SourceHash, 64)

	assert.Contains(t, w.relationships, edge{"Test NPC", "setting", "The Watch", "setting", "MEMBER_OF"})
	assert.Contains(t, w.relationships, edge{"Test NPC", "setting", "Mayor Teston", "setting", "RELATED_TO"})
	assert.Contains(t, w.relationships, edge{"Ambush", "campaign", "Test NPC", "setting", "RELATED_TO"},
		"dependent layers resolve targets through depends_on")
	assert.Equal(t, 3, result.Edges)
}

func TestPopulateContinuesOnError(t *testing.T) {
	cfg, schema := writeSources(t)
	w := &mockWriter{failUpsert: "Test NPC"}
	result := &Result{}

	require.NoError(t, populate(context.Background(), cfg, schema, w, result))
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, 2, result.Entities)
	for _, rel := range w.relationships {
		assert.NotEqual(t, "Test NPC", rel.fromName)
	}
}

func TestPopulateMissingLayerPath(t *testing.T) {
	cfg, schema := writeSources(t)
	cfg.Layers[0].Paths = []string{filepath.Join(t.TempDir(), "absent")}
	err := populate(context.Background(), cfg, schema, &mockWriter{}, &Result{})
	assert.ErrorContains(t, err, "layer setting")
}

func TestBuildAndPublish(t *testing.T) {
	sqlite.Register()
	ctx := context.Background()
	cfg, schema := writeSources(t)
	dir := cfg.Dataset.Path
	stamp := time.Date(2026, 10, 19, 10, 15, 0, 0, time.UTC)

	result, err := Build(ctx, cfg, schema, Options{
		Dir:     dir,
		Publish: true,
		Now:     func() time.Time { return stamp },
	})
	require.NoError(t, err)
	assert.Equal(t, "test-project-20261019T101500Z.db", result.Name)
	assert.False(t, result.Published, "builds with errors are not published")
	assert.FileExists(t, result.Path)
	assert.NoFileExists(t, filepath.Join(dir, "."+result.Name+".building"))

	_, err = dataset.Resolve(dir)
	assert.True(t, errors.Is(err, dataset.ErrPointerMissing), "%+v", err)

	_, err = Build(ctx, cfg, schema, Options{Dir: dir, Now: func() time.Time { return stamp }})
	assert.ErrorContains(t, err, "already exists")

	require.NoError(t, os.Remove(filepath.Join(filepath.Dir(dir), "lore", "broken.md")))
	clean, err := Build(ctx, cfg, schema, Options{Dir: dir, Name: "clean.db", Publish: true})
	require.NoError(t, err)
	assert.True(t, clean.Published)
	assert.Empty(t, clean.Errors)

	id, err := dataset.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, "clean.db", id.Name())

	graph, err := dataset.Load(ctx, id.Path(), dataset.ModeMapped)
	require.NoError(t, err)
	defer graph.Close(ctx)

	info, err := graph.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Test Project", info.Project)
	assert.Equal(t, 3, info.Entities)
	assert.Equal(t, testSchemaYAML, string(info.Schema))

	rels, err := graph.GetRelationships(ctx, "Ambush", "", "outgoing", 1)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "setting", rels[0].To.Layer)

	entries, err := List(dir)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	var current []string
	for _, e := range entries {
		if e.Current {
			current = append(current, e.Name)
		}
	}
	assert.Equal(t, []string{"clean.db"}, current)

	id, err = Publish(ctx, dir, result.Name, dataset.Default, dataset.ModeMapped)
	require.NoError(t, err)
	assert.Equal(t, result.Name, id.Name())
	resolved, err := dataset.Resolve(dir)
	require.NoError(t, err)
	assert.Equal(t, id, resolved)
}

func TestPublishRejectsUnloadableSnapshot(t *testing.T) {
	sqlite.Register()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.db"), []byte("junk"), 0o600))
	require.NoError(t, dataset.WritePointer(dir, "junk.db"))
	before, err := os.ReadFile(filepath.Join(dir, dataset.PointerFile))
	require.NoError(t, err)

	_, err = Publish(context.Background(), dir, "junk.db", dataset.Default, dataset.ModeMapped)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dataset.ErrLoad), "%+v", err)

	_, err = Publish(context.Background(), dir, "absent.db", dataset.Default, dataset.ModeMapped)
	assert.Error(t, err)

	after, err := os.ReadFile(filepath.Join(dir, dataset.PointerFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFileSafe(t *testing.T) {
	assert.Equal(t, "test-project", fileSafe("Test Project"))
	assert.Equal(t, "a-b_c-1", fileSafe(" a/b_c.1 "))
}
