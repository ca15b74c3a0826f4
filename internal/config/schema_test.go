package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSchema = `version: 1
entity_types:
  - name: npc
    properties:
      - { name: role, type: string }
      - { name: status, type: enum, values: [alive, dead], required: true }
    field_mappings:
      - { field: faction, relationship: MEMBER_OF }
  - name: faction
relationship_types:
  - name: MEMBER_OF
    inverse: HAS_MEMBER
  - name: RELATED_TO
    symmetric: true
`

func TestLoadSchema(t *testing.T) {
	t.Run("valid schema loads", func(t *testing.T) {
		schema, err := LoadSchema(writeTempSchema(t, validSchema))
		require.NoError(t, err)
		assert.True(t, schema.IsValidEntityType("npc"))
		assert.Equal(t, validSchema, string(schema.Raw()))
	})

	failures := map[string]string{
		"missing entity types":         "version: 1\nentity_types: []\nrelationship_types: []\n",
		"duplicate entity type names":  "version: 1\nentity_types:\n  - name: npc\n  - name: NPC\nrelationship_types:\n  - name: RELATED_TO\n",
		"enum property without values": "version: 1\nentity_types:\n  - name: npc\n    properties:\n      - { name: status, type: enum }\nrelationship_types:\n  - name: RELATED_TO\n",
		"duplicate property":           "version: 1\nentity_types:\n  - name: npc\n    properties:\n      - { name: role }\n      - { name: Role }\n",
		"unknown relationship":         "version: 1\nentity_types:\n  - name: npc\n    field_mappings:\n      - { field: faction, relationship: MEMBER_OF }\nrelationship_types:\n  - name: RELATED_TO\n",
		"unsupported version":          "version: 3\nentity_types:\n  - name: npc\n",
	}
	for name, contents := range failures {
		t.Run(name, func(t *testing.T) {
			_, err := LoadSchema(writeTempSchema(t, contents))
			assert.Error(t, err)
		})
	}
}

func TestSchemaHelpers(t *testing.T) {
	schema, err := ParseSchema([]byte(validSchema))
	require.NoError(t, err)

	npc, ok := schema.EntityTypeByName("NPC")
	require.True(t, ok)
	assert.True(t, npc.HasProperty("role"))
	assert.False(t, npc.HasProperty("faction"))
	assert.True(t, npc.HasFieldMapping("faction"))

	rel, ok := schema.RelationshipTypeByName("member_of")
	require.True(t, ok)
	assert.Equal(t, "HAS_MEMBER", rel.Inverse)

	assert.False(t, schema.IsValidEntityType("dragon"))

	var nilSchema *Schema
	assert.False(t, nilSchema.IsValidEntityType("npc"))
	assert.Nil(t, nilSchema.Raw())
}

func writeTempSchema(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}
