package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// FormatVersion is written into every snapshot; Open rejects other versions.
const FormatVersion = 1

const snapshotDDL = `
CREATE TABLE IF NOT EXISTS entities (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	name            TEXT NOT NULL,
	name_normalized TEXT NOT NULL,
	entity_type     TEXT NOT NULL,
	layer           TEXT NOT NULL,
	source_file     TEXT DEFAULT '',
	source_hash     TEXT DEFAULT '',
	tags            TEXT DEFAULT '[]',
	properties      TEXT DEFAULT '{}',
	body            TEXT DEFAULT '',
	is_placeholder  INTEGER DEFAULT 0,
	CONSTRAINT uq_entity_name_layer UNIQUE (name_normalized, layer)
);

CREATE TABLE IF NOT EXISTS edges (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	src_id   INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	dst_id   INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
	rel_type TEXT NOT NULL,
	CONSTRAINT uq_edge UNIQUE (src_id, dst_id, rel_type)
);

CREATE TABLE IF NOT EXISTS snapshot_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entities_layer ON entities (layer);
CREATE INDEX IF NOT EXISTS idx_entities_type_layer ON entities (entity_type, layer);
CREATE INDEX IF NOT EXISTS idx_entities_name_norm ON entities (name_normalized);
CREATE INDEX IF NOT EXISTS idx_entities_placeholder ON entities (is_placeholder) WHERE is_placeholder = 1;
CREATE INDEX IF NOT EXISTS idx_edges_src_type ON edges (src_id, rel_type);
CREATE INDEX IF NOT EXISTS idx_edges_dst_type ON edges (dst_id, rel_type);

CREATE VIRTUAL TABLE IF NOT EXISTS entities_fts USING fts5(
	name,
	tags,
	body,
	content=entities,
	content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS entities_ai AFTER INSERT ON entities BEGIN
	INSERT INTO entities_fts(rowid, name, tags, body)
	VALUES (new.id, new.name, new.tags, new.body);
END;

CREATE TRIGGER IF NOT EXISTS entities_au AFTER UPDATE ON entities BEGIN
	INSERT INTO entities_fts(entities_fts, rowid, name, tags, body)
	VALUES ('delete', old.id, old.name, old.tags, old.body);
	INSERT INTO entities_fts(rowid, name, tags, body)
	VALUES (new.id, new.name, new.tags, new.body);
END;
`

// copiedTables lists the base tables in dependency order with the columns copied
// when a snapshot is materialized. The FTS index is rebuilt by the insert trigger.
var copiedTables = []struct {
	name    string
	columns string
}{
	{"entities", "id, name, name_normalized, entity_type, layer, source_file, source_hash, tags, properties, body, is_placeholder"},
	{"edges", "id, src_id, dst_id, rel_type"},
	{"snapshot_meta", "key, value"},
}

func applySchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning schema transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(snapshotDDL) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}
	return nil
}

// splitStatements splits DDL on lines ending in ';'. Trigger bodies are kept whole
// because their inner statements are indented and END; closes them.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	inTrigger := false

	for _, line := range strings.Split(ddl, "\n") {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		if strings.HasPrefix(stripped, "CREATE TRIGGER") {
			inTrigger = true
		}
		current.WriteString(line)
		current.WriteString("\n")

		if !strings.HasSuffix(stripped, ";") {
			continue
		}
		if inTrigger && stripped != "END;" {
			continue
		}
		inTrigger = false
		statements = append(statements, current.String())
		current.Reset()
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}
	return statements
}
