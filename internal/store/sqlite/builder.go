package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hotgraph/internal/store"
)

const (
	metaFormatVersion = "format_version"
	metaProject       = "project"
	metaBuiltAt       = "built_at"
	metaEntities      = "entities"
	metaEdges         = "edges"
	metaSchema        = "schema"
)

var relTypePattern = regexp.MustCompile(`^[A-Z0-9_]+$`)

var _ store.Writer = (*Builder)(nil)

// Builder writes a new snapshot file. Finish seals it; until then the file is not
// a valid snapshot and Open rejects it.
type Builder struct {
	db   *sql.DB
	path string
}

// BuildMeta is recorded in the snapshot by Finish.
type BuildMeta struct {
	Project string
	Schema  []byte
	BuiltAt time.Time
}

// Create starts a snapshot at path, which must not exist yet.
func Create(ctx context.Context, path string) (*Builder, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, fmt.Errorf("creating snapshot: %s already exists", path)
	}

	db, err := sql.Open(driverName, writableDSN(path))
	if err != nil {
		return nil, fmt.Errorf("creating snapshot: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging snapshot database: %w", err)
	}
	if err := applySchema(ctx, db); err != nil {
		db.Close()
		os.Remove(path)
		return nil, err
	}
	return &Builder{db: db, path: path}, nil
}

func (b *Builder) Path() string { return b.path }

func (b *Builder) UpsertEntity(ctx context.Context, e store.EntityInput) error {
	propsJSON, err := json.Marshal(e.Properties)
	if err != nil {
		return fmt.Errorf("marshaling properties: %w", err)
	}
	if e.Tags == nil {
		e.Tags = []string{}
	}
	tagsJSON, err := json.Marshal(e.Tags)
	if err != nil {
		return fmt.Errorf("marshaling tags: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
	INSERT INTO entities (name, name_normalized, entity_type, layer, source_file, source_hash, tags, properties, body, is_placeholder)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0)
	ON CONFLICT (name_normalized, layer) DO UPDATE SET
		name = excluded.name,
		entity_type = excluded.entity_type,
		source_file = excluded.source_file,
		source_hash = excluded.source_hash,
		tags = excluded.tags,
		properties = excluded.properties,
		body = excluded.body,
		is_placeholder = 0
	`,
		e.Name,
		strings.ToLower(e.Name),
		e.EntityType,
		e.Layer,
		e.SourceFile,
		e.SourceHash,
		string(tagsJSON),
		string(propsJSON),
		e.Body,
	)
	if err != nil {
		return fmt.Errorf("upserting entity %s: %w", e.Name, err)
	}
	return nil
}

// UpsertRelationship links two entities. A missing target is created as a
// placeholder so the edge can be stored; validation reports placeholders that are
// never filled in.
func (b *Builder) UpsertRelationship(ctx context.Context, fromName, fromLayer, toName, toLayer, relType string) error {
	if !relTypePattern.MatchString(relType) {
		return fmt.Errorf("invalid relationship type: %q", relType)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var srcID int64
	err = tx.QueryRowContext(ctx,
		"SELECT id FROM entities WHERE name_normalized = ? AND layer = ?",
		strings.ToLower(fromName), fromLayer,
	).Scan(&srcID)
	if err != nil {
		return fmt.Errorf("finding source entity %s: %w", fromName, err)
	}

	var dstID int64
	err = tx.QueryRowContext(ctx, `
	INSERT INTO entities (name, name_normalized, entity_type, layer, is_placeholder)
	VALUES (?, ?, '', ?, 1)
	ON CONFLICT (name_normalized, layer) DO UPDATE SET name = entities.name
	RETURNING id`,
		toName, strings.ToLower(toName), toLayer,
	).Scan(&dstID)
	if err != nil {
		return fmt.Errorf("upserting target entity %s: %w", toName, err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO edges (src_id, dst_id, rel_type) VALUES (?, ?, ?)",
		srcID, dstID, relType,
	); err != nil {
		return fmt.Errorf("inserting edge: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing relationship: %w", err)
	}
	return nil
}

// FindEntityLayer returns the first of layers containing name, or "" if none do.
func (b *Builder) FindEntityLayer(ctx context.Context, name string, layers []string) (string, error) {
	normalized := strings.ToLower(name)
	for _, layer := range layers {
		var found string
		err := b.db.QueryRowContext(ctx,
			"SELECT layer FROM entities WHERE name_normalized = ? AND layer = ? LIMIT 1",
			normalized, layer,
		).Scan(&found)
		switch {
		case err == nil:
			return found, nil
		case err == sql.ErrNoRows:
			continue
		default:
			return "", fmt.Errorf("finding layer for %s: %w", name, err)
		}
	}
	return "", nil
}

// Finish records metadata, optimizes the full-text index and closes the file.
func (b *Builder) Finish(ctx context.Context, meta BuildMeta) error {
	var entities, edges int
	if err := b.db.QueryRowContext(ctx, "SELECT count(*) FROM entities WHERE is_placeholder = 0").Scan(&entities); err != nil {
		return fmt.Errorf("counting entities: %w", err)
	}
	if err := b.db.QueryRowContext(ctx, "SELECT count(*) FROM edges").Scan(&edges); err != nil {
		return fmt.Errorf("counting edges: %w", err)
	}
	if meta.BuiltAt.IsZero() {
		meta.BuiltAt = time.Now()
	}

	values := map[string]string{
		metaFormatVersion: strconv.Itoa(FormatVersion),
		metaProject:       meta.Project,
		metaBuiltAt:       meta.BuiltAt.UTC().Format(time.RFC3339),
		metaEntities:      strconv.Itoa(entities),
		metaEdges:         strconv.Itoa(edges),
		metaSchema:        string(meta.Schema),
	}
	for key, value := range values {
		if _, err := b.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO snapshot_meta (key, value) VALUES (?, ?)", key, value,
		); err != nil {
			return fmt.Errorf("writing snapshot metadata %s: %w", key, err)
		}
	}

	finalize := []string{
		"INSERT INTO entities_fts(entities_fts) VALUES ('optimize')",
		"ANALYZE",
		"VACUUM",
	}
	for _, stmt := range finalize {
		if _, err := b.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("finalizing snapshot (%s): %w", stmt, err)
		}
	}

	if err := b.db.Close(); err != nil {
		return fmt.Errorf("closing snapshot: %w", err)
	}
	return nil
}

// Abort closes the builder and removes the partial file.
func (b *Builder) Abort() error {
	b.db.Close()
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing partial snapshot: %w", err)
	}
	return nil
}
