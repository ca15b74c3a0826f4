package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"hotgraph/internal/dataset"
	"hotgraph/internal/store"
)

var _ store.Graph = (*Snapshot)(nil)

// Snapshot is a read-only view of one snapshot file.
type Snapshot struct {
	db   *sql.DB
	path string
	mode dataset.Mode
	info store.SnapshotInfo

	closeOnce sync.Once
	closeErr  error
}

// Open opens the snapshot at path. In ModeMapped the file is queried in place; in
// ModeMaterialized its contents are copied into a private in-memory database.
func Open(ctx context.Context, path string, mode dataset.Mode) (*Snapshot, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("opening snapshot: %s is not a regular file", path)
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var db *sql.DB
	switch mode {
	case dataset.ModeMaterialized:
		db, err = openMaterialized(ctx, path)
	default:
		db, err = openMapped(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	info, err := readMeta(ctx, db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Snapshot{db: db, path: path, mode: mode, info: *info}, nil
}

func openMapped(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, readOnlyDSN(path))
	if err != nil {
		return nil, fmt.Errorf("opening snapshot database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging snapshot database: %w", err)
	}
	return db, nil
}

// openMaterialized copies the snapshot into ":memory:". Every pooled connection to
// ":memory:" would be a separate empty database, so the pool is pinned to one
// connection that is never recycled.
func openMaterialized(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("opening in-memory database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := copySnapshot(ctx, db, path); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func copySnapshot(ctx context.Context, db *sql.DB, path string) error {
	if err := applySchema(ctx, db); err != nil {
		return err
	}

	if _, err := db.ExecContext(ctx, "ATTACH DATABASE ? AS src", readOnlyDSN(path)); err != nil {
		return fmt.Errorf("attaching snapshot: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning copy transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range copiedTables {
		query := fmt.Sprintf("INSERT INTO main.%s (%s) SELECT %s FROM src.%s",
			table.name, table.columns, table.columns, table.name)
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("copying %s: %w", table.name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing copy transaction: %w", err)
	}

	if _, err := db.ExecContext(ctx, "DETACH DATABASE src"); err != nil {
		return fmt.Errorf("detaching snapshot: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA query_only = 1"); err != nil {
		return fmt.Errorf("setting query_only: %w", err)
	}
	return nil
}

func readMeta(ctx context.Context, db *sql.DB) (*store.SnapshotInfo, error) {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM snapshot_meta")
	if err != nil {
		return nil, fmt.Errorf("reading snapshot metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning snapshot metadata: %w", err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating snapshot metadata: %w", err)
	}

	version, err := strconv.Atoi(meta[metaFormatVersion])
	if err != nil {
		return nil, fmt.Errorf("snapshot has no valid format version")
	}
	if version != FormatVersion {
		return nil, fmt.Errorf("unsupported snapshot format version %d (want %d)", version, FormatVersion)
	}

	info := &store.SnapshotInfo{
		FormatVersion: version,
		Project:       meta[metaProject],
		Schema:        []byte(meta[metaSchema]),
	}
	if builtAt, err := time.Parse(time.RFC3339, meta[metaBuiltAt]); err == nil {
		info.BuiltAt = builtAt
	}
	info.Entities, _ = strconv.Atoi(meta[metaEntities])
	info.Edges, _ = strconv.Atoi(meta[metaEdges])
	return info, nil
}

// Path returns the file the snapshot was opened from.
func (s *Snapshot) Path() string { return s.path }

// Mode reports how the snapshot was opened.
func (s *Snapshot) Mode() dataset.Mode { return s.mode }

func (s *Snapshot) Info(ctx context.Context) (*store.SnapshotInfo, error) {
	info := s.info
	info.Schema = append([]byte(nil), s.info.Schema...)
	return &info, nil
}

// Close releases the database. Queries already running finish first; later calls
// fail with sql.ErrConnDone-style errors. Safe to call more than once.
func (s *Snapshot) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}
