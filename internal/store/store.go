// Package store defines the read-only capability surface of a loaded graph
// snapshot and the write surface used while building one.
package store

import (
	"context"
	"errors"
)

// Graph is one opened snapshot. Implementations are immutable once returned and
// safe for concurrent use. Close releases the underlying resources; it may be
// called more than once.
type Graph interface {
	GetEntity(ctx context.Context, name, entityType string) (*Entity, error)
	GetRelationships(ctx context.Context, name, relType, direction string, depth int) ([]Relationship, error)
	ListEntities(ctx context.Context, entityType, layer, tag string) ([]EntitySummary, error)
	ListEntitiesWithProperties(ctx context.Context) ([]Entity, error)
	Search(ctx context.Context, query, layer, entityType string) ([]SearchResult, error)
	RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error)

	ListDanglingPlaceholders(ctx context.Context) ([]EntitySummary, error)
	ListOrphanedEntities(ctx context.Context) ([]EntitySummary, error)
	ListDuplicateNames(ctx context.Context) ([]EntitySummary, error)

	Info(ctx context.Context) (*SnapshotInfo, error)

	Close(ctx context.Context) error
}

// Writer populates a new snapshot.
type Writer interface {
	UpsertEntity(ctx context.Context, e EntityInput) error
	UpsertRelationship(ctx context.Context, fromName, fromLayer, toName, toLayer, relType string) error
	FindEntityLayer(ctx context.Context, name string, layers []string) (string, error)
}

// ErrNotFound is returned when a lookup names an entity that does not exist.
var ErrNotFound = errors.New("not found")
