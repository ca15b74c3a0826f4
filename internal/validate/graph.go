package validate

import (
	"context"

	"hotgraph/internal/store"
)

// Source is the part of store.Graph the validator reads. A snapshot or a live
// handle both satisfy it.
type Source interface {
	ListEntitiesWithProperties(ctx context.Context) ([]store.Entity, error)
	ListDanglingPlaceholders(ctx context.Context) ([]store.EntitySummary, error)
	ListOrphanedEntities(ctx context.Context) ([]store.EntitySummary, error)
	ListDuplicateNames(ctx context.Context) ([]store.EntitySummary, error)
}

var _ Source = (store.Graph)(nil)
