package sqlite

import (
	"context"
	"fmt"

	"hotgraph/internal/store"
)

func (s *Snapshot) ListDanglingPlaceholders(ctx context.Context) ([]store.EntitySummary, error) {
	summaries, err := s.querySummaries(ctx, `
	SELECT name, entity_type, layer, tags FROM entities
	WHERE is_placeholder = 1
	ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing dangling placeholders: %w", err)
	}
	return summaries, nil
}

func (s *Snapshot) ListOrphanedEntities(ctx context.Context) ([]store.EntitySummary, error) {
	summaries, err := s.querySummaries(ctx, `
	SELECT e.name, e.entity_type, e.layer, e.tags FROM entities e
	WHERE e.is_placeholder = 0
	  AND NOT EXISTS (SELECT 1 FROM edges WHERE src_id = e.id OR dst_id = e.id)
	ORDER BY e.name`)
	if err != nil {
		return nil, fmt.Errorf("listing orphaned entities: %w", err)
	}
	return summaries, nil
}

// ListDuplicateNames returns entities sharing a name with another entity in a
// different layer. Lookups by bare name are ambiguous for these.
func (s *Snapshot) ListDuplicateNames(ctx context.Context) ([]store.EntitySummary, error) {
	summaries, err := s.querySummaries(ctx, `
	SELECT e.name, e.entity_type, e.layer, e.tags FROM entities e
	WHERE e.is_placeholder = 0
	  AND e.name_normalized IN (
		SELECT name_normalized FROM entities
		WHERE is_placeholder = 0
		GROUP BY name_normalized
		HAVING count(*) > 1
	  )
	ORDER BY e.name_normalized, e.layer`)
	if err != nil {
		return nil, fmt.Errorf("listing duplicate names: %w", err)
	}
	return summaries, nil
}
