package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"hotgraph/internal/store"
)

const entityColumns = "name, entity_type, layer, source_file, source_hash, tags, properties, body"

func (s *Snapshot) GetEntity(ctx context.Context, name, entityType string) (*store.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+entityColumns+`
	FROM entities
	WHERE name_normalized = ?
	  AND (? = '' OR entity_type = ?)
	  AND is_placeholder = 0
	`, strings.ToLower(name), entityType, entityType)
	if err != nil {
		return nil, fmt.Errorf("getting entity: %w", err)
	}
	entities, err := scanEntities(rows)
	if err != nil {
		return nil, err
	}

	switch len(entities) {
	case 0:
		return nil, nil
	case 1:
		return &entities[0], nil
	default:
		layers := make([]string, 0, len(entities))
		for _, e := range entities {
			layers = append(layers, e.EntityType+"@"+e.Layer)
		}
		return nil, fmt.Errorf("entity %q is ambiguous (%s); pass a type", name, strings.Join(layers, ", "))
	}
}

func (s *Snapshot) ListEntities(ctx context.Context, entityType, layer, tag string) ([]store.EntitySummary, error) {
	summaries, err := s.querySummaries(ctx, `
	SELECT name, entity_type, layer, tags
	FROM entities
	WHERE (? = '' OR entity_type = ?)
	  AND (? = '' OR layer = ?)
	  AND is_placeholder = 0
	ORDER BY name
	`, entityType, entityType, layer, layer)
	if err != nil {
		return nil, fmt.Errorf("listing entities: %w", err)
	}
	if tag == "" {
		return summaries, nil
	}

	filtered := make([]store.EntitySummary, 0, len(summaries))
	for _, summary := range summaries {
		if containsTag(summary.Tags, tag) {
			filtered = append(filtered, summary)
		}
	}
	return filtered, nil
}

func (s *Snapshot) ListEntitiesWithProperties(ctx context.Context) ([]store.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT `+entityColumns+`
	FROM entities
	WHERE is_placeholder = 0
	ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing entities with properties: %w", err)
	}
	return scanEntities(rows)
}

// scanEntities reads rows selected with entityColumns and closes them.
func scanEntities(rows *sql.Rows) ([]store.Entity, error) {
	defer rows.Close()

	entities := []store.Entity{}
	for rows.Next() {
		var e store.Entity
		var tags, props string
		if err := rows.Scan(&e.Name, &e.EntityType, &e.Layer, &e.SourceFile, &e.SourceHash, &tags, &props, &e.Body); err != nil {
			return nil, fmt.Errorf("scanning entity: %w", err)
		}
		var err error
		if e.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		if e.Properties, err = decodeProperties(props); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entities: %w", err)
	}
	return entities, nil
}

func (s *Snapshot) querySummaries(ctx context.Context, query string, args ...any) ([]store.EntitySummary, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []store.EntitySummary{}
	for rows.Next() {
		var summary store.EntitySummary
		var tags string
		if err := rows.Scan(&summary.Name, &summary.EntityType, &summary.Layer, &tags); err != nil {
			return nil, fmt.Errorf("scanning entity summary: %w", err)
		}
		if summary.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating entity summaries: %w", err)
	}
	return summaries, nil
}

func decodeTags(raw string) ([]string, error) {
	tags := []string{}
	if raw == "" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil, fmt.Errorf("unmarshaling tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func decodeProperties(raw string) (map[string]any, error) {
	props := map[string]any{}
	if raw == "" {
		return props, nil
	}
	if err := json.Unmarshal([]byte(raw), &props); err != nil {
		return nil, fmt.Errorf("unmarshaling properties: %w", err)
	}
	if props == nil {
		props = map[string]any{}
	}
	return props, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}
