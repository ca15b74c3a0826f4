package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"hotgraph/internal/store"
)

const maxDepth = 5

func (s *Snapshot) GetRelationships(ctx context.Context, name, relType, direction string, depth int) ([]store.Relationship, error) {
	direction = strings.TrimSpace(direction)
	if direction == "" {
		direction = "both"
	}
	switch direction {
	case "outgoing", "incoming", "both":
	default:
		return nil, fmt.Errorf("invalid direction: %s", direction)
	}
	if depth < 1 || depth > maxDepth {
		return nil, fmt.Errorf("depth must be between 1 and %d", maxDepth)
	}
	if relType != "" && !relTypePattern.MatchString(relType) {
		return nil, fmt.Errorf("invalid relationship type: %s", relType)
	}

	var startID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM entities WHERE name_normalized = ? AND is_placeholder = 0 LIMIT 1",
		strings.ToLower(name),
	).Scan(&startID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("entity %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding start entity: %w", err)
	}

	visited := map[int64]bool{startID: true}
	frontier := []int64{startID}
	results := []store.Relationship{}

	for level := 1; level <= depth && len(frontier) > 0; level++ {
		found, next, err := s.expand(ctx, frontier, visited, relType, direction)
		if err != nil {
			return nil, err
		}
		for i := range found {
			found[i].Depth = level
		}
		results = append(results, found...)
		frontier = next
	}

	return results, nil
}

// expand returns the edges touching frontier that lead to unvisited entities.
// From is always the frontier side; Direction records which way the edge points.
func (s *Snapshot) expand(ctx context.Context, frontier []int64, visited map[int64]bool, relType, direction string) ([]store.Relationship, []int64, error) {
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(frontier)), ",")
	var where string
	var args []any
	switch direction {
	case "outgoing":
		where = "e.src_id IN (" + placeholders + ")"
		args = appendIDs(args, frontier)
	case "incoming":
		where = "e.dst_id IN (" + placeholders + ")"
		args = appendIDs(args, frontier)
	default:
		where = "(e.src_id IN (" + placeholders + ") OR e.dst_id IN (" + placeholders + "))"
		args = appendIDs(appendIDs(args, frontier), frontier)
	}
	args = append(args, relType, relType)

	rows, err := s.db.QueryContext(ctx, `
	SELECT e.src_id, e.dst_id, e.rel_type,
	       s.name, s.entity_type, s.layer,
	       d.name, d.entity_type, d.layer
	FROM edges e
	JOIN entities s ON e.src_id = s.id
	JOIN entities d ON e.dst_id = d.id
	WHERE `+where+`
	  AND (? = '' OR e.rel_type = ?)
	ORDER BY e.id`, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("querying relationships: %w", err)
	}
	defer rows.Close()

	inFrontier := make(map[int64]bool, len(frontier))
	for _, id := range frontier {
		inFrontier[id] = true
	}

	var found []store.Relationship
	var next []int64
	for rows.Next() {
		var srcID, dstID int64
		var rel store.Relationship
		if err := rows.Scan(&srcID, &dstID, &rel.Type,
			&rel.From.Name, &rel.From.EntityType, &rel.From.Layer,
			&rel.To.Name, &rel.To.EntityType, &rel.To.Layer,
		); err != nil {
			return nil, nil, fmt.Errorf("scanning relationship: %w", err)
		}

		other := dstID
		rel.Direction = "outgoing"
		if direction == "incoming" || !inFrontier[srcID] {
			other = srcID
			rel.Direction = "incoming"
			rel.From, rel.To = rel.To, rel.From
		}
		if visited[other] {
			continue
		}
		visited[other] = true
		found = append(found, rel)
		next = append(next, other)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterating relationship rows: %w", err)
	}
	return found, next, nil
}

func appendIDs(args []any, ids []int64) []any {
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}
