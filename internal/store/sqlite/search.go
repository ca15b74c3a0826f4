package sqlite

import (
	"context"
	"fmt"
	"strings"

	"hotgraph/internal/store"
)

const searchLimit = 50

func (s *Snapshot) Search(ctx context.Context, query, layer, entityType string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	rows, err := s.db.QueryContext(ctx, `
	SELECT e.name, e.entity_type, e.layer, e.tags,
	       -bm25(entities_fts, 10.0, 4.0, 1.0) AS score,
	       snippet(entities_fts, 2, '**', '**', '...', 50) AS snippet
	FROM entities_fts
	JOIN entities e ON entities_fts.rowid = e.id
	WHERE entities_fts MATCH ?
	  AND (? = '' OR e.layer = ?)
	  AND (? = '' OR e.entity_type = ?)
	  AND e.is_placeholder = 0
	ORDER BY score DESC, e.name ASC
	LIMIT ?
	`, convertWebsearchToFTS5(query), layer, layer, entityType, entityType, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching entities: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		var tags string
		if err := rows.Scan(&r.Name, &r.EntityType, &r.Layer, &tags, &r.Score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		if r.Tags, err = decodeTags(tags); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// convertWebsearchToFTS5 turns web-search style input ("a b", "-x", "quoted
// phrase", OR) into an FTS5 MATCH expression. Adjacent terms are ANDed.
func convertWebsearchToFTS5(query string) string {
	var out strings.Builder
	var token strings.Builder
	inQuote := false

	needsAnd := func() bool {
		if out.Len() == 0 {
			return false
		}
		switch lastWord(out.String()) {
		case "AND", "OR", "NOT", "":
			return false
		}
		return true
	}
	writeTerm := func(term string) {
		if needsAnd() {
			out.WriteString(" AND ")
		} else if out.Len() > 0 {
			out.WriteString(" ")
		}
		out.WriteString(term)
	}
	flush := func() {
		word := token.String()
		token.Reset()
		if word == "" {
			return
		}
		switch upper := strings.ToUpper(word); upper {
		case "AND", "OR", "NOT":
			if out.Len() > 0 {
				out.WriteString(" ")
			}
			out.WriteString(upper)
			return
		}
		if strings.HasPrefix(word, "-") && len(word) > 1 {
			writeTerm("NOT " + word[1:])
			return
		}
		writeTerm(word)
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '"' && inQuote:
			inQuote = false
			phrase := token.String()
			token.Reset()
			if phrase != "" {
				writeTerm(`"` + phrase + `"`)
			}
		case ch == '"':
			flush()
			inQuote = true
		case inQuote:
			token.WriteByte(ch)
		case ch == ' ' || ch == '\t':
			flush()
		default:
			token.WriteByte(ch)
		}
	}
	flush()

	return out.String()
}

func lastWord(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}
