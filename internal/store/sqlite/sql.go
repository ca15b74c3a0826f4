package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ErrNotReadOnly is returned by RunSQL for statements other than queries.
var ErrNotReadOnly = errors.New("only SELECT, WITH, VALUES and EXPLAIN statements are allowed")

// RunSQL runs a read-only query. Params keyed "1", "2", ... bind positionally;
// any other key binds as a named parameter (:key, @key or $key).
//
// Every statement in query must be a query. It runs inside a transaction that is
// always rolled back, so nothing it does can outlive the call.
func (s *Snapshot) RunSQL(ctx context.Context, query string, params map[string]any) ([]map[string]any, error) {
	if err := checkReadOnly(query); err != nil {
		return nil, err
	}
	args := bindParams(params)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("running sql: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("getting columns: %w", err)
	}

	results := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
				continue
			}
			row[col] = values[i]
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sql rows: %w", err)
	}
	return results, nil
}

func bindParams(params map[string]any) []any {
	args := make([]any, 0, len(params))
	for i := 1; i <= len(params); i++ {
		val, ok := params[strconv.Itoa(i)]
		if !ok {
			break
		}
		args = append(args, val)
	}
	for key, val := range params {
		if _, err := strconv.Atoi(key); err == nil {
			continue
		}
		args = append(args, sql.Named(key, val))
	}
	return args
}

var readOnlyKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"VALUES":  true,
	"EXPLAIN": true,
}

// checkReadOnly rejects query unless every statement in it starts with a query
// keyword. PRAGMA, ATTACH and transaction control are refused, so query_only
// cannot be switched off and the surrounding transaction cannot be committed.
func checkReadOnly(query string) error {
	statements := splitQuery(query)
	if len(statements) == 0 {
		return fmt.Errorf("running sql: empty query")
	}
	for _, stmt := range statements {
		if kw := leadingKeyword(stmt); !readOnlyKeywords[kw] {
			return fmt.Errorf("running sql: %w (got %q)", ErrNotReadOnly, kw)
		}
	}
	return nil
}

// splitQuery splits query on semicolons outside quotes and comments. Comments
// are dropped; empty statements are skipped.
func splitQuery(query string) []string {
	var out []string
	var cur strings.Builder
	runes := []rune(query)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			out = append(out, stmt)
		}
		cur.Reset()
	}

	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '-' && i+1 < len(runes) && runes[i+1] == '-':
			for i < len(runes) && runes[i] != '\n' {
				i++
			}
			cur.WriteRune(' ')
		case r == '/' && i+1 < len(runes) && runes[i+1] == '*':
			i += 2
			for i < len(runes) && !(runes[i] == '*' && i+1 < len(runes) && runes[i+1] == '/') {
				i++
			}
			i++
			cur.WriteRune(' ')
		case r == '\'' || r == '"' || r == '`' || r == '[':
			closing := r
			if r == '[' {
				closing = ']'
			}
			cur.WriteRune(r)
			for i++; i < len(runes); i++ {
				cur.WriteRune(runes[i])
				if runes[i] == closing {
					break
				}
			}
		case r == ';':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func leadingKeyword(stmt string) string {
	stmt = strings.TrimLeftFunc(stmt, func(r rune) bool { return unicode.IsSpace(r) || r == '(' })
	end := strings.IndexFunc(stmt, func(r rune) bool { return !unicode.IsLetter(r) })
	if end < 0 {
		end = len(stmt)
	}
	return strings.ToUpper(stmt[:end])
}
