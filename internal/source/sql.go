package source

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLRecordSource reads entity sets from replicated master data tables.
// Entity sets are mapped to tables explicitly; an unmapped set is the
// "not found" condition.
type SQLRecordSource struct {
	db     *sqlx.DB
	tables map[string]string
	logger *zap.Logger
}

// NewSQLRecordSource opens a connection and verifies it.
func NewSQLRecordSource(dsn string, tables map[string]string, logger *zap.Logger) (*SQLRecordSource, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to record database: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLRecordSource{db: db, tables: tables, logger: logger}, nil
}

// Close releases the connection pool.
func (s *SQLRecordSource) Close() error {
	return s.db.Close()
}

// Read selects rows from the table mapped to the entity set. Only the
// Select, Filter, OrderBy and Top parts of the query are honored; Expand has
// no meaning for flat tables and is ignored.
func (s *SQLRecordSource) Read(ctx context.Context, entitySet string, query Query) ([]Row, error) {
	table, ok := s.tables[entitySet]
	if !ok {
		return nil, fmt.Errorf("reading %s: %w", entitySet, ErrNotFound)
	}

	stmt, args, err := buildSelect(table, query)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entitySet, err)
	}

	rows, err := s.db.QueryxContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", entitySet, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row := make(map[string]interface{})
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", entitySet, err)
		}
		for key, value := range row {
			if b, ok := value.([]byte); ok {
				row[key] = string(b)
			}
		}
		out = append(out, Row(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", entitySet, err)
	}
	return out, nil
}

// buildSelect renders a query as a parameterized SELECT. Column and filter
// field names are validated against identifierPattern; filter values are
// bound as placeholders, never interpolated.
func buildSelect(table string, query Query) (string, []interface{}, error) {
	columns := "*"
	if len(query.Select) > 0 {
		quoted := make([]string, 0, len(query.Select))
		for _, col := range query.Select {
			if !identifierPattern.MatchString(col) {
				return "", nil, fmt.Errorf("invalid column name %q", col)
			}
			quoted = append(quoted, fmt.Sprintf("%q", col))
		}
		columns = strings.Join(quoted, ", ")
	}

	stmt := fmt.Sprintf("SELECT %s FROM %s", columns, table)
	var args []interface{}
	if !query.Filter.Empty() {
		if !identifierPattern.MatchString(query.Filter.Field) {
			return "", nil, fmt.Errorf("invalid filter column %q", query.Filter.Field)
		}
		placeholders := make([]string, 0, len(query.Filter.Values))
		for _, value := range query.Filter.Values {
			args = append(args, value)
			placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
		}
		stmt += fmt.Sprintf(" WHERE %q IN (%s)", query.Filter.Field, strings.Join(placeholders, ", "))
	}
	if query.OrderBy != "" {
		if !identifierPattern.MatchString(query.OrderBy) {
			return "", nil, fmt.Errorf("invalid order column %q", query.OrderBy)
		}
		stmt += fmt.Sprintf(" ORDER BY %q", query.OrderBy)
	}
	if query.Top > 0 {
		stmt += fmt.Sprintf(" LIMIT %d", query.Top)
	}
	return stmt, args, nil
}
