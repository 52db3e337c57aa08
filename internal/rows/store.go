package rows

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/matthewbaird/tablefilter/internal/filter/catalog"
	"github.com/matthewbaird/tablefilter/internal/filter/payload"
)

const table = "records"

var recordColumns = []string{
	"id", "name", "company", "status", "priority", "estimated_value",
	"account_owner", "follow_up", "close_date", "tags",
}

// Store is the interface for reading and writing dataset records.
type Store interface {
	// Insert adds records. Records with a zero id get one assigned.
	Insert(ctx context.Context, records ...Record) error

	// Query returns the records matching q, ordered by q.Sort and then id.
	Query(ctx context.Context, q Query) ([]Record, error)

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)
}

// SQLiteStore implements Store on a SQLite table, translating wire
// filters with ent's SQL builder.
type SQLiteStore struct {
	db      *sql.DB
	catalog *catalog.Catalog
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB, c *catalog.Catalog) *SQLiteStore {
	return &SQLiteStore{db: db, catalog: c}
}

// CreateTable creates the records table.
func (s *SQLiteStore) CreateTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			name            TEXT NOT NULL DEFAULT '',
			company         TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL DEFAULT '',
			priority        TEXT NOT NULL DEFAULT '',
			estimated_value REAL,
			account_owner   TEXT NOT NULL DEFAULT '',
			follow_up       BOOLEAN NOT NULL DEFAULT FALSE,
			close_date      TEXT NOT NULL DEFAULT '',
			tags            TEXT NOT NULL DEFAULT '[]'
		);

		CREATE INDEX IF NOT EXISTS idx_records_status ON records (status);
	`)
	return err
}

// Insert writes records, batching those with and without explicit ids.
func (s *SQLiteStore) Insert(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}
	withID := entsql.Dialect(dialect.SQLite).Insert(table).Columns(recordColumns...)
	withoutID := entsql.Dialect(dialect.SQLite).Insert(table).Columns(recordColumns[1:]...)
	var nWith, nWithout int

	for _, r := range records {
		var value any
		if r.EstimatedValue != nil {
			value = *r.EstimatedValue
		}
		vals := []any{r.Name, r.Company, r.Status, r.Priority, value, r.AccountOwner, r.FollowUp, r.CloseDate, encodeTags(r.Tags)}
		if r.ID != 0 {
			withID.Values(append([]any{r.ID}, vals...)...)
			nWith++
		} else {
			withoutID.Values(vals...)
			nWithout++
		}
	}

	for _, b := range []struct {
		n int
		q *entsql.InsertBuilder
	}{{nWith, withID}, {nWithout, withoutID}} {
		if b.n == 0 {
			continue
		}
		query, args := b.q.Query()
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("inserting records: %w", err)
		}
	}
	return nil
}

// Query selects the records matching q.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]Record, error) {
	if err := CheckDepth(q.Filter, q.MaxNestingLevel); err != nil {
		return nil, err
	}
	sel := entsql.Dialect(dialect.SQLite).Select(recordColumns...).From(entsql.Table(table))
	if q.Filter != nil {
		p, err := s.predicate(q.Filter)
		if err != nil {
			return nil, err
		}
		sel.Where(p)
	}
	if q.Sort != nil {
		fd, err := resolveField(s.catalog, q.Sort.Property)
		if err != nil {
			return nil, err
		}
		if q.Sort.Direction == Descending {
			sel.OrderBy(entsql.Desc(fd.column))
		} else {
			sel.OrderBy(entsql.Asc(fd.column))
		}
	}
	sel.OrderBy(entsql.Asc("id"))

	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	out := []Record{}
	for rows.Next() {
		var (
			r        Record
			value    sql.NullFloat64
			tagsJSON string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.Company, &r.Status, &r.Priority, &value,
			&r.AccountOwner, &r.FollowUp, &r.CloseDate, &tagsJSON); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		if value.Valid {
			v := value.Float64
			r.EstimatedValue = &v
		}
		if err := json.Unmarshal([]byte(tagsJSON), &r.Tags); err != nil {
			return nil, fmt.Errorf("decoding tags of record %d: %w", r.ID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Count returns the number of rows in the records table.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	query, args := entsql.Dialect(dialect.SQLite).
		Select(entsql.Count("*")).
		From(entsql.Table(table)).
		Query()
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) predicate(f payload.Filter) (*entsql.Predicate, error) {
	switch f := f.(type) {
	case *payload.CompoundFilter:
		if len(f.Filters) == 0 {
			if f.Operator == catalog.Or {
				return entsql.ExprP("1 = 0"), nil
			}
			return entsql.ExprP("1 = 1"), nil
		}
		preds := make([]*entsql.Predicate, 0, len(f.Filters))
		for _, child := range f.Filters {
			p, err := s.predicate(child)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		if f.Operator == catalog.Or {
			return entsql.Or(preds...), nil
		}
		return entsql.And(preds...), nil
	case *payload.PropertyFilter:
		fd, v, err := resolveFilter(s.catalog, f)
		if err != nil {
			return nil, err
		}
		return conditionPredicate(fd, f.Condition, v)
	default:
		return nil, fmt.Errorf("%w: unexpected filter %T", payload.ErrInvalidFilter, f)
	}
}

func conditionPredicate(fd field, cond string, v any) (*entsql.Predicate, error) {
	col := fd.column
	switch fd.typ {
	case catalog.Checkbox:
		switch cond {
		case "equals":
			return entsql.EQ(col, v), nil
		case "does_not_equal":
			return entsql.NEQ(col, v), nil
		}

	case catalog.Number:
		switch cond {
		case "equals":
			return entsql.EQ(col, v), nil
		case "does_not_equal":
			return entsql.NEQ(col, v), nil
		case "greater_than":
			return entsql.GT(col, v), nil
		case "less_than":
			return entsql.LT(col, v), nil
		case "greater_than_or_equal_to":
			return entsql.GTE(col, v), nil
		case "less_than_or_equal_to":
			return entsql.LTE(col, v), nil
		case "is_empty":
			return entsql.IsNull(col), nil
		case "is_not_empty":
			return entsql.NotNull(col), nil
		}

	case catalog.Date, catalog.Timestamp:
		hasDate := entsql.NEQ(col, "")
		switch cond {
		case "equals":
			return entsql.EQ(col, v), nil
		case "not_equals_date":
			return entsql.NEQ(col, v), nil
		case "before":
			return entsql.And(hasDate, entsql.LT(col, v)), nil
		case "after":
			return entsql.GT(col, v), nil
		case "on_or_before":
			return entsql.And(hasDate, entsql.LTE(col, v)), nil
		case "on_or_after":
			return entsql.GTE(col, v), nil
		case "is_empty":
			return entsql.EQ(col, ""), nil
		case "is_not_empty":
			return hasDate, nil
		}

	case catalog.MultiSelect:
		switch cond {
		case "contains":
			return entsql.Contains(col, jsonString(v)), nil
		case "does_not_contain":
			return entsql.Not(entsql.Contains(col, jsonString(v))), nil
		case "is_empty":
			return entsql.EQ(col, "[]"), nil
		case "is_not_empty":
			return entsql.NEQ(col, "[]"), nil
		}

	default:
		s, _ := v.(string)
		switch cond {
		case "equals":
			return entsql.EQ(col, v), nil
		case "does_not_equal":
			return entsql.NEQ(col, v), nil
		case "contains":
			return entsql.Contains(col, s), nil
		case "does_not_contain":
			return entsql.Not(entsql.Contains(col, s)), nil
		case "starts_with":
			return entsql.HasPrefix(col, s), nil
		case "ends_with":
			return entsql.HasSuffix(col, s), nil
		case "is_empty":
			return entsql.EQ(col, ""), nil
		case "is_not_empty":
			return entsql.NEQ(col, ""), nil
		}
	}
	return nil, fmt.Errorf("%w %q for %s", ErrUnsupportedCondition, cond, fd.typ)
}

func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

// jsonString encodes a tag the way it appears inside the stored JSON array.
func jsonString(v any) string {
	s, _ := v.(string)
	b, _ := json.Marshal(s)
	return string(b)
}
