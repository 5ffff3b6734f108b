package datarecording

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/structs"
)

// A Selection picks rows of a mapped table. Match keeps the rows whose
// columns equal the given values. OrderBy lists the sort columns, ascending.
type Selection struct {
	Match   map[string]any
	OrderBy []string
}

// DataReader reads back the tables written by a DataRecorder.
type DataReader interface {
	// MapTable binds a table to the struct type it was created from. Rows
	// of the table are returned as pointers to that type.
	MapTable(tableName string, sampleEntry any)

	// Select returns the rows of a mapped table. Selections may only name
	// columns of the mapped type.
	Select(ctx context.Context, tableName string, sel Selection) ([]any, error)

	// Close releases the database.
	Close() error
}

type mappedTable struct {
	structType reflect.Type
	columns    []string
}

func (t mappedTable) hasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}

	return false
}

type sqliteReader struct {
	db     *sql.DB
	tables map[string]mappedTable
}

// NewReader opens a recording written by New. The file is opened read-only
// and must exist.
func NewReader(path string) (DataReader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}

	return &sqliteReader{
		db:     db,
		tables: make(map[string]mappedTable),
	}, nil
}

func (r *sqliteReader) MapTable(tableName string, sampleEntry any) {
	r.tables[tableName] = mappedTable{
		structType: reflect.TypeOf(sampleEntry),
		columns:    structs.Names(sampleEntry),
	}
}

func (r *sqliteReader) Select(
	ctx context.Context,
	tableName string,
	sel Selection,
) ([]any, error) {
	table, ok := r.tables[tableName]
	if !ok {
		return nil, fmt.Errorf("table %s is not mapped", tableName)
	}

	query, args, err := buildSelect(tableName, table, sel)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []any
	for rows.Next() {
		entry := reflect.New(table.structType)
		targets := make([]any, len(table.columns))
		for i, c := range table.columns {
			targets[i] = entry.Elem().FieldByName(c).Addr().Interface()
		}

		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		results = append(results, entry.Interface())
	}

	return results, rows.Err()
}

func buildSelect(
	tableName string,
	table mappedTable,
	sel Selection,
) (string, []any, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "SELECT %s FROM %s",
		quoteAll(table.columns), quote(tableName))

	matchColumns := make([]string, 0, len(sel.Match))
	for c := range sel.Match {
		matchColumns = append(matchColumns, c)
	}

	sort.Strings(matchColumns)

	args := make([]any, 0, len(matchColumns))
	for i, c := range matchColumns {
		if !table.hasColumn(c) {
			return "", nil, fmt.Errorf("table %s has no column %s", tableName, c)
		}

		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}

		b.WriteString(quote(c) + " = ?")
		args = append(args, sel.Match[c])
	}

	for _, c := range sel.OrderBy {
		if !table.hasColumn(c) {
			return "", nil, fmt.Errorf("table %s has no column %s", tableName, c)
		}
	}

	if len(sel.OrderBy) > 0 {
		b.WriteString(" ORDER BY " + quoteAll(sel.OrderBy))
	}

	return b.String(), args, nil
}

func quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}

	return strings.Join(quoted, ", ")
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
