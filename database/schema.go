// Define table schema structures
package database

import (
	"context"
	"fmt"
	"strings"
)

type TableSchema struct {
	Name        string         `json:"name"`
	Columns     []ColumnSchema `json:"columns"`
	Description string         `json:"description"`
}

type ColumnSchema struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description"`
}

var ScheduleTable = TableSchema{
	Name:        "stundenplan",
	Description: "Stores the weekly timetable, one row per lesson",
	Columns: []ColumnSchema{
		{Name: "lehrer", Type: "TEXT", Nullable: false, Description: "Teacher name"},
		{Name: "fach", Type: "TEXT", Nullable: false, Description: "Subject"},
		{Name: "raum", Type: "TEXT", Nullable: false, Description: "Room"},
		{Name: "wochentag", Type: "TEXT", Nullable: false, Description: "Weekday"},
	},
}

// CreateStatement renders an idempotent CREATE TABLE for the schema.
func (t TableSchema) CreateStatement() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (", t.Name)
	for i, col := range t.Columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(col.Name + " " + col.Type)
		if !col.Nullable {
			b.WriteString(" NOT NULL")
		}
	}
	b.WriteString(")")
	return b.String()
}

// ColumnNames returns the column names in declaration order.
func (t TableSchema) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		names[i] = col.Name
	}
	return names
}

// EnsureSchema creates the schedule table if it does not exist yet.
func EnsureSchema(ctx context.Context, q Querier) error {
	if err := q.Exec(ctx, ScheduleTable.CreateStatement()); err != nil {
		return fmt.Errorf("create table %s: %w", ScheduleTable.Name, err)
	}
	return nil
}

// TableExists reports whether the named table is present in the store.
func TableExists(ctx context.Context, q Querier, name string) (bool, error) {
	var query string
	switch q.Dialect() {
	case Postgres:
		query = "SELECT count(*) FROM information_schema.tables WHERE table_name = $1"
	default:
		query = "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}

	rows, err := q.Query(ctx, query, name)
	if err != nil {
		return false, fmt.Errorf("lookup table %s: %w", name, err)
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, fmt.Errorf("scan table count: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}
	return n > 0, nil
}
