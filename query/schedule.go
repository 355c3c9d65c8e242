package query

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"learnon/database"
	"learnon/services"
	"learnon/utils"
)

// Schedule is one lesson of a teacher's timetable.
type Schedule struct {
	Subject string `json:"subject"`
	Room    string `json:"room"`
	Weekday string `json:"weekday"`
}

// interpolatedQuery pastes the teacher name into the statement text. Any
// quote in the name ends the literal early.
const interpolatedQuery = "SELECT fach, raum, wochentag FROM stundenplan WHERE lehrer = '%s'"

func boundQuery(d database.Dialect) string {
	return "SELECT fach, raum, wochentag FROM stundenplan WHERE lehrer = " + d.Placeholder(1)
}

// ConnectFunc opens a fresh store connection.
type ConnectFunc func(ctx context.Context) (database.Querier, error)

// Lookup runs timetable queries. Each call opens its own connection and
// closes it before returning.
type Lookup struct {
	Connect ConnectFunc
	Logger  *slog.Logger
	Cache   *services.ScheduleCache
}

func NewLookup(cfg database.Config, cache *services.ScheduleCache, logger *slog.Logger) *Lookup {
	return &Lookup{
		Connect: func(ctx context.Context) (database.Querier, error) {
			return database.Connect(ctx, cfg)
		},
		Logger: logger,
		Cache:  cache,
	}
}

func (l *Lookup) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

// Unsafe builds the statement by string interpolation. Input containing
// quotes, separators or comment markers changes what is executed.
func (l *Lookup) Unsafe(ctx context.Context, teacher string) ([]Schedule, error) {
	stmt := UnsafeStatement(teacher)
	if !utils.SameStructure(UnsafeStatement(""), stmt) {
		report := utils.InspectSQL(stmt)
		l.logger().Warn("interpolated input altered the statement",
			"statements", report.Statements, "comment", report.HasComment, "forbidden", report.Forbidden)
	}
	return l.run(ctx, func(database.Querier) (string, []any) {
		return stmt, nil
	})
}

// Safe keeps the statement text fixed and passes teacher as a bound
// parameter, so the store always compares it as a literal value.
func (l *Lookup) Safe(ctx context.Context, teacher string) ([]Schedule, error) {
	if b, ok := l.Cache.Get(ctx, teacher); ok {
		var cached []Schedule
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	result, err := l.run(ctx, func(q database.Querier) (string, []any) {
		return boundQuery(q.Dialect()), []any{teacher}
	})
	if err != nil {
		return nil, err
	}

	if l.Cache.Enabled() {
		if b, err := json.Marshal(result); err == nil {
			l.Cache.Set(ctx, teacher, b)
		}
	}
	return result, nil
}

// UnsafeStatement returns the text Unsafe executes for teacher.
func UnsafeStatement(teacher string) string {
	return fmt.Sprintf(interpolatedQuery, teacher)
}

func (l *Lookup) run(ctx context.Context, build func(database.Querier) (string, []any)) ([]Schedule, error) {
	conn, err := l.Connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close()

	stmt, args := build(conn)
	rows, err := conn.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query schedule: %w", err)
	}
	defer rows.Close()

	result := []Schedule{}
	for rows.Next() {
		var s Schedule
		if err := rows.Scan(&s.Subject, &s.Room, &s.Weekday); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule: %w", err)
	}
	return result, nil
}
