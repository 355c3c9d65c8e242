package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"  // registers "postgres"
	_ "modernc.org/sqlite" // registers "sqlite"
)

// ErrUnknownDriver is returned by Connect for a driver name it cannot open.
var ErrUnknownDriver = errors.New("unknown database driver")

// Dialect decides how bound parameters are written in statement text.
type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

// Placeholder returns the n-th (1-based) bind parameter token.
func (d Dialect) Placeholder(n int) string {
	if d == Postgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rows is the subset of a result set the lookups need. pgx.Rows satisfies it
// directly; *sql.Rows is wrapped.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// Querier is one open connection to the schedule store.
type Querier interface {
	Query(ctx context.Context, query string, args ...any) (Rows, error)
	Exec(ctx context.Context, query string, args ...any) error
	Dialect() Dialect
	Close() error
}

// Config selects the driver and the data source.
type Config struct {
	Driver string // sqlite, postgres or pgx
	DSN    string
}

// Connect opens and pings a store connection.
func Connect(ctx context.Context, cfg Config) (Querier, error) {
	switch cfg.Driver {
	case "sqlite", "":
		return openSQL(ctx, "sqlite", cfg.DSN, SQLite)
	case "postgres":
		return openSQL(ctx, "postgres", cfg.DSN, Postgres)
	case "pgx":
		return openPool(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func openSQL(ctx context.Context, driver, dsn string, dialect Dialect) (Querier, error) {
	if dsn == "" {
		return nil, fmt.Errorf("open %s: empty data source", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return &sqlQuerier{db: db, dialect: dialect}, nil
}

func openPool(ctx context.Context, dsn string) (Querier, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	// one lookup at a time per connection
	config.MaxConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}
	return &pgxQuerier{pool: pool}, nil
}

type sqlQuerier struct {
	db      *sql.DB
	dialect Dialect
}

func (q *sqlQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRows{rows}, nil
}

func (q *sqlQuerier) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.db.ExecContext(ctx, query, args...)
	return err
}

func (q *sqlQuerier) Dialect() Dialect { return q.dialect }

func (q *sqlQuerier) Close() error { return q.db.Close() }

type sqlRows struct{ *sql.Rows }

func (r sqlRows) Close() { _ = r.Rows.Close() }

type pgxQuerier struct {
	pool *pgxpool.Pool
}

func (q *pgxQuerier) Query(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := q.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (q *pgxQuerier) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.pool.Exec(ctx, query, args...)
	return err
}

func (q *pgxQuerier) Dialect() Dialect { return Postgres }

func (q *pgxQuerier) Close() error {
	q.pool.Close()
	return nil
}
