package registry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/mattn/go-sqlite3"    // CGo-based SQLite driver

	"inspector.onebusaway.org/internal/logging"
)

//go:embed schema.sql
var ddl string

// dialect covers the differences between the SQL backends.
type dialect struct {
	driver      string
	placeholder func(n int) string
}

var (
	sqliteDialect   = dialect{driver: "sqlite3", placeholder: func(int) string { return "?" }}
	postgresDialect = dialect{driver: "pgx", placeholder: func(n int) string { return "$" + strconv.Itoa(n) }}
)

// SQLStore keeps sources in a "sources" table.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger

	getQuery, putQuery, deleteQuery, listQuery string
}

// OpenSQLite opens or creates the sqlite database at path.
func OpenSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open(sqliteDialect.driver, path)
	if err != nil {
		return nil, err
	}
	// Each connection to :memory: is a separate database.
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	return newSQLStore(ctx, db, sqliteDialect, logger)
}

// OpenPostgres connects with the pgx driver.
func OpenPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return newSQLStore(ctx, db, postgresDialect, logger)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, logger *slog.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &SQLStore{
		db:      db,
		dialect: d,
		logger:  logger.With(slog.String("component", "registry_"+d.driver)),
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}

	p := d.placeholder
	s.getQuery = "SELECT definition FROM sources WHERE name = " + p(1)
	s.putQuery = "INSERT INTO sources (name, definition) VALUES (" + p(1) + ", " + p(2) + ") " +
		"ON CONFLICT (name) DO UPDATE SET definition = excluded.definition, updated_at = CURRENT_TIMESTAMP"
	s.deleteQuery = "DELETE FROM sources WHERE name = " + p(1)
	s.listQuery = "SELECT name FROM sources ORDER BY name"
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", stmt, err)
		}
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, name string) (Source, error) {
	if err := ValidateName(name); err != nil {
		return Source{}, err
	}
	var definition string
	err := s.db.QueryRowContext(ctx, s.getQuery, name).Scan(&definition)
	if errors.Is(err, sql.ErrNoRows) {
		return Source{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return Source{}, fmt.Errorf("read source %q: %w", name, err)
	}
	return decode(name, []byte(definition))
}

func (s *SQLStore) Put(ctx context.Context, name string, src Source) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	b, err := encode(src)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.putQuery, name, string(b)); err != nil {
		return fmt.Errorf("write source %q: %w", name, err)
	}
	logging.LogOperation(s.logger, "source_saved", slog.String("name", name))
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, name string) (bool, error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, s.deleteQuery, name)
	if err != nil {
		return false, fmt.Errorf("delete source %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		logging.LogOperation(s.logger, "source_deleted", slog.String("name", name))
	}
	return n > 0, nil
}

func (s *SQLStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.listQuery)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, s.logger, "source_rows")

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// DB exposes the connection pool, e.g. for pool statistics.
func (s *SQLStore) DB() *sql.DB { return s.db }
