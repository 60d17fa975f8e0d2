package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/Grigoriy457/rocketry/src/retry"
)

// SQLDialect names which flavor of SQL a SQLStore talks, since table
// creation and placeholder syntax differ slightly between them.
type SQLDialect string

const (
	DialectSQLite   SQLDialect = "sqlite"
	DialectPostgres SQLDialect = "postgres"
	DialectMySQL    SQLDialect = "mysql"
)

const (
	timeoutWrite  = 10 * time.Second
	timeoutRead   = 5 * time.Second
	timeoutSchema = 30 * time.Second
)

// SQLStore is a Store backed by database/sql, usable with any of the
// three supported dialects. The event table is created with
// CREATE TABLE IF NOT EXISTS on open — there is no migrations table,
// schema changes are additive only.
type SQLStore struct {
	db      *sql.DB
	dialect SQLDialect
}

// OpenSQLite opens (creating if necessary) a SQLite-backed store at
// path, with WAL journaling and a busy timeout tuned for a scheduler
// writing one row per task transition.
func OpenSQLite(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history: create sqlite directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open sqlite: %w", err)
	}
	return newSQLStore(db, DialectSQLite)
}

// OpenPostgres opens a PostgreSQL-backed store using the given DSN
// (host=... port=... user=... password=... dbname=... sslmode=...).
func OpenPostgres(dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open postgres: %w", err)
	}
	return newSQLStore(db, DialectPostgres)
}

// OpenMySQL opens a MySQL/MariaDB-backed store using the given DSN
// (user:password@tcp(host:port)/dbname?parseTime=true).
func OpenMySQL(dsn string) (*SQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("history: open mysql: %w", err)
	}
	return newSQLStore(db, DialectMySQL)
}

func newSQLStore(db *sql.DB, dialect SQLDialect) (*SQLStore, error) {
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	s := &SQLStore{db: db, dialect: dialect}
	ctx, cancel := context.WithTimeout(context.Background(), timeoutSchema)
	defer cancel()

	// Postgres/MySQL may still be starting up alongside the scheduler
	// (e.g. both launched by the same compose file); retry schema setup
	// a few times before giving up. SQLite never needs this, but the
	// retry is harmless for it too since ensureSchema is idempotent.
	rcfg := retry.DefaultConfig()
	rcfg.MaxAttempts = 5
	rcfg.InitialDelay = 200 * time.Millisecond
	rcfg.MaxDelay = 3 * time.Second
	if err := retry.Do(ctx, rcfg, func() error { return s.ensureSchema(ctx) }); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) ensureSchema(ctx context.Context) error {
	var ddl string
	switch s.dialect {
	case DialectPostgres:
		ddl = `CREATE TABLE IF NOT EXISTS task_events (
			id BIGSERIAL PRIMARY KEY,
			task_name TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			run_id TEXT,
			detail TEXT
		)`
	case DialectMySQL:
		ddl = `CREATE TABLE IF NOT EXISTS task_events (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			task_name VARCHAR(255) NOT NULL,
			action VARCHAR(32) NOT NULL,
			timestamp DATETIME(6) NOT NULL,
			run_id VARCHAR(64),
			detail TEXT
		)`
	default:
		ddl = `CREATE TABLE IF NOT EXISTS task_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_name TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp DATETIME NOT NULL,
			run_id TEXT,
			detail TEXT
		)`
	}
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("history: create task_events table: %w", err)
	}
	idx := `CREATE INDEX IF NOT EXISTS idx_task_events_task_action ON task_events (task_name, action)`
	if _, err := s.db.ExecContext(ctx, idx); err != nil {
		return fmt.Errorf("history: create task_events index: %w", err)
	}
	return nil
}

// placeholder returns the positional placeholder for param index i
// (1-based), since Postgres uses $N while SQLite/MySQL use ?.
func (s *SQLStore) placeholder(i int) string {
	if s.dialect == DialectPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (s *SQLStore) Log(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, timeoutWrite)
	defer cancel()
	query := fmt.Sprintf(
		"INSERT INTO task_events (task_name, action, timestamp, run_id, detail) VALUES (%s, %s, %s, %s, %s)",
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5),
	)
	_, err := s.db.ExecContext(ctx, query, ev.TaskName, string(ev.Action), ev.Timestamp, ev.RunID, ev.Detail)
	if err != nil {
		return fmt.Errorf("history: log event: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, filter Filter) ([]Event, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutRead)
	defer cancel()

	query := "SELECT task_name, action, timestamp, run_id, detail FROM task_events WHERE 1=1"
	var args []any
	n := 0
	add := func(clause string, arg any) {
		n++
		query += fmt.Sprintf(" AND %s %s", clause, s.placeholder(n))
		args = append(args, arg)
	}
	if filter.TaskName != "" {
		add("task_name =", filter.TaskName)
	}
	if filter.Action != "" {
		add("action =", string(filter.Action))
	}
	if filter.After != nil {
		add("timestamp >=", *filter.After)
	}
	if filter.Before != nil {
		add("timestamp <", *filter.Before)
	}
	query += " ORDER BY timestamp ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("history: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var action string
		var runID, detail sql.NullString
		if err := rows.Scan(&ev.TaskName, &action, &ev.Timestamp, &runID, &detail); err != nil {
			return nil, fmt.Errorf("history: scan event: %w", err)
		}
		ev.Action = Action(action)
		ev.RunID = runID.String
		ev.Detail = detail.String
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *SQLStore) Latest(ctx context.Context, taskName string, action Action) (Event, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeoutRead)
	defer cancel()

	query := "SELECT task_name, action, timestamp, run_id, detail FROM task_events WHERE task_name = " + s.placeholder(1)
	args := []any{taskName}
	if action != "" {
		query += " AND action = " + s.placeholder(2)
		args = append(args, string(action))
	}
	query += " ORDER BY timestamp DESC LIMIT 1"

	var ev Event
	var act string
	var runID, detail sql.NullString
	row := s.db.QueryRowContext(ctx, query, args...)
	if err := row.Scan(&ev.TaskName, &act, &ev.Timestamp, &runID, &detail); err != nil {
		if err == sql.ErrNoRows {
			return Event{}, false, nil
		}
		return Event{}, false, fmt.Errorf("history: query latest event: %w", err)
	}
	ev.Action = Action(act)
	ev.RunID = runID.String
	ev.Detail = detail.String
	return ev, true, nil
}

func (s *SQLStore) Close() error { return s.db.Close() }

// Ping verifies connectivity to the backing database, used by the HTTP
// inspection API's health check.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
