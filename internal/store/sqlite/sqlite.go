package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/alphabot-ai/forum/internal/store"
)

type Store struct {
	db *sql.DB
}

// querier is the part of *sql.DB and *sql.Tx the queries need, so the same
// helpers run inside and outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// connPragmas are applied by the driver to every pooled connection.
// Transactions take the write lock at BEGIN so that concurrent writers
// wait on busy_timeout instead of failing the read-to-write upgrade.
var connPragmas = []string{
	"_pragma=foreign_keys(1)",
	"_pragma=busy_timeout(5000)",
	"_txlock=immediate",
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", withPragmas(path))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// SetPoolSize bounds the number of open connections. Callers beyond the
// bound wait for a connection to be returned instead of failing.
func (s *Store) SetPoolSize(n int) {
	if n <= 0 {
		return
	}
	s.db.SetMaxOpenConns(n)
	s.db.SetMaxIdleConns(n)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func withPragmas(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(connPragmas, "&")
}

// migrations is an ordered list of SQL migrations.
// Each migration runs exactly once, tracked by schema_version table.
var migrations = []string{
	// Migration 1: Initial schema
	`
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	username TEXT NOT NULL UNIQUE,
	email TEXT UNIQUE,
	password TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS threads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id INTEGER NOT NULL,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	FOREIGN KEY(user_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_threads_created_at ON threads(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_threads_user_id ON threads(user_id);

CREATE TABLE IF NOT EXISTS comments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread_id INTEGER NOT NULL,
	parent_id INTEGER,
	user_id INTEGER NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	UNIQUE(id, thread_id),
	FOREIGN KEY(thread_id) REFERENCES threads(id),
	FOREIGN KEY(user_id) REFERENCES users(id),
	FOREIGN KEY(parent_id, thread_id) REFERENCES comments(id, thread_id)
);
CREATE INDEX IF NOT EXISTS idx_comments_thread_parent ON comments(thread_id, parent_id, created_at DESC);

CREATE TABLE IF NOT EXISTS thread_votes (
	thread_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY(thread_id, user_id),
	FOREIGN KEY(thread_id) REFERENCES threads(id),
	FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS comment_votes (
	comment_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY(comment_id, user_id),
	FOREIGN KEY(comment_id) REFERENCES comments(id),
	FOREIGN KEY(user_id) REFERENCES users(id)
);

CREATE TABLE IF NOT EXISTS follows (
	follower_id INTEGER NOT NULL,
	followee_id INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	PRIMARY KEY(follower_id, followee_id),
	CONSTRAINT user_cannot_follow_self CHECK (follower_id <> followee_id),
	FOREIGN KEY(follower_id) REFERENCES users(id),
	FOREIGN KEY(followee_id) REFERENCES users(id)
);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(followee_id);
`,
	// Future migrations go here:
	// Migration 2: `ALTER TABLE ...`,
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		)
	`); err != nil {
		return err
	}

	var currentVersion int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`)
	if err := row.Scan(&currentVersion); err != nil {
		return err
	}

	for i := currentVersion; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_version (version) VALUES (?)`, i+1); err != nil {
			return fmt.Errorf("failed to record migration %d: %w", i+1, err)
		}
	}

	return nil
}

// withTx runs fn on one connection inside a transaction. The transaction is
// rolled back on every error path, including a failed commit.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// constraintTable maps a violated constraint to the domain error a write
// should report instead. Keys are what sqlite names in the error: a named
// CHECK constraint, "table.column" for UNIQUE, or the bare kind
// ("FOREIGN KEY") when sqlite gives no name.
type constraintTable map[string]func() error

func (t constraintTable) apply(err error) error {
	if err == nil {
		return nil
	}
	if name, ok := constraintName(err); ok {
		if mk, found := t[name]; found {
			return mk()
		}
	}
	return err
}

var constraintRe = regexp.MustCompile(`(UNIQUE|CHECK|FOREIGN KEY|PRIMARY KEY|NOT NULL) constraint failed(?:: ([\w.]+))?`)

func constraintName(err error) (string, bool) {
	var se *sqlite.Error
	if !errors.As(err, &se) || se.Code()&0xff != sqlite3.SQLITE_CONSTRAINT {
		return "", false
	}
	m := constraintRe.FindStringSubmatch(se.Error())
	if m == nil {
		return "", false
	}
	if m[2] != "" {
		return m[2], true
	}
	return m[1], true
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// votedColumn is the is_voted select expression for a vote table keyed by
// key. Without a viewer it is a literal false and binds no argument.
func votedColumn(table, key, target string, viewer store.Viewer) (string, []any) {
	if viewer == nil {
		return "0", nil
	}
	expr := fmt.Sprintf("EXISTS(SELECT 1 FROM %s vv WHERE vv.%s = %s AND vv.user_id = ?)", table, key, target)
	return expr, []any{*viewer}
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
