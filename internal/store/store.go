package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/reelfeed/internal/model"
	"github.com/roach88/reelfeed/internal/querysql"
	"github.com/roach88/reelfeed/internal/remote"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - empty database
// 1 - base schema
// 2 - feed index on listings(status, created_at, id)
const currentSchemaVersion = 2

// DriverName is the database/sql driver with the casefold function.
const DriverName = "sqlite3_reelfeed"

// DefaultCheckoutBaseURL prefixes checkout redirect URLs.
const DefaultCheckoutBaseURL = "https://checkout.reelfeed.local/session/"

var registerOnce sync.Once

func registerDriver() {
	registerOnce.Do(func() {
		sql.Register(DriverName, &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc(querysql.FoldFunc, model.NormalizeSearch, true)
			},
		})
	})
}

// Store is the SQLite-backed remote collaborator.
type Store struct {
	db       *sql.DB
	compiler *querysql.SQLCompiler
	newID    func() string
	now      func() time.Time
	baseURL  string
	logger   *slog.Logger
}

var _ remote.Collaborator = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator sets the id source. Defaults to UUIDv7.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithNow sets the time source for created_at columns.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithCheckoutBaseURL sets the redirect URL prefix of checkout sessions.
func WithCheckoutBaseURL(base string) Option {
	return func(s *Store) {
		s.baseURL = base
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// NewUUIDv7 returns a time-ordered UUID string.
func NewUUIDv7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Open creates or opens the database at path, applying pragmas and
// migrations. Safe to call on an existing database.
func Open(path string, opts ...Option) (*Store, error) {
	registerDriver()

	db, err := sql.Open(DriverName, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:       db,
		compiler: querysql.NewSQLCompiler(),
		newID:    NewUUIDv7,
		now:      time.Now,
		baseURL:  DefaultCheckoutBaseURL,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// runMigrations applies incremental migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 2 {
		if err := migrateToV2(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// migrateToV2 adds the index serving the feed query.
func migrateToV2(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_listings_feed
		ON listings(status, created_at DESC, id DESC)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v2: %w", err)
	}
	return nil
}

func (s *Store) timestamp() int64 {
	return s.now().UTC().UnixNano()
}

func fromTimestamp(ns int64) time.Time {
	return time.Unix(0, ns).UTC()
}

// verifyPragma checks that a pragma has the expected value. Used by tests.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}

// UpsertProfile records a user. An empty email keeps the stored one.
func (s *Store) UpsertProfile(ctx context.Context, id, email string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email WHERE excluded.email != ''
	`, id, email, s.timestamp())
	if err != nil {
		return fmt.Errorf("upsert profile %s: %w", id, err)
	}
	return nil
}
