// Package cache is a content-addressed store for instrument graphs.
//
// Rows are keyed by ir.GraphID, so a graph's identity is its content:
// re-inserting an unchanged graph is a no-op, and repeated builds of
// unchanged instruments can skip straight to the cached serialization.
// SQLite in WAL mode backs the store; a single writer connection avoids
// SQLITE_BUSY under concurrent use.
package cache

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/sigil-audio/sigil/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the cache schema version stored in user_version.
const schemaVersion = 1

// Cache wraps the SQLite handle and the token source stamped onto new
// rows.
type Cache struct {
	db     *sql.DB
	tokens TokenSource
}

// Open creates or opens a graph cache at the given path, applying pragmas
// and the schema. Opening the same path repeatedly is safe. New rows
// carry UUIDv7 build tokens.
func Open(path string) (*Cache, error) {
	return OpenWithTokens(path, UUIDv7Source{})
}

// OpenWithTokens is Open with an explicit build token source.
func OpenWithTokens(path string, tokens TokenSource) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache: %w", err)
	}

	// SQLite supports one writer at a time; a single connection waits on
	// the lock instead of surfacing SQLITE_BUSY.
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

	return &Cache{db: db, tokens: tokens}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Put stores the graph under its content identity and returns that
// identity. A graph that is already cached is left untouched: the first
// writer's row, including its build token, wins.
func (c *Cache) Put(ctx context.Context, e *ir.E) (string, error) {
	data, err := ir.MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("put graph: %w", err)
	}

	id, err := ir.GraphID(e)
	if err != nil {
		return "", fmt.Errorf("put graph: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO graphs (id, graph, ir_version, build_token)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, string(data), ir.IRVersion, c.tokens.Token())
	if err != nil {
		return "", fmt.Errorf("put graph: %w", err)
	}

	return id, nil
}

// Get loads the cached graph with the given identity. The error wraps
// sql.ErrNoRows when the id is not cached.
func (c *Cache) Get(ctx context.Context, id string) (*ir.E, error) {
	var data string
	err := c.db.QueryRowContext(ctx,
		`SELECT graph FROM graphs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", id, err)
	}

	e, err := ir.UnmarshalCanonical([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("get graph %s: %w", id, err)
	}
	return e, nil
}

// Has reports whether a graph with the given identity is cached.
func (c *Cache) Has(ctx context.Context, id string) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM graphs WHERE id = ?`, id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check graph: %w", err)
	}
	return count > 0, nil
}

// applyPragmas sets the required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates the table if needed and stamps the schema version.
// A cache written by a newer schema is refused rather than misread.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("cache schema version %d is newer than supported version %d", version, schemaVersion)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (c *Cache) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := c.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
