// Package sqlite stores the application snapshot in an embedded SQLite database.
//
// WHY SQLITE FOR A SINGLE DOCUMENT?
// The default backend is a flat JSON file. SQLite gives the same "one file on
// disk" deployment with a real journal: every Save runs in a transaction, so a
// crash mid-write leaves the previous snapshot intact instead of a torn file.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C compiler
// installed and cross-compilation becomes painful. modernc.org/sqlite is a pure Go
// translation of the SQLite C code, so no C compiler is needed.
//
// SCHEMA:
// A single-row table keyed by id = 1. The document column holds exactly what the
// JSON file backend would write, so switching backends is a copy of one value.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	// BLANK IMPORT:
	// The underscore import `_ "modernc.org/sqlite"` is a "side-effect only" import.
	// Its init() registers the driver with database/sql under the name "sqlite".
	_ "modernc.org/sqlite"

	"github.com/sakif/price-compare/internal/model"
	"github.com/sakif/price-compare/internal/repository"
)

// compile-time check that *DB implements repository.SnapshotRepository
var _ repository.SnapshotRepository = (*DB)(nil)

// snapshotRowID is the primary key of the only row in the snapshots table.
const snapshotRowID = 1

// DB wraps a sql.DB connection pool.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/state.db"  → file-based database (persistent)
//   - ":memory:"       → in-memory database (great for tests, lost on close)
//
// CONNECTION POOL:
// sql.Open() does NOT actually open a connection; it just creates a pool manager.
// We call Ping() to force an immediate connection and verify it works.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// ":memory:" gives every pooled connection its own private database.
	// One connection keeps tests (and the single writer) on the same one.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL (Write-Ahead Logging) mode keeps the last committed snapshot readable
	// while a new one is being written.
	if !strings.Contains(dbPath, ":memory:") {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{conn: conn, logger: logger}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the snapshots table.
// CREATE TABLE IF NOT EXISTS is safe to run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			id       INTEGER PRIMARY KEY CHECK (id = 1),
			document TEXT NOT NULL,
			saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating snapshots table: %w", err)
	}
	return nil
}

// Load reads the stored snapshot.
// Returns repository.ErrNoSnapshot when nothing has been saved yet.
func (db *DB) Load(ctx context.Context) (*model.Snapshot, error) {
	var document string
	err := db.conn.QueryRowContext(ctx,
		`SELECT document FROM snapshots WHERE id = ?`, snapshotRowID,
	).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoSnapshot
		}
		return nil, fmt.Errorf("sqlite: reading snapshot: %w", err)
	}

	snap, dropped, err := repository.DecodeSnapshot([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("sqlite: %w", err)
	}
	if len(dropped) > 0 {
		db.logger.Warn("snapshot fields were malformed and reset to empty",
			slog.String("fields", strings.Join(dropped, ",")),
		)
	}
	return snap, nil
}

// Save replaces the stored snapshot inside a transaction.
//
// ON CONFLICT ... DO UPDATE is SQLite's upsert: the first Save inserts row 1,
// every later Save overwrites it.
func (db *DB) Save(ctx context.Context, snap *model.Snapshot) error {
	document, err := repository.EncodeSnapshot(snap)
	if err != nil {
		return err
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	// Rollback after Commit is a no-op, so deferring it is always safe.
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshots (id, document, saved_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET document = excluded.document, saved_at = excluded.saved_at`,
		snapshotRowID, string(document), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: writing snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing snapshot: %w", err)
	}
	return nil
}
