package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaFS embed.FS

const (
	// CurrentSchemaVersion is the version of the database schema
	CurrentSchemaVersion = 1
)

// DB manages the SQLite database connection and schema migrations
type DB struct {
	sqlDB *sql.DB
	path  string
}

// Open opens or creates a database at the given path
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapErr("open database", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, wrapErr("ping database", err)
	}

	db := &DB{
		sqlDB: sqlDB,
		path:  path,
	}

	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.sqlDB.Close()
}

// SQLDB returns the underlying *sql.DB for direct queries
func (db *DB) SQLDB() *sql.DB {
	return db.sqlDB
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	version, err := db.getSchemaVersion()
	if err != nil {
		return err
	}

	if version >= CurrentSchemaVersion {
		return nil
	}

	tx, err := db.sqlDB.Begin()
	if err != nil {
		return wrapErr("begin migration", err)
	}
	defer tx.Rollback()

	if version != 0 {
		// TODO: incremental migrations once schema version 2 exists
		return fmt.Errorf("incremental migrations not yet implemented (current version: %d, target: %d)", version, CurrentSchemaVersion)
	}

	schema, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}

	if _, err := tx.Exec(string(schema)); err != nil {
		return wrapErr("apply schema", err)
	}

	if _, err := tx.Exec(
		"INSERT INTO schema_version (version, applied_at) VALUES (?, ?)",
		CurrentSchemaVersion,
		formatTime(time.Now()),
	); err != nil {
		return wrapErr("set schema version", err)
	}

	if err := tx.Commit(); err != nil {
		return wrapErr("commit migration", err)
	}

	return nil
}

func (db *DB) getSchemaVersion() (int, error) {
	var exists int
	if err := db.sqlDB.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&exists); err != nil {
		return 0, wrapErr("check schema_version table", err)
	}

	if exists == 0 {
		return 0, nil
	}

	var version int
	if err := db.sqlDB.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, wrapErr("get schema version", err)
	}

	return version, nil
}

// BeginTx starts a new transaction
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := db.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr("begin transaction", err)
	}
	return tx, nil
}

// Stats returns database statistics
func (db *DB) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}

	counts := []struct {
		query string
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM videos", &stats.VideoCount},
		{"SELECT COUNT(*) FROM chunks", &stats.ChunkCount},
		{"SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL", &stats.EmbeddedChunkCount},
		{"SELECT COUNT(*) FROM relationships", &stats.RelationshipCount},
		{"SELECT COUNT(*) FROM temporal_metadata", &stats.TemporalCount},
	}
	for _, c := range counts {
		if err := db.sqlDB.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, wrapErr("stats", err)
		}
	}

	if info, err := os.Stat(db.path); err == nil {
		stats.SizeBytes = info.Size()
	}

	return stats, nil
}

// DBStats represents database statistics
type DBStats struct {
	VideoCount         int64 `json:"videos"`
	ChunkCount         int64 `json:"chunks"`
	EmbeddedChunkCount int64 `json:"embedded_chunks"`
	RelationshipCount  int64 `json:"relationships"`
	TemporalCount      int64 `json:"temporal_metadata"`
	SizeBytes          int64 `json:"size_bytes"`
}
