// Package store implements Snapshot/Restore persistence for a Container's
// virtual file system, per SPEC_FULL.md §6.9, using sqlite the way the
// teacher's Boxer does (boxer.go) but with versioned golang-migrate
// migrations in place of a single embedded schema.sql.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/banksean/vcontainer/vfs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists Container snapshots to a sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at dbPath and
// brings its schema up to date.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open %q: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}
	if err := migrateUp(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}
	target, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("store: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", target)
	if err != nil {
		return fmt.Errorf("store: migrate init: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Snapshot persists every directory and file currently in fs under
// instanceID, replacing any snapshot previously stored for that instance.
func (s *Store) Snapshot(ctx context.Context, instanceID string, fs *vfs.FS) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin snapshot: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fs_entries WHERE instance_id = ?", instanceID); err != nil {
		return fmt.Errorf("store: clear prior snapshot: %w", err)
	}

	for _, dir := range fs.ListDirectories() {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO fs_entries (instance_id, path, kind, content) VALUES (?, ?, 'dir', NULL)",
			instanceID, dir); err != nil {
			return fmt.Errorf("store: snapshot dir %q: %w", dir, err)
		}
	}
	for _, path := range fs.ListFiles() {
		content, err := fs.ReadFile(path)
		if err != nil {
			return fmt.Errorf("store: read %q: %w", path, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO fs_entries (instance_id, path, kind, content) VALUES (?, ?, 'file', ?)",
			instanceID, path, content); err != nil {
			return fmt.Errorf("store: snapshot file %q: %w", path, err)
		}
	}
	return tx.Commit()
}

// Restore rebuilds fs from the snapshot stored under instanceID.
// Directories are applied before files (the ORDER BY puts kind='dir'
// first) so WriteFile never has to improvise an ancestor the snapshot
// didn't itself record.
func (s *Store) Restore(ctx context.Context, instanceID string, fs *vfs.FS) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT path, kind, content FROM fs_entries WHERE instance_id = ? ORDER BY kind = 'file', path",
		instanceID)
	if err != nil {
		return fmt.Errorf("store: query snapshot: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path, kind string
		var content []byte
		if err := rows.Scan(&path, &kind, &content); err != nil {
			return fmt.Errorf("store: scan snapshot row: %w", err)
		}
		switch kind {
		case "dir":
			if err := fs.CreateDirectory(path); err != nil {
				return fmt.Errorf("store: restore dir %q: %w", path, err)
			}
		case "file":
			if err := fs.WriteFile(path, content); err != nil {
				return fmt.Errorf("store: restore file %q: %w", path, err)
			}
		}
	}
	return rows.Err()
}
