// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/termquery/internal/dictionary"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS namespaces (
		prefix TEXT PRIMARY KEY,
		uri TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS properties (
		namespace_uri TEXT NOT NULL,
		local_name TEXT NOT NULL,
		type_namespace_uri TEXT NOT NULL,
		type_local_name TEXT NOT NULL,
		title TEXT,
		indexed INTEGER NOT NULL DEFAULT 1,
		source TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (namespace_uri, local_name)
	);

	CREATE INDEX IF NOT EXISTS idx_properties_type ON properties(type_namespace_uri, type_local_name);
	`
	_, err := db.Exec(schema)
	return err
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ListNamespaces returns all stored prefix -> uri bindings.
func (s *SQLiteStorage) ListNamespaces(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT prefix, uri FROM namespaces`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var prefix, uri string
		if err := rows.Scan(&prefix, &uri); err != nil {
			return nil, err
		}
		out[prefix] = uri
	}
	return out, rows.Err()
}

// ListProperties returns all stored properties.
func (s *SQLiteStorage) ListProperties(ctx context.Context) ([]*dictionary.PropertyDefinition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT namespace_uri, local_name, type_namespace_uri, type_local_name, title, indexed, source
		 FROM properties ORDER BY namespace_uri, local_name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var defs []*dictionary.PropertyDefinition
	for rows.Next() {
		var def dictionary.PropertyDefinition
		var title sql.NullString
		if err := rows.Scan(&def.Name.NamespaceURI, &def.Name.LocalName,
			&def.DataType.NamespaceURI, &def.DataType.LocalName, &title, &def.Indexed, &def.Source); err != nil {
			return nil, err
		}
		def.Title = title.String
		defs = append(defs, &def)
	}
	return defs, rows.Err()
}

func saveNamespace(ctx context.Context, db execer, prefix, uri string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO namespaces (prefix, uri) VALUES (?, ?)
		 ON CONFLICT(prefix) DO UPDATE SET uri = excluded.uri`,
		prefix, uri,
	)
	return err
}

func saveProperty(ctx context.Context, db execer, def *dictionary.PropertyDefinition) error {
	if def.Name.IsZero() {
		return fmt.Errorf("property name cannot be empty")
	}
	_, err := db.ExecContext(ctx,
		`INSERT INTO properties (namespace_uri, local_name, type_namespace_uri, type_local_name, title, indexed, source, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(namespace_uri, local_name) DO UPDATE SET
		   type_namespace_uri = excluded.type_namespace_uri,
		   type_local_name = excluded.type_local_name,
		   title = excluded.title,
		   indexed = excluded.indexed,
		   source = excluded.source,
		   updated_at = excluded.updated_at`,
		def.Name.NamespaceURI, def.Name.LocalName,
		def.DataType.NamespaceURI, def.DataType.LocalName,
		def.Title, def.Indexed, def.Source, time.Now(),
	)
	return err
}

func deleteProperty(ctx context.Context, db execer, name dictionary.QName) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM properties WHERE namespace_uri = ? AND local_name = ?`,
		name.NamespaceURI, name.LocalName,
	)
	return err
}

func propertyNames(ctx context.Context, db querier) ([]dictionary.QName, error) {
	rows, err := db.QueryContext(ctx, `SELECT namespace_uri, local_name FROM properties`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []dictionary.QName
	for rows.Next() {
		var name dictionary.QName
		if err := rows.Scan(&name.NamespaceURI, &name.LocalName); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// SaveRegistry makes the stored dictionary match reg in one transaction: namespaces and
// properties are upserted and properties no longer in reg are deleted.
func (s *SQLiteStorage) SaveRegistry(ctx context.Context, reg *dictionary.Registry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for prefix, uri := range reg.Namespaces() {
		if err := saveNamespace(ctx, tx, prefix, uri); err != nil {
			return fmt.Errorf("failed to save namespace %q: %w", prefix, err)
		}
	}

	stored, err := propertyNames(ctx, tx)
	if err != nil {
		return fmt.Errorf("failed to list stored properties: %w", err)
	}
	for _, name := range stored {
		if reg.GetProperty(name) != nil {
			continue
		}
		if err := deleteProperty(ctx, tx, name); err != nil {
			return fmt.Errorf("failed to delete property %s: %w", name, err)
		}
	}

	for _, def := range reg.Properties() {
		def := def
		if err := saveProperty(ctx, tx, &def); err != nil {
			return fmt.Errorf("failed to save property %s: %w", def.Name, err)
		}
	}
	return tx.Commit()
}

// LoadRegistry builds a Registry from the stored namespaces and properties.
func (s *SQLiteStorage) LoadRegistry(ctx context.Context) (*dictionary.Registry, error) {
	namespaces, err := s.ListNamespaces(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defs, err := s.ListProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	reg := dictionary.NewRegistry()
	for prefix, uri := range namespaces {
		if err := reg.RegisterNamespace(prefix, uri); err != nil {
			return nil, err
		}
	}
	for _, def := range defs {
		if err := reg.AddProperty(*def); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// CountProperties returns the total number of stored properties.
func (s *SQLiteStorage) CountProperties(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM properties`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
