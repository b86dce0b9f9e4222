package queue

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; existing databases must be cleared or migrated by hand.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the
// expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// initSchema creates the schema on a fresh database and otherwise verifies
// the stored version. Schema DDL and the version stamp go in one transaction
// so a crash mid-create leaves nothing behind.
func (s *Store) initSchema(ctx context.Context) error {
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == nil:
		if version != schemaVersion {
			return fmt.Errorf("%w: database has version %d, expected %d (delete the database to reset)",
				ErrSchemaMismatch, version, schemaVersion)
		}
		return nil
	case errors.Is(err, sql.ErrNoRows) || isMissingTable(err):
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin schema tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_version"); err != nil {
			return fmt.Errorf("reset schema version: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return tx.Commit()
	default:
		return fmt.Errorf("read schema version: %w", err)
	}
}

// isMissingTable matches the "no such table" error a fresh database returns
// for the version probe.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
