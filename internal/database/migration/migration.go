// Package migration applies the archive schema. Steps are numbered and
// recorded in schema_migrations, so a step runs at most once per database.
package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type step struct {
	Version int
	Name    string
	SQL     string
}

const createVersionTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
  version    INT         PRIMARY KEY,
  name       TEXT        NOT NULL,
  applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`

const recordVersion = `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`

// Append only; never renumber or edit an applied step.
var steps = []step{
	{1, "create_extension_uuid_ossp", `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`},
	{2, "create_table_generated_documents", `CREATE TABLE IF NOT EXISTS generated_documents (
  id              UUID          PRIMARY KEY DEFAULT uuid_generate_v4(),
  kind            TEXT          NOT NULL CHECK (kind IN ('quotation', 'supply', 'works')),
  filename        TEXT          NOT NULL,
  document_number TEXT          NOT NULL DEFAULT '',
  customer        TEXT          NOT NULL DEFAULT '',
  vendor          TEXT          NOT NULL DEFAULT '',
  grand_total     NUMERIC(14,2) NOT NULL DEFAULT 0,
  storage_path    TEXT          NOT NULL UNIQUE,
  size            BIGINT        NOT NULL CHECK (size >= 0),
  content_type    TEXT          NOT NULL,
  created_at      TIMESTAMPTZ   NOT NULL DEFAULT now()
);`},
	{3, "create_index_generated_documents_number", `CREATE INDEX IF NOT EXISTS idx_generated_documents_number ON generated_documents (document_number);`},
	{4, "create_index_generated_documents_created_at", `CREATE INDEX IF NOT EXISTS idx_generated_documents_created_at ON generated_documents (created_at);`},
}

func latest() int { return steps[len(steps)-1].Version }

func applied(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func apply(ctx context.Context, db *sql.DB, s step) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, s.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx, recordVersion, s.Version, s.Name); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// EnsureMigrated brings the schema up to the latest step. Each step runs in
// its own transaction together with its version row.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "database", "db_host", dbHost)
	start := time.Now()

	if _, err := db.ExecContext(ctx, createVersionTable); err != nil {
		logger.Error("db.migration.failed", "error", err)
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	done, err := applied(ctx, db)
	if err != nil {
		logger.Error("db.migration.failed", "error", err)
		return fmt.Errorf("read schema_migrations: %w", err)
	}

	ran := 0
	for _, s := range steps {
		if done[s.Version] {
			continue
		}
		stepStart := time.Now()
		if err := apply(ctx, db, s); err != nil {
			logger.Error("db.migration.failed", "version", s.Version, "step", s.Name, "error", err)
			return fmt.Errorf("migration step %d %s failed: %w", s.Version, s.Name, err)
		}
		ran++
		logger.Info("db.migration.step", "version", s.Version, "step", s.Name,
			"step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	if ran == 0 {
		logger.Info("db.migration.skip", "version", latest(), "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
	logger.Info("db.migration.done", "applied", ran, "version", latest(), "duration_ms", time.Since(start).Milliseconds())
	return nil
}
