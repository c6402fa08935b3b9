package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clowder-server/internal/shared/config"
)

// migrationLockKey is the advisory lock shared by all server replicas;
// whichever replica grabs it applies pending migrations while the rest
// wait.
const migrationLockKey = 0x434c4f57 // "CLOW"

// RunMigrations applies every pending .sql file from the configured
// migrations directory in lexical order, one transaction per file.
func (db *DB) RunMigrations(ctx context.Context) error {
	logger := slog.With("component", "migrations")

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", migrationLockKey); err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", migrationLockKey); err != nil {
			logger.Error("Failed to release migration lock", "error", err)
		}
	}()

	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("failed to load applied migrations: %w", err)
	}

	files, err := migrationFiles()
	if err != nil {
		return fmt.Errorf("failed to list migration files: %w", err)
	}

	pending := 0
	for _, file := range files {
		version := filepath.Base(file)
		if applied[version] {
			continue
		}
		if err := db.applyMigration(ctx, file, version); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", version, err)
		}
		pending++
	}

	logger.Info("Migrations up to date", "total", len(files), "applied_now", pending)
	return nil
}

func (db *DB) createMigrationsTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version VARCHAR(255) PRIMARY KEY,
		applied_at TIMESTAMP DEFAULT NOW()
	)`

	_, err := db.ExecContext(ctx, query)
	return err
}

func (db *DB) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func migrationFiles() ([]string, error) {
	dir := config.GlobalConfig.Database.MigrationsPath

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

func (db *DB) applyMigration(ctx context.Context, file, version string) error {
	logger := slog.With("component", "migrations", "migration", version)

	content, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("failed to read migration file: %w", err)
	}

	logger.Info("Applying migration", "size_bytes", len(content))

	tx, err := db.BeginTxContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logger.Error("Failed to roll back migration transaction", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", version); err != nil {
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	logger.Info("Migration applied")
	return nil
}
