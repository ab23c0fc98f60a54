package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var requiredTables = []string{"entries", "tags", "entry_tags", "schema_version"}

var requiredIndexes = []string{
	"idx_entries_date",
	"idx_entries_entry_type",
	"idx_entries_currency",
	"idx_tags_name",
}

// RunMigrations applies every pending migration to the database at dbPath in
// ascending version order.
func RunMigrations(dbPath string) error {
	// Create a separate connection for migrations to avoid interfering with the main connection
	migrateDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := sqlite.WithInstance(migrateDB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// LatestSchemaVersion returns the highest migration version embedded in the
// binary.
func LatestSchemaVersion() (uint, error) {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("create iofs source: %w", err)
	}
	defer d.Close()

	v, err := d.First()
	if err != nil {
		return 0, fmt.Errorf("first migration: %w", err)
	}
	for {
		next, err := d.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, fmt.Errorf("next migration after %d: %w", v, err)
		}
		v = next
	}
}

// SchemaVersion reads the version marker row.
func SchemaVersion(ctx context.Context, db *sql.DB) (version int, updatedAt string, err error) {
	row := db.QueryRowContext(ctx, `SELECT version, updated_at FROM schema_version WHERE id = 1`)
	if err := row.Scan(&version, &updatedAt); err != nil {
		return 0, "", fmt.Errorf("read schema version: %w", err)
	}
	return version, updatedAt, nil
}

// ValidateSchema checks that every table and index exists and that the
// version marker matches the latest embedded migration.
func ValidateSchema(ctx context.Context, db *sql.DB) error {
	present := map[string]bool{}
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type IN ('table', 'index')`)
	if err != nil {
		return fmt.Errorf("list schema objects: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan schema object: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list schema objects: %w", err)
	}

	var missing []string
	for _, name := range append(append([]string{}, requiredTables...), requiredIndexes...) {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema is missing %v", missing)
	}

	version, _, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}
	latest, err := LatestSchemaVersion()
	if err != nil {
		return err
	}
	if uint(version) != latest {
		return fmt.Errorf("schema version %d does not match latest migration %d", version, latest)
	}
	return nil
}

// schemaTimeout bounds the validation queries run while opening a ledger.
const schemaTimeout = 10 * time.Second
