package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded migrations of the selected backend.
func RunMigrations(opts Options) error {
	// Create a separate connection for migrations: closing the migrate
	// instance closes its database handle.
	migrateDB, err := sql.Open(opts.driver(), opts.dsn())
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var (
		driver database.Driver
		dir    string
	)
	switch opts.driver() {
	case driverPostgres:
		driver, err = postgres.WithInstance(migrateDB, &postgres.Config{})
		dir = "migrations/postgres"
	default:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
		dir = "migrations/sqlite"
	}
	if err != nil {
		return fmt.Errorf("create %s driver: %w", opts.driver(), err)
	}

	d, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, opts.driver(), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}
