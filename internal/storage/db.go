package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"khidma/internal/config"
)

// Driver names registered by the imported drivers.
const (
	driverSQLite   = "sqlite"
	driverPostgres = "postgres"
)

// Options selects the backend to open.
type Options struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
}

// OptionsFromConfig maps the runtime configuration to storage options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Backend:     cfg.DataBackend,
		SQLitePath:  cfg.SQLiteDBPath,
		DatabaseURL: cfg.DatabaseURL,
	}
}

func (o Options) driver() string {
	if o.Backend == config.BackendPostgres {
		return driverPostgres
	}
	return driverSQLite
}

func (o Options) dsn() string {
	if o.Backend == config.BackendPostgres {
		return o.DatabaseURL
	}
	return sqliteDSN(o.SQLitePath)
}

// sqliteDSN enables foreign keys and a busy timeout on every connection.
func sqliteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Open connects to the configured backend, waits until it answers and runs
// the pending migrations.
func Open(ctx context.Context, opts Options) (*Repository, error) {
	if opts.driver() == driverSQLite {
		if dir := filepath.Dir(opts.SQLitePath); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create data directory: %w", err)
			}
		}
	}

	db, err := sqlx.Open(opts.driver(), opts.dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if opts.driver() == driverSQLite {
		// single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := ping(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := RunMigrations(opts); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewRepository(db), nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("DB ping: %w", ctx.Err())
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return fmt.Errorf("DB ping timeout: %w", err)
}
