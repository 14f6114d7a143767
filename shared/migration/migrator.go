package migration

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

// Migrator runs embedded SQL migrations against an existing connection
type Migrator struct {
	db         *sql.DB
	migrations embed.FS
	dir        string
}

// Config holds migration configuration
type Config struct {
	DB         *sql.DB
	Migrations embed.FS
	Dir        string
}

// NewMigrator creates a new migrator
func NewMigrator(config *Config) (*Migrator, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("migration requires an open database connection")
	}
	dir := config.Dir
	if dir == "" {
		dir = "migrations"
	}
	return &Migrator{
		db:         config.DB,
		migrations: config.Migrations,
		dir:        dir,
	}, nil
}

// Migrate runs all pending migrations. ErrNoChange is not an error.
func (m *Migrator) Migrate() error {
	source, err := iofs.New(m.migrations, m.dir)
	if err != nil {
		return fmt.Errorf("failed to open migration source: %w", err)
	}

	driver, err := postgres.WithInstance(m.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migration, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := migration.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
