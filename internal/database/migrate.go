package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrationLogger receives progress messages. *security.Logger satisfies it.
type MigrationLogger interface {
	Info(message string)
	Warn(message string)
}

func newMigrator(dbURL string) (*migrate.Migrate, error) {
	if dbURL == "" {
		return nil, errors.New("database URL not set")
	}
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migration instance: %w", err)
	}
	return m, nil
}

// RunMigrations applies all pending migrations embedded in the binary.
// A dirty version left by a crashed run is forced clean before retrying.
func RunMigrations(dbURL string, logger MigrationLogger) error {
	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Warn(fmt.Sprintf("could not read migration version: %v", err))
	}
	if dirty {
		logger.Warn(fmt.Sprintf("database dirty at version %d, forcing clean", version))
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("session schema is up to date")
			return nil
		}
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	version, _, _ = m.Version()
	logger.Info(fmt.Sprintf("session schema migrated to version %d", version))
	return nil
}

// RollbackMigration rolls back the last applied migration.
func RollbackMigration(dbURL string) error {
	m, err := newMigrator(dbURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("failed to rollback migration: %w", err)
	}
	return nil
}
