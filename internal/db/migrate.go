package db

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func (db *DB) newMigrate() (*migrate.Migrate, error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migration source: %w", err)
	}

	// golang-migrate speaks database/sql; OpenDBFromPool shares our pool's
	// connection settings instead of dialing with a second DSN.
	sqlDB := stdlib.OpenDBFromPool(db.pool)
	driver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create migration instance: %w", err)
	}
	return m, nil
}

func (db *DB) closeMigrate(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		db.logger.Warn("failed to close migration source", zap.Error(srcErr))
	}
	if dbErr != nil {
		db.logger.Warn("failed to close migration database", zap.Error(dbErr))
	}
}

// Migrate applies every pending up migration. It is safe to call on every
// start: an up-to-date schema is not an error.
func (db *DB) Migrate() error {
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	defer db.closeMigrate(m)

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		db.logger.Info("no migrations to apply (database up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, _, _ := m.Version()
	db.logger.Info("applied migrations", zap.Uint("version", version))
	return nil
}

// MigrateDown rolls back `steps` migrations.
func (db *DB) MigrateDown(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	m, err := db.newMigrate()
	if err != nil {
		return err
	}
	defer db.closeMigrate(m)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version and whether the last
// migration failed halfway.
func (db *DB) MigrationVersion() (uint, bool, error) {
	m, err := db.newMigrate()
	if err != nil {
		return 0, false, err
	}
	defer db.closeMigrate(m)

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}
