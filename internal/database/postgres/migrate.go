// internal/database/postgres/migrate.go
package postgres

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	pgmigrate "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending migration.
func (s *Store) MigrateUp() error {
	return s.migrate(func(m *migrate.Migrate) error { return m.Up() })
}

// MigrateDown reverts every applied migration.
func (s *Store) MigrateDown() error {
	return s.migrate(func(m *migrate.Migrate) error { return m.Down() })
}

func (s *Store) migrate(step func(*migrate.Migrate) error) error {
	// Closing this *sql.DB leaves the pool open.
	db := stdlib.OpenDBFromPool(s.pool)
	driver, err := pgmigrate.WithInstance(db, &pgmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("creating migration driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		driver.Close()
		return fmt.Errorf("loading migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		driver.Close()
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
