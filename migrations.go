package relay

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationFiles contains the SQL migrations embedded in the binary, one
// directory per driver: migrations/sqlite3, migrations/mysql, migrations/postgres.
//
//go:embed migrations
var MigrationFiles embed.FS

// Migrate applies every pending migration for driverName ("sqlite3", "mysql"
// or "postgres") to db. MySQL connections must allow multiple statements
// (multiStatements=true in the DSN). db is left open.
func Migrate(db *sql.DB, driverName string) error {
	m, err := newMigrator(db, driverName)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return NewErrorWithCause(ErrCodeDatabase, "failed to apply migrations", err)
	}
	return nil
}

// MigrationVersion reports the applied schema version and whether the last
// migration failed halfway. A fresh database returns version 0.
func MigrationVersion(db *sql.DB, driverName string) (uint, bool, error) {
	m, err := newMigrator(db, driverName)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, NewErrorWithCause(ErrCodeDatabase, "failed to read migration version", err)
	}
	return version, dirty, nil
}

func newMigrator(db *sql.DB, driverName string) (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case "sqlite3":
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	case "mysql":
		driver, err = mysql.WithInstance(db, &mysql.Config{})
	case "postgres":
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		return nil, NewError(ErrCodeConfiguration, fmt.Sprintf("unsupported database driver %q", driverName))
	}
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to open migration driver", err)
	}

	source, err := iofs.New(MigrationFiles, "migrations/"+driverName)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeConfiguration, "failed to open embedded migrations", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return nil, NewErrorWithCause(ErrCodeDatabase, "failed to create migrator", err)
	}
	return m, nil
}
