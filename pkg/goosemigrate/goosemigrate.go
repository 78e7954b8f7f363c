package goosemigrate

import (
	"fmt"
	"io/fs"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

type Migrator struct {
	postgresURL string
	migrations  fs.FS
	schemaName  string
}

func NewMigrator(postgresURL string, migrations fs.FS, schemaName string) *Migrator {
	return &Migrator{
		postgresURL: postgresURL,
		migrations:  migrations,
		schemaName:  schemaName,
	}
}

func (m *Migrator) prepare() {
	goose.SetBaseFS(m.migrations)
	goose.SetTableName(m.schemaName + "." + "migrations")
}

func (m *Migrator) Up() error {
	m.prepare()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	db, err := goose.OpenDBWithDriver("postgres", m.postgresURL)
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", m.schemaName))
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	err = goose.Up(db, ".")
	if err != nil {
		return fmt.Errorf("failed to up migrations: %w", err)
	}

	err = db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db for migration: %w", err)
	}

	return nil
}

func (m *Migrator) Down() error {
	m.prepare()

	db, err := goose.OpenDBWithDriver("postgres", m.postgresURL)
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}

	err = goose.Down(db, ".")
	if err != nil {
		return fmt.Errorf("failed to down migrations: %w", err)
	}

	_, err = db.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", m.schemaName))
	if err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}

	err = db.Close()
	if err != nil {
		return fmt.Errorf("failed to close db for migration: %w", err)
	}

	return nil
}
