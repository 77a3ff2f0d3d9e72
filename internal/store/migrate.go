package store

import (
	"embed"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies any pending schema migrations.
//
// The migrations are embedded in the binary, so a deployment needs no schema
// files on disk: `petcert migrate` against a fresh database creates the full
// schema.
func (s *Postgres) Migrate() error {
	// goose drives database/sql, so borrow a database/sql view of the pgx
	// pool for the duration of the migration.
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}
