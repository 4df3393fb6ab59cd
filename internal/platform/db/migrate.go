package db

import (
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// RunMigrations applies pending goose migrations from dir against the
// database at dsn.
func RunMigrations(dsn, dir string) error {
	conn, err := goose.OpenDBWithDriver("pgx", dsn)
	if err != nil {
		return fmt.Errorf("db: open for migrations: %w", err)
	}
	defer conn.Close()

	if err := goose.Up(conn, dir); err != nil {
		return fmt.Errorf("db: apply migrations: %w", err)
	}
	return nil
}
