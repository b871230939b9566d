package db

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// RunMigrations brings the deployment record store schema up to date by
// applying all pending goose migrations from dir.
func RunMigrations(databaseURL, dir string) error {
	store, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open record store: %w", err)
	}
	defer store.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(store, dir); err != nil {
		return fmt.Errorf("migrate record store: %w", err)
	}

	return nil
}
