package store

import (
	"database/sql"
	"fmt"
	"path"

	assets "github.com/haatos/simple-build"
	"github.com/haatos/simple-build/internal"
	"github.com/pressly/goose/v3"
)

func RunMigrations(db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(assets.MigrationsFS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(dialect)); err != nil {
		return err
	}
	if err := goose.Up(db, path.Join(internal.MigrationsDir, string(dialect))); err != nil {
		return fmt.Errorf("err running %s migrations: %w", dialect, err)
	}
	return nil
}
