package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DialectOf reports which database a connection URL points at. Anything that
// is not a postgres URL is treated as a sqlite DSN.
func DialectOf(url string) Dialect {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

func InitDatabase(url string) (*sql.DB, Dialect, error) {
	dialect := DialectOf(url)
	if dialect == DialectPostgres {
		db, err := sql.Open("pgx", url)
		if err != nil {
			return nil, dialect, fmt.Errorf("err opening postgres database: %w", err)
		}
		return db, dialect, nil
	}

	if path := sqlitePath(url); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			return nil, dialect, err
		}
	}
	db, err := sql.Open("sqlite", url)
	if err != nil {
		return nil, dialect, fmt.Errorf("err opening sqlite database: %w", err)
	}
	if err := configureSQLite(db); err != nil {
		db.Close()
		return nil, dialect, err
	}
	return db, dialect, nil
}

func configureSQLite(db *sql.DB) error {
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA temp_store=memory"); err != nil {
		return err
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return err
	}
	return nil
}

// sqlitePath returns the file behind a sqlite DSN, or "" for in-memory
// databases.
func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	path, _, _ = strings.Cut(path, "?")
	if path == "" || path == ":memory:" || strings.Contains(dsn, "mode=memory") {
		return ""
	}
	return path
}
