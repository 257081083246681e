// Package migrations embeds the SQL schema and applies it with goose.
package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

// FS contains the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS

// Commands lists the goose operations Apply understands.
var Commands = map[string]func(db *sql.DB, dir string, opts ...goose.OptionsFunc) error{
	"up":      goose.Up,
	"up-one":  goose.UpByOne,
	"down":    goose.Down,
	"status":  goose.Status,
	"version": goose.Version,
	"reset":   goose.Reset,
}

func setup() error {
	goose.SetBaseFS(FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	return nil
}

// Run applies all pending migrations to the given database.
func Run(db *sql.DB) error {
	return Apply(db, "up")
}

// Apply runs a single named goose command against db.
func Apply(db *sql.DB, command string) error {
	fn, ok := Commands[command]
	if !ok {
		return fmt.Errorf("unknown command: %s", command)
	}
	if err := setup(); err != nil {
		return err
	}
	if err := fn(db, "."); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	return nil
}
