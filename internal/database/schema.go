package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
)

//go:embed schema/*.sql
var schemaFiles embed.FS

// tables in dependency order; ClearData walks it backwards.
var tables = []string{"users", "franchises", "videos", "watchlists"}

// EnsureSchema creates any missing tables for the given driver. Existing
// tables are left as they are.
func EnsureSchema(ctx context.Context, db *sql.DB, driver string) error {
	content, err := schemaFiles.ReadFile("schema/" + schemaFile(driver))
	if err != nil {
		return fmt.Errorf("no schema for driver %q: %w", driver, err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(string(content)) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %q: %w", firstLine(stmt), err)
		}
	}
	return tx.Commit()
}

// ClearData deletes every row from every table, children first.
func ClearData(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+tables[i]); err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}
	return tx.Commit()
}

func schemaFile(driver string) string {
	if driver == DriverSQLite {
		return "sqlite.sql"
	}
	return driver + ".sql"
}

func splitStatements(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
