package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema. Every statement is idempotent
// (CREATE TABLE IF NOT EXISTS) so it is safe to run on each start.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range Statements(schemaSQL) {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}

// Statements splits a SQL script on ';' and drops blanks and comment lines.
func Statements(script string) []string {
	var out []string
	for _, raw := range strings.Split(script, ";") {
		var b strings.Builder
		for _, line := range strings.Split(raw, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if stmt := strings.TrimSpace(b.String()); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
