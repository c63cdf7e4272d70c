package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS prompts (
	id       TEXT PRIMARY KEY,
	category TEXT NOT NULL,
	content  TEXT NOT NULL,
	position INTEGER NOT NULL DEFAULT 0
)`

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	dsn := filepath.Clean(path) + "?_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create prompts table: %w", err)
	}
	return db, nil
}

// LoadSQLite reads a catalog from the prompts table of the database at path.
func LoadSQLite(ctx context.Context, path string) (*Catalog, error) {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, category, content FROM prompts ORDER BY category, position, id`)
	if err != nil {
		return nil, fmt.Errorf("query prompts: %w", err)
	}
	defer rows.Close()

	var prompts []Prompt
	for rows.Next() {
		var p Prompt
		var cat string
		if err := rows.Scan(&p.ID, &cat, &p.Content); err != nil {
			return nil, fmt.Errorf("scan prompt: %w", err)
		}
		p.Category = Category(cat)
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prompts: %w", err)
	}
	c, err := New(prompts...)
	if err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	return c, nil
}

// WriteSQLite replaces the prompts table of the database at path with c.
func WriteSQLite(ctx context.Context, path string, c *Catalog) error {
	db, err := openSQLite(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM prompts`); err != nil {
		return fmt.Errorf("clear prompts: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO prompts (id, category, content, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, cat := range Categories {
		for i, p := range c.pools[cat] {
			if _, err := stmt.ExecContext(ctx, p.ID, string(p.Category), p.Content, i); err != nil {
				return fmt.Errorf("insert prompt %s: %w", p.ID, err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
