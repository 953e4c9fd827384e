package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS prompt_audits (
	id              TEXT PRIMARY KEY,
	tenant_id       TEXT NOT NULL,
	session_id      TEXT NOT NULL,
	original_prompt TEXT NOT NULL,
	bias_analysis   TEXT NOT NULL,
	timestamp_iso   TEXT NOT NULL,
	generated_at_ns INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompt_audits_tenant ON prompt_audits(tenant_id, generated_at_ns);
`

// Open opens (or creates) the local history database and its schema.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init history schema: %w", err)
	}
	return db, nil
}
