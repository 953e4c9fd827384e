package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS prompt_audits (
  id              TEXT        PRIMARY KEY,
  tenant_id       TEXT        NOT NULL,
  session_id      TEXT        NOT NULL,
  original_prompt TEXT        NOT NULL,
  bias_analysis   TEXT        NOT NULL,
  timestamp_iso   TEXT        NOT NULL,
  generated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_prompt_audits_tenant ON prompt_audits (tenant_id, generated_at DESC);`

// Migrate creates the archive table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
