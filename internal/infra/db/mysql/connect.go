package mysql

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	// test ping
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
  id              VARCHAR(36)  NOT NULL PRIMARY KEY,
  tenant_id       VARCHAR(64)  NOT NULL,
  session_id      VARCHAR(128) NOT NULL,
  original_prompt MEDIUMTEXT   NOT NULL,
  bias_analysis   MEDIUMTEXT   NOT NULL,
  timestamp_iso   VARCHAR(32)  NOT NULL,
  generated_at    DATETIME(6)  NOT NULL,
  KEY idx_prompt_audits_tenant (tenant_id, generated_at)
) CHARACTER SET utf8mb4;`

// Migrate creates the archive table when missing.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, schema)
	return err
}
