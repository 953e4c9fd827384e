package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
)

type AuditRepository struct {
	db *sql.DB
}

func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Save inserts an audit record
func (r *AuditRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO prompt_audits
  (id, tenant_id, session_id, original_prompt, bias_analysis, timestamp_iso, generated_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  original_prompt=VALUES(original_prompt), bias_analysis=VALUES(bias_analysis),
  timestamp_iso=VALUES(timestamp_iso), generated_at=VALUES(generated_at);
`
	generated := a.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.TenantID), stringOrDash(a.SessionID),
		a.OriginalPrompt, a.BiasAnalysis, a.Timestamp, generated.UTC(),
	)
	return err
}

// Paginate returns a page of audit records ordered by generated_at desc
func (r *AuditRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Record, error) {
	limit, offset := pageBounds(page, pageSize)

	const q = `
SELECT id, tenant_id, session_id, original_prompt, bias_analysis, timestamp_iso, generated_at
FROM prompt_audits
WHERE tenant_id=?
ORDER BY generated_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var a domain.Record
		if err := rows.Scan(&a.ID, &a.TenantID, &a.SessionID, &a.OriginalPrompt, &a.BiasAnalysis, &a.Timestamp, &a.GeneratedAt); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// Count returns the number of archived records for a tenant
func (r *AuditRepository) Count(ctx context.Context, tenant string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_audits WHERE tenant_id=?`, tenant).Scan(&n)
	return n, err
}
