package postgres

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

// Save inserts or updates an audit record
func (r *AuditRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT INTO prompt_audits
  (id, tenant_id, session_id, original_prompt, bias_analysis, timestamp_iso, generated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  original_prompt=EXCLUDED.original_prompt,
  bias_analysis=EXCLUDED.bias_analysis,
  timestamp_iso=EXCLUDED.timestamp_iso,
  generated_at=EXCLUDED.generated_at;
`
	generated := a.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	prompt := stripNUL(a.OriginalPrompt)
	analysis := stripNUL(a.BiasAnalysis)

	_, err := r.db.ExecContext(ctx, q,
		a.ID, stringOrDash(a.TenantID), stringOrDash(a.SessionID),
		prompt, analysis, a.Timestamp, generated,
	)
	return err
}

// Paginate returns a page of audit records ordered by generated_at desc
func (r *AuditRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Record, error) {
	limit, offset := pageBounds(page, pageSize)

	const q = `
SELECT id, tenant_id, session_id, original_prompt, bias_analysis, timestamp_iso, generated_at
FROM prompt_audits
WHERE tenant_id=$1
ORDER BY generated_at DESC, id DESC
LIMIT $2 OFFSET $3;
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
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_audits WHERE tenant_id=$1`, tenant).Scan(&n)
	return n, err
}
