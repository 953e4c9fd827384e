package sqlite

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

func (r *AuditRepository) Save(ctx context.Context, a *domain.Record) error {
	const q = `
INSERT OR REPLACE INTO prompt_audits
  (id, tenant_id, session_id, original_prompt, bias_analysis, timestamp_iso, generated_at_ns)
VALUES (?,?,?,?,?,?,?)`
	generated := a.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q,
		string(a.ID), a.TenantID, a.SessionID,
		a.OriginalPrompt, a.BiasAnalysis, a.Timestamp, generated.UnixNano(),
	)
	return err
}

func (r *AuditRepository) Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*domain.Record, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, tenant_id, session_id, original_prompt, bias_analysis, timestamp_iso, generated_at_ns
FROM prompt_audits
WHERE tenant_id=?
ORDER BY generated_at_ns DESC, id DESC
LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, q, tenant, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		var a domain.Record
		var ns int64
		if err := rows.Scan(&a.ID, &a.TenantID, &a.SessionID, &a.OriginalPrompt, &a.BiasAnalysis, &a.Timestamp, &ns); err != nil {
			return nil, err
		}
		a.GeneratedAt = time.Unix(0, ns)
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *AuditRepository) Count(ctx context.Context, tenant string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM prompt_audits WHERE tenant_id=?`, tenant).Scan(&n)
	return n, err
}
