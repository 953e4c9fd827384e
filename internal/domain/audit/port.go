package audit

import "context"

// Repository port for archiving completed records
type Repository interface {
	Save(ctx context.Context, r *Record) error
	Paginate(ctx context.Context, tenant string, page, pageSize int) ([]*Record, error)
	Count(ctx context.Context, tenant string) (int64, error)
}

// ArtifactStore port for keeping a copy of the downloadable JSON
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte) (string, error)
}

// ObjectKey builds the store key <tenant>/<session>/<filename>.
func ObjectKey(r *Record) string {
	return r.TenantID + "/" + r.SessionID + "/" + r.Filename()
}
