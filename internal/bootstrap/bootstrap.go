// Package bootstrap turns a loaded config into the concrete adapters shared by
// the HTTP server and the CLI.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/prompt-integrity/internal/config"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
	openaiclient "github.com/bryanwahyu/prompt-integrity/internal/infra/ai/openai"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/ai/stub"
	mysqlp "github.com/bryanwahyu/prompt-integrity/internal/infra/db/mysql"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/db/postgres"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/db/sqlite"
	minioStore "github.com/bryanwahyu/prompt-integrity/internal/infra/storage"
)

// Client selects the completion provider. The OpenAI client has no timeout
// of its own; a call is bounded only by the caller's context.
func Client(cfg *config.Config) (ai.Client, error) {
	switch cfg.OpenAI.Provider {
	case "stub":
		return stub.NewClient(), nil
	case "openai":
		if err := cfg.RequireAPIKey(); err != nil {
			return nil, err
		}
		return openaiclient.NewClient(
			cfg.OpenAI.APIKey.Reveal(),
			cfg.OpenAI.Model,
			cfg.OpenAI.BaseURL,
			nil,
		), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.OpenAI.Provider)
	}
}

// Archive opens the configured audit archive. It returns a nil repository and
// a nil db when no driver is configured; callers close the db.
func Archive(ctx context.Context, cfg *config.Config) (audit.Repository, *sql.DB, error) {
	switch cfg.Archive.Driver {
	case "":
		return nil, nil, nil
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return mysqlp.NewAuditRepository(db), db, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		return postgres.NewAuditRepository(db), db, nil
	case "sqlite":
		db, err := sqlite.Open(ctx, cfg.Archive.Path)
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewAuditRepository(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown archive driver %q", cfg.Archive.Driver)
	}
}

// Artifacts connects the MinIO bucket when enabled; nil otherwise.
func Artifacts(ctx context.Context, cfg *config.Config) (*minioStore.Store, error) {
	if !cfg.Minio.Enabled {
		return nil, nil
	}
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey.Reveal(),
		cfg.Minio.UseSSL,
	)
	if err != nil {
		return nil, fmt.Errorf("minio init: %w", err)
	}
	return store, nil
}

// LogSummary writes one line describing the wiring, without secrets.
func LogSummary(log *zap.Logger, cfg *config.Config) {
	log.Info("configuration loaded",
		zap.String("provider", cfg.OpenAI.Provider),
		zap.String("model", cfg.OpenAI.Model),
		zap.Stringer("api_key", cfg.OpenAI.APIKey),
		zap.Int("default_threshold", cfg.Threshold()),
		zap.String("archive", cfg.Archive.Driver),
		zap.Bool("minio", cfg.Minio.Enabled),
		zap.Int("tenants", len(cfg.TenantKeys())),
	)
}
