package prompts

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bryanwahyu/prompt-integrity/internal/application"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
)

var (
	ErrNoRecord        = errors.New("no audit record for this session")
	ErrSessionBusy     = errors.New("an analysis is already running for this session")
	ErrArchiveDisabled = errors.New("audit archive is not configured")
)

// Service runs prompt analyses. Archive and Artifacts are optional.
// Safe for concurrent use across sessions.
type Service struct {
	Client    ai.Client
	Sessions  *SessionStore
	Archive   audit.Repository
	Artifacts audit.ArtifactStore
	Clock     application.Clock
	Logger    *zap.Logger
}

// NewService wires a service with an empty session store and the system clock.
func NewService(client ai.Client, logger *zap.Logger) *Service {
	return &Service{
		Client:   client,
		Sessions: NewSessionStore(),
		Clock:    application.SystemClock{},
		Logger:   logger,
	}
}

//
// ==== USE CASES ====
//

type AnalyzeCommand struct {
	TenantID  string
	SessionID string
	Prompt    string
	Threshold int
}

type AnalyzeResult struct {
	Record      *audit.Record `json:"record"`
	Analysis    string        `json:"analysis"`
	Verdict     bias.Verdict  `json:"verdict"`
	Score       *int          `json:"score,omitempty"`
	Threshold   int           `json:"threshold"`
	Archived    bool          `json:"archived"`
	ArtifactURL string        `json:"artifact_url,omitempty"`
}

// Analyze sends the prompt once and, on success, records the interaction as
// the session's latest audit record. A failed call returns the ServiceError
// and leaves the session untouched.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (*AnalyzeResult, error) {
	if err := bias.ValidateThreshold(cmd.Threshold); err != nil {
		return nil, err
	}

	key := SessionKey{TenantID: cmd.TenantID, SessionID: cmd.SessionID}
	if err := s.Sessions.begin(key); err != nil {
		return nil, err
	}
	defer s.Sessions.end(key)

	log := s.logger().With(
		zap.String("tenant", cmd.TenantID),
		zap.String("session", cmd.SessionID),
	)
	log.Info("analyzing prompt", zap.Int("prompt_len", len(cmd.Prompt)), zap.Int("threshold", cmd.Threshold))

	resp, err := s.Client.Analyze(ctx, ai.NewAnalysisRequest(cmd.Prompt))
	if err != nil {
		log.Warn("analysis failed", zap.Error(err))
		return nil, err
	}

	rec := audit.NewRecord(cmd.TenantID, cmd.SessionID, cmd.Prompt, resp.RawText, s.clock().Now())

	score, ok := bias.ExtractScore(resp.RawText)
	res := &AnalyzeResult{
		Record:    rec,
		Analysis:  resp.RawText,
		Verdict:   bias.Decide(score, ok, cmd.Threshold),
		Threshold: cmd.Threshold,
	}
	if ok {
		res.Score = &score
	}

	s.Sessions.put(key, rec)
	res.Archived, res.ArtifactURL = s.archive(ctx, log, rec)

	log.Info("analysis complete",
		zap.String("record_id", string(rec.ID)),
		zap.String("verdict", string(res.Verdict)),
		zap.Bool("score_found", ok),
	)
	return res, nil
}

// Latest returns the session's latest record or ErrNoRecord.
func (s *Service) Latest(tenant, session string) (*audit.Record, error) {
	rec, ok := s.Sessions.Latest(SessionKey{TenantID: tenant, SessionID: session})
	if !ok {
		return nil, ErrNoRecord
	}
	return rec, nil
}

// Download returns the filename and body of the session's audit artifact.
// It never falls back to the archive: without a successful analysis in this
// session there is nothing to download.
func (s *Service) Download(tenant, session string) (string, []byte, error) {
	rec, err := s.Latest(tenant, session)
	if err != nil {
		return "", nil, err
	}
	body, err := audit.MarshalArtifact(rec)
	if err != nil {
		return "", nil, err
	}
	return rec.Filename(), body, nil
}

// Forget clears the session's record.
func (s *Service) Forget(tenant, session string) {
	s.Sessions.Forget(SessionKey{TenantID: tenant, SessionID: session})
}

// History lists a page of archived records, newest first.
func (s *Service) History(ctx context.Context, tenant string, page, pageSize int) (*audit.PaginatedResult, error) {
	if s.Archive == nil {
		return nil, ErrArchiveDisabled
	}
	list, err := s.Archive.Paginate(ctx, tenant, page, pageSize)
	if err != nil {
		return nil, fmt.Errorf("list audit archive: %w", err)
	}
	total, err := s.Archive.Count(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("count audit archive: %w", err)
	}
	return audit.NewPaginatedResult(list, page, pageSize, total), nil
}

// archive is best effort; failures are logged and never fail the interaction.
func (s *Service) archive(ctx context.Context, log *zap.Logger, rec *audit.Record) (bool, string) {
	archived := false
	if s.Archive != nil {
		if err := s.Archive.Save(ctx, rec); err != nil {
			log.Warn("audit archive save failed", zap.String("record_id", string(rec.ID)), zap.Error(err))
		} else {
			archived = true
		}
	}

	var url string
	if s.Artifacts != nil {
		body, err := audit.MarshalArtifact(rec)
		if err == nil {
			url, err = s.Artifacts.Put(ctx, audit.ObjectKey(rec), body)
		}
		if err != nil {
			log.Warn("audit artifact upload failed", zap.String("record_id", string(rec.ID)), zap.Error(err))
		}
	}
	return archived, url
}

func (s *Service) clock() application.Clock {
	if s.Clock == nil {
		return application.SystemClock{}
	}
	return s.Clock
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
