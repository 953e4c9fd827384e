package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appprompts "github.com/bryanwahyu/prompt-integrity/internal/application/prompts"
	domai "github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
	"github.com/bryanwahyu/prompt-integrity/internal/middleware"
)

// maxBodyBytes caps the analyze request body; the prompt itself has no
// separate limit.
const maxBodyBytes = 1 << 20

type Options struct {
	DefaultThreshold int
	TenantKeys       map[string]string // empty disables auth
	AllowedOrigins   []string
	Limiter          *middleware.RateLimiter
	Dependencies     map[string]middleware.Dependency
	Readiness        *middleware.Readiness
	Logger           *zap.Logger
}

type Router struct {
	promptsSvc *appprompts.Service
	opts       Options
	log        *zap.Logger
}

func NewRouter(promptsSvc *appprompts.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Readiness == nil {
		opts.Readiness = &middleware.Readiness{}
	}
	r := &Router{promptsSvc: promptsSvc, opts: opts, log: opts.Logger}
	mux := chi.NewRouter()

	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.Logging(opts.Logger))
	if len(opts.AllowedOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Content-Disposition"},
			MaxAge:         300,
		}))
	}

	mux.Get("/health", middleware.HealthHandler(opts.Dependencies))
	mux.Get("/healthz/live", middleware.LivenessHandler)
	mux.Method(http.MethodGet, "/healthz/ready", opts.Readiness)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		if len(opts.TenantKeys) > 0 {
			rt.Use(middleware.APIKeyAuth(opts.TenantKeys))
		}
		rt.Use(middleware.RequireTenantMatch)
		if opts.Limiter != nil {
			rt.Use(middleware.RateLimit(opts.Limiter))
		}

		rt.Route("/sessions/{session}", func(st chi.Router) {
			st.Post("/analyze", r.wrap(r.handleAnalyze))
			st.Get("/audit", r.wrap(r.handleLatest))
			st.Get("/audit/download", r.wrap(r.handleDownload))
			st.Delete("/audit", r.wrap(r.handleForget))
		})
		rt.Get("/audits", r.wrap(r.handleHistory))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// badRequest marks client input errors.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}

		var br badRequest
		var se *domai.ServiceError
		switch {
		case errors.As(err, &br), errors.Is(err, bias.ErrInvalidThreshold):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, appprompts.ErrNoRecord):
			http.Error(w, "no audit record for this session", http.StatusNotFound)
		case errors.Is(err, appprompts.ErrSessionBusy):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, appprompts.ErrArchiveDisabled):
			http.Error(w, err.Error(), http.StatusNotImplemented)
		case errors.Is(err, domai.ErrQuotaExceeded):
			w.Header().Set("Retry-After", "60")
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		case errors.As(err, &se):
			// the run fails visibly; the detail stays in the server log
			http.Error(w, se.Kind.Error(), http.StatusBadGateway)
		default:
			r.log.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func sessionParams(req *http.Request) (string, string, error) {
	tenant := chi.URLParam(req, "tenant")
	session := chi.URLParam(req, "session")
	if err := middleware.ValidateSessionID(session); err != nil {
		return "", "", badRequest{err}
	}
	return tenant, session, nil
}

type analyzeResponse struct {
	*appprompts.AnalyzeResult
	Message     string `json:"message,omitempty"`
	DownloadURL string `json:"download_url"`
}

// POST /v1/{tenant}/sessions/{session}/analyze
// Body: {"prompt": "...", "threshold": 5}
func (r *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	tenant, session, err := sessionParams(req)
	if err != nil {
		return err
	}

	var body struct {
		Prompt    *string `json:"prompt"`
		Threshold *int    `json:"threshold"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return badRequest{fmt.Errorf("invalid body: %w", err)}
	}
	if body.Prompt == nil {
		return badRequest{errors.New("prompt is required (may be empty)")}
	}
	// body wins over ?threshold=, which wins over the configured default
	threshold, err := middleware.ParseThreshold(req.URL.Query().Get("threshold"), r.opts.DefaultThreshold)
	if err != nil {
		return err
	}
	if body.Threshold != nil {
		threshold = *body.Threshold
	}

	middleware.IncrementAnalyses()
	res, err := r.promptsSvc.Analyze(req.Context(), appprompts.AnalyzeCommand{
		TenantID:  tenant,
		SessionID: session,
		Prompt:    *body.Prompt,
		Threshold: threshold,
	})
	if err != nil {
		var se *domai.ServiceError
		if errors.As(err, &se) {
			middleware.IncrementAnalysesFailed()
		}
		return err
	}
	middleware.RecordVerdict(res.Verdict)

	return writeJSON(w, http.StatusOK, analyzeResponse{
		AnalyzeResult: res,
		Message:       res.Verdict.Message(),
		DownloadURL:   fmt.Sprintf("/v1/%s/sessions/%s/audit/download", tenant, session),
	})
}

// GET /v1/{tenant}/sessions/{session}/audit
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant, session, err := sessionParams(req)
	if err != nil {
		return err
	}
	rec, err := r.promptsSvc.Latest(tenant, session)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// GET /v1/{tenant}/sessions/{session}/audit/download
func (r *Router) handleDownload(w http.ResponseWriter, req *http.Request) error {
	tenant, session, err := sessionParams(req)
	if err != nil {
		return err
	}
	name, body, err := r.promptsSvc.Download(tenant, session)
	if err != nil {
		return err
	}

	middleware.IncrementDownloads()
	w.Header().Set("Content-Type", audit.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	_, err = w.Write(body)
	return err
}

// DELETE /v1/{tenant}/sessions/{session}/audit
func (r *Router) handleForget(w http.ResponseWriter, req *http.Request) error {
	tenant, session, err := sessionParams(req)
	if err != nil {
		return err
	}
	r.promptsSvc.Forget(tenant, session)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /v1/{tenant}/audits?page=&page_size=
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	page, _ := strconv.Atoi(req.URL.Query().Get("page"))
	size, _ := strconv.Atoi(req.URL.Query().Get("page_size"))

	result, err := r.promptsSvc.History(req.Context(), tenant, middleware.ValidatePage(page), middleware.ValidateLimit(size))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, result)
}
