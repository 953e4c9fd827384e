package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bryanwahyu/prompt-integrity/internal/application"
	appprompts "github.com/bryanwahyu/prompt-integrity/internal/application/prompts"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/audit"
	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/db/sqlite"
	"github.com/bryanwahyu/prompt-integrity/internal/middleware"
)

type cannedClient struct {
	text string
	err  error
}

func (c cannedClient) Analyze(ctx context.Context, req ai.AnalysisRequest) (ai.AnalysisResponse, error) {
	if c.err != nil {
		return ai.AnalysisResponse{}, c.err
	}
	return ai.AnalysisResponse{RawText: c.text}, nil
}

var fixedNow = time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.Local)

func newTestServer(t *testing.T, client ai.Client, opts Options) *httptest.Server {
	t.Helper()
	svc := appprompts.NewService(client, zap.NewNop())
	svc.Clock = application.FixedClock{T: fixedNow}
	if opts.DefaultThreshold == 0 {
		opts.DefaultThreshold = bias.DefaultThreshold
	}
	srv := httptest.NewServer(NewRouter(svc, opts))
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAnalyzeThenDownload(t *testing.T) {
	srv := newTestServer(t, cannedClient{text: "Bias Score: 8\nLoaded wording."}, Options{})
	base := srv.URL + "/v1/acme/sessions/s1"

	resp := post(t, base+"/analyze", `{"prompt":"Why are <cats> better?","threshold":5}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		Analysis    string `json:"analysis"`
		Verdict     string `json:"verdict"`
		Score       *int   `json:"score"`
		Threshold   int    `json:"threshold"`
		Message     string `json:"message"`
		DownloadURL string `json:"download_url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "exceeds_tolerance", got.Verdict)
	require.NotNil(t, got.Score)
	assert.Equal(t, 8, *got.Score)
	assert.Equal(t, "Prompt exceeds your bias tolerance threshold.", got.Message)
	assert.Equal(t, "/v1/acme/sessions/s1/audit/download", got.DownloadURL)

	dl := get(t, srv.URL+got.DownloadURL)
	require.Equal(t, http.StatusOK, dl.StatusCode)
	assert.Equal(t, "application/json", dl.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="prompt_audit_20250314_092653.json"`, dl.Header.Get("Content-Disposition"))

	var raw bytes.Buffer
	_, err := raw.ReadFrom(dl.Body)
	require.NoError(t, err)
	art, err := audit.ParseArtifact([]byte(raw.String()))
	require.NoError(t, err)
	assert.Equal(t, "Why are <cats> better?", art.OriginalPrompt)
	assert.Equal(t, "Bias Score: 8\nLoaded wording.", art.BiasAnalysis)
	assert.Equal(t, "2025-03-14T09:26:53.589793", art.Timestamp)
	assert.Contains(t, raw.String(), "<cats>")

	latest := get(t, base+"/audit")
	assert.Equal(t, http.StatusOK, latest.StatusCode)
}

func TestThresholdSources(t *testing.T) {
	srv := newTestServer(t, cannedClient{text: "bias score: 6"}, Options{DefaultThreshold: 7})
	base := srv.URL + "/v1/acme/sessions/s1/analyze"

	tests := []struct {
		name    string
		url     string
		body    string
		verdict string
	}{
		{"configured default", base, `{"prompt":"p"}`, "within_tolerance"},
		{"query param", base + "?threshold=2", `{"prompt":"p"}`, "exceeds_tolerance"},
		{"body beats query", base + "?threshold=2", `{"prompt":"p","threshold":9}`, "within_tolerance"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, tt.url, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			var got struct {
				Verdict string `json:"verdict"`
			}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.verdict, got.Verdict)
		})
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		client ai.Client
		path   string
		body   string
		want   int
	}{
		{"threshold out of range", cannedClient{text: "x"}, "/v1/acme/sessions/s1/analyze", `{"prompt":"p","threshold":11}`, http.StatusBadRequest},
		{"bad query threshold", cannedClient{text: "x"}, "/v1/acme/sessions/s1/analyze?threshold=abc", `{"prompt":"p"}`, http.StatusBadRequest},
		{"missing prompt", cannedClient{text: "x"}, "/v1/acme/sessions/s1/analyze", `{}`, http.StatusBadRequest},
		{"unknown field", cannedClient{text: "x"}, "/v1/acme/sessions/s1/analyze", `{"prompt":"p","model":"x"}`, http.StatusBadRequest},
		{"bad session", cannedClient{text: "x"}, "/v1/acme/sessions/a%20b/analyze", `{"prompt":"p"}`, http.StatusBadRequest},
		{"quota", cannedClient{err: &ai.ServiceError{Kind: ai.ErrQuotaExceeded, StatusCode: 429, Err: errors.New("slow down")}}, "/v1/acme/sessions/s1/analyze", `{"prompt":"p"}`, http.StatusTooManyRequests},
		{"unauthorized provider", cannedClient{err: &ai.ServiceError{Kind: ai.ErrUnauthorized, StatusCode: 401, Err: errors.New("bad key")}}, "/v1/acme/sessions/s1/analyze", `{"prompt":"p"}`, http.StatusBadGateway},
		{"unavailable", cannedClient{err: &ai.ServiceError{Kind: ai.ErrUnavailable, Err: errors.New("dial tcp")}}, "/v1/acme/sessions/s1/analyze", `{"prompt":"p"}`, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.client, Options{})
			resp := post(t, srv.URL+tt.path, tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestProviderErrorDoesNotLeakDetail(t *testing.T) {
	srv := newTestServer(t, cannedClient{err: &ai.ServiceError{Kind: ai.ErrUnauthorized, StatusCode: 401, Err: errors.New("sk-secret-123 rejected")}}, Options{})
	resp := post(t, srv.URL+"/v1/acme/sessions/s1/analyze", `{"prompt":"p"}`)
	require.Equal(t, http.StatusBadGateway, resp.StatusCode)

	var raw bytes.Buffer
	_, _ = raw.ReadFrom(resp.Body)
	assert.NotContains(t, raw.String(), "sk-secret-123")
}

func TestNoRecordYet(t *testing.T) {
	srv := newTestServer(t, cannedClient{text: "x"}, Options{})
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/acme/sessions/s1/audit").StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, srv.URL+"/v1/acme/sessions/s1/audit/download").StatusCode)
}

func TestFailedRunKeepsPreviousRecord(t *testing.T) {
	client := &switchClient{text: "bias score: 1"}
	srv := newTestServer(t, client, Options{})
	base := srv.URL + "/v1/acme/sessions/s1"

	require.Equal(t, http.StatusOK, post(t, base+"/analyze", `{"prompt":"first"}`).StatusCode)
	client.fail(&ai.ServiceError{Kind: ai.ErrUnavailable, Err: errors.New("down")})
	require.Equal(t, http.StatusBadGateway, post(t, base+"/analyze", `{"prompt":"second"}`).StatusCode)

	resp := get(t, base+"/audit")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rec audit.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "first", rec.OriginalPrompt)
}

type switchClient struct {
	mu   sync.Mutex
	text string
	err  error
}

func (c *switchClient) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *switchClient) Analyze(ctx context.Context, req ai.AnalysisRequest) (ai.AnalysisResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return ai.AnalysisResponse{}, c.err
	}
	return ai.AnalysisResponse{RawText: c.text}, nil
}

func TestForget(t *testing.T) {
	srv := newTestServer(t, cannedClient{text: "bias score: 1"}, Options{})
	base := srv.URL + "/v1/acme/sessions/s1"
	require.Equal(t, http.StatusOK, post(t, base+"/analyze", `{"prompt":"p"}`).StatusCode)

	req, err := http.NewRequest(http.MethodDelete, base+"/audit", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, http.StatusNotFound, get(t, base+"/audit").StatusCode)
}

func TestHistoryWithoutArchive(t *testing.T) {
	srv := newTestServer(t, cannedClient{text: "x"}, Options{})
	assert.Equal(t, http.StatusNotImplemented, get(t, srv.URL+"/v1/acme/audits").StatusCode)
}

func TestHistoryWithArchive(t *testing.T) {
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "audits.db"))
	require.NoError(t, err)
	defer db.Close()

	svc := appprompts.NewService(cannedClient{text: "bias score: 3"}, zap.NewNop())
	svc.Archive = sqlite.NewAuditRepository(db)
	srv := httptest.NewServer(NewRouter(svc, Options{DefaultThreshold: 5}))
	defer srv.Close()

	for _, session := range []string{"s1", "s2", "s3"} {
		require.Equal(t, http.StatusOK, post(t, srv.URL+"/v1/acme/sessions/"+session+"/analyze", `{"prompt":"p"}`).StatusCode)
	}

	resp := get(t, srv.URL+"/v1/acme/audits?page=1&page_size=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var page audit.PaginatedResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Data, 2)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	resp = get(t, srv.URL+"/v1/globex/audits")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Empty(t, page.Data)
}

func TestTenantAuth(t *testing.T) {
	srv := newTestServer(t, cannedClient{text: "bias score: 2"}, Options{
		TenantKeys: map[string]string{"acme": "key-acme", "globex": "key-globex"},
	})

	do := func(key, tenant string) int {
		req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/"+tenant+"/sessions/s1/analyze", strings.NewReader(`{"prompt":"p"}`))
		require.NoError(t, err)
		if key != "" {
			req.Header.Set("Authorization", "Bearer "+key)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, do("", "acme"))
	assert.Equal(t, http.StatusUnauthorized, do("nope", "acme"))
	assert.Equal(t, http.StatusForbidden, do("key-globex", "acme"))
	assert.Equal(t, http.StatusOK, do("key-acme", "acme"))

	// health stays public
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz/live").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz/ready").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/health").StatusCode)
}

func TestReadinessDrains(t *testing.T) {
	ready := &middleware.Readiness{}
	srv := newTestServer(t, cannedClient{text: "bias score: 1"}, Options{Readiness: ready})

	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz/ready").StatusCode)
	ready.Drain()
	assert.Equal(t, http.StatusServiceUnavailable, get(t, srv.URL+"/healthz/ready").StatusCode)
	assert.Equal(t, http.StatusOK, get(t, srv.URL+"/healthz/live").StatusCode)
}
