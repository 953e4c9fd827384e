package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeS3 answers the handful of calls the store makes.
type fakeS3 struct {
	mu      sync.Mutex
	puts    map[string][]byte
	headers map[string]http.Header
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodHead:
		if strings.HasPrefix(r.URL.Path, "/audits") {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.puts[r.URL.Path] = body
		f.headers[r.URL.Path] = r.Header.Clone()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func TestStorePut(t *testing.T) {
	s3 := &fakeS3{puts: map[string][]byte{}, headers: map[string]http.Header{}}
	srv := httptest.NewServer(s3)
	defer srv.Close()

	endpoint := strings.TrimPrefix(srv.URL, "http://")
	store, err := New(context.Background(), endpoint, "us-east-1", "audits", "minio", "minio123", false)
	require.NoError(t, err)
	require.NoError(t, store.Check(context.Background()))

	body := []byte(`{"original_prompt": "p"}`)
	url, err := store.Put(context.Background(), "acme/s1/prompt_audit_20250101_000000.json", body)
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/audits/acme/s1/prompt_audit_20250101_000000.json", url)

	s3.mu.Lock()
	defer s3.mu.Unlock()
	// plain-http uploads use aws-chunked signing, so the payload is framed
	assert.Contains(t, string(s3.puts["/audits/acme/s1/prompt_audit_20250101_000000.json"]), string(body))
	h := s3.headers["/audits/acme/s1/prompt_audit_20250101_000000.json"]
	assert.Equal(t, "application/json", h.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="prompt_audit_20250101_000000.json"`, h.Get("Content-Disposition"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType("a/b.json"))
	assert.Equal(t, "text/html", contentType("a/b.html"))
	assert.Equal(t, "application/octet-stream", contentType("a/b"))
}
