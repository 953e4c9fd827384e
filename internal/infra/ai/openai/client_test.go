package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "", srv.URL+"/v1", srv.Client())
}

func writeCompletion(w http.ResponseWriter, contents ...string) {
	choices := make([]map[string]any, 0, len(contents))
	for i, c := range contents {
		choices = append(choices, map[string]any{
			"index":         i,
			"message":       map[string]any{"role": "assistant", "content": c},
			"finish_reason": "stop",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-4",
		"choices": choices,
	})
}

func TestAnalyzeSendsInstructionAndPrompt(t *testing.T) {
	var got openai.ChatCompletionRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeCompletion(w, "Bias Score: 7/10\n\n*markers*", "second choice is ignored")
	})

	resp, err := c.Analyze(context.Background(), ai.NewAnalysisRequest("Isn't it obvious that X is best?"))
	require.NoError(t, err)
	assert.Equal(t, "Bias Score: 7/10\n\n*markers*", resp.RawText)

	assert.Equal(t, ai.DefaultModel, got.Model)
	assert.InDelta(t, 0.4, got.Temperature, 1e-6)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	assert.Equal(t, ai.Instruction, got.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, got.Messages[1].Role)
	assert.Equal(t, "Isn't it obvious that X is best?", got.Messages[1].Content)
}

func TestAnalyzeUsesConfiguredModel(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeCompletion(w, "ok")
	}))
	defer srv.Close()

	c := NewClient("k", "gpt-4o-mini", srv.URL+"/v1", nil)
	_, err := c.Analyze(context.Background(), ai.NewAnalysisRequest("p"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", got.Model)
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   error
		wantStatus int
	}{
		{"rate limit", http.StatusTooManyRequests, `{"error":{"message":"Rate limit reached","type":"requests","code":"rate_limit_exceeded"}}`, ai.ErrQuotaExceeded, 429},
		{"bad key", http.StatusUnauthorized, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","code":"invalid_api_key"}}`, ai.ErrUnauthorized, 401},
		{"server error without body", http.StatusInternalServerError, `oops`, ai.ErrUnavailable, 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Analyze(context.Background(), ai.NewAnalysisRequest("p"))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)

			var se *ai.ServiceError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.wantStatus, se.StatusCode)
		})
	}
}

func TestAnalyzeNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(w)
	})

	_, err := c.Analyze(context.Background(), ai.NewAnalysisRequest("p"))
	assert.True(t, errors.Is(err, ai.ErrMalformedResponse))
}

func TestAnalyzeNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient("k", "", url+"/v1", nil)
	_, err := c.Analyze(context.Background(), ai.NewAnalysisRequest("p"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ai.ErrUnavailable))
}

func TestAnalyzeSendsEmptyPromptContent(t *testing.T) {
	var raw map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeCompletion(w, "Bias Score: 0")
	})

	_, err := c.Analyze(context.Background(), ai.NewAnalysisRequest(""))
	require.NoError(t, err)

	msgs, ok := raw["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 2)
	user := msgs[1].(map[string]any)
	assert.Equal(t, "user", user["role"])
	content, present := user["content"]
	require.True(t, present, "user message must carry a content key")
	assert.Equal(t, "", content)
	assert.Equal(t, ai.Instruction, msgs[0].(map[string]any)["content"])
}
