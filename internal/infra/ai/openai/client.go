package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/ai/prompt"
)

type Client struct {
	*openai.Client
	Model string
	hc    *http.Client
}

// NewClient builds a chat-completion client. baseURL may be empty for the
// public endpoint; httpClient may be nil for the library default.
func NewClient(apiKey, model, baseURL string, httpClient *http.Client) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	hc := withEmptyContent(httpClient)
	cfg.HTTPClient = hc
	return &Client{Client: openai.NewClientWithConfig(cfg), Model: model, hc: hc}
}

// HTTPClient returns the client requests go through.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// Analyze sends the instruction and prompt and returns the first choice verbatim.
func (c *Client) Analyze(ctx context.Context, req ai.AnalysisRequest) (ai.AnalysisResponse, error) {
	model := c.Model
	if model == "" {
		model = ai.DefaultModel
	}

	msgs := prompt.Build(req)
	chat := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		chat = append(chat, openai.ChatCompletionMessage{Role: role(m.Role), Content: m.Content})
	}

	resp, err := c.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    chat,
		Temperature: req.Temperature,
	})
	if err != nil {
		return ai.AnalysisResponse{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return ai.AnalysisResponse{}, &ai.ServiceError{
			Kind: ai.ErrMalformedResponse,
			Err:  errors.New("completion has no choices"),
		}
	}

	return ai.AnalysisResponse{RawText: resp.Choices[0].Message.Content}, nil
}

func role(r string) string {
	if r == prompt.RoleSystem {
		return openai.ChatMessageRoleSystem
	}
	return openai.ChatMessageRoleUser
}

// classify turns a go-openai error into a ServiceError.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &ai.ServiceError{
			Kind:       ai.KindForStatus(apiErr.HTTPStatusCode),
			StatusCode: apiErr.HTTPStatusCode,
			Err:        fmt.Errorf("failed to create chat completion: %w", err),
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ai.ServiceError{
			Kind:       ai.KindForStatus(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Err:        fmt.Errorf("failed to create chat completion: %w", err),
		}
	}
	return &ai.ServiceError{
		Kind: ai.ErrUnavailable,
		Err:  fmt.Errorf("failed to create chat completion: %w", err),
	}
}
