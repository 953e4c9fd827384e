package stub

import (
	"context"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
	"github.com/bryanwahyu/prompt-integrity/internal/infra/ai/prompt"
)

// Client answers locally with a canned critique. Selected with provider "stub"
// for demos and smoke tests without network access or a credential.
type Client struct{}

func NewClient() *Client { return &Client{} }

func (Client) Analyze(ctx context.Context, req ai.AnalysisRequest) (ai.AnalysisResponse, error) {
	if err := ctx.Err(); err != nil {
		return ai.AnalysisResponse{}, &ai.ServiceError{Kind: ai.ErrUnavailable, Err: err}
	}
	return ai.AnalysisResponse{RawText: prompt.SampleAnalysis(prompt.GetUserPrompt(req))}, nil
}
