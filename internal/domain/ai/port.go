package ai

import "context"

// Instruction is the fixed system message sent ahead of every prompt.
const Instruction = "You are an AI prompt evaluation assistant. For the input below, do the following: " +
	"(1) Score for cognitive bias (confirmation bias, emotional skew, framing assumptions) on a scale of 0-10; " +
	"(2) Provide SHAP-style text explanations of bias markers; " +
	"(3) Suggest 2 alternate framings."

const (
	Temperature  float32 = 0.4
	DefaultModel         = "gpt-4"
)

// AnalysisRequest is built per user action and discarded after the call.
type AnalysisRequest struct {
	Prompt      string
	Instruction string
	Temperature float32
}

// NewAnalysisRequest wraps the prompt with the fixed instruction and temperature.
func NewAnalysisRequest(prompt string) AnalysisRequest {
	return AnalysisRequest{
		Prompt:      prompt,
		Instruction: Instruction,
		Temperature: Temperature,
	}
}

// AnalysisResponse holds the first completion's text, untouched.
type AnalysisResponse struct {
	RawText string
}

type Client interface {
	Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error)
}
