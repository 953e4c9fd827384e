package prompt

import (
	"strings"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/ai"
)

// Message is one chat turn, independent of any provider SDK.
type Message struct {
	Role    string
	Content string
}

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// GetSystemPrompt returns the evaluation instruction, falling back to the
// fixed one when the request carries none.
func GetSystemPrompt(req ai.AnalysisRequest) string {
	if strings.TrimSpace(req.Instruction) == "" {
		return ai.Instruction
	}
	return req.Instruction
}

// GetUserPrompt returns the prompt verbatim; empty prompts are sent as-is.
func GetUserPrompt(req ai.AnalysisRequest) string {
	return req.Prompt
}

// Build returns the two-message payload: system instruction then user prompt.
func Build(req ai.AnalysisRequest) []Message {
	return []Message{
		{Role: RoleSystem, Content: GetSystemPrompt(req)},
		{Role: RoleUser, Content: GetUserPrompt(req)},
	}
}
