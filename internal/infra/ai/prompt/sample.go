package prompt

import (
	"fmt"
	"strings"
)

// SampleAnalysis returns a canned critique in the shape the model is asked for.
// Used by the offline provider; the score is derived from the prompt length so
// different prompts exercise both verdicts.
func SampleAnalysis(userPrompt string) string {
	score := len(strings.Fields(userPrompt)) % 11

	var b strings.Builder
	fmt.Fprintf(&b, "**Bias Score:** %d\n\n", score)
	b.WriteString("### Bias markers\n")
	if score == 0 {
		b.WriteString("- No loaded wording detected in the prompt.\n")
	} else {
		b.WriteString("- Framing assumption: the prompt presupposes its conclusion.\n")
		b.WriteString("- Emotional skew: evaluative adjectives steer the answer.\n")
	}
	b.WriteString("\n### Alternate framings\n")
	b.WriteString("1. What evidence exists for and against this position?\n")
	b.WriteString("2. How would different stakeholders describe this situation?\n")
	return b.String()
}
