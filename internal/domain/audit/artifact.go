package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const ContentType = "application/json"

// Artifact is the downloadable JSON document. Field order is the wire order.
type Artifact struct {
	OriginalPrompt string `json:"original_prompt"`
	BiasAnalysis   string `json:"bias_analysis"`
	Timestamp      string `json:"timestamp"`
}

// Artifact projects the record onto the three exported fields.
func (r *Record) Artifact() Artifact {
	return Artifact{
		OriginalPrompt: r.OriginalPrompt,
		BiasAnalysis:   r.BiasAnalysis,
		Timestamp:      r.Timestamp,
	}
}

// MarshalArtifact encodes the record as pretty-printed JSON with 2-space indent.
func MarshalArtifact(r *Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r.Artifact()); err != nil {
		return nil, fmt.Errorf("failed to marshal audit artifact: %w", err)
	}
	// Encoder appends a newline; the artifact ends at the closing brace.
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ParseArtifact decodes a downloaded artifact. All three keys are required.
func ParseArtifact(data []byte) (Artifact, error) {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return Artifact{}, fmt.Errorf("invalid audit artifact: %w", err)
	}
	for _, key := range []string{"original_prompt", "bias_analysis", "timestamp"} {
		if v, ok := raw[key]; !ok || v == nil {
			return Artifact{}, fmt.Errorf("invalid audit artifact: missing %q", key)
		}
	}
	return Artifact{
		OriginalPrompt: *raw["original_prompt"],
		BiasAnalysis:   *raw["bias_analysis"],
		Timestamp:      *raw["timestamp"],
	}, nil
}
