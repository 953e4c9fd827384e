package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecordID identifier type
type RecordID string

// NewRecordID returns a fresh random identifier.
func NewRecordID() RecordID { return RecordID(uuid.New().String()) }

// Record is the audit log of one completed analysis.
// Only the three artifact fields are exported in the downloadable JSON;
// the rest is metadata for the session store and archives.
type Record struct {
	ID             RecordID  `json:"id"`
	TenantID       string    `json:"tenant_id"`
	SessionID      string    `json:"session_id"`
	OriginalPrompt string    `json:"original_prompt"`
	BiasAnalysis   string    `json:"bias_analysis"`
	Timestamp      string    `json:"timestamp"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// NewRecord builds a record for a successful response. now is the generation time.
func NewRecord(tenant, session, prompt, analysis string, now time.Time) *Record {
	return &Record{
		ID:             NewRecordID(),
		TenantID:       tenant,
		SessionID:      session,
		OriginalPrompt: prompt,
		BiasAnalysis:   analysis,
		Timestamp:      FormatTimestamp(now),
		GeneratedAt:    now,
	}
}

// FormatTimestamp renders t as a naive ISO-8601 local time with microseconds,
// dropping the fraction when it is zero.
func FormatTimestamp(t time.Time) string {
	base := t.Format("2006-01-02T15:04:05")
	if us := t.Nanosecond() / int(time.Microsecond); us != 0 {
		return fmt.Sprintf("%s.%06d", base, us)
	}
	return base
}

// Filename is the download name: prompt_audit_<YYYYMMDD_HHMMSS>.json
func (r *Record) Filename() string {
	return FilenameAt(r.GeneratedAt)
}

// FilenameAt builds the artifact filename for a generation time.
func FilenameAt(t time.Time) string {
	return "prompt_audit_" + t.Format("20060102_150405") + ".json"
}
