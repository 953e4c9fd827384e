package middleware

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/bryanwahyu/prompt-integrity/internal/domain/bias"
)

var (
	tenantPattern  = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	sessionPattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,128}$`)
)

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateSessionID validates the session segment of the URL
func ValidateSessionID(session string) error {
	if session == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if !sessionPattern.MatchString(session) {
		return fmt.Errorf("invalid session ID format (alphanumeric, dot, dash, underscore only, max 128 chars)")
	}
	return nil
}

// ParseThreshold reads an optional threshold, falling back to def.
func ParseThreshold(raw string, def int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", bias.ErrInvalidThreshold, raw)
	}
	if err := bias.ValidateThreshold(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage clamps the page number to 1..
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
