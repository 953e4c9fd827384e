package postgres

import "strings"

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// stripNUL drops NUL bytes, which Postgres TEXT rejects.
func stripNUL(s string) string {
	return strings.ReplaceAll(s, "\x00", "")
}

// pageBounds normalises page/pageSize into LIMIT/OFFSET.
func pageBounds(page, pageSize int) (limit, offset int) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return pageSize, (page - 1) * pageSize
}
