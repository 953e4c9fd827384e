package audit

// PaginatedResult represents a page of archived records with metadata
type PaginatedResult struct {
	Data       []*Record `json:"data"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	Total      int64     `json:"totalItems"`
	TotalPages int       `json:"totalPages"`
}

// NewPaginatedResult fills in the page count; Data is never nil.
func NewPaginatedResult(data []*Record, page, pageSize int, total int64) *PaginatedResult {
	if data == nil {
		data = []*Record{}
	}
	pages := 0
	if pageSize > 0 {
		pages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
	}
}
