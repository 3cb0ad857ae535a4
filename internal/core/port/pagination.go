package port

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page request to sane values.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = 10
	}
	return p
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// PageInfo reports pagination metadata alongside a page of items.
type PageInfo struct {
	CurrentPage int `json:"current_page"`
	TotalPages  int `json:"total_pages"`
	TotalCount  int `json:"total_count"`
}

// NewPageInfo derives pagination metadata from a page request and the total
// number of matching rows. A page past the end is reported as-is; callers get
// an empty item list rather than an error.
func NewPageInfo(page Page, total int) PageInfo {
	page = page.Normalize()
	totalPages := 0
	if total > 0 {
		totalPages = (total + page.Size - 1) / page.Size
	}
	return PageInfo{
		CurrentPage: page.Number,
		TotalPages:  totalPages,
		TotalCount:  total,
	}
}
