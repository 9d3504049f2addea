package shared

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filter is a page request against a list query. OrderBy names a sort key
// the repository understands; unknown keys fall back to its default order.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
}

// Limit is PageSize clamped to [1, maxPageSize], defaulting to 20
func (f Filter) Limit() int {
	if f.PageSize < 1 {
		return defaultPageSize
	}
	return min(f.PageSize, maxPageSize)
}

// Offset is the number of rows before the requested page
func (f Filter) Offset() int {
	if f.Page <= 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit()
}
