package pagination

const (
	// DefaultPage is used when the caller omits a page number.
	DefaultPage = 1
	// DefaultPageSize is the standard page size when one is not provided.
	DefaultPageSize = 10
	// MaxPageSize caps how many rows any listing can request.
	MaxPageSize = 100
)

// Params holds page/size inputs from controllers or services.
type Params struct {
	Page     int
	PageSize int
}

// Normalize applies the defaults and the size cap.
func (p Params) Normalize() Params {
	out := p
	if out.Page < 1 {
		out.Page = DefaultPage
	}
	if out.PageSize <= 0 {
		out.PageSize = DefaultPageSize
	}
	if out.PageSize > MaxPageSize {
		out.PageSize = MaxPageSize
	}
	return out
}

// Offset is the number of rows skipped before the requested page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.PageSize
}

// Page is a single slice of an ordered result set.
type Page[T any] struct {
	Items       []T   `json:"items"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
}

// NewPage fills the derived page metadata from the total row count.
func NewPage[T any](items []T, params Params, total int64) Page[T] {
	n := params.Normalize()
	if items == nil {
		items = []T{}
	}
	pages := int((total + int64(n.PageSize) - 1) / int64(n.PageSize))
	return Page[T]{
		Items:       items,
		Page:        n.Page,
		PageSize:    n.PageSize,
		TotalCount:  total,
		TotalPages:  pages,
		HasPrevious: n.Page > 1,
		HasNext:     n.Page < pages,
	}
}
