package pagination

import "math"

const (
	DefaultPerPage = 20
	MaxPerPage     = 100
)

// Pagination is the page metadata returned with every listing
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrev     bool  `json:"has_prev"`
}

// PaginationParams is the requested page
type PaginationParams struct {
	Page    int `form:"page" json:"page"`
	PerPage int `form:"per_page" json:"per_page"`
}

// Params returns clamped page parameters. Out-of-range values fall back to
// the first page and the default page size.
func Params(page, perPage int) *PaginationParams {
	p := &PaginationParams{Page: page, PerPage: perPage}
	p.Validate()
	return p
}

// Validate clamps the parameters in place
func (p *PaginationParams) Validate() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
}

// Offset is the number of rows to skip
func (p *PaginationParams) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Limit is the page size
func (p *PaginationParams) Limit() int {
	return p.PerPage
}

// PaginatedResult is one page of items with its metadata
type PaginatedResult[T any] struct {
	Items      []T         `json:"items"`
	Pagination *Pagination `json:"pagination"`
}

// NewResult wraps a page of items. A nil slice is rendered as [].
func NewResult[T any](items []T, total int64, p *PaginationParams) *PaginatedResult[T] {
	if items == nil {
		items = make([]T, 0)
	}
	totalPages := int(math.Ceil(float64(total) / float64(p.PerPage)))
	return &PaginatedResult[T]{
		Items: items,
		Pagination: &Pagination{
			CurrentPage: p.Page,
			PerPage:     p.PerPage,
			Total:       total,
			TotalPages:  totalPages,
			HasNext:     p.Page < totalPages,
			HasPrev:     p.Page > 1,
		},
	}
}
