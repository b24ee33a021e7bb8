// Package pagination computes page windows for list views.
package pagination

import "strconv"

// Page sizes used by the public listings and the admin.
const (
	ListingPerPage = 9
	ArchivePerPage = 12
	AdminPerPage   = 25
)

// Page describes one page of a listing.
type Page struct {
	Number      int   `json:"number"`
	PerPage     int   `json:"per_page"`
	TotalItems  int64 `json:"total_items"`
	TotalPages  int   `json:"total_pages"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
	Previous    int   `json:"previous_page_number,omitempty"`
	Next        int   `json:"next_page_number,omitempty"`
}

// Offset is the number of items preceding this page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.PerPage
}

// Limit is the page size to query with.
func (p Page) Limit() int {
	return p.PerPage
}

// Paginate clamps the requested page into [1, last page]. A listing with no items
// still has one (empty) page.
func Paginate(total int64, page, perPage int) Page {
	if perPage < 1 {
		perPage = 1
	}

	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		pages = 1
	}

	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}

	p := Page{
		Number:      page,
		PerPage:     perPage,
		TotalItems:  total,
		TotalPages:  pages,
		HasPrevious: page > 1,
		HasNext:     page < pages,
	}
	if p.HasPrevious {
		p.Previous = page - 1
	}
	if p.HasNext {
		p.Next = page + 1
	}
	return p
}

// ParsePage reads a page query parameter; anything that is not a positive integer is page 1.
func ParsePage(raw string) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 1
	}
	return n
}
