package entity

import "math"

// Page is a 1-based page request
type Page struct {
	Number int
	Limit  int
}

// NewPage validates page parameters. Zero values fall back to page 1 and
// defaultLimit; limits above maxLimit are clamped.
func NewPage(number, limit, defaultLimit, maxLimit int) (Page, error) {
	if number < 0 || limit < 0 {
		return Page{}, ErrInvalidPagination
	}
	if number == 0 {
		number = 1
	}
	if limit == 0 {
		limit = defaultLimit
	}
	if maxLimit > 0 && limit > maxLimit {
		limit = maxLimit
	}
	// Offset must fit in an int
	if limit > 0 && number-1 > math.MaxInt/limit {
		return Page{}, ErrInvalidPagination
	}
	return Page{Number: number, Limit: limit}, nil
}

// Offset returns the number of items to skip
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Limit
}
