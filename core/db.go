package core

import "math"

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100

	// keeps (Number-1)*Limit within int
	maxPageNumber = math.MaxInt / MaxPageLimit
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// Page selects a window of a list query. Number is 1-based.
type Page struct {
	Number int
	Limit  int
}

// Clean falls back to the defaults on out of range values.
func (p Page) Clean() Page {
	if p.Number < 1 {
		p.Number = 1
	} else if p.Number > maxPageNumber {
		p.Number = maxPageNumber
	}
	if p.Limit < 1 {
		p.Limit = DefaultPageLimit
	} else if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p Page) Offset() int {
	p = p.Clean()
	return (p.Number - 1) * p.Limit
}

// Window returns the [start, end) bounds of the page within n items.
func (p Page) Window(n int) (int, int) {
	p = p.Clean()
	start := p.Offset()
	if start > n {
		start = n
	}
	end := start + p.Limit
	if end > n {
		end = n
	}
	return start, end
}

type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
	Limit int `json:"limit"`
}

func NewPagination(total int, p Page) Pagination {
	p = p.Clean()
	return Pagination{
		Total: total,
		Page:  p.Number,
		Pages: int(math.Ceil(float64(total) / float64(p.Limit))),
		Limit: p.Limit,
	}
}
