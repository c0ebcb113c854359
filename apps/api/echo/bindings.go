package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
)

const (
	orderingParam = "ordering"
	pageParam     = "page"
	limitParam    = "limit"
	cascadeParam  = "cascade"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if field == "" {
			continue
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Pagination reads the page and limit query params. Invalid values fall back to the defaults.
type Pagination struct {
	Page core.Page
}

func (p *Pagination) Bind(ctx echo.Context) {
	p.Page.Number, _ = strconv.Atoi(ctx.QueryParam(pageParam))
	p.Page.Limit, _ = strconv.Atoi(ctx.QueryParam(limitParam))
	p.Page = p.Page.Clean()
}

// ListResponse is the envelope of every paginated list.
type ListResponse struct {
	Data       interface{}     `json:"data"`
	Pagination core.Pagination `json:"pagination"`
}

// queryBool parses an optional boolean query param. Invalid values are ignored.
func queryBool(ctx echo.Context, name string) *bool {
	val := ctx.QueryParam(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &b
}

func cascade(ctx echo.Context) bool {
	b := queryBool(ctx, cascadeParam)
	return b != nil && *b
}
