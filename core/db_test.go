package core_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jorgefranciscopaz/E-Learning-English-Platform/core"
)

func TestPage_Window(t *testing.T) {
	tests := []struct {
		name       string
		page       core.Page
		n          int
		wantOffset int
		wantStart  int
		wantEnd    int
	}{
		{name: "defaults", page: core.Page{}, n: 25, wantOffset: 0, wantStart: 0, wantEnd: 10},
		{name: "second page", page: core.Page{Number: 2, Limit: 10}, n: 25, wantOffset: 10, wantStart: 10, wantEnd: 20},
		{name: "last partial page", page: core.Page{Number: 3, Limit: 10}, n: 25, wantOffset: 20, wantStart: 20, wantEnd: 25},
		{name: "past the end", page: core.Page{Number: 9, Limit: 10}, n: 25, wantOffset: 80, wantStart: 25, wantEnd: 25},
		{name: "limit capped", page: core.Page{Number: 1, Limit: 1000}, n: 250, wantOffset: 0, wantStart: 0, wantEnd: 100},
		{name: "negative number", page: core.Page{Number: -4, Limit: 5}, n: 3, wantOffset: 0, wantStart: 0, wantEnd: 3},
		{
			name: "huge number", page: core.Page{Number: 184467440737095517, Limit: 100}, n: 3,
			wantOffset: (math.MaxInt/core.MaxPageLimit - 1) * core.MaxPageLimit, wantStart: 3, wantEnd: 3,
		},
		{
			name: "max int number", page: core.Page{Number: math.MaxInt, Limit: 1}, n: 3,
			wantOffset: math.MaxInt/core.MaxPageLimit - 1, wantStart: 3, wantEnd: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			offset := tt.page.Offset()
			assert.Equal(t, tt.wantOffset, offset)
			assert.GreaterOrEqual(t, offset, 0)

			start, end := tt.page.Window(tt.n)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}

func TestNewPagination(t *testing.T) {
	assert.Equal(t, core.Pagination{Total: 25, Page: 2, Pages: 3, Limit: 10}, core.NewPagination(25, core.Page{Number: 2, Limit: 10}))
	assert.Equal(t, core.Pagination{Total: 0, Page: 1, Pages: 0, Limit: 10}, core.NewPagination(0, core.Page{}))
}
