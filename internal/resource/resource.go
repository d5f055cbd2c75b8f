// Package resource holds the shared pieces of the API's camelCase
// projections: date formats, relative times and pagination envelopes.
// Each domain package maps its own entities using these helpers.
package resource

import (
	"time"

	"github.com/dustin/go-humanize"
)

const DateLayout = "02-01-2006"

// Clock is swapped in tests to make relative times deterministic.
var Clock = time.Now

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}

// Human renders t relative to now, e.g. "3 hours ago".
func Human(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, Clock(), "ago", "from now")
}

func OptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

type Paginated[T any] struct {
	Data []T `json:"data"`
	Meta Meta `json:"meta"`
}

type Meta struct {
	CurrentPage int `json:"currentPage"`
	PerPage     int `json:"perPage"`
	Total       int `json:"total"`
	LastPage    int `json:"lastPage"`
}

func Paginate[T any](items []T, page, perPage, total int) Paginated[T] {
	last := 1
	if perPage > 0 && total > 0 {
		last = (total + perPage - 1) / perPage
	}
	if items == nil {
		items = []T{}
	}
	return Paginated[T]{
		Data: items,
		Meta: Meta{CurrentPage: page, PerPage: perPage, Total: total, LastPage: last},
	}
}
