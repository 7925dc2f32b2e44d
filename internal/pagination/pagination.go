// Package pagination turns an ordered query into the {items, has_more,
// next_offset} envelope used by every list endpoint.
package pagination

import "context"

// Query is an ordered, filtered collection. Implementations must order by a
// total order (ending in a unique key) so consecutive pages neither skip nor
// repeat rows.
type Query[T any] interface {
	Fetch(ctx context.Context, offset, limit int) ([]T, error)
}

// QueryFunc adapts a function to Query.
type QueryFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

func (f QueryFunc[T]) Fetch(ctx context.Context, offset, limit int) ([]T, error) {
	return f(ctx, offset, limit)
}

// Page is one page of results. NextOffset is the next page number, or nil on
// the last page.
type Page[T any] struct {
	Items      []T  `json:"items"`
	HasMore    bool `json:"has_more"`
	NextOffset *int `json:"next_offset"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps page size and page number into their valid ranges.
func Normalize(pageSize, pageNumber int) (int, int) {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if pageNumber < 1 {
		pageNumber = 1
	}
	return pageSize, pageNumber
}

// Paginate fetches page pageNumber (1-based) of size pageSize. One extra row
// is requested to decide has_more without a separate count query.
func Paginate[T any](ctx context.Context, q Query[T], pageSize, pageNumber int) (Page[T], error) {
	pageSize, pageNumber = Normalize(pageSize, pageNumber)

	rows, err := q.Fetch(ctx, (pageNumber-1)*pageSize, pageSize+1)
	if err != nil {
		return Page[T]{}, err
	}

	page := Page[T]{Items: rows}
	if len(rows) > pageSize {
		page.Items = rows[:pageSize]
		page.HasMore = true
		next := pageNumber + 1
		page.NextOffset = &next
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page, nil
}

// Map converts the items of a page, keeping its cursor fields.
func Map[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := Page[U]{HasMore: p.HasMore, NextOffset: p.NextOffset, Items: make([]U, len(p.Items))}
	for i, item := range p.Items {
		out.Items[i] = fn(item)
	}
	return out
}

// SliceQuery serves pages out of an already ordered slice.
func SliceQuery[T any](items []T) Query[T] {
	return QueryFunc[T](func(_ context.Context, offset, limit int) ([]T, error) {
		if offset >= len(items) {
			return nil, nil
		}
		end := offset + limit
		if end > len(items) {
			end = len(items)
		}
		out := make([]T, end-offset)
		copy(out, items[offset:end])
		return out, nil
	})
}
