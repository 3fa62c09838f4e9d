// Package paging provides the bounded page window shared by the message
// listing queries and the REST surface.
package paging

// PagedSlice is one page of an ordered result set plus the metadata the
// caller needs to request the rest: current page, page size, total item
// count and total page count.
type PagedSlice[T any] struct {
	Items       []T
	CurrentPage int
	PageSize    int
	TotalCount  int
	TotalPages  int
}

// New builds a PagedSlice over items already cut to the page window.
// pageSize must be >= 1; callers clamp their query parameters before
// reaching this point.
func New[T any](items []T, currentPage, pageSize, totalCount int) PagedSlice[T] {
	return PagedSlice[T]{
		Items:       items,
		CurrentPage: currentPage,
		PageSize:    pageSize,
		TotalCount:  totalCount,
		TotalPages:  (totalCount + pageSize - 1) / pageSize,
	}
}
