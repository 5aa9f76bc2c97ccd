// Package crawl implements exhaustive pagination over cursor-style
// collection endpoints. One generic loop serves every nesting level of the
// walk (groups, projects, issues, merge requests, commits, comments)
// instead of a hand-written loop per resource.
package crawl

import "context"

// Cursor is an opaque pagination token identifying the next page of a
// collection endpoint. It is derived from response headers, never from item
// content, and is scoped to the endpoint that produced it.
type Cursor string

// Page is one fetched batch of a collection endpoint.
type Page[T any] struct {
	Status int
	Items  []T
	// Next is nil when the endpoint is exhausted. A missing Next is the
	// sole terminal condition of a successful crawl.
	Next *Cursor
	// Total is the collection size reported by the endpoint, -1 when the
	// endpoint does not report one.
	Total int
}

// FetchFunc fetches one page. cur is nil for the first page. A non-2xx
// response or transport failure is returned as an error; the Page still
// carries the observed status when there was a response.
type FetchFunc[T any] func(ctx context.Context, cur *Cursor) (Page[T], error)

// Result summarizes one complete crawl.
type Result struct {
	Status int // last HTTP status observed, 0 if no response was received
	Total  int // endpoint-reported total when available, else items seen
	Pages  int
	Items  int
}

// Reduce walks every page of a collection, folding each item through fn as
// it arrives so unbounded collections (commits, notes) never materialize in
// memory. On failure the Result accumulated so far is returned alongside
// the error. An empty 200 page with no next cursor is normal exhaustion.
func Reduce[T any](ctx context.Context, fetch FetchFunc[T], fn func(T) error) (Result, error) {
	res := Result{Total: -1}
	var cur *Cursor
	for {
		page, err := fetch(ctx, cur)
		if page.Status != 0 {
			res.Status = page.Status
		}
		if err != nil {
			if res.Total < 0 {
				res.Total = res.Items
			}
			return res, err
		}
		res.Pages++
		for _, item := range page.Items {
			if err := fn(item); err != nil {
				if res.Total < 0 {
					res.Total = res.Items
				}
				return res, err
			}
			res.Items++
		}
		if page.Total >= 0 {
			res.Total = page.Total
		}
		if page.Next == nil {
			break
		}
		cur = page.Next
	}
	if res.Total < 0 {
		res.Total = res.Items
	}
	return res, nil
}

// Collect materializes a full collection. Use only for collections with a
// bounded size, such as the projects of one group.
func Collect[T any](ctx context.Context, fetch FetchFunc[T]) ([]T, Result, error) {
	var items []T
	res, err := Reduce(ctx, fetch, func(item T) error {
		items = append(items, item)
		return nil
	})
	return items, res, err
}

// Count returns the collection size from the endpoint's total header,
// fetching a single page when the header is present. The header value is
// authoritative; only when the endpoint omits it does Count fall back to
// walking the remaining pages and counting items.
func Count[T any](ctx context.Context, fetch FetchFunc[T]) (int, error) {
	page, err := fetch(ctx, nil)
	if err != nil {
		return 0, err
	}
	if page.Total >= 0 {
		return page.Total, nil
	}
	n := len(page.Items)
	cur := page.Next
	for cur != nil {
		p, err := fetch(ctx, cur)
		if err != nil {
			return n, err
		}
		n += len(p.Items)
		cur = p.Next
	}
	return n, nil
}
