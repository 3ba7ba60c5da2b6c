package paging

import (
	"context"
	"fmt"
)

// Pager is the cursor-following shape shared by every Azure SDK list client:
// More reports whether a continuation cursor remains and NextPage fetches the
// next page. *runtime.Pager[T] from azcore satisfies it directly.
type Pager[R any] interface {
	More() bool
	NextPage(ctx context.Context) (R, error)
}

// Collect drains a pager into a single slice, preserving server-provided
// order within and across pages. An empty first page yields an empty result.
// Any page fetch failure aborts the whole listing; partial accumulations are
// discarded, never returned.
func Collect[R any, T any](ctx context.Context, pager Pager[R], items func(R) []T) ([]T, error) {
	all := []T{}
	page := 0
	for pager.More() {
		page++
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
		}
		all = append(all, items(resp)...)
	}
	return all, nil
}
