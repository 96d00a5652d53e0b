// Package paginate collects offset-paged collections.
package paginate

import (
	"context"
	"fmt"

	"github.com/flemzord/tgflow/internal/errs"
)

// DefaultPageSize is the per-request ceiling of the member listing endpoints.
const DefaultPageSize = 200

// FetchFunc returns up to limit records starting at offset, in server order.
type FetchFunc[T any] func(ctx context.Context, offset, limit int) ([]T, error)

// Options bound a collection.
type Options struct {
	// Limit caps the records returned unless ReturnAll is set.
	Limit int
	// ReturnAll ignores Limit and reads until the collection is exhausted.
	ReturnAll bool
	// PageSize is the per-request ceiling. Zero means DefaultPageSize.
	PageSize int
}

func (o Options) pageSize() int {
	if o.PageSize <= 0 {
		return DefaultPageSize
	}
	return o.PageSize
}

// Collect reads pages until a page is short or empty, or until Limit records
// are held when bounded. The offset advances by the records actually
// received and the result keeps server order, truncated to Limit.
func Collect[T any](ctx context.Context, fetch FetchFunc[T], opts Options) ([]T, error) {
	ceiling := opts.pageSize()
	bounded := !opts.ReturnAll
	if bounded && opts.Limit <= 0 {
		return []T{}, nil
	}

	var out []T
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		want := ceiling
		if bounded {
			want = min(ceiling, opts.Limit-len(out))
		}
		page, err := fetch(ctx, offset, want)
		if err != nil {
			return out, fmt.Errorf("paginate: fetch offset %d: %w", offset, err)
		}
		out = append(out, page...)
		offset += len(page)

		if len(page) == 0 || len(page) < want {
			break
		}
		if bounded && len(out) >= opts.Limit {
			break
		}
	}

	if bounded && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

// Find scans pages in order and returns the first record matching, without
// reading further pages. It fails with errs.ErrNotFound once the collection
// is exhausted.
func Find[T any](ctx context.Context, fetch FetchFunc[T], pageSize int, match func(T) bool) (T, error) {
	var zero T
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		page, err := fetch(ctx, offset, pageSize)
		if err != nil {
			return zero, fmt.Errorf("paginate: fetch offset %d: %w", offset, err)
		}
		for _, v := range page {
			if match(v) {
				return v, nil
			}
		}
		offset += len(page)
		if len(page) == 0 || len(page) < pageSize {
			return zero, errs.NotFoundf("no matching record in %d scanned", offset)
		}
	}
}
