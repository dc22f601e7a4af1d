package rowkit

import (
	"sync"

	"github.com/hashicorp/go-multierror"
)

// scratchPool recycles the byte slices ColumnView.Unescaped writes into,
// generalizing the teacher's scanResultPool/parseResultPool reuse pattern
// from per-call result buffers to the per-column unescape scratch space.
var scratchPool = sync.Pool{New: func() any { return make([]byte, 0, 256) }}

func acquireScratch() []byte { return scratchPool.Get().([]byte)[:0] }

func releaseScratch(b []byte) {
	if b == nil {
		return
	}
	scratchPool.Put(b[:0]) //nolint:staticcheck // intentionally discarding capacity hint beyond 0-len
}

// reportProgress invokes opts.ProgressFunc every opts.ProgressEvery rows,
// generalizing the periodic progress update entreya-csvquery's indexer logs
// on a timer into a row-count gate, since callers of a pull iterator care
// about rows processed rather than wall-clock elapsed.
func reportProgress(opts *Options, rowsRead int64) {
	if opts.ProgressEvery <= 0 || opts.ProgressFunc == nil {
		return
	}
	if rowsRead%opts.ProgressEvery == 0 {
		opts.ProgressFunc(rowsRead)
	}
}

// ParseBytes parses an entire in-memory buffer and returns every row's
// columns as decoded strings, applying opts' header and trim rules. Null
// tokens are not applied: a null token comes back as its literal text.
// It is the simplest entry point; callers that want typed columns or
// streaming input should use [NewRowIterator]/[NewStreamRowIterator] and
// a [Binder] directly.
func ParseBytes(data []byte, opts *Options) (header []string, rows [][]string, err error) {
	it, err := NewRowIterator(data, opts)
	if err != nil {
		return nil, nil, err
	}
	defer it.Close()
	header = it.Header()
	for it.Next() {
		row := it.Row()
		cols := make([]string, row.ColumnCount())
		for i := range cols {
			c, _ := row.Column(i)
			cols[i] = string(c.Unescaped())
		}
		rows = append(rows, cols)
	}
	if it.Err() != nil {
		return header, rows, it.Err()
	}
	return header, rows, nil
}

// BindBytes parses an entire in-memory buffer and binds every row onto a
// freshly allocated *T, returning the bound values in row order. Binding
// errors are handled per opts.ErrorPolicy; under PolicyUseDefault the
// returned error aggregates every row's accumulated conversion failures,
// and under PolicySkipRow failing rows are left out without an error.
func BindBytes[T any](data []byte, opts *Options) ([]*T, error) {
	it, err := NewRowIterator(data, opts)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var zero T
	binder, err := NewBinder(&zero, it.Header(), opts)
	if err != nil {
		return nil, err
	}

	var out []*T
	var batchErrors error
	for it.Next() {
		dest := new(T)
		accumulated, bindErr := binder.Bind(dest, it.Row())
		if bindErr != nil && bindErr != bindSkip {
			return out, bindErr
		}
		if bindErr == bindSkip {
			continue
		}
		if accumulated != nil {
			batchErrors = multierror.Append(batchErrors, accumulated.Errors...)
		}
		out = append(out, dest)
	}
	if it.Err() != nil {
		return out, it.Err()
	}
	return out, batchErrors
}
