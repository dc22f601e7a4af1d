package rowkit

import (
	"bytes"
	"context"
	"io"
)

// RowIterator pulls rows one at a time from an in-memory buffer, per spec
// §4.9: Next never suspends, because the entire input is already
// resident. It is single-threaded and non-reentrant — call Next/Row/Close
// from one goroutine only.
type RowIterator struct {
	buf     []byte
	opts    *Options
	scanner *rowScanner

	pos        int
	rowIndex   int64
	sourceLine int64

	header   []string
	headless bool // true once header row has been consumed, if any

	scratch []byte
	live    bool
	row     RowView
	err     error
	done    bool
}

// NewRowIterator creates a pull-based iterator over an in-memory buffer.
// If opts.HasHeader is set, the first accepted row is consumed
// immediately and made available via Header rather than being yielded
// from Next.
func NewRowIterator(data []byte, opts *Options) (*RowIterator, error) {
	normalized, err := normalizeInput(data, opts)
	if err != nil {
		return nil, err
	}
	it := &RowIterator{
		buf:        normalized,
		opts:       opts,
		scanner:    newRowScanner(opts),
		sourceLine: initialSourceLine(opts),
		scratch:    acquireScratch(),
	}
	if opts.HasHeader {
		if !it.Next() {
			return it, it.err
		}
		names := make([]string, it.row.ColumnCount())
		for i := range names {
			col, _ := it.row.Column(i)
			names[i] = string(col.Unescaped())
		}
		it.header = names
		it.headless = true
	}
	return it, nil
}

// Header returns the resolved header names, or nil if opts.HasHeader was
// false.
func (it *RowIterator) Header() []string { return it.header }

// Next advances to the next row, returning false once the input is
// exhausted or an error occurred; inspect Err to distinguish the two.
func (it *RowIterator) Next() bool {
	if it.done {
		return false
	}
	it.live = false
	r, next, newLine, status, atEOF, perr := it.scanner.next(it.buf, it.pos, it.rowIndex+1, it.sourceLine)
	if perr != nil {
		it.err = perr
		it.done = true
		return false
	}
	if status != scanOK {
		it.done = true
		_ = atEOF
		return false
	}
	if it.opts.MaxRows > 0 && r.index > it.opts.MaxRows {
		it.err = newParseError(KindTooManyRows, ErrTooManyRows).withRow(r.index)
		it.done = true
		return false
	}
	it.pos = next
	it.sourceLine = newLine
	it.rowIndex = r.index
	it.row = RowView{buf: it.buf, row: r, opts: it.opts, scratch: &it.scratch, live: &it.live}
	it.live = true
	reportProgress(it.opts, it.rowIndex)
	return true
}

// Row returns the row made current by the last successful call to Next.
func (it *RowIterator) Row() RowView { return it.row }

// Err returns the error, if any, that stopped iteration.
func (it *RowIterator) Err() error { return it.err }

// Close releases the iterator's pooled scratch buffer.
func (it *RowIterator) Close() error {
	it.live = false
	releaseScratch(it.scratch)
	it.scratch = nil
	return nil
}

// StreamRowIterator pulls rows from an io.Reader, growing and compacting
// an internal buffer as needed. Unlike [RowIterator], Next suspends
// (inside fill) while waiting on the source, and accepts a
// context.Context so a caller can cancel a blocked read, per spec §4.9.
type StreamRowIterator struct {
	source  *streamBuffer
	opts    *Options
	scanner *rowScanner

	rowIndex   int64
	sourceLine int64

	header     []string
	scratch    []byte
	live       bool
	row        RowView
	err        error
	done       bool
	canceled   bool
	bomChecked bool
}

// NewStreamRowIterator creates a pull-based iterator over r. If
// opts.HasHeader is set, the first accepted row is consumed immediately,
// exactly as in [NewRowIterator].
func NewStreamRowIterator(ctx context.Context, r io.Reader, opts *Options) (*StreamRowIterator, error) {
	it := &StreamRowIterator{
		source:     newStreamBuffer(r, opts),
		opts:       opts,
		scanner:    newRowScanner(opts),
		sourceLine: initialSourceLine(opts),
		scratch:    acquireScratch(),
	}
	if opts.HasHeader {
		if !it.Next(ctx) {
			return it, it.err
		}
		names := make([]string, it.row.ColumnCount())
		for i := range names {
			col, _ := it.row.Column(i)
			names[i] = string(col.Unescaped())
		}
		it.header = names
	}
	return it, nil
}

// Header returns the resolved header names, or nil if opts.HasHeader was
// false.
func (it *StreamRowIterator) Header() []string { return it.header }

// Next advances to the next row, blocking on the underlying reader as
// needed. It returns false on end of stream, on error, or when ctx is
// canceled mid-fill; inspect Err to tell them apart.
func (it *StreamRowIterator) Next(ctx context.Context) bool {
	if it.done {
		return false
	}
	it.live = false
	pos := 0
	for {
		if err := ctx.Err(); err != nil {
			it.err = newParseError(KindCanceled, ErrCanceled)
			it.done = true
			it.canceled = true
			return false
		}
		if !it.bomChecked {
			if skip, needMore := it.stripLeadingBOM(); needMore {
				if err := it.fillWithContext(ctx); err != nil {
					it.err = err
					it.done = true
					return false
				}
				continue
			} else if skip > 0 {
				it.source.advance(skip)
			}
			it.bomChecked = true
		}
		buf := it.source.window()
		r, next, newLine, status, perr := it.scanner.nextStreaming(buf, pos, it.rowIndex+1, it.sourceLine, it.source.sourceAtEOF())
		if perr != nil {
			it.err = perr
			it.done = true
			return false
		}
		switch status {
		case scanOK:
			if it.opts.MaxRows > 0 && r.index > it.opts.MaxRows {
				it.err = newParseError(KindTooManyRows, ErrTooManyRows).withRow(r.index)
				it.done = true
				return false
			}
			// buf is the window slice scanned above; its indices stay
			// valid after advance (which only moves streamBuffer.start,
			// it never moves the underlying bytes — that's compact's
			// job, and compact only runs inside fill).
			it.source.advance(next)
			it.sourceLine = newLine
			it.rowIndex = r.index
			it.row = RowView{buf: buf, row: r, opts: it.opts, scratch: &it.scratch, live: &it.live}
			it.live = true
			reportProgress(it.opts, it.rowIndex)
			return true
		case scanEOF:
			it.source.advance(next)
			it.done = true
			return false
		case scanNeedMore:
			if err := it.fillWithContext(ctx); err != nil {
				it.err = err
				it.done = true
				return false
			}
			pos = 0
			continue
		}
	}
}

// stripLeadingBOM reports how many leading UTF-8 BOM bytes (0 or 3) to
// skip. needMore is true when the window is too short to decide yet and
// the source has not reached EOF — streaming input never gets UTF-16
// transcoding (that requires the whole buffer up front), only the
// narrower UTF-8-BOM check [Options.SkipBOM] asks for.
func (it *StreamRowIterator) stripLeadingBOM() (skip int, needMore bool) {
	if !it.opts.SkipBOM {
		return 0, false
	}
	w := it.source.window()
	if len(w) >= len(bomUTF8) {
		if bytes.HasPrefix(w, bomUTF8) {
			return len(bomUTF8), false
		}
		return 0, false
	}
	if it.source.sourceAtEOF() {
		return 0, false
	}
	return 0, true
}

func (it *StreamRowIterator) fillWithContext(ctx context.Context) *ParseError {
	type fillResult struct{ err error }
	done := make(chan fillResult, 1)
	go func() { done <- fillResult{it.source.fill()} }()
	select {
	case <-ctx.Done():
		return newParseError(KindCanceled, ErrCanceled)
	case res := <-done:
		if res.err != nil {
			if pe, ok := res.err.(*ParseError); ok {
				return pe
			}
			return newParseError(KindIO, res.err)
		}
		return nil
	}
}

// Row returns the row made current by the last successful call to Next.
func (it *StreamRowIterator) Row() RowView { return it.row }

// Err returns the error, if any, that stopped iteration.
func (it *StreamRowIterator) Err() error { return it.err }

// Close releases the iterator's pooled scratch buffer.
func (it *StreamRowIterator) Close() error {
	it.live = false
	releaseScratch(it.scratch)
	it.scratch = nil
	return nil
}
