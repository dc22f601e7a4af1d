package rowkit

import (
	"fmt"
	"io"
)

// streamBuffer is the growable byte window bridging an io.Reader and the
// row scanner, per spec §4.4: bytes already consumed by a committed row
// are dropped on the next fill via a compact step, and the window doubles
// in size rather than growing by a fixed increment, up to
// Options.streamingGrowthCeiling().
type streamBuffer struct {
	r    io.Reader
	opts *Options

	buf   []byte
	start int // bytes before start are consumed and eligible for compaction
	end   int // buf[start:end] is valid, unconsumed data
	eof   bool
}

const defaultStreamBufferSize = 64 * 1024

func newStreamBuffer(r io.Reader, opts *Options) *streamBuffer {
	return &streamBuffer{
		r:    r,
		opts: opts,
		buf:  make([]byte, defaultStreamBufferSize),
	}
}

// window returns the currently buffered, unconsumed bytes.
func (b *streamBuffer) window() []byte { return b.buf[b.start:b.end] }

// atEOF reports whether the underlying reader has been fully drained and
// every byte has been delivered through window().
func (b *streamBuffer) atEOF() bool { return b.eof && b.start == b.end }

// sourceAtEOF reports whether the underlying reader has been fully
// drained, even if unconsumed bytes remain buffered.
func (b *streamBuffer) sourceAtEOF() bool { return b.eof }

// advance marks n bytes of the current window as consumed by the scanner.
func (b *streamBuffer) advance(n int) {
	b.start += n
	if b.start > b.end {
		panic("rowkit: streamBuffer.advance past end of window")
	}
}

// fill compacts consumed bytes out of the window, grows the buffer if it
// is full, and reads more data from the underlying reader. It returns nil
// once at least one more byte is available or the source has reached EOF;
// callers distinguish "no more data, ever" via atEOF()/sourceAtEOF().
func (b *streamBuffer) fill() error {
	if b.eof {
		return nil
	}
	b.compact()
	if b.end == len(b.buf) {
		if err := b.grow(); err != nil {
			return err
		}
	}
	n, err := b.r.Read(b.buf[b.end:])
	b.end += n
	if err != nil {
		if err == io.EOF {
			b.eof = true
			return nil
		}
		return newParseError(KindIO, err)
	}
	if n == 0 {
		// A compliant io.Reader returning (0, nil) means "try again";
		// treat as EOF only through the explicit io.EOF branch above.
		return nil
	}
	return nil
}

// compact slides unconsumed bytes to the front of the buffer, reclaiming
// the space occupied by already-scanned rows.
func (b *streamBuffer) compact() {
	if b.start == 0 {
		return
	}
	n := copy(b.buf, b.buf[b.start:b.end])
	b.start = 0
	b.end = n
}

// grow doubles the buffer, capped by the configured growth ceiling. It
// returns a RowTooLarge error once doubling would exceed that ceiling
// without the window becoming able to hold a full row, matching spec
// §4.4's requirement that unbounded growth never occurs.
func (b *streamBuffer) grow() error {
	ceiling := b.opts.streamingGrowthCeiling()
	if len(b.buf) >= ceiling {
		return newParseError(KindRowTooLarge, fmt.Errorf("%w: row exceeds %d byte streaming buffer ceiling", ErrRowTooLarge, ceiling))
	}
	newSize := len(b.buf) * 2
	if newSize > ceiling {
		newSize = ceiling
	}
	grown := make([]byte, newSize)
	copy(grown, b.buf[:b.end])
	b.buf = grown
	return nil
}
