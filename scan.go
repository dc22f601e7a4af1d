package rowkit

import (
	"bytes"
	"math/bits"
)

// columnFlags carries the per-column metadata spec §3 assigns to a column
// view: whether the field was quoted, and whether it needs doubled-quote
// unescaping before a caller sees its content.
type columnFlags struct {
	isQuoted      bool
	needsUnescape bool
}

// scannedRow is the row state machine's output: spec §4.2's
// {row_byte_length, column_count, column_ends[]}, plus the bookkeeping the
// rest of the package needs (absolute buffer span, 1-based row index, and
// source line when tracking is enabled).
type scannedRow struct {
	start, end int // absolute offsets into the scanned buffer
	colEnds    []int32
	colFlags   []columnFlags
	index      int64
	sourceLine int64
}

func (r *scannedRow) columnCount() int { return len(r.colEnds) }

// scanStatus distinguishes "produced a row" from the two reasons a scan
// step can return nothing: end of input, or (streaming only) the buffer
// does not yet contain a full row and more bytes are needed.
type scanStatus int

const (
	scanOK scanStatus = iota
	scanNeedMore
	scanEOF
)

// rowScanner drives a [kernelVariant] across a buffer to locate row and
// column boundaries, implementing the algorithm of spec §4.2.
type rowScanner struct {
	kernel kernelVariant
	opts   *Options
}

func newRowScanner(opts *Options) *rowScanner {
	return &rowScanner{kernel: newKernel(), opts: opts}
}

// initialSourceLine is the source_line an iterator starts counting from:
// 1 when line tracking is enabled, 0 (its permanent value) when disabled.
func initialSourceLine(opts *Options) int64 {
	if opts.TrackSourceLine {
		return 1
	}
	return 0
}

// next scans forward from pos looking for the next emittable row. atEOF
// tells the scanner whether buf is the final, complete remainder of the
// input (true for in-memory parsing, or for a streaming buffer that has
// seen io.EOF from its source).
func (s *rowScanner) next(buf []byte, pos int, rowIndex, sourceLine int64) (row scannedRow, newPos int, newSourceLine int64, status scanStatus, atEOF bool, err *ParseError) {
	return s.nextInternal(buf, pos, rowIndex, sourceLine, true)
}

// nextStreaming is identical to next but treats running off the end of buf
// as "need more input" rather than true end of file, unless sourceAtEOF is
// set (the underlying source itself has no more bytes).
func (s *rowScanner) nextStreaming(buf []byte, pos int, rowIndex, sourceLine int64, sourceAtEOF bool) (row scannedRow, newPos int, newSourceLine int64, status scanStatus, err *ParseError) {
	row, newPos, newSourceLine, status, _, err = s.nextInternal(buf, pos, rowIndex, sourceLine, sourceAtEOF)
	return
}

func (s *rowScanner) nextInternal(buf []byte, pos int, rowIndex, sourceLine int64, sourceAtEOF bool) (row scannedRow, newPos int, newSourceLine int64, status scanStatus, atEOF bool, err *ParseError) {
	opts := s.opts
	sourceLineCur := sourceLine

	for {
		if pos >= len(buf) {
			if sourceAtEOF {
				return scannedRow{}, pos, sourceLineCur, scanEOF, true, nil
			}
			return scannedRow{}, pos, sourceLineCur, scanNeedMore, false, nil
		}

		// Comment lines: recognized only as the very first byte of a row.
		if opts.Comment != 0 && buf[pos] == opts.Comment {
			nlEnd, consumed, found := skipLine(buf, pos, sourceAtEOF)
			if !found {
				if !sourceAtEOF {
					return scannedRow{}, pos, sourceLineCur, scanNeedMore, false, nil
				}
				return scannedRow{}, len(buf), sourceLineCur, scanEOF, true, nil
			}
			pos = nlEnd
			if opts.TrackSourceLine {
				sourceLineCur += int64(consumed)
			}
			continue
		}

		r, next, newLine, st, err := s.scanRowBody(buf, pos, rowIndex, sourceLineCur, sourceAtEOF)
		if err != nil {
			return scannedRow{}, pos, sourceLineCur, scanOK, false, err
		}
		switch st {
		case scanNeedMore:
			return scannedRow{}, pos, sourceLineCur, scanNeedMore, false, nil
		case scanEOF:
			return scannedRow{}, next, newLine, scanEOF, true, nil
		}

		if opts.IgnoreEmptyLines && r.columnCount() == 1 && r.colEnds[0] == 0 {
			pos = next
			sourceLineCur = newLine
			continue
		}

		return r, next, newLine, scanOK, false, nil
	}
}

// skipLine advances past a comment line, returning the offset just past
// its terminator and how many source lines it consumed (0 or 1).
func skipLine(buf []byte, pos int, sourceAtEOF bool) (next int, linesConsumed int, found bool) {
	idx := bytes.IndexAny(buf[pos:], "\r\n")
	if idx < 0 {
		if !sourceAtEOF {
			return pos, 0, false
		}
		return len(buf), 0, true
	}
	abs := pos + idx
	if buf[abs] == '\r' && abs+1 < len(buf) && buf[abs+1] == '\n' {
		return abs + 2, 1, true
	}
	if buf[abs] == '\r' && abs+1 >= len(buf) && !sourceAtEOF {
		return pos, 0, false
	}
	return abs + 1, 1, true
}

// scanRowBody scans exactly one row starting at pos (pos is known not to
// be a comment byte). It returns scanNeedMore when streaming input runs
// out mid-row and more bytes might resolve it, and surfaces limit/quote
// errors with the exact byte offset that triggered them (spec §8's
// "at or before the first offset exceeding L").
func (s *rowScanner) scanRowBody(buf []byte, pos int, rowIndex, sourceLine int64, sourceAtEOF bool) (row scannedRow, newPos int, newSourceLine int64, status scanStatus, err *ParseError) {
	opts := s.opts
	rowStart := pos
	fieldStartRel := 0
	var colEnds []int32
	var colFlags []columnFlags
	carry := false
	p := pos
	var embeddedLines int64

	appendColumn := func(endAbs int) *ParseError {
		endRel := int32(endAbs - rowStart)
		fieldData := buf[rowStart+fieldStartRel : endAbs]
		flags, ferr := classifyField(fieldData, opts)
		if ferr != nil {
			return ferr.withOffset(int64(rowStart + fieldStartRel)).withRow(rowIndex).withColumn(len(colEnds) + 1)
		}
		if len(fieldData) > opts.MaxFieldSize {
			return newParseError(KindFieldTooLarge, ErrFieldTooLarge).
				withOffset(int64(endAbs)).withRow(rowIndex).withColumn(len(colEnds) + 1)
		}
		colEnds = append(colEnds, endRel)
		colFlags = append(colFlags, flags)
		fieldStartRel = int(endRel) + 1
		if len(colEnds) > opts.MaxColumns {
			return newParseError(KindTooManyColumns, ErrTooManyColumns).
				withOffset(int64(endAbs)).withRow(rowIndex)
		}
		return nil
	}

	for {
		if p-rowStart > opts.MaxRowSize {
			return scannedRow{}, pos, sourceLine, scanOK, newParseError(KindRowTooLarge, ErrRowTooLarge).
				withOffset(int64(p)).withRow(rowIndex)
		}
		if p >= len(buf) {
			if carry {
				if !sourceAtEOF {
					return scannedRow{}, pos, sourceLine, scanNeedMore, nil
				}
				// The source ended with a quote still open: unterminated
				// regardless of NewlinesInQuotes, which only governs an
				// embedded newline byte, not a missing closing quote.
				return scannedRow{}, pos, sourceLine, scanOK, newParseError(KindUnterminatedQuote, ErrUnterminatedQuote).
					withOffset(int64(p)).withRow(rowIndex)
			}
			if !sourceAtEOF {
				return scannedRow{}, pos, sourceLine, scanNeedMore, nil
			}
			// Final row without a trailing newline, provided something was consumed.
			if rowStart >= len(buf) {
				return scannedRow{}, len(buf), sourceLine, scanEOF, nil
			}
			if e := appendColumn(len(buf)); e != nil {
				return scannedRow{}, pos, sourceLine, scanOK, e
			}
			return scannedRow{start: rowStart, end: len(buf), colEnds: colEnds, colFlags: colFlags, index: rowIndex, sourceLine: sourceLine}, len(buf), sourceLine, scanOK, nil
		}

		remaining := buf[p:]
		block := s.kernel.Process(remaining, opts.Delimiter, opts.Quote, carry)
		inQuote := prefixXOR64(block.Q)
		if carry {
			inQuote = ^inQuote
		}
		if block.ValidBits < 64 {
			inQuote &= uint64(1)<<uint(block.ValidBits) - 1
		}
		nOutside := block.N &^ inQuote
		// nInside are newline bytes the kernel found inside the currently
		// open quoted region: content, not a row terminator. When
		// NewlinesInQuotes is false they are a hard error instead; when
		// true, each one still advances source_line like any other
		// newline consumed (spec: "including those inside quoted fields").
		nInside := block.N & inQuote
		hits := block.M | nOutside | nInside

		// terminatorLine reports the source_line the *next* row starts on:
		// the current line, plus the terminator itself, plus every
		// embedded newline swallowed by this row's quoted fields. Gated on
		// TrackSourceLine so the value stays at its disabled default (0)
		// throughout.
		terminatorLine := func() int64 {
			if !opts.TrackSourceLine {
				return sourceLine
			}
			return sourceLine + 1 + embeddedLines
		}

		for hits != 0 {
			i := bits.TrailingZeros64(hits)
			bit := uint64(1) << uint(i)
			absPos := p + i

			if block.M&bit != 0 {
				if e := appendColumn(absPos); e != nil {
					return scannedRow{}, pos, sourceLine, scanOK, e
				}
				hits &^= bit
				continue
			}

			if nInside&bit != 0 {
				if !opts.NewlinesInQuotes {
					return scannedRow{}, pos, sourceLine, scanOK, newParseError(KindUnterminatedQuote, ErrUnterminatedQuote).
						withOffset(int64(absPos)).withRow(rowIndex)
				}
				embeddedLines++
				hits &^= bit
				continue
			}

			b := buf[absPos]
			if b == '\r' {
				if absPos+1 < len(buf) {
					if buf[absPos+1] == '\n' {
						if e := appendColumn(absPos); e != nil {
							return scannedRow{}, pos, sourceLine, scanOK, e
						}
						row = scannedRow{start: rowStart, end: absPos, colEnds: colEnds, colFlags: colFlags, index: rowIndex, sourceLine: sourceLine}
						return row, absPos + 2, terminatorLine(), scanOK, nil
					}
				} else if !sourceAtEOF {
					return scannedRow{}, pos, sourceLine, scanNeedMore, nil
				}
				if opts.AcceptLoneCR {
					if e := appendColumn(absPos); e != nil {
						return scannedRow{}, pos, sourceLine, scanOK, e
					}
					row = scannedRow{start: rowStart, end: absPos, colEnds: colEnds, colFlags: colFlags, index: rowIndex, sourceLine: sourceLine}
					return row, absPos + 1, terminatorLine(), scanOK, nil
				}
				// Lone CR not accepted as a terminator: literal byte, keep scanning.
				hits &^= bit
				continue
			}

			// b == '\n'
			endAbs := absPos
			if absPos > rowStart && buf[absPos-1] == '\r' {
				endAbs = absPos - 1
			}
			if e := appendColumn(endAbs); e != nil {
				return scannedRow{}, pos, sourceLine, scanOK, e
			}
			row = scannedRow{start: rowStart, end: endAbs, colEnds: colEnds, colFlags: colFlags, index: rowIndex, sourceLine: sourceLine}
			return row, absPos + 1, terminatorLine(), scanOK, nil
		}

		carry = block.CarryOut
		p += block.ValidBits
	}
}

// classifyField determines whether a field is quoted and whether it
// contains doubled quotes that need unescaping, validating quote placement
// per spec §4.2's strict/lax rules. It is only non-trivial for fields that
// actually begin with the quote byte — the overwhelmingly common unquoted
// case returns immediately.
func classifyField(data []byte, opts *Options) (columnFlags, *ParseError) {
	lead := 0
	if opts.TrimFields {
		for lead < len(data) && (data[lead] == ' ' || data[lead] == '\t') {
			lead++
		}
	}
	if lead >= len(data) || data[lead] != opts.Quote || !opts.AllowQuotedFields {
		if opts.StrictQuotes && bytes.IndexByte(data, opts.Quote) >= 0 {
			return columnFlags{}, newParseError(KindMalformedQuote, ErrMalformedQuote)
		}
		needsUnescape := !opts.StrictQuotes && bytes.IndexByte(data, opts.Quote) >= 0
		return columnFlags{needsUnescape: needsUnescape}, nil
	}

	i := lead + 1
	needsUnescape := false
	closed := false
	for i < len(data) {
		if data[i] == opts.Quote {
			if i+1 < len(data) && data[i+1] == opts.Quote {
				needsUnescape = true
				i += 2
				continue
			}
			i++
			closed = true
			break
		}
		i++
	}
	if !closed {
		// The row scanner's carry propagation guarantees a field that
		// opens with a quote closes before the terminating delimiter or
		// newline; reaching here means corrupted internal state.
		return columnFlags{}, newParseError(KindUnterminatedQuote, ErrUnterminatedQuote)
	}
	if i < len(data) {
		trailing := data[i:]
		if !isAllWhitespace(trailing) {
			if opts.StrictQuotes {
				return columnFlags{}, newParseError(KindMalformedQuote, ErrMalformedQuote)
			}
			needsUnescape = true
		}
	}
	return columnFlags{isQuoted: true, needsUnescape: needsUnescape}, nil
}

func isAllWhitespace(b []byte) bool {
	for _, c := range b {
		if c != ' ' && c != '\t' {
			return false
		}
	}
	return true
}
