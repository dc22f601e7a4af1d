package rowkit

import (
	"math/big"
	"time"
)

// RowView is a non-owning, offset-indexed view over a parser buffer, per
// spec §3/§4.3. It borrows the buffer for its entire lifetime: no field is
// materialized until a caller asks for a specific column, and a RowView
// must not be retained past the next call to the iterator that produced
// it. In debug builds debugAssertLive panics on use once the iterator has
// been closed or a Next call has returned false; every view of one iterator
// shares a single liveness flag, so a view kept across a successful Next is
// not detected.
type RowView struct {
	buf  []byte
	row  scannedRow
	opts *Options
	// scratch is a reusable unescape buffer, owned by the iterator that
	// produced this view, so repeated Unescaped() calls across columns
	// and rows amortize to zero steady-state allocation.
	scratch *[]byte
	live    *bool // the producing iterator's liveness flag; see debugAssertLive
}

// RowIndex returns the 1-based row_index of this row.
func (r RowView) RowIndex() int64 { return r.row.index }

// SourceLine returns the 1-based source line the row started on, or 0 if
// source line tracking was disabled.
func (r RowView) SourceLine() int64 { return r.row.sourceLine }

// ColumnCount returns the number of columns in this row.
func (r RowView) ColumnCount() int { return r.row.columnCount() }

// ByteLength returns the row's raw byte length, excluding its terminator.
func (r RowView) ByteLength() int { return r.row.end - r.row.start }

// Column returns the view for column i (0-based). ok is false when i is
// out of range.
func (r RowView) Column(i int) (ColumnView, bool) {
	r.debugAssertLive()
	if i < 0 || i >= len(r.row.colEnds) {
		return ColumnView{}, false
	}
	start := r.row.start
	if i > 0 {
		start = r.row.start + int(r.row.colEnds[i-1]) + 1
	}
	end := r.row.start + int(r.row.colEnds[i])
	return ColumnView{
		data:    r.buf[start:end],
		flags:   r.row.colFlags[i],
		opts:    r.opts,
		scratch: r.scratch,
	}, true
}

// Columns returns every column view for the row, in order.
func (r RowView) Columns() []ColumnView {
	out := make([]ColumnView, r.ColumnCount())
	for i := range out {
		out[i], _ = r.Column(i)
	}
	return out
}

func (r RowView) debugAssertLive() {
	if debugBuild && r.live != nil && !*r.live {
		panic("rowkit: RowView used after its iterator advanced past it")
	}
}

// ColumnView is a read-only, offset-addressed slice into a row buffer, per
// spec §3/§4.3. Decoding operations are pure functions of the slice plus
// policy and never allocate unless an unescape or conversion is
// unavoidable.
type ColumnView struct {
	data    []byte
	flags   columnFlags
	opts    *Options
	scratch *[]byte
}

// IsQuoted reports whether the field was written as a quoted field.
func (c ColumnView) IsQuoted() bool { return c.flags.isQuoted }

// NeedsUnescape reports whether the field contains doubled quotes that
// Unescaped would need to collapse.
func (c ColumnView) NeedsUnescape() bool { return c.flags.needsUnescape }

// AsBytes returns the field content with any wrapping quotes removed, but
// without resolving doubled quotes. An unquoted field has leading and
// trailing spaces and tabs removed when TrimFields is set. The returned
// slice aliases the parser buffer and must not be retained past the row's
// lifetime.
func (c ColumnView) AsBytes() []byte {
	if !c.flags.isQuoted {
		b := c.data
		if c.opts != nil && c.opts.TrimFields {
			i, j := 0, len(b)
			for i < j && (b[i] == ' ' || b[i] == '\t') {
				i++
			}
			for j > i && (b[j-1] == ' ' || b[j-1] == '\t') {
				j--
			}
			b = b[i:j]
		}
		return b
	}
	start, end := quotedContentBounds(c.data, c.opts.Quote, c.opts.TrimFields)
	return c.data[start:end]
}

// Trimmed returns AsBytes with the configured whitespace trimmed from both
// ends. Byte-wise trimming of ASCII space, tab, CR and LF, matching spec
// §4.3's "ASCII-safe configurations" path.
func (c ColumnView) Trimmed() []byte {
	b := c.AsBytes()
	i, j := 0, len(b)
	for i < j && isTrimByte(b[i]) {
		i++
	}
	for j > i && isTrimByte(b[j-1]) {
		j--
	}
	return b[i:j]
}

func isTrimByte(b byte) bool { return b == ' ' || b == '\t' || b == '\r' || b == '\n' }

// Unescaped resolves doubled quote bytes into single literal quotes.
// Idempotent when NeedsUnescape is false: it returns AsBytes() unchanged,
// with no allocation. When doubling is present it writes into the
// caller's scratch buffer (growing it if necessary) and returns the
// written portion.
func (c ColumnView) Unescaped() []byte {
	b := c.AsBytes()
	if !c.flags.needsUnescape {
		return b
	}
	quote := c.opts.Quote
	var buf []byte
	if c.scratch != nil {
		buf = (*c.scratch)[:0]
	}
	if cap(buf) < len(b) {
		buf = make([]byte, 0, len(b))
	}
	for i := 0; i < len(b); i++ {
		if b[i] == quote && i+1 < len(b) && b[i+1] == quote {
			buf = append(buf, quote)
			i++
			continue
		}
		buf = append(buf, b[i])
	}
	if c.scratch != nil {
		*c.scratch = buf
	}
	return buf
}

// quotedContentBounds returns the byte range of a quoted field's content,
// between the opening and the first closing quote, skipping any leading
// whitespace permitted by trimFields. Callers must already know the field
// is quoted (ColumnView.IsQuoted()).
func quotedContentBounds(data []byte, quote byte, trimFields bool) (start, end int) {
	lead := 0
	if trimFields {
		for lead < len(data) && (data[lead] == ' ' || data[lead] == '\t') {
			lead++
		}
	}
	start = lead + 1
	i := start
	for i < len(data) {
		if data[i] == quote {
			if i+1 < len(data) && data[i+1] == quote {
				i += 2
				continue
			}
			return start, i
		}
		i++
	}
	return start, len(data)
}

// ParseInt64 parses the column as a signed 64-bit integer.
func (c ColumnView) ParseInt64(format Format) (int64, error) {
	v, err := parseInt64(c.Unescaped(), format)
	if err != nil {
		return 0, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseUint64 parses the column as an unsigned 64-bit integer.
func (c ColumnView) ParseUint64(format Format) (uint64, error) {
	v, err := parseUint64(c.Unescaped(), format)
	if err != nil {
		return 0, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseFloat64 parses the column as a 64-bit float.
func (c ColumnView) ParseFloat64(format Format) (float64, error) {
	v, err := parseFloat64(c.Unescaped(), format)
	if err != nil {
		return 0, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseDecimal parses the column as an exact fixed-point decimal.
func (c ColumnView) ParseDecimal(culture Culture) (*big.Rat, error) {
	v, err := parseDecimal(c.Unescaped(), culture)
	if err != nil {
		return nil, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseBool parses the column against the configured truthy/falsy token sets.
func (c ColumnView) ParseBool() (bool, error) {
	v, err := parseBool(c.Unescaped(), c.opts.TruthyTokens, c.opts.FalsyTokens)
	if err != nil {
		return false, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseDate parses the column as a calendar date.
func (c ColumnView) ParseDate(format Format) (time.Time, error) {
	v, err := parseDate(c.Unescaped(), format)
	if err != nil {
		return time.Time{}, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseTime parses the column as a time of day.
func (c ColumnView) ParseTime(format Format) (time.Time, error) {
	v, err := parseTimeOfDay(c.Unescaped(), format)
	if err != nil {
		return time.Time{}, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseDateTime parses the column as a local date-time.
func (c ColumnView) ParseDateTime(format Format) (time.Time, error) {
	v, err := parseDateTime(c.Unescaped(), format)
	if err != nil {
		return time.Time{}, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseDateTimeOffset parses the column as a date-time with a UTC offset.
func (c ColumnView) ParseDateTimeOffset(format Format) (time.Time, error) {
	v, err := parseDateTimeOffset(c.Unescaped(), format)
	if err != nil {
		return time.Time{}, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseUUID parses the column as a canonical-form UUID.
func (c ColumnView) ParseUUID() ([16]byte, error) {
	v, err := parseUUID(c.Unescaped())
	if err != nil {
		return [16]byte{}, newParseError(KindParse, err)
	}
	return v, nil
}

// ParseEnumByName resolves the column against a set of enum member names.
func (c ColumnView) ParseEnumByName(names []string) (int, bool) {
	return parseEnumByName(c.Unescaped(), names, c.opts.CaseSensitiveHeaders)
}

// ParseEnumOrdinal resolves the column as an integer enum ordinal.
func (c ColumnView) ParseEnumOrdinal(count int) (int, bool) {
	return parseEnumOrdinal(c.Unescaped(), count)
}

// ParseCustom hands the column's unescaped bytes to a caller-supplied
// converter — the "any user type exposing a parse-from-slice with
// format+culture operation" escape hatch from spec §4.3.
func (c ColumnView) ParseCustom(fn func(data []byte, format Format, culture Culture) (any, error), format Format, culture Culture) (any, error) {
	v, err := fn(c.Unescaped(), format, culture)
	if err != nil {
		return nil, newParseError(KindParse, err)
	}
	return v, nil
}

// IsNull reports whether the raw (pre-unescape) column bytes match one of
// the configured null tokens, byte-exact per spec §4.5.
func (c ColumnView) IsNull() bool {
	raw := c.AsBytes()
	for _, tok := range c.opts.NullTokens {
		if bytesEqual(raw, tok) {
			return true
		}
	}
	return false
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
