package rowkit

import "fmt"

// ErrorPolicy controls what the [Binder] does when a per-column converter
// fails. See spec §4.5/§7.
type ErrorPolicy int

const (
	// PolicyThrow surfaces the conversion error immediately (default).
	PolicyThrow ErrorPolicy = iota
	// PolicySkipRow discards the offending row and advances to the next.
	PolicySkipRow
	// PolicyUseDefault continues with the member's zero value and flags
	// the row in the aggregated error returned by batch operations.
	PolicyUseDefault
)

// defaultSafetyCeiling bounds [Options.MaxRowSize] when unset, per spec §4.4.
const defaultSafetyCeiling = 128 * 1024 * 1024

// Options is the immutable, validated configuration for a DSV reader. Build
// one with [NewOptions]; once constructed it is never mutated, so a single
// *Options may be shared across readers and goroutines.
type Options struct {
	Delimiter byte
	Quote     byte
	// Comment, if non-zero, marks lines to skip when it is the first byte
	// of the row.
	Comment byte

	AllowQuotedFields    bool
	NewlinesInQuotes     bool
	TrimFields           bool
	HasHeader            bool
	CaseSensitiveHeaders bool
	AllowMissingColumns  bool
	IgnoreEmptyLines     bool
	StrictQuotes         bool // MalformedQuote vs. lax literal-quote acceptance
	AcceptLoneCR         bool // spec §9(a): default CSV profile accepts lone CR as terminator
	TrackSourceLine      bool
	SkipBOM              bool // strip a leading UTF-8 byte-order mark before scanning

	NullTokens   [][]byte
	TruthyTokens []string
	FalsyTokens  []string

	MaxColumns   int
	MaxRows      int64
	MaxFieldSize int
	MaxRowSize   int

	Culture string

	ErrorPolicy ErrorPolicy
	// ProgressEvery, when non-zero, makes the iterators invoke ProgressFunc
	// once every ProgressEvery accepted rows.
	ProgressEvery   int64
	ProgressFunc    func(rowsRead int64)
	DetectDuplicate bool
}

// Option mutates an in-progress [Options] during construction.
type Option func(*Options)

// WithDelimiter sets the field delimiter byte. Default ','.
func WithDelimiter(b byte) Option { return func(o *Options) { o.Delimiter = b } }

// WithQuote sets the quote byte. Default '"'.
func WithQuote(b byte) Option { return func(o *Options) { o.Quote = b } }

// WithComment sets the comment byte. Zero disables comment handling.
func WithComment(b byte) Option { return func(o *Options) { o.Comment = b } }

// WithQuotedFields toggles RFC 4180 quoting support. Default true.
func WithQuotedFields(v bool) Option { return func(o *Options) { o.AllowQuotedFields = v } }

// WithNewlinesInQuotes toggles acceptance of literal newlines inside
// quoted fields. Default true.
func WithNewlinesInQuotes(v bool) Option { return func(o *Options) { o.NewlinesInQuotes = v } }

// WithTrimFields toggles whitespace trimming of unquoted field boundaries.
func WithTrimFields(v bool) Option { return func(o *Options) { o.TrimFields = v } }

// WithHeader toggles treating the first accepted row as a header row.
func WithHeader(v bool) Option { return func(o *Options) { o.HasHeader = v } }

// WithCaseSensitiveHeaders toggles case sensitivity of header name matches.
func WithCaseSensitiveHeaders(v bool) Option {
	return func(o *Options) { o.CaseSensitiveHeaders = v }
}

// WithAllowMissingColumns toggles tolerance of unresolved header names.
func WithAllowMissingColumns(v bool) Option {
	return func(o *Options) { o.AllowMissingColumns = v }
}

// WithIgnoreEmptyLines toggles skipping of blank lines instead of emitting
// a single-empty-column row for them.
func WithIgnoreEmptyLines(v bool) Option { return func(o *Options) { o.IgnoreEmptyLines = v } }

// WithStrictQuotes toggles strict-mode MalformedQuote errors for ambiguous
// quote placement; false accepts the lax literal interpretation.
func WithStrictQuotes(v bool) Option { return func(o *Options) { o.StrictQuotes = v } }

// WithAcceptLoneCR toggles whether a lone CR (not followed by LF) is a
// valid row terminator. See spec §9(a).
func WithAcceptLoneCR(v bool) Option { return func(o *Options) { o.AcceptLoneCR = v } }

// WithSourceLineTracking toggles maintenance of per-row source_line.
func WithSourceLineTracking(v bool) Option { return func(o *Options) { o.TrackSourceLine = v } }

// WithSkipBOM toggles stripping a leading UTF-8 byte-order mark before the
// first row is scanned. A UTF-16 byte-order mark on in-memory input is
// always consumed by transcoding, whatever this setting.
func WithSkipBOM(v bool) Option { return func(o *Options) { o.SkipBOM = v } }

// WithNullTokens sets the byte-exact tokens treated as null by the binder.
func WithNullTokens(tokens ...string) Option {
	return func(o *Options) {
		o.NullTokens = o.NullTokens[:0]
		for _, t := range tokens {
			o.NullTokens = append(o.NullTokens, []byte(t))
		}
	}
}

// WithBoolTokens overrides the configurable truthy/falsy token sets used
// by [ColumnView.ParseBool].
func WithBoolTokens(truthy, falsy []string) Option {
	return func(o *Options) { o.TruthyTokens = truthy; o.FalsyTokens = falsy }
}

// WithMaxColumns bounds the number of columns per row.
func WithMaxColumns(n int) Option { return func(o *Options) { o.MaxColumns = n } }

// WithMaxRows bounds the number of rows emitted.
func WithMaxRows(n int64) Option { return func(o *Options) { o.MaxRows = n } }

// WithMaxFieldSize bounds the byte length of a single column.
func WithMaxFieldSize(n int) Option { return func(o *Options) { o.MaxFieldSize = n } }

// WithMaxRowSize bounds the byte length of a single row.
func WithMaxRowSize(n int) Option { return func(o *Options) { o.MaxRowSize = n } }

// WithCulture sets the opaque culture/format hint forwarded to converters.
func WithCulture(c string) Option { return func(o *Options) { o.Culture = c } }

// WithErrorPolicy sets the binder's conversion-failure policy.
func WithErrorPolicy(p ErrorPolicy) Option { return func(o *Options) { o.ErrorPolicy = p } }

// WithProgressEvery sets the row interval for progress reporting; 0 disables it.
func WithProgressEvery(n int64) Option { return func(o *Options) { o.ProgressEvery = n } }

// WithProgressFunc sets the callback invoked every [Options.ProgressEvery]
// accepted rows. It has no effect while ProgressEvery is 0.
func WithProgressFunc(fn func(rowsRead int64)) Option {
	return func(o *Options) { o.ProgressFunc = fn }
}

// WithDuplicateHeaderDetection toggles DuplicateHeader detection.
func WithDuplicateHeaderDetection(v bool) Option {
	return func(o *Options) { o.DetectDuplicate = v }
}

func defaultOptions() Options {
	return Options{
		Delimiter:            ',',
		Quote:                '"',
		AllowQuotedFields:    true,
		NewlinesInQuotes:     true,
		HasHeader:            false,
		CaseSensitiveHeaders: true,
		AcceptLoneCR:         true,
		TrackSourceLine:      true,
		SkipBOM:              true,
		DetectDuplicate:      true,
		MaxColumns:           10_000,
		MaxRows:              0, // unlimited
		MaxFieldSize:         4 * 1024 * 1024,
		MaxRowSize:           16 * 1024 * 1024,
		ErrorPolicy:          PolicyThrow,
		TruthyTokens:         defaultTruthy,
		FalsyTokens:          defaultFalsy,
	}
}

// NewOptions builds a validated, immutable [Options]. Validation runs once
// here and never again: invalid option combinations are a programmer error
// surfaced eagerly, per spec §9 ("Programmer errors may be surfaced eagerly
// at construction").
func NewOptions(opts ...Option) (*Options, error) {
	o := defaultOptions()
	for _, apply := range opts {
		apply(&o)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	cp := o
	return &cp, nil
}

func isASCII(b byte) bool { return b < 0x80 }

func (o *Options) validate() error {
	if o.Delimiter == o.Quote {
		return newParseError(KindConfig, fmt.Errorf("delimiter and quote must differ"))
	}
	if o.Quote == o.Comment && o.Comment != 0 {
		return newParseError(KindConfig, fmt.Errorf("quote and comment must differ"))
	}
	for name, b := range map[string]byte{"delimiter": o.Delimiter, "quote": o.Quote, "comment": o.Comment} {
		if b != 0 && !isASCII(b) {
			return newParseError(KindConfig, fmt.Errorf("%s must be in 7-bit ASCII range", name))
		}
	}
	if o.MaxColumns <= 0 {
		return newParseError(KindConfig, fmt.Errorf("MaxColumns must be positive"))
	}
	if o.MaxRows < 0 {
		return newParseError(KindConfig, fmt.Errorf("MaxRows must be non-negative"))
	}
	if o.MaxFieldSize <= 0 {
		return newParseError(KindConfig, fmt.Errorf("MaxFieldSize must be positive"))
	}
	if o.MaxRowSize <= 0 {
		return newParseError(KindConfig, fmt.Errorf("MaxRowSize must be positive"))
	}
	if o.MaxRowSize < o.MaxFieldSize {
		return newParseError(KindConfig, fmt.Errorf("MaxRowSize must be >= MaxFieldSize"))
	}
	return nil
}

// streamingGrowthCeiling returns the absolute cap on [streamBuffer] growth:
// the configured MaxRowSize when set, else the package safety ceiling.
func (o *Options) streamingGrowthCeiling() int {
	if o.MaxRowSize > 0 {
		return o.MaxRowSize
	}
	return defaultSafetyCeiling
}
