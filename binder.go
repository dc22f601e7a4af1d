package rowkit

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// resolvedMember pairs a compiled [memberDescriptor] with the column index
// it binds to for one particular header, resolved once by [NewBinder]
// rather than on every row.
type resolvedMember struct {
	memberDescriptor
	resolvedIndex int // -1 means "no such column" (member optional or AllowMissingColumns set)
}

// Binder binds successive [RowView] values to a destination struct type
// using a descriptor compiled once and cached process-wide, per spec
// §4.6. A Binder is not safe for concurrent use by multiple goroutines;
// give each goroutine (or each [RowIterator]) its own.
type Binder struct {
	opts       *Options
	descriptor *rowDescriptor
	members    []resolvedMember
	// ReuseTarget, when true, tells Bind to write into the struct passed
	// in without zeroing fields the current row leaves unbound first —
	// generalizes the teacher's single ReuseRecord allocation to binding.
	ReuseTarget bool
}

// NewBinder compiles (or fetches from cache) the descriptor for the type
// pointed to by target, and resolves every header-named member against
// header. Pass a nil header when every member is resolved by explicit
// `index=` tag instead.
func NewBinder(target any, header []string, opts *Options) (*Binder, error) {
	rt := reflect.TypeOf(target)
	if rt == nil || rt.Kind() != reflect.Ptr || rt.Elem().Kind() != reflect.Struct {
		return nil, newParseError(KindConfig, fmt.Errorf("rowkit: bind target must be a non-nil pointer to struct"))
	}
	d, err := descriptorFor(rt.Elem())
	if err != nil {
		return nil, newParseError(KindConfig, err)
	}

	headerIndex, dupErr := buildHeaderIndex(header, opts)
	if dupErr != nil && opts.DetectDuplicate {
		return nil, dupErr
	}

	b := &Binder{opts: opts, descriptor: d}
	for _, m := range d.members {
		rm := resolvedMember{memberDescriptor: m, resolvedIndex: m.columnIndex}
		if m.headerName != "" {
			key := m.headerName
			if !opts.CaseSensitiveHeaders {
				key = strings.ToLower(key)
			}
			idx, ok := headerIndex[key]
			if !ok {
				if m.optional || opts.AllowMissingColumns {
					rm.resolvedIndex = -1
				} else {
					return nil, newParseError(KindMissingColumn, ErrMissingColumn).withField(m.headerName)
				}
			} else {
				rm.resolvedIndex = idx
			}
		}
		b.members = append(b.members, rm)
	}
	return b, nil
}

func buildHeaderIndex(header []string, opts *Options) (map[string]int, *ParseError) {
	idx := make(map[string]int, len(header))
	var dup *ParseError
	for i, h := range header {
		key := h
		if !opts.CaseSensitiveHeaders {
			key = strings.ToLower(key)
		}
		if _, exists := idx[key]; exists && dup == nil {
			dup = newParseError(KindDuplicateHeader, ErrDuplicateHeader).withField(h)
		}
		idx[key] = i
	}
	return idx, dup
}

// bindSkip is returned internally by Bind to signal PolicySkipRow; callers
// iterating rows check for it with errors.Is and continue rather than stop.
var bindSkip = fmt.Errorf("rowkit: row skipped by error policy")

// Bind decodes row into dest, which must be a non-nil pointer to the same
// struct type given to NewBinder. On a per-column conversion failure it
// applies the configured [ErrorPolicy]: Throw returns the error
// immediately, SkipRow returns bindSkip (checkable with errors.Is),
// UseDefault leaves the field at its zero value and accumulates the error
// into a [multierror.Error] returned alongside a nil error.
func (b *Binder) Bind(dest any, row RowView) (*multierror.Error, error) {
	v := reflect.ValueOf(dest)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return nil, newParseError(KindConfig, fmt.Errorf("rowkit: Bind destination must be a non-nil pointer"))
	}
	v = v.Elem()

	var accumulated *multierror.Error
	for _, m := range b.members {
		fv := v.FieldByIndex(m.structIndex)
		if !b.ReuseTarget {
			fv.Set(reflect.Zero(fv.Type()))
		}
		if m.resolvedIndex < 0 {
			continue
		}
		col, ok := row.Column(m.resolvedIndex)
		if !ok {
			if m.optional {
				continue
			}
			perr := newParseError(KindValidation, fmt.Errorf("rowkit: row has no column %d", m.resolvedIndex)).
				withRow(row.RowIndex()).withField(m.fieldName)
			result, stop := b.applyPolicy(perr, &accumulated)
			if stop {
				return accumulated, result
			}
			continue
		}
		if col.IsNull() {
			continue
		}
		if err := b.setField(fv, m, col); err != nil {
			perr := err.withRow(row.RowIndex()).withColumn(m.resolvedIndex + 1).withField(m.fieldName)
			result, stop := b.applyPolicy(perr, &accumulated)
			if stop {
				return accumulated, result
			}
		}
	}
	return accumulated, nil
}

// applyPolicy reports (err, true) when Bind must stop processing this row
// immediately (Throw, or SkipRow), and (nil, false) when Bind should
// continue to the next member (UseDefault, having accumulated perr).
func (b *Binder) applyPolicy(perr *ParseError, accumulated **multierror.Error) (error, bool) {
	switch b.opts.ErrorPolicy {
	case PolicySkipRow:
		*accumulated = multierror.Append(*accumulated, perr)
		return bindSkip, true
	case PolicyUseDefault:
		*accumulated = multierror.Append(*accumulated, perr)
		return nil, false
	default:
		return perr, true
	}
}

func (b *Binder) setField(fv reflect.Value, m resolvedMember, col ColumnView) *ParseError {
	switch m.kind {
	case fieldString:
		fv.SetString(string(col.Unescaped()))
	case fieldInt64:
		n, err := col.ParseInt64(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.SetInt(n)
	case fieldUint64:
		n, err := col.ParseUint64(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.SetUint(n)
	case fieldFloat64:
		n, err := col.ParseFloat64(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.SetFloat(n)
	case fieldBool:
		bv, err := col.ParseBool()
		if err != nil {
			return err.(*ParseError)
		}
		fv.SetBool(bv)
	case fieldDecimal:
		r, err := col.ParseDecimal(Culture(b.opts.Culture))
		if err != nil {
			return err.(*ParseError)
		}
		fv.Set(reflect.ValueOf(*r))
	case fieldDate:
		t, err := col.ParseDate(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.Set(reflect.ValueOf(t))
	case fieldTime:
		t, err := col.ParseTime(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.Set(reflect.ValueOf(t))
	case fieldDateTime:
		t, err := col.ParseDateTime(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.Set(reflect.ValueOf(t))
	case fieldDateTimeOffset:
		t, err := col.ParseDateTimeOffset(m.format)
		if err != nil {
			return err.(*ParseError)
		}
		fv.Set(reflect.ValueOf(t))
	case fieldUUID:
		u, err := col.ParseUUID()
		if err != nil {
			return err.(*ParseError)
		}
		fv.Set(reflect.ValueOf(u))
	}
	return nil
}
