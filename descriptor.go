package rowkit

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(big.Rat{})
	uuidType    = reflect.TypeOf([16]byte{})
)

// fieldKind enumerates the scalar kinds a memberDescriptor knows how to
// decode into, covering the closed set of converters spec §4.3 requires.
type fieldKind int

const (
	fieldString fieldKind = iota
	fieldInt64
	fieldUint64
	fieldFloat64
	fieldBool
	fieldDecimal
	fieldDate
	fieldTime
	fieldDateTime
	fieldDateTimeOffset
	fieldUUID
)

// memberDescriptor is a pre-resolved binding between one struct field and
// one input column, per spec §4.6 ("pre-resolved, immutable descriptors").
// Compiling a descriptor once and reusing it across every row is what lets
// Bind avoid per-row reflection lookups.
type memberDescriptor struct {
	structIndex []int // reflect.Value.FieldByIndex path
	fieldName   string
	headerName  string // empty when resolved purely by position
	columnIndex int    // -1 when resolved purely by header name
	kind        fieldKind
	format      Format
	optional    bool // zero value accepted when column is missing/null
	goType      reflect.Type
}

// rowDescriptor is the compiled binding plan for one destination struct
// type, built once by compileDescriptor and cached by [descriptorCache].
type rowDescriptor struct {
	goType  reflect.Type
	members []memberDescriptor
}

// rowkit struct tag, e.g. `rowkit:"name=amount,format=2006-01-02,optional"`.
const structTag = "rowkit"

// compileDescriptor reflects over t (which must be a struct type) once,
// resolving each exported field's column binding from its struct tag (or
// its field name, lowercased, when no tag is present) and its Go type.
func compileDescriptor(t reflect.Type) (*rowDescriptor, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("rowkit: bind target must be a struct, got %s", t.Kind())
	}
	d := &rowDescriptor{goType: t}
	if err := compileFields(t, nil, d); err != nil {
		return nil, err
	}
	return d, nil
}

func compileFields(t reflect.Type, prefix []int, d *rowDescriptor) error {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.PkgPath != "" { // unexported
			continue
		}
		idx := append(append([]int{}, prefix...), i)
		tag := f.Tag.Get(structTag)
		if tag == "-" {
			continue
		}
		opts := parseTagOptions(tag)
		if opts.embed && f.Type.Kind() == reflect.Struct {
			if err := compileFields(f.Type, idx, d); err != nil {
				return err
			}
			continue
		}
		md, err := memberFromField(f, idx, opts)
		if err != nil {
			return fmt.Errorf("rowkit: field %s: %w", f.Name, err)
		}
		d.members = append(d.members, md)
	}
	return nil
}

type tagOptions struct {
	name     string
	index    int
	hasIndex bool
	format   string
	optional bool
	embed    bool
}

func parseTagOptions(tag string) tagOptions {
	var o tagOptions
	o.index = -1
	if tag == "" {
		return o
	}
	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "optional":
			o.optional = true
		case part == "embed":
			o.embed = true
		case strings.HasPrefix(part, "name="):
			o.name = strings.TrimPrefix(part, "name=")
		case strings.HasPrefix(part, "index="):
			if n, err := strconv.Atoi(strings.TrimPrefix(part, "index=")); err == nil {
				o.index = n
				o.hasIndex = true
			}
		case strings.HasPrefix(part, "format="):
			o.format = strings.TrimPrefix(part, "format=")
		}
	}
	return o
}

func memberFromField(f reflect.StructField, idx []int, opts tagOptions) (memberDescriptor, error) {
	md := memberDescriptor{
		structIndex: idx,
		fieldName:   f.Name,
		headerName:  opts.name,
		columnIndex: -1,
		format:      Format(opts.format),
		optional:    opts.optional,
		goType:      f.Type,
	}
	if md.headerName == "" && !opts.hasIndex {
		md.headerName = strings.ToLower(f.Name)
	}
	if opts.hasIndex {
		md.columnIndex = opts.index
		md.headerName = ""
	}
	kind, err := kindForType(f.Type)
	if err != nil {
		return memberDescriptor{}, err
	}
	md.kind = kind
	return md, nil
}

func kindForType(t reflect.Type) (fieldKind, error) {
	switch t {
	case timeType:
		return fieldDateTime, nil
	case decimalType:
		return fieldDecimal, nil
	case uuidType:
		return fieldUUID, nil
	}
	switch t.Kind() {
	case reflect.String:
		return fieldString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fieldInt64, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fieldUint64, nil
	case reflect.Float32, reflect.Float64:
		return fieldFloat64, nil
	case reflect.Bool:
		return fieldBool, nil
	default:
		return 0, fmt.Errorf("unsupported field type %s", t)
	}
}
