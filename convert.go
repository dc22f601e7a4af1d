package rowkit

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Format is an opaque format hint forwarded to converters — a
// [strconv]/[time] layout string, a decimal scale spec, or whatever a
// custom converter wants to interpret. Culture is likewise opaque (e.g. a
// BCP-47 tag); this package's built-in converters only use it to pick the
// decimal separator for [ParseDecimal].
type Format string

// Culture is an opaque culture/locale hint. See [Format].
type Culture string

// defaultTruthy/defaultFalsy are the default configurable truthy/falsy
// token sets for [ParseBool], matching spec §4.3 ("boolean (configurable
// truthy set)").
var (
	defaultTruthy = []string{"true", "t", "1", "yes", "y"}
	defaultFalsy  = []string{"false", "f", "0", "no", "n"}
)

func parseInt64(data []byte, _ Format) (int64, error) {
	return strconv.ParseInt(string(data), 10, 64)
}

func parseUint64(data []byte, _ Format) (uint64, error) {
	return strconv.ParseUint(string(data), 10, 64)
}

func parseFloat64(data []byte, _ Format) (float64, error) {
	return strconv.ParseFloat(string(data), 64)
}

// parseDecimal parses a fixed-point decimal into a [big.Rat]. No pack
// dependency supplies a decimal type (see DESIGN.md); big.Rat gives exact
// fixed-point semantics without vendoring one.
func parseDecimal(data []byte, culture Culture) (*big.Rat, error) {
	s := string(data)
	if culture == "eu" || strings.HasSuffix(string(culture), "-eu") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("rowkit: %q is not a valid decimal", s)
	}
	return r, nil
}

func parseBool(data []byte, truthy, falsy []string) (bool, error) {
	s := strings.ToLower(strings.TrimSpace(string(data)))
	for _, t := range truthy {
		if s == t {
			return true, nil
		}
	}
	for _, f := range falsy {
		if s == f {
			return false, nil
		}
	}
	return false, fmt.Errorf("rowkit: %q is not a recognized boolean token", s)
}

const (
	defaultDateLayout           = "2006-01-02"
	defaultTimeLayout           = "15:04:05"
	defaultDateTimeLayout       = "2006-01-02T15:04:05"
	defaultDateTimeOffsetLayout = "2006-01-02T15:04:05Z07:00"
)

func parseDate(data []byte, format Format) (time.Time, error) {
	layout := defaultDateLayout
	if format != "" {
		layout = string(format)
	}
	return time.Parse(layout, string(data))
}

func parseTimeOfDay(data []byte, format Format) (time.Time, error) {
	layout := defaultTimeLayout
	if format != "" {
		layout = string(format)
	}
	return time.Parse(layout, string(data))
}

func parseDateTime(data []byte, format Format) (time.Time, error) {
	layout := defaultDateTimeLayout
	if format != "" {
		layout = string(format)
	}
	return time.Parse(layout, string(data))
}

func parseDateTimeOffset(data []byte, format Format) (time.Time, error) {
	layout := defaultDateTimeOffsetLayout
	if format != "" {
		layout = string(format)
	}
	return time.Parse(layout, string(data))
}

// parseUUID validates and decodes the canonical 8-4-4-4-12 hex-and-dash
// UUID textual form. No pack dependency supplies UUID parsing (see
// DESIGN.md); this is a small, self-contained stdlib implementation.
func parseUUID(data []byte) ([16]byte, error) {
	var out [16]byte
	s := string(data)
	if len(s) != 36 || s[8] != '-' || s[13] != '-' || s[18] != '-' || s[23] != '-' {
		return out, fmt.Errorf("rowkit: %q is not a well-formed UUID", s)
	}
	hexPart := s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:36]
	if _, err := hex.Decode(out[:], []byte(hexPart)); err != nil {
		return out, fmt.Errorf("rowkit: %q is not a well-formed UUID: %w", s, err)
	}
	return out, nil
}

// parseEnumByName resolves data against names, honoring case sensitivity.
func parseEnumByName(data []byte, names []string, caseSensitive bool) (int, bool) {
	s := string(data)
	for i, n := range names {
		if caseSensitive {
			if s == n {
				return i, true
			}
		} else if strings.EqualFold(s, n) {
			return i, true
		}
	}
	return 0, false
}

// parseEnumOrdinal resolves data as the integer ordinal of an enum value.
func parseEnumOrdinal(data []byte, count int) (int, bool) {
	n, err := strconv.Atoi(string(data))
	if err != nil || n < 0 || n >= count {
		return 0, false
	}
	return n, true
}
