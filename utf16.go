package rowkit

import (
	"bytes"
	"fmt"
	"unicode/utf16"
	"unicode/utf8"
)

// utf16Endian identifies the byte order of a UTF-16 source, detected from
// its byte-order mark.
type utf16Endian int

const (
	utf16None utf16Endian = iota
	utf16LE
	utf16BE
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// detectUTF16 inspects the leading bytes of data for a UTF-16 byte-order
// mark and reports the endianness found, if any.
func detectUTF16(data []byte) utf16Endian {
	switch {
	case bytes.HasPrefix(data, bomUTF16LE):
		return utf16LE
	case bytes.HasPrefix(data, bomUTF16BE):
		return utf16BE
	default:
		return utf16None
	}
}

// transcodeUTF16ToUTF8 converts a UTF-16 buffer (BOM included) into UTF-8,
// per spec §9(b): the parser transcodes once, up front, and scans the
// resulting UTF-8 bytes with the same kernel used for any other input —
// the configured delimiter and quote bytes are honored exactly as given,
// never hardcoded to comma, because they are matched against the
// transcoded bytes like any other ASCII-range configuration byte.
func transcodeUTF16ToUTF8(data []byte, endian utf16Endian) ([]byte, error) {
	body := data
	switch endian {
	case utf16LE:
		body = data[len(bomUTF16LE):]
	case utf16BE:
		body = data[len(bomUTF16BE):]
	default:
		return nil, fmt.Errorf("rowkit: transcodeUTF16ToUTF8 called without a detected BOM")
	}
	if len(body)%2 != 0 {
		return nil, newParseError(KindInvalidEncoding, fmt.Errorf("%w: odd-length UTF-16 input", ErrInvalidEncoding))
	}
	units := make([]uint16, len(body)/2)
	for i := range units {
		if endian == utf16LE {
			units[i] = uint16(body[2*i]) | uint16(body[2*i+1])<<8
		} else {
			units[i] = uint16(body[2*i])<<8 | uint16(body[2*i+1])
		}
	}
	runes := utf16.Decode(units)
	out := make([]byte, 0, len(runes)*3)
	var tmp [utf8.UTFMax]byte
	for _, r := range runes {
		if r == utf8.RuneError {
			return nil, newParseError(KindInvalidEncoding, fmt.Errorf("%w: invalid UTF-16 surrogate pair", ErrInvalidEncoding))
		}
		n := utf8.EncodeRune(tmp[:], r)
		out = append(out, tmp[:n]...)
	}
	return out, nil
}

// normalizeInput strips a UTF-8 BOM when requested, or transcodes a
// UTF-16 buffer to UTF-8 (the transcode consumes the UTF-16 BOM itself,
// so nothing is left to strip afterwards). It is the single entry point both
// [ParseBytes]-style in-memory calls and fixed-width readers should pass
// raw source bytes through before scanning.
func normalizeInput(data []byte, opts *Options) ([]byte, error) {
	switch detectUTF16(data) {
	case utf16LE:
		return transcodeUTF16ToUTF8(data, utf16LE)
	case utf16BE:
		return transcodeUTF16ToUTF8(data, utf16BE)
	}
	if opts.SkipBOM && bytes.HasPrefix(data, bomUTF8) {
		return data[len(bomUTF8):], nil
	}
	return data, nil
}
