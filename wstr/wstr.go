// Package wstr converts caller text into the NUL-terminated UTF-16 buffers
// the Windows wide-character APIs expect. All validation of text handed to
// the OS happens here so call sites stay free of conversion boilerplate.
package wstr

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"
)

var (
	ErrEmpty       = errors.New("empty string")
	ErrNul         = errors.New("string contains NUL")
	ErrInvalidUTF8 = errors.New("string is not valid UTF-8")
	ErrTooLong     = errors.New("string too long")
)

// Encode converts s into a NUL-terminated UTF-16 buffer. limit is the maximum
// number of UTF-16 code units excluding the terminator, zero or less means
// unbounded.
func Encode(s string, limit int) ([]uint16, error) {
	if len(s) == 0 {
		return nil, ErrEmpty
	}

	return EncodeOptional(s, limit)
}

// EncodeOptional is like Encode but accepts the empty string.
func EncodeOptional(s string, limit int) ([]uint16, error) {
	if strings.IndexByte(s, 0) >= 0 {
		return nil, ErrNul
	} else if !utf8.ValidString(s) {
		return nil, ErrInvalidUTF8
	}

	buf := utf16.Encode([]rune(s))
	if limit > 0 && len(buf) > limit {
		return nil, fmt.Errorf("%w: %d units, limit is %d", ErrTooLong, len(buf), limit)
	}

	return append(buf, 0), nil
}

// Ptr returns a pointer to the first unit of an encoded buffer, or nil for a
// nil buffer.
func Ptr(buf []uint16) *uint16 {
	if len(buf) == 0 {
		return nil
	}

	return &buf[0]
}

// Decode converts a UTF-16 buffer back into a string, stopping at the first
// NUL.
func Decode(buf []uint16) string {
	for i, v := range buf {
		if v == 0 {
			buf = buf[:i]
			break
		}
	}

	return string(utf16.Decode(buf))
}

// DecodePtr reads a NUL-terminated UTF-16 string the OS allocated.
func DecodePtr(p *uint16) string {
	if p == nil {
		return ""
	}

	var n int
	for ptr := unsafe.Pointer(p); *(*uint16)(ptr) != 0; n++ {
		ptr = unsafe.Add(ptr, unsafe.Sizeof(*p))
	}

	return string(utf16.Decode(unsafe.Slice(p, n)))
}

// Zero overwrites buf, used for buffers that held secrets.
func Zero(buf []uint16) {
	for i := range buf {
		buf[i] = 0
	}
}
