// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import "fmt"

// Kind identifies the class of a structural Error.
type Kind int

// Error kinds. The first seven mirror the FatBinaryError variants of
// the reference decoder one-for-one; LimitExceeded is an addition for
// the Limits checks. Go expresses the {expected, got} payload as Error
// fields instead of enum variant fields.
const (
	// InvalidMagic is returned when the container magic isn't 0xBA55ED50.
	InvalidMagic Kind = iota

	// InvalidVersion is returned when the container version isn't 1.
	InvalidVersion

	// InvalidHeaderSize is returned when the container header_size isn't 16.
	InvalidHeaderSize

	// InvalidOffset is returned when an entry's options_offset is
	// nonzero but not 0x40.
	InvalidOffset

	// UnexpectedEndOfInput is returned when the reader yields fewer
	// bytes than a declared length requires.
	UnexpectedEndOfInput

	// InvalidUtf8 is returned when an identifier or ptxas-options byte
	// string fails UTF-8 decoding.
	InvalidUtf8

	// Io wraps an underlying read/write/seek failure.
	Io

	// LimitExceeded is returned when a declared size or count exceeds
	// the configured Limits.
	LimitExceeded
)

func (k Kind) String() string {
	switch k {
	case InvalidMagic:
		return "InvalidMagic"
	case InvalidVersion:
		return "InvalidVersion"
	case InvalidHeaderSize:
		return "InvalidHeaderSize"
	case InvalidOffset:
		return "InvalidOffset"
	case UnexpectedEndOfInput:
		return "UnexpectedEndOfInput"
	case InvalidUtf8:
		return "InvalidUtf8"
	case Io:
		return "Io"
	case LimitExceeded:
		return "LimitExceeded"
	default:
		return "Unknown"
	}
}

// Error is the structural error type returned by the codec. Expected
// and Got carry the mismatched values for the Invalid* kinds; Limit
// names the exceeded bound for LimitExceeded; Err carries the
// underlying error for Io and InvalidUtf8.
type Error struct {
	Kind     Kind
	Expected uint64
	Got      uint64
	Limit    string
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidMagic, InvalidVersion, InvalidHeaderSize:
		return fmt.Sprintf("fatbin: %s (expected 0x%x, got 0x%x)", e.Kind, e.Expected, e.Got)
	case InvalidOffset:
		return fmt.Sprintf("fatbin: invalid options_offset (expected 0x40, got 0x%x)", e.Got)
	case LimitExceeded:
		return fmt.Sprintf("fatbin: limit %q exceeded (max %d, got %d)", e.Limit, e.Expected, e.Got)
	case UnexpectedEndOfInput:
		return "fatbin: unexpected end of input"
	case InvalidUtf8:
		return fmt.Sprintf("fatbin: invalid utf-8: %v", e.Err)
	case Io:
		return fmt.Sprintf("fatbin: io error: %v", e.Err)
	default:
		return "fatbin: unknown error"
	}
}

// Unwrap lets errors.Is/errors.As reach the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// callers can write errors.Is(err, &Error{Kind: fatbin.InvalidMagic}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func errInvalidMagic(expected, got uint32) error {
	return &Error{Kind: InvalidMagic, Expected: uint64(expected), Got: uint64(got)}
}

func errInvalidVersion(expected, got uint16) error {
	return &Error{Kind: InvalidVersion, Expected: uint64(expected), Got: uint64(got)}
}

func errInvalidHeaderSize(expected, got uint16) error {
	return &Error{Kind: InvalidHeaderSize, Expected: uint64(expected), Got: uint64(got)}
}

func errInvalidOffset(got uint32) error {
	return &Error{Kind: InvalidOffset, Expected: 0x40, Got: uint64(got)}
}

func errUnexpectedEOF() error {
	return &Error{Kind: UnexpectedEndOfInput}
}

func errInvalidUTF8(cause error) error {
	return &Error{Kind: InvalidUtf8, Err: cause}
}

func errIO(cause error) error {
	return &Error{Kind: Io, Err: cause}
}

func errLimitExceeded(limit string, max, got uint64) error {
	return &Error{Kind: LimitExceeded, Limit: limit, Expected: max, Got: got}
}
