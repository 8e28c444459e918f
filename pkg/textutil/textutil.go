// Package textutil holds byte-level checks applied to source files before
// they reach the parser.
package textutil

import (
	"bytes"
	"errors"
	"unicode/utf8"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection.
const BinarySniffLength = 8000

// Source content errors.
var (
	ErrBinary      = errors.New("binary content")
	ErrInvalidUTF8 = errors.New("invalid UTF-8")
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	if len(data) == 0 {
		return false
	}

	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in data.
// A non-empty buffer without a trailing newline counts the last partial line.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// NormalizeSource strips a leading UTF-8 byte order mark and rejects content
// that is binary or not valid UTF-8. Line numbers are unaffected.
func NormalizeSource(data []byte) ([]byte, error) {
	if IsBinary(data) {
		return nil, ErrBinary
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		return nil, ErrInvalidUTF8
	}

	return data, nil
}
