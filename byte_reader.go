/*
Copyright 2023 Alexander Bartolomey (github@alexanderbartolomey.de)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ipfix

import (
	"io"
	"unicode/utf8"
)

// readVarLength reads an RFC 7011 §3.4.2.2 variable-length field's length
// prefix: one byte, or 255 followed by a 16-bit big-endian length (spec
// §4.6, §4.7). Returns the declared length and the number of header bytes
// consumed.
func readVarLength(r io.Reader) (length uint16, headerBytes int, err error) {
	b := make([]byte, 1)
	if _, err = io.ReadFull(r, b); err != nil {
		return 0, 0, errInsufficientBuffer("variable-length field length prefix truncated: %v", err)
	}
	if b[0] != 0xFF {
		return uint16(b[0]), 1, nil
	}
	ext := make([]byte, 2)
	if _, err = io.ReadFull(r, ext); err != nil {
		return 0, 1, errInsufficientBuffer("variable-length field extended length truncated: %v", err)
	}
	return uint16(ext[0])<<8 | uint16(ext[1]), 3, nil
}

// validateUTF8 reports whether b is well-formed UTF-8 per RFC 3629: no
// overlong encodings, no lone continuation bytes, no surrogate halves (spec
// §4.1). utf8.Valid already rejects all of these.
func validateUTF8(b []byte) bool {
	return utf8.Valid(b)
}

// readFixed reads exactly n bytes from r: the "allocate, read-full,
// classify-the-error" step common to every fixed/reduced-length-encoded
// DataType's Decode (spec §3.4.2.1/§6.2). The caller wraps the error with
// its own type name.
func readFixed(r io.Reader, n uint16) ([]byte, int, error) {
	b := make([]byte, n)
	read, err := io.ReadFull(r, b)
	return b, read, err
}

// bigEndianUint decodes b, of any length up to 8 bytes, as an unsigned
// big-endian integer.
func bigEndianUint(b []byte) uint64 {
	var v uint64
	for _, x := range b {
		v = v<<8 | uint64(x)
	}
	return v
}

// decodeBigEndianUint decodes a reduced-length-encoded unsigned integer (RFC
// 7011 §6.2): when b is shorter than the type's full width, it occupies the
// low-order bytes of the full-width value and the high-order bytes are
// zero — decodeBigEndianUint right-aligns b into a width-byte buffer before
// decoding, a no-op when len(b) == width.
func decodeBigEndianUint(b []byte, width uint16) uint64 {
	if uint16(len(b)) == width {
		return bigEndianUint(b)
	}
	c := make([]byte, width)
	copy(c[width-uint16(len(b)):], b)
	return bigEndianUint(c)
}

// decodeBigEndianInt decodes a reduced-length-encoded signed integer (RFC
// 7011 §6.2): like decodeBigEndianUint, but the padding bytes are sign-
// extended from b's most significant bit rather than zeroed, so a negative
// reduced-length value decodes to the same two's-complement value it would
// have at full width.
func decodeBigEndianInt(b []byte, width uint16) int64 {
	if uint16(len(b)) == width {
		return int64(bigEndianUint(b))
	}
	c := make([]byte, width)
	if len(b) > 0 && b[0]&0x80 != 0 {
		for i := range c {
			c[i] = 0xFF
		}
	}
	copy(c[width-uint16(len(b)):], b)
	return int64(bigEndianUint(c))
}
