// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import "encoding/binary"

// Decompress inflates a compressed entry payload encoded in NVIDIA's
// undocumented LZ77-style token stream (spec §4.3). It does not trust
// any externally declared decompressed length for allocation sizing:
// it appends as it goes and returns whatever length results; callers
// that know the expected length (Entry.DecompressInPlace) are
// responsible for checking it.
//
// Each token is a control byte whose high nibble is a literal-run
// length and whose low nibble is a match length biased by 4, followed
// by that many literal bytes, a little-endian 16-bit back-offset, and
// the match itself. Either length nibble can be escaped to 0xF and
// extended by summing subsequent bytes until one less than 0xFF is
// read.
func Decompress(compressed []byte) ([]byte, error) {
	out := make([]byte, 0, len(compressed)*2)
	pos := 0

	for pos < len(compressed) {
		control := compressed[pos]
		literalLen := int(control>>4) & 0xf
		matchLen := 4 + int(control&0xf)

		if literalLen == 0xf {
			for {
				pos++
				if pos >= len(compressed) {
					return nil, errUnexpectedEOF()
				}
				b := compressed[pos]
				literalLen += int(b)
				if b != 0xff {
					break
				}
			}
		}

		pos++
		if pos+literalLen > len(compressed) {
			return nil, errUnexpectedEOF()
		}
		out = append(out, compressed[pos:pos+literalLen]...)
		pos += literalLen

		// The final token in the stream may have no match: once the
		// literal run exhausts the input, the loop halts here.
		if pos >= len(compressed) {
			break
		}

		if pos+2 > len(compressed) {
			return nil, errUnexpectedEOF()
		}
		backOffset := int(binary.LittleEndian.Uint16(compressed[pos : pos+2]))
		pos += 2

		if matchLen == 0xf+4 {
			for {
				if pos >= len(compressed) {
					return nil, errUnexpectedEOF()
				}
				b := compressed[pos]
				matchLen += int(b)
				pos++
				if b != 0xff {
					break
				}
			}
		}

		if backOffset == 0 || backOffset > len(out) {
			return nil, errUnexpectedEOF()
		}

		// Copy byte-by-byte (not via a bulk slice copy): when
		// matchLen > backOffset the source and destination windows
		// overlap, and each newly appended byte must become visible
		// to later iterations of this same match for the run-length
		// expansion to replicate correctly.
		start := len(out) - backOffset
		for i := 0; i < matchLen; i++ {
			out = append(out, out[start+i])
		}
	}

	return out, nil
}
