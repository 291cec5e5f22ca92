// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import (
	"bytes"
	"testing"
)

func TestDecompress_LiteralOnlyTokenHaltsAtExhaustion(t *testing.T) {
	// control byte 0x30: L=3, M=0 (match length 4), but the stream
	// ends right after the three literal bytes, so the decoder must
	// halt instead of trying to read a back-offset.
	in := []byte{0x30, 'A', 'B', 'C'}

	got, err := Decompress(in)
	if err != nil {
		t.Fatalf("Decompress(%x) failed: %v", in, err)
	}
	if !bytes.Equal(got, []byte("ABC")) {
		t.Errorf("Decompress(%x) = %q, want %q", in, got, "ABC")
	}
}

func TestDecompress_OverlappingMatch(t *testing.T) {
	// One literal "A", then a match of length 4 with back_offset=1,
	// which must replicate "A" four times via the overlapping window.
	in := []byte{0x10, 'A', 0x01, 0x00}

	got, err := Decompress(in)
	if err != nil {
		t.Fatalf("Decompress(%x) failed: %v", in, err)
	}
	want := "AAAAA"
	if string(got) != want {
		t.Errorf("Decompress(%x) = %q, want %q", in, got, want)
	}
}

func TestDecompress_LiteralLengthExtension(t *testing.T) {
	// High nibble 0xf signals an extension: one extra byte 0x02 (< 0xff)
	// brings the literal count to 0xf+2 = 17, followed by 17 literal
	// bytes and no match (stream ends right after).
	literal := bytes.Repeat([]byte{'x'}, 17)
	in := append([]byte{0xf0, 0x02}, literal...)

	got, err := Decompress(in)
	if err != nil {
		t.Fatalf("Decompress failed: %v", err)
	}
	if !bytes.Equal(got, literal) {
		t.Errorf("Decompress = %q, want %q", got, literal)
	}
}

func TestDecompress_UnexpectedEOF(t *testing.T) {
	// Control byte claims 3 literal bytes but only 1 is present.
	in := []byte{0x30, 'A'}
	if _, err := Decompress(in); err == nil {
		t.Fatalf("Decompress(%x) succeeded, want error", in)
	}
}

func TestDecompress_NeverPanicsOnTruncatedMatchExtension(t *testing.T) {
	// Match-length nibble escaped to 0xf but the extension byte is
	// missing entirely.
	in := []byte{0x0f, 0x00, 0x00}
	if _, err := Decompress(in); err == nil {
		t.Fatalf("Decompress(%x) succeeded, want error", in)
	}
}
