// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import "testing"

func TestNewAuto_SniffsELFMagic(t *testing.T) {
	elf := append([]byte{0x7f, 'E', 'L', 'F'}, []byte("rest")...)
	e := NewAuto(70, elf)
	if !e.ContainsELF() {
		t.Errorf("NewAuto(elf payload).ContainsELF() = false, want true")
	}

	ptx := []byte(".version 8.3\n.target sm_80\n")
	e2 := NewAuto(80, ptx)
	if e2.ContainsELF() {
		t.Errorf("NewAuto(ptx payload).ContainsELF() = true, want false")
	}
}

func TestNewAuto_ShortPayloadIsNeverELF(t *testing.T) {
	e := NewAuto(70, []byte{0x7f})
	if e.ContainsELF() {
		t.Errorf("NewAuto(short payload).ContainsELF() = true, want false")
	}
}

func TestEntry_FlagOrthogonality(t *testing.T) {
	e := New(true, 70, 0, 0, true, nil)
	if got := e.Host(); got != HostUnknown {
		t.Errorf("Host() = %v, want Unknown when no host bit is lit", got)
	}
	if got := e.Producer(); got != ProducerUnknown {
		t.Errorf("Producer() = %v, want Unknown when no producer bit is lit", got)
	}

	e.header.flags |= flagHostLinux
	if got := e.Host(); got != HostLinux {
		t.Errorf("Host() = %v, want Linux", got)
	}

	e.header.flags |= flagProducerCUDA
	if got := e.Producer(); got != ProducerCUDA {
		t.Errorf("Producer() = %v, want CUDA", got)
	}
}

func TestEntry_DecompressInPlace_NoopWhenNotCompressed(t *testing.T) {
	e := New(false, 80, 8, 3, true, []byte("plain payload"))
	before := append([]byte(nil), e.payload...)

	if err := e.DecompressInPlace(); err != nil {
		t.Fatalf("DecompressInPlace() failed: %v", err)
	}
	if string(e.payload) != string(before) {
		t.Errorf("payload changed on no-op decompress: got %q, want %q", e.payload, before)
	}
}

func TestEntry_DecompressInPlace_IdempotentAndClearsFields(t *testing.T) {
	// "AAAAA" compressed as: literal "A" (L=1) then match len 4, back_offset 1.
	compressed := []byte{0x10, 'A', 0x01, 0x00}
	e := New(false, 80, 0, 0, true, compressed)
	e.header.flags |= flagCompressed
	e.header.compressedSize = uint32(len(compressed))
	e.header.decompressedSize = 5
	e.header.size = uint64(len(compressed))

	if err := e.DecompressInPlace(); err != nil {
		t.Fatalf("first DecompressInPlace() failed: %v", err)
	}
	if e.IsCompressed() {
		t.Errorf("IsCompressed() = true after DecompressInPlace")
	}
	if e.header.compressedSize != 0 || e.header.decompressedSize != 0 {
		t.Errorf("compressedSize/decompressedSize not cleared: %+v", e.header)
	}
	if e.header.size != 5 {
		t.Errorf("size = %d, want 5", e.header.size)
	}
	if string(e.payload) != "AAAAA" {
		t.Errorf("payload = %q, want %q", e.payload, "AAAAA")
	}

	// Applying a second time must be a no-op producing the same result.
	if err := e.DecompressInPlace(); err != nil {
		t.Fatalf("second DecompressInPlace() failed: %v", err)
	}
	if string(e.payload) != "AAAAA" {
		t.Errorf("payload after second decompress = %q, want %q", e.payload, "AAAAA")
	}
}

func TestEntry_DecompressInPlace_LengthMismatchIsFatal(t *testing.T) {
	compressed := []byte{0x10, 'A', 0x01, 0x00}
	e := New(false, 80, 0, 0, true, compressed)
	e.header.flags |= flagCompressed
	e.header.compressedSize = uint32(len(compressed))
	e.header.decompressedSize = 999 // wrong on purpose
	e.header.size = uint64(len(compressed))

	if err := e.DecompressInPlace(); err == nil {
		t.Fatalf("DecompressInPlace() succeeded, want length-mismatch error")
	}
}

func TestEntry_SetIdentifierAndPtxasOptions(t *testing.T) {
	e := New(false, 80, 8, 3, true, []byte("ptx"))
	if _, ok := e.Identifier(); ok {
		t.Errorf("Identifier() ok = true before SetIdentifier")
	}

	e.SetIdentifier("mykernel.ptx")
	e.SetPtxasOptions("-O3")

	if id, ok := e.Identifier(); !ok || id != "mykernel.ptx" {
		t.Errorf("Identifier() = (%q, %v), want (\"mykernel.ptx\", true)", id, ok)
	}
	if opts, ok := e.PtxasOptions(); !ok || opts != "-O3" {
		t.Errorf("PtxasOptions() = (%q, %v), want (\"-O3\", true)", opts, ok)
	}
}

func TestEntry_Digest_StableForSamePayload(t *testing.T) {
	a := New(false, 80, 0, 0, true, []byte("same bytes"))
	b := New(false, 80, 0, 0, true, []byte("same bytes"))
	if a.Digest() != b.Digest() {
		t.Errorf("Digest() differs for identical payloads")
	}

	c := New(false, 80, 0, 0, true, []byte("different bytes"))
	if a.Digest() == c.Digest() {
		t.Errorf("Digest() collided for different payloads")
	}
}
