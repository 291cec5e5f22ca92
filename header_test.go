// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import (
	"errors"
	"testing"
)

func TestDecodeContainerHeader_CorruptMagic(t *testing.T) {
	b := []byte{0xDE, 0xAD, 0xBE, 0xEF, 1, 0, 16, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := decodeContainerHeader(b)

	var fbErr *Error
	if !errors.As(err, &fbErr) || fbErr.Kind != InvalidMagic {
		t.Fatalf("decodeContainerHeader(%x) = %v, want InvalidMagic", b, err)
	}
	if fbErr.Expected != uint64(ContainerMagic) {
		t.Errorf("Expected = 0x%x, want 0x%x", fbErr.Expected, ContainerMagic)
	}
	if fbErr.Got != 0xEFBEADDE {
		t.Errorf("Got = 0x%x, want 0xEFBEADDE", fbErr.Got)
	}
}

func TestDecodeContainerHeader_InvalidVersion(t *testing.T) {
	b := []byte{0x50, 0xED, 0x55, 0xBA, 2, 0, 16, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := decodeContainerHeader(b)

	var fbErr *Error
	if !errors.As(err, &fbErr) || fbErr.Kind != InvalidVersion {
		t.Fatalf("decodeContainerHeader(%x) = %v, want InvalidVersion", b, err)
	}
}

func TestDecodeContainerHeader_InvalidHeaderSize(t *testing.T) {
	b := []byte{0x50, 0xED, 0x55, 0xBA, 1, 0, 17, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := decodeContainerHeader(b)

	var fbErr *Error
	if !errors.As(err, &fbErr) || fbErr.Kind != InvalidHeaderSize {
		t.Fatalf("decodeContainerHeader(%x) = %v, want InvalidHeaderSize", b, err)
	}
}

func TestContainerHeader_EncodeEmptyMatchesObservedBytes(t *testing.T) {
	h := containerHeader{
		magic:      ContainerMagic,
		version:    ContainerVersion,
		headerSize: ContainerHeaderSize,
		size:       0,
	}
	got := h.encode(nil)
	want := []byte{0x50, 0xED, 0x55, 0xBA, 0x01, 0x00, 0x10, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	if string(got) != string(want) {
		t.Errorf("encode() = % x, want % x", got, want)
	}
}
