// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import "encoding/binary"

// entryHeader is the fixed 64-byte leading region of an entry header,
// described in spec §3.2. The trailing region (ptxas-options
// descriptor, ptxas-option bytes, identifier bytes) is parsed and
// emitted separately, by offset, not as part of this struct.
type entryHeader struct {
	kind             uint16
	reserved1        uint16
	headerSize       uint32
	size             uint64
	compressedSize   uint32
	optionsOffset    uint32
	minor            uint16
	major            uint16
	arch             uint32
	identifierOffset uint32
	identifierLen    uint32
	flags            uint64
	zero             uint64
	decompressedSize uint64
}

// decodeEntryHeader reads the fixed 64-byte region from the start of
// b. b must have len(b) >= EntryHeaderSize.
func decodeEntryHeader(b []byte) (entryHeader, error) {
	var h entryHeader
	if uint32(len(b)) < EntryHeaderSize {
		return h, errUnexpectedEOF()
	}

	h.kind = binary.LittleEndian.Uint16(b[0:2])
	h.reserved1 = binary.LittleEndian.Uint16(b[2:4])
	h.headerSize = binary.LittleEndian.Uint32(b[4:8])
	h.size = binary.LittleEndian.Uint64(b[8:16])
	h.compressedSize = binary.LittleEndian.Uint32(b[16:20])
	h.optionsOffset = binary.LittleEndian.Uint32(b[20:24])
	h.minor = binary.LittleEndian.Uint16(b[24:26])
	h.major = binary.LittleEndian.Uint16(b[26:28])
	h.arch = binary.LittleEndian.Uint32(b[28:32])
	h.identifierOffset = binary.LittleEndian.Uint32(b[32:36])
	h.identifierLen = binary.LittleEndian.Uint32(b[36:40])
	h.flags = binary.LittleEndian.Uint64(b[40:48])
	h.zero = binary.LittleEndian.Uint64(b[48:56])
	h.decompressedSize = binary.LittleEndian.Uint64(b[56:64])

	if h.optionsOffset != 0 && h.optionsOffset != optionsDescriptorOffset {
		return h, errInvalidOffset(h.optionsOffset)
	}
	return h, nil
}

// encode appends the little-endian wire representation of the fixed
// 64-byte region to buf and returns the extended slice.
func (h entryHeader) encode(buf []byte) []byte {
	var b [64]byte
	binary.LittleEndian.PutUint16(b[0:2], h.kind)
	binary.LittleEndian.PutUint16(b[2:4], h.reserved1)
	binary.LittleEndian.PutUint32(b[4:8], h.headerSize)
	binary.LittleEndian.PutUint64(b[8:16], h.size)
	binary.LittleEndian.PutUint32(b[16:20], h.compressedSize)
	binary.LittleEndian.PutUint32(b[20:24], h.optionsOffset)
	binary.LittleEndian.PutUint16(b[24:26], h.minor)
	binary.LittleEndian.PutUint16(b[26:28], h.major)
	binary.LittleEndian.PutUint32(b[28:32], h.arch)
	binary.LittleEndian.PutUint32(b[32:36], h.identifierOffset)
	binary.LittleEndian.PutUint32(b[36:40], h.identifierLen)
	binary.LittleEndian.PutUint64(b[40:48], h.flags)
	binary.LittleEndian.PutUint64(b[48:56], h.zero)
	binary.LittleEndian.PutUint64(b[56:64], h.decompressedSize)
	return append(buf, b[:]...)
}

// sliceAt returns region[offset:offset+length], bounded both by
// region's length and by max (a caller-supplied Limits bound),
// reporting a structural error instead of panicking on out-of-range
// input.
func sliceAt(region []byte, offset, length, max uint32) ([]byte, error) {
	if length > max {
		return nil, errLimitExceeded("trailing region field", uint64(max), uint64(length))
	}
	end := uint64(offset) + uint64(length)
	if end > uint64(len(region)) {
		return nil, errUnexpectedEOF()
	}
	return region[offset:end], nil
}

// parseTrailingRegion parses the ptxas-options and identifier byte
// strings out of an entry's header region, addressed purely by the
// offsets recorded in h. region must be exactly h.headerSize bytes,
// i.e. [entry_start, entry_start+header_size). The three possible
// pieces (options descriptor, ptxas-option bytes, identifier bytes)
// are looked up independently by offset, never assumed adjacent or in
// any particular order, per spec §4.2 and design note §9.
func parseTrailingRegion(region []byte, h entryHeader, limits Limits) (ptxasOptions, identifier []byte, err error) {
	if h.optionsOffset > 0 {
		descriptor, err := sliceAt(region, h.optionsOffset, optionsDescriptorSize, optionsDescriptorSize)
		if err != nil {
			return nil, nil, err
		}
		ptxasOptsOffset := binary.LittleEndian.Uint32(descriptor[0:4])
		ptxasOptsSize := binary.LittleEndian.Uint32(descriptor[4:8])

		if ptxasOptsOffset != 0 {
			ptxasOptions, err = sliceAt(region, ptxasOptsOffset, ptxasOptsSize, limits.MaxPtxasOptionsLen)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if h.identifierOffset > 0 {
		identifier, err = sliceAt(region, h.identifierOffset, h.identifierLen, limits.MaxIdentifierLen)
		if err != nil {
			return nil, nil, err
		}
	}

	return ptxasOptions, identifier, nil
}

// layout describes the concrete trailing-region layout the writer
// always emits (spec §4.2): fixed header, then the 8-byte options
// descriptor, then ptxas-option bytes, then identifier bytes, then
// payload. Pre-existing files may place these pieces differently (and
// the reader tolerates that), but the writer's own output is always
// shaped this way.
type layout struct {
	ptxasOptionsOffset uint32
	identifierOffset   uint32
	headerTotal        uint32
}

// computeLayout returns the offsets and total header size the writer
// will use for an entry carrying ptxasOptionsLen bytes of ptxas
// options and identifierLen bytes of identifier.
func computeLayout(ptxasOptionsLen, identifierLen uint32) layout {
	var l layout
	l.ptxasOptionsOffset = 0
	if ptxasOptionsLen > 0 {
		l.ptxasOptionsOffset = EntryHeaderSize + optionsDescriptorSize
	}
	l.identifierOffset = 0
	if identifierLen > 0 {
		l.identifierOffset = EntryHeaderSize + optionsDescriptorSize + ptxasOptionsLen
	}
	l.headerTotal = EntryHeaderSize + optionsDescriptorSize + ptxasOptionsLen + identifierLen
	return l
}
