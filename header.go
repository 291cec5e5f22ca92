// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import "encoding/binary"

// containerHeader is the fixed 16-byte container header described in
// spec §3.1. It is not exported: callers interact with it only
// through Container.
type containerHeader struct {
	magic      uint32
	version    uint16
	headerSize uint16
	size       uint64
}

// encode appends the little-endian wire representation of h to buf
// and returns the extended slice.
func (h containerHeader) encode(buf []byte) []byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:4], h.magic)
	binary.LittleEndian.PutUint16(b[4:6], h.version)
	binary.LittleEndian.PutUint16(b[6:8], h.headerSize)
	binary.LittleEndian.PutUint64(b[8:16], h.size)
	return append(buf, b[:]...)
}

// decodeContainerHeader reads and validates the container header from
// the first 16 bytes of b, reporting a distinct structural error for
// each of the three mandatory constants.
func decodeContainerHeader(b []byte) (containerHeader, error) {
	var h containerHeader
	if len(b) < int(ContainerHeaderSize) {
		return h, errUnexpectedEOF()
	}

	h.magic = binary.LittleEndian.Uint32(b[0:4])
	h.version = binary.LittleEndian.Uint16(b[4:6])
	h.headerSize = binary.LittleEndian.Uint16(b[6:8])
	h.size = binary.LittleEndian.Uint64(b[8:16])

	if h.magic != ContainerMagic {
		return h, errInvalidMagic(ContainerMagic, h.magic)
	}
	if h.version != ContainerVersion {
		return h, errInvalidVersion(ContainerVersion, h.version)
	}
	if h.headerSize != ContainerHeaderSize {
		return h, errInvalidHeaderSize(ContainerHeaderSize, h.headerSize)
	}
	return h, nil
}
