// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

// Limits bounds the sizes and counts Container.Read trusts from
// untrusted input, so a malformed container yields a structural error
// instead of an unbounded allocation. The zero value is not usable
// directly; use DefaultLimits or Limits returned by it as a starting
// point.
type Limits struct {
	// MaxEntries bounds the number of entries a single container read
	// may produce.
	MaxEntries uint32

	// MaxEntryHeaderSize bounds an entry's declared header_size.
	MaxEntryHeaderSize uint32

	// MaxPayloadSize bounds an entry's declared size and
	// compressed_size.
	MaxPayloadSize uint64

	// MaxIdentifierLen bounds an entry's declared identifier_len.
	MaxIdentifierLen uint32

	// MaxPtxasOptionsLen bounds an entry's declared
	// ptxas_options_size.
	MaxPtxasOptionsLen uint32
}

// DefaultLimits returns generous-but-finite limits suitable for
// reading containers of unknown provenance.
func DefaultLimits() Limits {
	return Limits{
		MaxEntries:         4096,
		MaxEntryHeaderSize: 1 << 20,
		MaxPayloadSize:     1 << 32,
		MaxIdentifierLen:   1 << 16,
		MaxPtxasOptionsLen: 1 << 16,
	}
}
