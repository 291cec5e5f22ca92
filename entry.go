// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import (
	"fmt"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
)

// elfMagic is the leading four bytes of an ELF file, used by NewAuto
// to sniff whether a payload is an ELF cubin or PTX source.
var elfMagic = [4]byte{0x7f, 'E', 'L', 'F'}

// Entry is one logical fatbinary entry: a header plus an optional
// identifier, optional ptxas options, and payload bytes. An Entry is
// owned by at most one Container at a time (see Container.EntriesMut).
type Entry struct {
	header       entryHeader
	identifier   []byte
	ptxasOptions []byte
	payload      []byte
}

// HeaderInfo is a read-only snapshot of an entry's raw 64-byte header
// fields, for callers that want to inspect the wire representation
// directly (analogous to pe.File's exported ImageDOSHeader/NtHeader
// snapshots).
type HeaderInfo struct {
	Kind             uint16
	Reserved1        uint16
	HeaderSize       uint32
	Size             uint64
	CompressedSize   uint32
	OptionsOffset    uint32
	Minor            uint16
	Major            uint16
	Arch             uint32
	IdentifierOffset uint32
	IdentifierLen    uint32
	Flags            uint64
	Zero             uint64
	DecompressedSize uint64
}

// New synthesizes an entry directly from its fields. kind is derived
// from isELF, header_size starts at the fixed 64 bytes (no identifier
// or ptxas options yet), and options_offset is always set to 0x40 as
// observed in NVIDIA-produced files (see spec §9 design note 3).
func New(isELF bool, smArch uint32, major, minor uint16, is64Bit bool, payload []byte) *Entry {
	kind := KindPTX
	if isELF {
		kind = KindELF
	}

	var flags uint64
	if is64Bit {
		flags |= flagCompiledFor64Bit
	}

	return &Entry{
		header: entryHeader{
			kind:          kind,
			reserved1:     reservedSynthesized,
			headerSize:    EntryHeaderSize,
			size:          uint64(len(payload)),
			optionsOffset: optionsDescriptorOffset,
			major:         major,
			minor:         minor,
			arch:          smArch,
			flags:         flags,
		},
		payload: payload,
	}
}

// NewAuto synthesizes an entry like New, but sniffs the payload's
// leading four bytes to decide ELF vs PTX: {0x7F,'E','L','F'} is ELF,
// anything else is treated as PTX. Version is reported as 0/0 and the
// 64-bit flag is always set, matching the reference creator tool's
// behavior when it doesn't know better.
func NewAuto(smArch uint32, payload []byte) *Entry {
	isELF := len(payload) >= 4 &&
		payload[0] == elfMagic[0] && payload[1] == elfMagic[1] &&
		payload[2] == elfMagic[2] && payload[3] == elfMagic[3]
	return New(isELF, smArch, 0, 0, true, payload)
}

// ContainsELF reports whether the entry holds an ELF cubin (as
// opposed to PTX source).
func (e *Entry) ContainsELF() bool { return e.header.kind == KindELF }

// SMArch returns the CUDA SM architecture number (e.g. 70, 80).
func (e *Entry) SMArch() uint32 { return e.header.arch }

// VersionMajor returns the code version major number.
func (e *Entry) VersionMajor() uint16 { return e.header.major }

// VersionMinor returns the code version minor number.
func (e *Entry) VersionMinor() uint16 { return e.header.minor }

// Is64Bit reports whether the entry was compiled for a 64-bit host.
func (e *Entry) Is64Bit() bool { return e.header.flags&flagCompiledFor64Bit != 0 }

// HasDebugInfo reports whether the entry carries debug info.
func (e *Entry) HasDebugInfo() bool { return e.header.flags&flagDebugInfo != 0 }

// IsCompressed reports whether the entry's payload is compressed.
func (e *Entry) IsCompressed() bool { return e.header.flags&flagCompressed != 0 }

// Host returns the host OS classifier derived from the entry's flags.
func (e *Entry) Host() Host { return hostFromFlags(e.header.flags) }

// Producer returns the producer classifier derived from the entry's
// flags.
func (e *Entry) Producer() Producer { return producerFromFlags(e.header.flags) }

// Identifier returns the entry's object-name string and whether one
// is set.
func (e *Entry) Identifier() (string, bool) {
	if e.identifier == nil {
		return "", false
	}
	return string(e.identifier), true
}

// PtxasOptions returns the entry's ptxas-options string and whether
// one is set.
func (e *Entry) PtxasOptions() (string, bool) {
	if e.ptxasOptions == nil {
		return "", false
	}
	return string(e.ptxasOptions), true
}

// SetIdentifier sets the entry's object-name string. It takes effect
// the next time the owning Container is written.
func (e *Entry) SetIdentifier(identifier string) {
	e.identifier = []byte(identifier)
}

// SetPtxasOptions sets the entry's ptxas-options string. It takes
// effect the next time the owning Container is written. Only
// meaningful for PTX entries, but not enforced here: the codec never
// refuses to round-trip data it didn't have to interpret.
func (e *Entry) SetPtxasOptions(options string) {
	e.ptxasOptions = []byte(options)
}

// Payload returns the on-disk payload bytes: the compressed byte run
// when the entry is compressed, the full payload otherwise. The
// returned slice is a view, not a copy.
func (e *Entry) Payload() []byte {
	if e.IsCompressed() {
		return e.payload[:e.header.compressedSize]
	}
	return e.payload
}

// DecompressedPayload returns the entry's payload already inflated.
// When the entry isn't compressed this is a borrowed view of the
// stored payload and allocates nothing; when it is compressed, a
// freshly allocated buffer is returned. Either way the entry itself
// is never mutated; use DecompressInPlace to commit the inflated
// bytes back into the entry.
func (e *Entry) DecompressedPayload() ([]byte, error) {
	if !e.IsCompressed() {
		return e.payload, nil
	}
	return Decompress(e.Payload())
}

// DecompressInPlace replaces a compressed entry's payload with its
// decompressed form, clears the compressed flag, and zeros
// compressed_size/decompressed_size (the wire fields no longer apply
// once the payload is plain). It fails if the produced length
// disagrees with the header's declared decompressed_size, a fatal
// invariant violation rather than a silently tolerated mismatch. If
// the entry is not compressed, it is a no-op.
func (e *Entry) DecompressInPlace() error {
	if !e.IsCompressed() {
		return nil
	}

	decompressed, err := Decompress(e.Payload())
	if err != nil {
		return err
	}
	if uint64(len(decompressed)) != e.header.decompressedSize {
		return fmt.Errorf(
			"fatbin: decompressed length mismatch: declared %d, got %d",
			e.header.decompressedSize, len(decompressed))
	}

	e.payload = decompressed
	e.header.flags &^= flagCompressed
	e.header.size = e.header.decompressedSize
	e.header.compressedSize = 0
	e.header.decompressedSize = 0
	return nil
}

// Digest returns an xxhash-64 checksum of the entry's on-disk payload
// bytes (the same slice Payload returns), cheap to compute and useful
// for diffing two fatbinary files' entries without a full byte
// comparison.
func (e *Entry) Digest() uint64 {
	return xxhash.Sum64(e.Payload())
}

// RawHeader returns a snapshot of the entry's raw header fields.
func (e *Entry) RawHeader() HeaderInfo {
	return HeaderInfo{
		Kind:             e.header.kind,
		Reserved1:        e.header.reserved1,
		HeaderSize:       e.header.headerSize,
		Size:             e.header.size,
		CompressedSize:   e.header.compressedSize,
		OptionsOffset:    e.header.optionsOffset,
		Minor:            e.header.minor,
		Major:            e.header.major,
		Arch:             e.header.arch,
		IdentifierOffset: e.header.identifierOffset,
		IdentifierLen:    e.header.identifierLen,
		Flags:            e.header.flags,
		Zero:             e.header.zero,
		DecompressedSize: e.header.decompressedSize,
	}
}

// validUTF8 is a small helper shared by the container reader to turn
// invalid-UTF-8 trailing-region bytes into the taxonomy's InvalidUtf8
// error instead of a generic one.
func validUTF8(kind string, b []byte) error {
	if !utf8.Valid(b) {
		return errInvalidUTF8(fmt.Errorf("%s is not valid utf-8", kind))
	}
	return nil
}
