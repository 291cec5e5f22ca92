// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package fatbin reads, constructs, mutates, and writes CUDA fatbinary
// container files: the proprietary multi-entry archive format the
// NVIDIA CUDA toolchain bundles into a single host object, holding
// ELF cubins for distinct SM architectures plus optional PTX source.
//
// The format is not publicly documented; this codec's layout has been
// reconstructed from observation of NVIDIA-produced files. Only
// container version 1 on little-endian hosts is supported.
package fatbin

// ContainerMagic is the required magic value of every fatbinary
// container header.
const ContainerMagic uint32 = 0xBA55ED50

// ContainerVersion is the only supported container version.
const ContainerVersion uint16 = 1

// ContainerHeaderSize is the fixed size, in bytes, of the container
// header.
const ContainerHeaderSize uint16 = 16

// EntryHeaderSize is the fixed leading size, in bytes, of an entry
// header, before any trailing region (ptxas-options descriptor,
// ptxas-option bytes, identifier bytes).
const EntryHeaderSize uint32 = 64

// optionsDescriptorOffset is the offset, relative to the start of an
// entry header, at which the codec always writes the 8-byte
// (ptxas_options_offset, ptxas_options_size) descriptor pair.
const optionsDescriptorOffset uint32 = 0x40

// optionsDescriptorSize is the size in bytes of the descriptor pair
// itself: two packed uint32s.
const optionsDescriptorSize uint32 = 8

// Entry kinds, stored in the entry header's kind field.
const (
	KindPTX uint16 = 1
	KindELF uint16 = 2
)

// reservedSynthesized is the reserved1 value the codec emits for
// newly synthesized entries. Files in the wild have also been
// observed with reserved1 == 0x0000; the codec preserves whatever it
// parses and only emits 0x0101 for entries it creates itself. See
// DESIGN.md for why this value was chosen over 0x0000.
const reservedSynthesized uint16 = 0x0101

// Flag bits of an entry header's flags field.
const (
	flagCompiledFor64Bit uint64 = 0x0000_0001
	flagDebugInfo         uint64 = 0x0000_0002
	flagProducerCUDA      uint64 = 0x0000_0004
	flagProducerOpenCL    uint64 = 0x0000_0008
	flagHostLinux         uint64 = 0x0000_0010
	flagHostMac           uint64 = 0x0000_0020
	flagHostWindows       uint64 = 0x0000_0040
	flagCompressed        uint64 = 0x0000_2000
)

// Host is the host operating system an entry was compiled for.
type Host int

// Host classifier values. Producer and Host bits are mutually
// exclusive sets in the flags field; Unknown is reported when no bit
// in the set is lit.
const (
	HostUnknown Host = iota
	HostLinux
	HostMac
	HostWindows
)

func (h Host) String() string {
	switch h {
	case HostLinux:
		return "linux"
	case HostMac:
		return "mac"
	case HostWindows:
		return "windows"
	default:
		return "unknown"
	}
}

// Producer is the toolchain that produced an entry's device code.
type Producer int

// Producer classifier values.
const (
	ProducerUnknown Producer = iota
	ProducerCUDA
	ProducerOpenCL
)

func (p Producer) String() string {
	switch p {
	case ProducerCUDA:
		return "cuda"
	case ProducerOpenCL:
		return "opencl"
	default:
		return "unknown"
	}
}

func hostFromFlags(flags uint64) Host {
	switch {
	case flags&flagHostLinux != 0:
		return HostLinux
	case flags&flagHostMac != 0:
		return HostMac
	case flags&flagHostWindows != 0:
		return HostWindows
	default:
		return HostUnknown
	}
}

func producerFromFlags(flags uint64) Producer {
	switch {
	case flags&flagProducerCUDA != 0:
		return ProducerCUDA
	case flags&flagProducerOpenCL != 0:
		return ProducerOpenCL
	default:
		return ProducerUnknown
	}
}
