// Copyright 2024 The fatbin authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package fatbin

import (
	"encoding/binary"
	"io"
	"os"

	mmap "github.com/edsrzf/mmap-go"
	"github.com/google/renameio"
	"github.com/orcaman/writerseeker"

	"github.com/cuda-tools/fatbin/internal/log"
)

// Anomaly strings recorded on Container.Anomalies when Read tolerates
// a recoverable oddity instead of failing outright, mirroring the
// teacher's AnoXxx string-constant pattern. Read records
// AnoUnknownReserved1 and AnoCompressedInvariant; it never records
// AnoIdentifierOutsideRange, because an identifier outside the header
// region fails the read with UnexpectedEndOfInput.
const (
	AnoUnknownReserved1       = "entry reserved1 is neither 0x0000 nor 0x0101"
	AnoCompressedInvariant    = "compressed entry violates compressed_size/decompressed_size invariant"
	AnoIdentifierOutsideRange = "identifier bytes lie outside the declared header region"
)

// Options configures Read and ReadFile. Container.Write takes no
// options.
type Options struct {
	// Limits bounds sizes and counts trusted from untrusted input
	// during Read. The zero value is replaced with DefaultLimits().
	Limits Limits

	// Logger receives anomaly and diagnostic records. Defaults to a
	// warn-and-above stdout logger, the same default the teacher's
	// pe.File uses.
	Logger log.Logger
}

func (o *Options) limits() Limits {
	if o == nil {
		return DefaultLimits()
	}
	l := o.Limits
	if l.MaxEntries == 0 && l.MaxEntryHeaderSize == 0 && l.MaxPayloadSize == 0 {
		return DefaultLimits()
	}
	return l
}

func (o *Options) helper() *log.Helper {
	if o != nil && o.Logger != nil {
		return log.NewHelper(o.Logger)
	}
	return log.NewHelper(log.NewFilter(log.NewStdLogger(os.Stdout), log.FilterLevel(log.LevelWarn)))
}

// Container is an ordered collection of fatbinary entries. The zero
// value obtained from New is a valid empty container. Order is
// significant and preserved across Read/Write round-trips.
type Container struct {
	entries []*Entry

	// Anomalies records recoverable oddities tolerated during Read,
	// the way pe.File.Anomalies does.
	Anomalies []string
}

// New returns a new, empty container.
func New() *Container {
	return &Container{}
}

// Entries returns the container's entries in order. The returned
// slice is owned by the container; callers that need to mutate the
// set of entries should use EntriesMut instead of appending to this
// slice directly.
func (c *Container) Entries() []*Entry {
	return c.entries
}

// EntriesMut returns a pointer to the container's entry slice, for
// callers that need to append, remove, or reorder entries.
func (c *Container) EntriesMut() *[]*Entry {
	return &c.entries
}

// Read parses a fatbinary container from r. opts may be nil to use
// default limits and logging.
func Read(r io.Reader, opts *Options) (*Container, error) {
	limits := opts.limits()
	logger := opts.helper()

	var hdrBuf [ContainerHeaderSize]byte
	if _, err := io.ReadFull(r, hdrBuf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errUnexpectedEOF()
		}
		return nil, errIO(err)
	}
	header, err := decodeContainerHeader(hdrBuf[:])
	if err != nil {
		return nil, err
	}

	c := &Container{}
	var consumed uint64

	for consumed < header.size {
		if uint32(len(c.entries)) >= limits.MaxEntries {
			return nil, errLimitExceeded("MaxEntries", uint64(limits.MaxEntries), uint64(len(c.entries)+1))
		}

		entry, n, err := readEntry(r, limits, logger, c)
		if err != nil {
			return nil, err
		}
		c.entries = append(c.entries, entry)
		consumed += n
	}

	if consumed != header.size {
		return nil, errUnexpectedEOF()
	}

	return c, nil
}

// readEntry reads one entry (fixed header, trailing region, payload)
// from r and returns it along with the number of container-size bytes
// it consumed (header_size + payload length).
func readEntry(r io.Reader, limits Limits, logger *log.Helper, c *Container) (*Entry, uint64, error) {
	var fixed [64]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, 0, errUnexpectedEOF()
		}
		return nil, 0, errIO(err)
	}

	h, err := decodeEntryHeader(fixed[:])
	if err != nil {
		return nil, 0, err
	}
	if uint64(h.headerSize) > uint64(limits.MaxEntryHeaderSize) {
		return nil, 0, errLimitExceeded("MaxEntryHeaderSize", uint64(limits.MaxEntryHeaderSize), uint64(h.headerSize))
	}
	if h.headerSize < EntryHeaderSize {
		return nil, 0, errUnexpectedEOF()
	}
	if h.size > limits.MaxPayloadSize || uint64(h.compressedSize) > limits.MaxPayloadSize {
		return nil, 0, errLimitExceeded("MaxPayloadSize", limits.MaxPayloadSize, h.size)
	}

	trailingLen := h.headerSize - EntryHeaderSize
	region := make([]byte, h.headerSize)
	copy(region, fixed[:])
	if trailingLen > 0 {
		if _, err := io.ReadFull(r, region[EntryHeaderSize:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, 0, errUnexpectedEOF()
			}
			return nil, 0, errIO(err)
		}
	}

	ptxasOptions, identifier, err := parseTrailingRegion(region, h, limits)
	if err != nil {
		return nil, 0, err
	}
	if ptxasOptions != nil {
		if err := validUTF8("ptxas options", ptxasOptions); err != nil {
			return nil, 0, err
		}
		ptxasOptions = append([]byte(nil), ptxasOptions...)
	}
	if identifier != nil {
		if err := validUTF8("identifier", identifier); err != nil {
			return nil, 0, err
		}
		identifier = append([]byte(nil), identifier...)
	}

	if h.reserved1 != 0x0000 && h.reserved1 != reservedSynthesized {
		c.Anomalies = append(c.Anomalies, AnoUnknownReserved1)
		logger.Warnf("%s: got 0x%04x", AnoUnknownReserved1, h.reserved1)
	}
	if h.flags&flagCompressed != 0 && (uint64(h.compressedSize) > h.size || h.decompressedSize == 0) {
		c.Anomalies = append(c.Anomalies, AnoCompressedInvariant)
		logger.Warnf("%s", AnoCompressedInvariant)
	}

	payload := make([]byte, h.size)
	if h.size > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				return nil, 0, errUnexpectedEOF()
			}
			return nil, 0, errIO(err)
		}
	}

	entry := &Entry{
		header:       h,
		identifier:   identifier,
		ptxasOptions: ptxasOptions,
		payload:      payload,
	}
	return entry, uint64(h.headerSize) + h.size, nil
}

// ReadFile memory-maps path and parses the fatbinary container it
// contains, the same read strategy pe.New uses for PE files.
func ReadFile(path string, opts *Options) (*Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errIO(err)
	}
	defer f.Close()

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errIO(err)
	}
	defer data.Unmap()

	return Read(bytesReader(data), opts)
}

// bytesReader adapts a []byte to an io.Reader without an extra copy,
// matching mmap.MMap's own []byte-shaped view of the file.
func bytesReader(b []byte) io.Reader {
	return &sliceReader{b: b}
}

type sliceReader struct{ b []byte }

func (s *sliceReader) Read(p []byte) (int, error) {
	if len(s.b) == 0 {
		return 0, io.EOF
	}
	n := copy(p, s.b)
	s.b = s.b[n:]
	return n, nil
}

// Write serializes the container to w. It runs the two-pass algorithm
// described in spec §4.6: a sizing pass computes every entry's
// trailing-region layout and the total container size up front, then
// an emission pass writes the header followed by each entry with
// freshly recomputed offsets — the in-memory header's own offset
// fields are never trusted on write. The intermediate encoding is
// buffered through a writerseeker.WriterSeeker so a future
// patch-size-after-the-fact writer variant can reuse this plumbing;
// today the size is always known before the first byte is written.
func (c *Container) Write(w io.Writer) error {
	var buf writerseeker.WriterSeeker
	if err := c.encodeTo(&buf); err != nil {
		return err
	}
	_, err := io.Copy(w, buf.Reader())
	return err
}

// SaveToFile writes the container to path, replacing any existing
// file atomically: it writes to a temporary file in the same
// directory and renames it into place, so a crash or interrupted
// write never leaves a truncated container behind.
func (c *Container) SaveToFile(path string) (err error) {
	t, err := renameio.TempFile("", path)
	if err != nil {
		return errIO(err)
	}
	defer t.Cleanup()

	if err := c.encodeTo(t); err != nil {
		return err
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return errIO(err)
	}
	return nil
}

func (c *Container) encodeTo(w io.Writer) error {
	type sized struct {
		entry        *Entry
		layout       layout
		identifier   []byte
		ptxasOptions []byte
	}

	entries := make([]sized, len(c.entries))
	var total uint64
	for i, e := range c.entries {
		l := computeLayout(uint32(len(e.ptxasOptions)), uint32(len(e.identifier)))
		entries[i] = sized{entry: e, layout: l, identifier: e.identifier, ptxasOptions: e.ptxasOptions}
		total += uint64(l.headerTotal) + uint64(len(e.payload))
	}

	hdr := containerHeader{
		magic:      ContainerMagic,
		version:    ContainerVersion,
		headerSize: ContainerHeaderSize,
		size:       total,
	}
	if _, err := w.Write(hdr.encode(nil)); err != nil {
		return errIO(err)
	}

	for _, s := range entries {
		h := s.entry.header
		h.headerSize = s.layout.headerTotal
		h.optionsOffset = optionsDescriptorOffset
		h.identifierOffset = s.layout.identifierOffset
		h.identifierLen = uint32(len(s.identifier))

		if _, err := w.Write(h.encode(nil)); err != nil {
			return errIO(err)
		}

		var descriptor [8]byte
		binary.LittleEndian.PutUint32(descriptor[0:4], s.layout.ptxasOptionsOffset)
		binary.LittleEndian.PutUint32(descriptor[4:8], uint32(len(s.ptxasOptions)))
		if _, err := w.Write(descriptor[:]); err != nil {
			return errIO(err)
		}

		if _, err := w.Write(s.ptxasOptions); err != nil {
			return errIO(err)
		}
		if _, err := w.Write(s.identifier); err != nil {
			return errIO(err)
		}
		if _, err := w.Write(s.entry.payload); err != nil {
			return errIO(err)
		}
	}

	return nil
}
