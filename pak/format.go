// Package pak implements the archive collaborator: a builder and a
// memory-mapped reader for PAK files, an indexed container of named byte
// entries with optional per-entry compression.
//
// File layout:
//
//	[header: 32 bytes][entry payloads...][TOC entries: 48 bytes each][name string table]
//
// The table of contents stores, per entry, the xxHash64 of its name, the
// payload's offset and sizes, a compression flag, an entry type tag, and the
// name's byte offset into the trailing string table (the same NUL-terminated
// layout the typefmt string table uses).
//
// The reader maps the archive read-only through the storage package, so
// uncompressed entry payloads are served zero-copy straight from the mapping.
package pak

import (
	"bytes"
	"fmt"

	"github.com/arloliu/bitpak/endian"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/format"
	"github.com/arloliu/bitpak/internal/hash"
)

// Header is the fixed-size header at the start of an archive.
type Header struct {
	// TocOffset is the byte offset of the first TOC entry.
	TocOffset uint64 // byte offset 8-15
	// DataOffset is the byte offset of the first entry payload.
	DataOffset uint64 // byte offset 16-23
	// EntryCount is the number of TOC entries.
	EntryCount uint32 // byte offset 24-27
	// Flags records the archive-wide compression codec in its low byte
	// (a format.CompressionType); the remaining bits are reserved.
	Flags uint32 // byte offset 28-31
}

// Parse parses and validates the header from a byte slice.
//
// Returns errs.ErrUnexpectedEOF on a short buffer, errs.ErrInvalidMagic on a
// magic mismatch, and errs.ErrUnsupportedVersion on any version other than
// format.ArchiveVersion.
func (h *Header) Parse(data []byte) error {
	if len(data) < format.ArchiveHeaderSize {
		return fmt.Errorf("%w: archive header needs %d bytes, got %d",
			errs.ErrUnexpectedEOF, format.ArchiveHeaderSize, len(data))
	}

	if !bytes.Equal(data[0:4], format.MagicArchive[:]) {
		return fmt.Errorf("%w: expected %q, found %q", errs.ErrInvalidMagic, format.MagicArchive[:], data[0:4])
	}

	engine := endian.GetLittleEndianEngine()

	version := engine.Uint32(data[4:8])
	if version != format.ArchiveVersion {
		return fmt.Errorf("%w: expected %d, found %d", errs.ErrUnsupportedVersion, format.ArchiveVersion, version)
	}

	h.TocOffset = engine.Uint64(data[8:16])
	h.DataOffset = engine.Uint64(data[16:24])
	h.EntryCount = engine.Uint32(data[24:28])
	h.Flags = engine.Uint32(data[28:32])

	return nil
}

// Bytes serializes the header into a new 32-byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, format.ArchiveHeaderSize)
	copy(b[0:4], format.MagicArchive[:])

	engine := endian.GetLittleEndianEngine()
	engine.PutUint32(b[4:8], format.ArchiveVersion)
	engine.PutUint64(b[8:16], h.TocOffset)
	engine.PutUint64(b[16:24], h.DataOffset)
	engine.PutUint32(b[24:28], h.EntryCount)
	engine.PutUint32(b[28:32], h.Flags)

	return b
}

// TocEntry is one fixed-size table-of-contents record.
type TocEntry struct {
	// NameHash is the xxHash64 of the entry name.
	NameHash uint64 // byte offset 0-7
	// Offset is the byte offset of the entry payload within the archive.
	Offset uint64 // byte offset 8-15
	// Size is the uncompressed payload size in bytes.
	Size uint64 // byte offset 16-23
	// CompressedSize is the stored payload size for compressed entries,
	// zero otherwise.
	CompressedSize uint64 // byte offset 24-31
	// Flags carries format.FlagCompressed.
	Flags uint32 // byte offset 32-35
	// Type is the entry type tag.
	Type format.EntryType // byte offset 36-39
	// NameOffset is the byte offset of the entry name in the archive's
	// string table.
	NameOffset uint32 // byte offset 40-43, bytes 44-47 reserved
}

// NewTocEntry creates an uncompressed TOC entry for the named payload.
func NewTocEntry(name string, offset, size uint64, entryType format.EntryType) TocEntry {
	return TocEntry{
		NameHash: hash.ID(name),
		Offset:   offset,
		Size:     size,
		Type:     entryType,
	}
}

// NewCompressedTocEntry creates a compressed TOC entry for the named payload.
func NewCompressedTocEntry(name string, offset, size, compressedSize uint64, entryType format.EntryType) TocEntry {
	return TocEntry{
		NameHash:       hash.ID(name),
		Offset:         offset,
		Size:           size,
		CompressedSize: compressedSize,
		Flags:          format.FlagCompressed,
		Type:           entryType,
	}
}

// IsCompressed reports whether the entry payload is stored compressed.
func (e TocEntry) IsCompressed() bool {
	return e.Flags&format.FlagCompressed != 0
}

// StoredSize returns the payload size as stored in the archive.
func (e TocEntry) StoredSize() uint64 {
	if e.IsCompressed() {
		return e.CompressedSize
	}

	return e.Size
}

// Parse parses the entry from a byte slice.
func (e *TocEntry) Parse(data []byte) error {
	if len(data) < format.TocEntrySize {
		return fmt.Errorf("%w: TOC entry needs %d bytes, got %d",
			errs.ErrUnexpectedEOF, format.TocEntrySize, len(data))
	}

	engine := endian.GetLittleEndianEngine()
	e.NameHash = engine.Uint64(data[0:8])
	e.Offset = engine.Uint64(data[8:16])
	e.Size = engine.Uint64(data[16:24])
	e.CompressedSize = engine.Uint64(data[24:32])
	e.Flags = engine.Uint32(data[32:36])
	e.Type = format.EntryType(engine.Uint32(data[36:40]))
	e.NameOffset = engine.Uint32(data[40:44])

	return nil
}

// AppendBytes serializes the entry, appending its 48 bytes to dst.
func (e TocEntry) AppendBytes(dst []byte) []byte {
	engine := endian.GetLittleEndianEngine()
	dst = engine.AppendUint64(dst, e.NameHash)
	dst = engine.AppendUint64(dst, e.Offset)
	dst = engine.AppendUint64(dst, e.Size)
	dst = engine.AppendUint64(dst, e.CompressedSize)
	dst = engine.AppendUint32(dst, e.Flags)
	dst = engine.AppendUint32(dst, uint32(e.Type))
	dst = engine.AppendUint32(dst, e.NameOffset)
	dst = engine.AppendUint32(dst, 0) // reserved

	return dst
}
