// Package typefmt implements the self-describing binary type format: a flat
// blob carrying type and field descriptors plus a string table, so packed
// data can be introspected at runtime without a compile-time schema.
//
// Blob layout, all integers little-endian u32:
//
//	[magic "MTF\0": 4][version: 4][type_count: 4]
//	repeated type_count times:
//	  [name_offset: 4][size_bits: 4][field_count: 4]
//	  repeated field_count times: [name_offset: 4][offset_bits: 4][size_bits: 4]
//	[string_table_len: 4][string_table_bytes]
//
// The string table is a concatenation of NUL-terminated UTF-8 strings
// addressed by byte offset. Decode is fully bounds-checked: every length is
// validated before the bytes behind it are read, so a truncated or corrupt
// blob fails with a descriptive error instead of reading out of bounds.
//
// The format carries exactly one version; a version mismatch is a hard
// failure, not a negotiation.
package typefmt

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/arloliu/bitpak/endian"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/format"
	"github.com/arloliu/bitpak/internal/pool"
)

// fixedPrefixSize covers magic, version, and type count.
const fixedPrefixSize = 12

// FieldDef describes one field of a packed struct: where its name lives in
// the string table and which bit range it occupies within the struct.
type FieldDef struct {
	NameOffset uint32
	OffsetBits uint32
	SizeBits   uint32
}

// TypeDef describes one packed struct type: its name, total bit size, and
// ordered fields.
type TypeDef struct {
	NameOffset uint32
	SizeBits   uint32
	Fields     []FieldDef
}

// Encode serializes type descriptors and a string table into a metadata blob.
func Encode(types []TypeDef, stringTable []byte) []byte {
	engine := endian.GetLittleEndianEngine()

	buf := pool.GetMetaBuffer()
	defer pool.PutMetaBuffer(buf)

	buf.B = append(buf.B, format.MagicTypeFormat[:]...)
	buf.B = engine.AppendUint32(buf.B, format.TypeFormatVersion)
	buf.B = engine.AppendUint32(buf.B, uint32(len(types)))

	for _, t := range types {
		buf.B = engine.AppendUint32(buf.B, t.NameOffset)
		buf.B = engine.AppendUint32(buf.B, t.SizeBits)
		buf.B = engine.AppendUint32(buf.B, uint32(len(t.Fields)))
		for _, f := range t.Fields {
			buf.B = engine.AppendUint32(buf.B, f.NameOffset)
			buf.B = engine.AppendUint32(buf.B, f.OffsetBits)
			buf.B = engine.AppendUint32(buf.B, f.SizeBits)
		}
	}

	buf.B = engine.AppendUint32(buf.B, uint32(len(stringTable)))
	buf.B = append(buf.B, stringTable...)

	out := make([]byte, buf.Len())
	copy(out, buf.B)

	return out
}

// Decode parses a metadata blob into type descriptors and the string table.
//
// Distinct error kinds are reported for: a blob shorter than the fixed
// prefix (errs.ErrUnexpectedEOF), a magic mismatch (errs.ErrInvalidMagic),
// an unsupported version (errs.ErrUnsupportedVersion), and truncation at any
// point while reading types, fields, or the string table
// (errs.ErrUnexpectedEOF). The returned string table aliases blob.
func Decode(blob []byte) ([]TypeDef, []byte, error) {
	if len(blob) < fixedPrefixSize {
		return nil, nil, fmt.Errorf("%w: blob of %d bytes is shorter than the %d-byte prefix",
			errs.ErrUnexpectedEOF, len(blob), fixedPrefixSize)
	}

	if !bytes.Equal(blob[0:4], format.MagicTypeFormat[:]) {
		return nil, nil, fmt.Errorf("%w: expected %q, found %q",
			errs.ErrInvalidMagic, format.MagicTypeFormat[:], blob[0:4])
	}

	engine := endian.GetLittleEndianEngine()

	version := engine.Uint32(blob[4:8])
	if version != format.TypeFormatVersion {
		return nil, nil, fmt.Errorf("%w: expected %d, found %d",
			errs.ErrUnsupportedVersion, format.TypeFormatVersion, version)
	}

	typeCount := int(engine.Uint32(blob[8:12]))
	pos := fixedPrefixSize

	// Counts are untrusted; cap pre-allocation by what the blob could
	// actually hold so a hostile count cannot force a huge allocation.
	types := make([]TypeDef, 0, min(typeCount, (len(blob)-pos)/12))
	for i := 0; i < typeCount; i++ {
		if pos+12 > len(blob) {
			return nil, nil, fmt.Errorf("%w: truncated reading type %d of %d",
				errs.ErrUnexpectedEOF, i, typeCount)
		}

		t := TypeDef{
			NameOffset: engine.Uint32(blob[pos : pos+4]),
			SizeBits:   engine.Uint32(blob[pos+4 : pos+8]),
		}
		fieldCount := int(engine.Uint32(blob[pos+8 : pos+12]))
		pos += 12

		t.Fields = make([]FieldDef, 0, min(fieldCount, (len(blob)-pos)/12))
		for j := 0; j < fieldCount; j++ {
			if pos+12 > len(blob) {
				return nil, nil, fmt.Errorf("%w: truncated reading field %d of type %d",
					errs.ErrUnexpectedEOF, j, i)
			}

			t.Fields = append(t.Fields, FieldDef{
				NameOffset: engine.Uint32(blob[pos : pos+4]),
				OffsetBits: engine.Uint32(blob[pos+4 : pos+8]),
				SizeBits:   engine.Uint32(blob[pos+8 : pos+12]),
			})
			pos += 12
		}

		types = append(types, t)
	}

	if pos+4 > len(blob) {
		return nil, nil, fmt.Errorf("%w: truncated reading string table length", errs.ErrUnexpectedEOF)
	}
	stringLen := int(engine.Uint32(blob[pos : pos+4]))
	pos += 4

	if pos+stringLen > len(blob) {
		return nil, nil, fmt.Errorf("%w: string table declares %d bytes, %d remain",
			errs.ErrUnexpectedEOF, stringLen, len(blob)-pos)
	}

	return types, blob[pos : pos+stringLen], nil
}

// LookupString resolves a byte offset into a NUL-terminated UTF-8 string
// within the string table.
//
// Returns errs.ErrInvalidStringOffset if offset is out of bounds or no NUL
// terminator follows it, and errs.ErrInvalidUTF8 if the bytes are not valid
// UTF-8. The returned string copies the bytes and does not alias table.
func LookupString(table []byte, offset uint32) (string, error) {
	start := int(offset)
	if start >= len(table) {
		return "", fmt.Errorf("%w: offset %d, table of %d bytes", errs.ErrInvalidStringOffset, offset, len(table))
	}

	end := bytes.IndexByte(table[start:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: offset %d has no NUL terminator", errs.ErrInvalidStringOffset, offset)
	}

	raw := table[start : start+end]
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("%w: string at offset %d", errs.ErrInvalidUTF8, offset)
	}

	return string(raw), nil
}

// BuildStringTable packs names into a string table, returning the table and
// the byte offset of each name. Duplicate names share one entry.
func BuildStringTable(names ...string) ([]byte, map[string]uint32) {
	var table []byte
	offsets := make(map[string]uint32, len(names))

	for _, name := range names {
		if _, ok := offsets[name]; ok {
			continue
		}
		offsets[name] = uint32(len(table))
		table = append(table, name...)
		table = append(table, 0)
	}

	return table, offsets
}
