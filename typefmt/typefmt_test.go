package typefmt

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/format"
)

func vertexBlob(t *testing.T) ([]byte, []TypeDef, []byte) {
	t.Helper()

	table, offsets := BuildStringTable("Vertex", "x", "y")
	types := []TypeDef{
		{
			NameOffset: offsets["Vertex"],
			SizeBits:   64,
			Fields: []FieldDef{
				{NameOffset: offsets["x"], OffsetBits: 0, SizeBits: 32},
				{NameOffset: offsets["y"], OffsetBits: 32, SizeBits: 32},
			},
		},
	}

	return Encode(types, table), types, table
}

func TestEncodeDecode(t *testing.T) {
	t.Run("Round trip", func(t *testing.T) {
		blob, types, table := vertexBlob(t)

		decoded, decodedTable, err := Decode(blob)
		require.NoError(t, err)
		require.Equal(t, types, decoded)
		require.Equal(t, table, decodedTable)
	})

	t.Run("Zero types, empty table", func(t *testing.T) {
		blob := Encode(nil, nil)

		decoded, table, err := Decode(blob)
		require.NoError(t, err)
		require.Empty(t, decoded)
		require.Empty(t, table)
	})

	t.Run("Multiple types", func(t *testing.T) {
		table, offsets := BuildStringTable("A", "B", "f")
		types := []TypeDef{
			{NameOffset: offsets["A"], SizeBits: 8, Fields: []FieldDef{
				{NameOffset: offsets["f"], OffsetBits: 0, SizeBits: 8},
			}},
			{NameOffset: offsets["B"], SizeBits: 16},
		}

		decoded, _, err := Decode(Encode(types, table))
		require.NoError(t, err)
		require.Len(t, decoded, 2)
		require.Len(t, decoded[0].Fields, 1)
		require.Empty(t, decoded[1].Fields)
	})
}

func TestDecode_Errors(t *testing.T) {
	blob, _, _ := vertexBlob(t)

	t.Run("Short prefix", func(t *testing.T) {
		_, _, err := Decode(blob[:fixedPrefixSize-1])
		require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
	})

	t.Run("Bad magic", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		bad[0] = 'X'
		_, _, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrInvalidMagic)
	})

	t.Run("Unsupported version", func(t *testing.T) {
		bad := append([]byte(nil), blob...)
		bad[4] = byte(format.TypeFormatVersion + 1)
		_, _, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrUnsupportedVersion)
	})

	t.Run("Truncated type record", func(t *testing.T) {
		_, _, err := Decode(blob[:fixedPrefixSize+4])
		require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
	})

	t.Run("Truncated string table", func(t *testing.T) {
		_, _, err := Decode(blob[:len(blob)-3])
		require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
	})

	t.Run("Hostile type count fails without allocating for it", func(t *testing.T) {
		bad := Encode(nil, nil)
		binary.LittleEndian.PutUint32(bad[8:12], math.MaxUint32)

		_, _, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
	})

	t.Run("Hostile field count fails without allocating for it", func(t *testing.T) {
		table, offsets := BuildStringTable("T", "f")
		bad := Encode([]TypeDef{
			{NameOffset: offsets["T"], SizeBits: 8, Fields: []FieldDef{
				{NameOffset: offsets["f"], OffsetBits: 0, SizeBits: 8},
			}},
		}, table)
		// Field count lives at byte 8 of the first type record.
		binary.LittleEndian.PutUint32(bad[fixedPrefixSize+8:], math.MaxUint32)

		_, _, err := Decode(bad)
		require.ErrorIs(t, err, errs.ErrUnexpectedEOF)
	})
}

func TestLookupString(t *testing.T) {
	table, offsets := BuildStringTable("position", "normal")

	t.Run("Found", func(t *testing.T) {
		name, err := LookupString(table, offsets["normal"])
		require.NoError(t, err)
		require.Equal(t, "normal", name)
	})

	t.Run("Offset out of range", func(t *testing.T) {
		_, err := LookupString(table, uint32(len(table)))
		require.ErrorIs(t, err, errs.ErrInvalidStringOffset)
	})

	t.Run("Missing terminator", func(t *testing.T) {
		_, err := LookupString([]byte("dangling"), 0)
		require.ErrorIs(t, err, errs.ErrInvalidStringOffset)
	})

	t.Run("Invalid UTF-8", func(t *testing.T) {
		_, err := LookupString([]byte{0xFF, 0xFE, 0x00}, 0)
		require.ErrorIs(t, err, errs.ErrInvalidUTF8)
	})

	t.Run("Result does not alias the table", func(t *testing.T) {
		tbl := []byte("abc\x00")
		name, err := LookupString(tbl, 0)
		require.NoError(t, err)
		tbl[0] = 'z'
		require.Equal(t, "abc", name)
	})
}

func TestBuildStringTable(t *testing.T) {
	t.Run("Deduplicates names", func(t *testing.T) {
		table, offsets := BuildStringTable("x", "y", "x")
		require.Len(t, offsets, 2)
		// Two names, each NUL-terminated.
		require.Len(t, table, 4)
	})

	t.Run("Offsets resolve back to names", func(t *testing.T) {
		table, offsets := BuildStringTable("alpha", "beta", "gamma")
		for name, off := range offsets {
			got, err := LookupString(table, off)
			require.NoError(t, err)
			require.Equal(t, name, got)
		}
	})

	t.Run("Empty input", func(t *testing.T) {
		table, offsets := BuildStringTable()
		require.Empty(t, table)
		require.Empty(t, offsets)
	})
}
