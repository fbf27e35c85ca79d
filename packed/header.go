package packed

import (
	"bytes"
	"fmt"

	"github.com/arloliu/bitpak/endian"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/format"
)

// HeaderSize is the byte size of the persisted packed-array header.
const HeaderSize = format.PackedBitsHeaderSize

// Header is the fixed-size header at the start of a persisted bit-packed
// array: [magic "PKBT": 4][width: u32 LE][count: u32 LE].
//
// The recorded element count is authoritative on load; trailing padding in
// the packed payload is ignored.
type Header struct {
	// Width is the bit width of each element, 1..=32.
	Width uint32 // byte offset 4-7
	// Count is the number of packed elements.
	Count uint32 // byte offset 8-11
}

// Parse parses the header from a byte slice and validates the magic tag.
//
// Returns errs.ErrUnexpectedEOF if data is shorter than HeaderSize, or
// errs.ErrInvalidMagic on a tag mismatch. The bit width is not range-checked
// here; Unmarshal compares it against the reader's expected width.
func (h *Header) Parse(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header needs %d bytes, got %d", errs.ErrUnexpectedEOF, HeaderSize, len(data))
	}

	if !bytes.Equal(data[0:4], format.MagicPackedBits[:]) {
		return fmt.Errorf("%w: expected %q, found %q", errs.ErrInvalidMagic, format.MagicPackedBits[:], data[0:4])
	}

	engine := endian.GetLittleEndianEngine()
	h.Width = engine.Uint32(data[4:8])
	h.Count = engine.Uint32(data[8:12])

	return nil
}

// Bytes serializes the header into a new HeaderSize byte slice.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	copy(b[0:4], format.MagicPackedBits[:])

	engine := endian.GetLittleEndianEngine()
	engine.PutUint32(b[4:8], h.Width)
	engine.PutUint32(b[8:12], h.Count)

	return b
}

// Marshal serializes the array into its persisted form: the PKBT header
// followed by the packed payload.
func (b *Bits) Marshal() []byte {
	header := Header{Width: uint32(b.width), Count: uint32(b.count)}

	out := make([]byte, 0, HeaderSize+len(b.data))
	out = append(out, header.Bytes()...)
	out = append(out, b.data...)

	return out
}

// Unmarshal reconstructs an array from its persisted form, validating the
// header before trusting any payload byte.
//
// The magic tag must match exactly, and the recorded bit width must equal
// width; a width mismatch is reported as errs.ErrBitWidthMismatch, distinct
// from parse failures. The element count is taken from the header, never
// recomputed from the payload length, so trailing padding is ignored. The
// returned array copies the payload; blob is not retained.
func Unmarshal(width int, blob []byte) (*Bits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	var header Header
	if err := header.Parse(blob); err != nil {
		return nil, err
	}

	if header.Width != uint32(width) {
		return nil, fmt.Errorf("%w: expected %d bits, header records %d bits",
			errs.ErrBitWidthMismatch, width, header.Width)
	}

	count := int(header.Count)
	payload := blob[HeaderSize:]
	minBytes := (count*width + 7) / 8
	if len(payload) < minBytes {
		return nil, fmt.Errorf("%w: need %d payload bytes for %d elements of %d bits, got %d",
			errs.ErrInsufficientBytes, minBytes, count, width, len(payload))
	}

	data := make([]byte, len(payload))
	copy(data, payload)

	return &Bits{data: data, width: width, count: count}, nil
}
