// Package packed implements a bit-packed array of unsigned integers with an
// arbitrary bit width between 1 and 32.
//
// Elements are stored contiguously at the bit level, crossing byte boundaries
// as needed: an array of 3-bit values holds its first five elements in two
// bytes. The engine supports append (Push), random read (Get), and in-place
// overwrite (Set), each validated against the array's bit width and length.
//
// Two persisted forms are provided:
//
//   - Marshal/Unmarshal round-trip an in-memory Bits through a blob with a
//     fixed 12-byte header ("PKBT" magic, bit width, element count) so a
//     reader can validate the format before trusting any bit.
//   - StorageBits binds the same arithmetic to a storage.Storage, allowing a
//     memory-mapped file to be read and edited in place.
//
// All operations are single-threaded; a Bits assumes exclusive ownership of
// its buffer.
package packed

import (
	"fmt"
	"iter"
	"math"

	"github.com/arloliu/bitpak/errs"
)

// maxSpanBytes bounds the bytes one element can straddle: width <= 32 bits
// plus a bit offset <= 7 never spans more than 5 bytes.
const maxSpanBytes = 5

// Bits is a bit-packed array of unsigned integers of a fixed bit width.
//
// The zero value is not usable; construct with New, WithCapacity, FromBytes,
// or Unmarshal.
type Bits struct {
	data  []byte
	width int // bits per element, 1..=32
	count int // number of stored elements
}

// New creates an empty array storing width-bit values.
//
// Returns errs.ErrInvalidBitWidth if width is outside 1..=32.
func New(width int) (*Bits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	return &Bits{width: width}, nil
}

// WithCapacity creates an empty array with buffer capacity preallocated for
// capacity elements.
func WithCapacity(width int, capacity int) (*Bits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	byteCap := (capacity*width + 7) / 8

	return &Bits{
		data:  make([]byte, 0, byteCap),
		width: width,
	}, nil
}

// FromBytes creates an array from a raw packed buffer and element count.
//
// The buffer must hold at least ceil(count*width/8) bytes; trailing bytes
// beyond the declared count are retained but never read. The array takes
// ownership of data.
//
// Returns errs.ErrInsufficientBytes if the buffer is too small for count
// elements.
func FromBytes(width int, data []byte, count int) (*Bits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	minBytes := (count*width + 7) / 8
	if len(data) < minBytes {
		return nil, fmt.Errorf("%w: need %d bytes for %d elements of %d bits, got %d",
			errs.ErrInsufficientBytes, minBytes, count, width, len(data))
	}

	return &Bits{data: data, width: width, count: count}, nil
}

func validateWidth(width int) error {
	if width < 1 || width > 32 {
		return fmt.Errorf("%w: got %d", errs.ErrInvalidBitWidth, width)
	}

	return nil
}

// Width returns the bit width of each element.
func (b *Bits) Width() int {
	return b.width
}

// Len returns the number of stored elements.
func (b *Bits) Len() int {
	return b.count
}

// IsEmpty reports whether the array has no elements.
func (b *Bits) IsEmpty() bool {
	return b.count == 0
}

// Bytes returns the underlying packed buffer.
func (b *Bits) Bytes() []byte {
	return b.data
}

// MaxValue returns the largest value representable at the array's bit width.
func (b *Bits) MaxValue() uint32 {
	if b.width == 32 {
		return math.MaxUint32
	}

	return (uint32(1) << b.width) - 1
}

// Push appends a value to the array.
//
// Returns errs.ErrValueOverflow if value does not fit in the array's width.
// Growth is zero-filled, so OR-ing the shifted value never needs to clear
// bits first.
func (b *Bits) Push(value uint32) error {
	if value > b.MaxValue() {
		return fmt.Errorf("%w: value %d does not fit in %d bits", errs.ErrValueOverflow, value, b.width)
	}

	bitPos := b.count * b.width
	requiredBytes := (bitPos + b.width + 7) / 8
	if len(b.data) < requiredBytes {
		b.grow(requiredBytes)
	}

	bytePos, bitOffset, numBytes := span(bitPos, b.width)
	v := uint64(value) << bitOffset
	for i := 0; i < numBytes; i++ {
		b.data[bytePos+i] |= byte(v >> (i * 8))
	}

	b.count++

	return nil
}

// Get returns the value at index, or false if index is out of range.
func (b *Bits) Get(index int) (uint32, bool) {
	if index < 0 || index >= b.count {
		return 0, false
	}

	return getBits(b.data, index, b.width), true
}

// Set overwrites the value at index.
//
// Returns errs.ErrIndexOutOfBounds or errs.ErrValueOverflow on invalid input.
// Exactly the element's bits are cleared and rewritten; neighboring elements
// sharing the same bytes are untouched.
func (b *Bits) Set(index int, value uint32) error {
	if index < 0 || index >= b.count {
		return fmt.Errorf("%w: index %d, length %d", errs.ErrIndexOutOfBounds, index, b.count)
	}
	if value > b.MaxValue() {
		return fmt.Errorf("%w: value %d does not fit in %d bits", errs.ErrValueOverflow, value, b.width)
	}

	setBits(b.data, index, b.width, value)

	return nil
}

// Clear removes all elements and empties the buffer, retaining capacity.
func (b *Bits) Clear() {
	b.data = b.data[:0]
	b.count = 0
}

// Capacity returns the number of elements the current allocation can hold
// before the buffer grows.
func (b *Bits) Capacity() int {
	return cap(b.data) * 8 / b.width
}

// Reserve grows the buffer capacity to hold at least additional more elements.
func (b *Bits) Reserve(additional int) {
	requiredBytes := ((b.count+additional)*b.width + 7) / 8
	if cap(b.data) >= requiredBytes {
		return
	}

	grown := make([]byte, len(b.data), requiredBytes)
	copy(grown, b.data)
	b.data = grown
}

// ExtendFromSlice pushes each value in order, stopping at the first error.
func (b *Bits) ExtendFromSlice(values []uint32) error {
	b.Reserve(len(values))
	for _, v := range values {
		if err := b.Push(v); err != nil {
			return err
		}
	}

	return nil
}

// All returns an iterator over index/value pairs in storage order.
// The sequence is restartable and reflects the array at iteration time.
func (b *Bits) All() iter.Seq2[int, uint32] {
	return func(yield func(int, uint32) bool) {
		for i := 0; i < b.count; i++ {
			if !yield(i, getBits(b.data, i, b.width)) {
				return
			}
		}
	}
}

// Values returns an iterator over the stored values in order.
func (b *Bits) Values() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for i := 0; i < b.count; i++ {
			if !yield(getBits(b.data, i, b.width)) {
				return
			}
		}
	}
}

// grow zero-fills the buffer out to requiredBytes.
func (b *Bits) grow(requiredBytes int) {
	if cap(b.data) >= requiredBytes {
		old := len(b.data)
		b.data = b.data[:requiredBytes]
		for i := old; i < requiredBytes; i++ {
			b.data[i] = 0
		}

		return
	}

	grown := make([]byte, requiredBytes, max(requiredBytes, 2*cap(b.data)))
	copy(grown, b.data)
	b.data = grown
}

// span locates the byte range holding one element.
func span(bitPos, width int) (bytePos, bitOffset, numBytes int) {
	bytePos = bitPos / 8
	bitOffset = bitPos % 8
	numBytes = (width + bitOffset + 7) / 8
	if numBytes > maxSpanBytes {
		panic("packed: element spans more than 5 bytes")
	}

	return bytePos, bitOffset, numBytes
}

// getBits reads the width-bit value at index from a packed buffer.
//
// The element is assembled into a 64-bit intermediate so the shift and mask
// stay branch-free regardless of how many bytes the field straddles.
func getBits(data []byte, index, width int) uint32 {
	bytePos, bitOffset, numBytes := span(index*width, width)

	var val uint64
	for i := 0; i < numBytes; i++ {
		if bytePos+i < len(data) {
			val |= uint64(data[bytePos+i]) << (i * 8)
		}
	}

	val >>= bitOffset
	mask := uint64(math.MaxUint32)
	if width < 32 {
		mask = (uint64(1) << width) - 1
	}

	return uint32(val & mask)
}

// setBits overwrites the width-bit value at index in a packed buffer,
// clearing exactly the element's bits before OR-ing in the new value.
func setBits(data []byte, index, width int, value uint32) {
	bytePos, bitOffset, numBytes := span(index*width, width)

	v := uint64(value) << bitOffset
	mask := uint64(math.MaxUint32) << bitOffset
	if width < 32 {
		mask = ((uint64(1) << width) - 1) << bitOffset
	}

	for i := 0; i < numBytes; i++ {
		if bytePos+i >= len(data) {
			break
		}
		byteMask := byte(mask >> (i * 8))
		data[bytePos+i] &^= byteMask
		data[bytePos+i] |= byte(v >> (i * 8))
	}
}
