package packed

import (
	"fmt"
	"iter"

	"github.com/arloliu/bitpak/errs"
)

// Flags stores one N-bit flag mask per element on top of a bit-packed array.
//
// Each element is an independent bitmask; the mask helpers read, merge,
// clear, and toggle individual bits without the caller round-tripping through
// Get and Set.
type Flags struct {
	bits *Bits
}

// NewFlags creates an empty flag container with width-bit masks.
func NewFlags(width int) (*Flags, error) {
	bits, err := New(width)
	if err != nil {
		return nil, err
	}

	return &Flags{bits: bits}, nil
}

// FlagsWithCapacity creates an empty flag container preallocated for
// capacity elements.
func FlagsWithCapacity(width int, capacity int) (*Flags, error) {
	bits, err := WithCapacity(width, capacity)
	if err != nil {
		return nil, err
	}

	return &Flags{bits: bits}, nil
}

// Push appends a new flag mask.
func (f *Flags) Push(mask uint32) error {
	return f.bits.Push(mask)
}

// Get returns the mask at index, or false if index is out of range.
func (f *Flags) Get(index int) (uint32, bool) {
	return f.bits.Get(index)
}

// Contains reports whether any bit of mask is set for the element at index.
// Out-of-range indices report false.
func (f *Flags) Contains(index int, mask uint32) bool {
	val, ok := f.bits.Get(index)

	return ok && val&mask != 0
}

// SetMask sets the bits of mask for the element at index.
func (f *Flags) SetMask(index int, mask uint32) error {
	return f.update(index, func(val uint32) uint32 { return val | mask })
}

// ClearMask clears the bits of mask for the element at index.
func (f *Flags) ClearMask(index int, mask uint32) error {
	return f.update(index, func(val uint32) uint32 { return val &^ mask })
}

// ToggleMask toggles the bits of mask for the element at index.
func (f *Flags) ToggleMask(index int, mask uint32) error {
	return f.update(index, func(val uint32) uint32 { return val ^ mask })
}

func (f *Flags) update(index int, fn func(uint32) uint32) error {
	val, ok := f.bits.Get(index)
	if !ok {
		return fmt.Errorf("%w: index %d, length %d", errs.ErrIndexOutOfBounds, index, f.bits.Len())
	}

	return f.bits.Set(index, fn(val))
}

// Len returns the number of elements.
func (f *Flags) Len() int {
	return f.bits.Len()
}

// IsEmpty reports whether the container has no elements.
func (f *Flags) IsEmpty() bool {
	return f.bits.IsEmpty()
}

// Clear removes all elements.
func (f *Flags) Clear() {
	f.bits.Clear()
}

// Bits exposes the underlying bit-packed array.
func (f *Flags) Bits() *Bits {
	return f.bits
}

// AllMasks returns an iterator over the raw masks in storage order.
func (f *Flags) AllMasks() iter.Seq[uint32] {
	return f.bits.Values()
}

// SetBits returns an iterator over the individual set bits of the element at
// index, yielding each bit as a single-bit mask from lowest to highest.
// Out-of-range indices yield an empty sequence.
func (f *Flags) SetBits(index int) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		val, ok := f.bits.Get(index)
		if !ok {
			return
		}

		for mask := uint32(1); mask != 0; mask <<= 1 {
			if val&mask != 0 && !yield(mask) {
				return
			}
		}
	}
}
