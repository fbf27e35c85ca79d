package packed

import (
	"fmt"
	"iter"

	"github.com/arloliu/bitpak/endian"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/storage"
)

// StorageBits is a bit-packed array bound to a storage.Storage, so the packed
// payload can live in an owned buffer or a memory-mapped file and be edited
// in place.
//
// A StorageBits created by NewStorageBits or opened by OpenStorageBits
// carries the persisted PKBT header at the start of the storage and keeps its
// element count in sync on every mutation. FromStorage views headerless raw
// payloads instead, deriving the count from the byte length.
type StorageBits struct {
	store     *storage.Storage
	width     int
	count     int
	hasHeader bool
}

// NewStorageBits initializes a fresh, empty persisted array on store,
// truncating it to the header and writing the PKBT header.
//
// The storage must be an owned buffer; mapped regions cannot be resized and
// are rejected with errs.ErrUnsupportedOperation.
func NewStorageBits(width int, store *storage.Storage) (*StorageBits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	if err := store.Resize(HeaderSize, 0); err != nil {
		return nil, err
	}

	sb := &StorageBits{store: store, width: width, hasHeader: true}
	header := Header{Width: uint32(width)}
	copy(store.BytesMut(), header.Bytes())

	return sb, nil
}

// OpenStorageBits opens an existing persisted array, validating the PKBT
// header against the expected width before trusting the payload.
//
// The storage may be read-only; mutating operations will then fail
// individually. A recorded width differing from width is reported as
// errs.ErrBitWidthMismatch. The element count comes from the header; trailing
// payload bytes beyond it are ignored.
func OpenStorageBits(width int, store *storage.Storage) (*StorageBits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	var header Header
	if err := header.Parse(store.Bytes()); err != nil {
		return nil, err
	}

	if header.Width != uint32(width) {
		return nil, fmt.Errorf("%w: expected %d bits, header records %d bits",
			errs.ErrBitWidthMismatch, width, header.Width)
	}

	count := int(header.Count)
	payloadLen := store.Len() - HeaderSize
	minBytes := (count*width + 7) / 8
	if payloadLen < minBytes {
		return nil, fmt.Errorf("%w: need %d payload bytes for %d elements of %d bits, got %d",
			errs.ErrInsufficientBytes, minBytes, count, width, payloadLen)
	}

	return &StorageBits{store: store, width: width, count: count, hasHeader: true}, nil
}

// FromStorage views a headerless packed payload, deriving the element count
// from the byte length: count = len*8/width. Partial trailing bits are
// excluded from the count.
func FromStorage(width int, store *storage.Storage) (*StorageBits, error) {
	if err := validateWidth(width); err != nil {
		return nil, err
	}

	return &StorageBits{
		store: store,
		width: width,
		count: store.Len() * 8 / width,
	}, nil
}

// Storage returns the underlying storage.
func (sb *StorageBits) Storage() *storage.Storage {
	return sb.store
}

// Width returns the bit width of each element.
func (sb *StorageBits) Width() int {
	return sb.width
}

// Len returns the number of stored elements.
func (sb *StorageBits) Len() int {
	return sb.count
}

// IsEmpty reports whether the array has no elements.
func (sb *StorageBits) IsEmpty() bool {
	return sb.count == 0
}

func (sb *StorageBits) headerLen() int {
	if sb.hasHeader {
		return HeaderSize
	}

	return 0
}

func (sb *StorageBits) payload() []byte {
	return sb.store.Bytes()[sb.headerLen():]
}

// Get returns the value at index, or false if index is out of range.
func (sb *StorageBits) Get(index int) (uint32, bool) {
	if index < 0 || index >= sb.count {
		return 0, false
	}

	return getBits(sb.payload(), index, sb.width), true
}

// Set overwrites the value at index in place. Works on any mutable storage,
// including read-write mappings.
func (sb *StorageBits) Set(index int, value uint32) error {
	if index < 0 || index >= sb.count {
		return fmt.Errorf("%w: index %d, length %d", errs.ErrIndexOutOfBounds, index, sb.count)
	}
	if value > sb.maxValue() {
		return fmt.Errorf("%w: value %d does not fit in %d bits", errs.ErrValueOverflow, value, sb.width)
	}

	buf := sb.store.BytesMut()
	if buf == nil {
		return fmt.Errorf("%w: set on read-only storage", errs.ErrUnsupportedOperation)
	}

	setBits(buf[sb.headerLen():], index, sb.width, value)

	return nil
}

// Push appends a value, growing the storage. Only owned buffers can grow;
// mapped storages are rejected with errs.ErrUnsupportedOperation.
func (sb *StorageBits) Push(value uint32) error {
	if value > sb.maxValue() {
		return fmt.Errorf("%w: value %d does not fit in %d bits", errs.ErrValueOverflow, value, sb.width)
	}

	bitPos := sb.count * sb.width
	requiredBytes := (bitPos + sb.width + 7) / 8
	if err := sb.store.Resize(sb.headerLen()+requiredBytes, 0); err != nil {
		return err
	}

	bytePos, bitOffset, numBytes := span(bitPos, sb.width)
	data := sb.store.BytesMut()[sb.headerLen():]
	v := uint64(value) << bitOffset
	for i := 0; i < numBytes; i++ {
		data[bytePos+i] |= byte(v >> (i * 8))
	}

	sb.count++
	sb.syncHeader()

	return nil
}

// Clear removes all elements, truncating the storage back to the header.
func (sb *StorageBits) Clear() error {
	if err := sb.store.Resize(sb.headerLen(), 0); err != nil {
		return err
	}

	sb.count = 0
	sb.syncHeader()

	return nil
}

// All returns an iterator over index/value pairs in storage order.
func (sb *StorageBits) All() iter.Seq2[int, uint32] {
	return func(yield func(int, uint32) bool) {
		for i := 0; i < sb.count; i++ {
			if !yield(i, getBits(sb.payload(), i, sb.width)) {
				return
			}
		}
	}
}

func (sb *StorageBits) maxValue() uint32 {
	if sb.width == 32 {
		return ^uint32(0)
	}

	return (uint32(1) << sb.width) - 1
}

// syncHeader rewrites the header's element count after a mutation.
func (sb *StorageBits) syncHeader() {
	if !sb.hasHeader {
		return
	}

	buf := sb.store.BytesMut()
	if buf == nil {
		return
	}

	endian.GetLittleEndianEngine().PutUint32(buf[8:12], uint32(sb.count))
}
