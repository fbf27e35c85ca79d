// Package storage unifies owned in-memory byte buffers and memory-mapped file
// regions behind a single Storage type.
//
// A Storage is one of three kinds:
//
//   - KindMemory: an owned, growable buffer. Always mutable, supports
//     Append/Resize, and persists via WriteFile.
//   - KindMappedReadOnly: a read-only mapping of a file's bytes. Zero-copy
//     reads; every mutating operation is rejected.
//   - KindMappedReadWrite: a read-write mapping. In-place mutation and Flush
//     are supported; the region cannot be resized.
//
// Mapped storages validate the file's byte length against the configured
// element size and the mapped base address against the element alignment at
// open time. Violations are rejected before any byte slice is produced.
//
// A Storage assumes exclusive ownership of its buffer or mapping; concurrent
// use from multiple goroutines requires external synchronization. Close
// releases the mapping (flushing read-write regions first) and the backing
// file handle deterministically.
package storage

import (
	"fmt"
	"os"
	"unsafe"

	"github.com/edsrzf/mmap-go"

	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/internal/options"
)

// Kind identifies the backing variant of a Storage.
type Kind uint8

const (
	// KindMemory is an owned, growable in-memory buffer.
	KindMemory Kind = iota
	// KindMappedReadOnly is a read-only memory-mapped file region.
	KindMappedReadOnly
	// KindMappedReadWrite is a read-write memory-mapped file region.
	KindMappedReadWrite
)

func (k Kind) String() string {
	switch k {
	case KindMemory:
		return "Memory"
	case KindMappedReadOnly:
		return "MappedReadOnly"
	case KindMappedReadWrite:
		return "MappedReadWrite"
	default:
		return "Unknown"
	}
}

// Storage owns a byte buffer backed by memory or a mapped file region.
// The zero value is not usable; construct with FromBuffer, FromCopy,
// OpenRead, or OpenReadWrite.
type Storage struct {
	buf  []byte    // owned buffer, KindMemory only
	mm   mmap.MMap // mapped region, KindMapped* only
	file *os.File  // backing file handle, kept open for the mapping lifetime
	kind Kind
}

type mapConfig struct {
	elemSize  int
	elemAlign int
}

// Option configures how a mapped file is validated at open time.
type Option = options.Option[*mapConfig]

// WithElementSize requires the mapped file's byte length to be a multiple of
// size. The default is 1, which accepts any length.
func WithElementSize(size int) Option {
	return options.New(func(cfg *mapConfig) error {
		if size <= 0 {
			return fmt.Errorf("%w: element size %d must be positive", errs.ErrAlignment, size)
		}
		cfg.elemSize = size

		return nil
	})
}

// WithElementAlign requires the mapped base address to be a multiple of
// align, which must be a power of two. The default is 1.
func WithElementAlign(align int) Option {
	return options.New(func(cfg *mapConfig) error {
		if align <= 0 || align&(align-1) != 0 {
			return fmt.Errorf("%w: element alignment %d must be a power of two", errs.ErrAlignment, align)
		}
		cfg.elemAlign = align

		return nil
	})
}

// FromBuffer wraps an owned buffer. The Storage takes ownership of buf;
// callers must not retain it. The result is always mutable.
func FromBuffer(buf []byte) *Storage {
	return &Storage{kind: KindMemory, buf: buf}
}

// FromCopy copies data into a new owned buffer.
func FromCopy(data []byte) *Storage {
	buf := make([]byte, len(data))
	copy(buf, data)

	return FromBuffer(buf)
}

// OpenRead maps the file at path read-only.
//
// Returns errs.ErrAlignment if the file length is not a multiple of the
// configured element size, or if the mapped base address does not satisfy the
// configured element alignment. On any failure the mapping and file handle
// are released before returning.
func OpenRead(path string, opts ...Option) (*Storage, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	return mapFile(file, mmap.RDONLY, KindMappedReadOnly, opts)
}

// OpenReadWrite maps the file at path read-write with the same validation as
// OpenRead. Fails if the file cannot be opened for writing.
func OpenReadWrite(path string, opts ...Option) (*Storage, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	return mapFile(file, mmap.RDWR, KindMappedReadWrite, opts)
}

func mapFile(file *os.File, prot int, kind Kind, opts []Option) (*Storage, error) {
	cfg := &mapConfig{elemSize: 1, elemAlign: 1}
	if err := options.Apply(cfg, opts...); err != nil {
		file.Close()
		return nil, err
	}

	mapped, err := mmap.Map(file, prot, 0)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("map %s: %w", file.Name(), err)
	}

	if err := validateMapping(mapped, cfg); err != nil {
		mapped.Unmap() //nolint:errcheck // best effort on the error path
		file.Close()

		return nil, err
	}

	return &Storage{kind: kind, mm: mapped, file: file}, nil
}

func validateMapping(mapped mmap.MMap, cfg *mapConfig) error {
	if cfg.elemSize > 1 && len(mapped)%cfg.elemSize != 0 {
		return fmt.Errorf("%w: file size %d is not a multiple of element size %d",
			errs.ErrAlignment, len(mapped), cfg.elemSize)
	}

	if cfg.elemAlign > 1 && len(mapped) > 0 {
		base := uintptr(unsafe.Pointer(&mapped[0]))
		if base%uintptr(cfg.elemAlign) != 0 {
			return fmt.Errorf("%w: mapped base address is not aligned to %d",
				errs.ErrAlignment, cfg.elemAlign)
		}
	}

	return nil
}

// Kind returns the backing variant of the storage.
func (s *Storage) Kind() Kind {
	return s.kind
}

// Mutable reports whether the storage contents can be modified in place.
func (s *Storage) Mutable() bool {
	return s.kind == KindMemory || s.kind == KindMappedReadWrite
}

// Bytes returns a read-only view of the storage contents.
//
// For mapped storages the slice aliases the mapping and is invalidated by
// Close. For owned buffers it is invalidated by Append or Resize.
func (s *Storage) Bytes() []byte {
	if s.kind == KindMemory {
		return s.buf
	}

	return s.mm
}

// BytesMut returns a mutable view of the storage contents, or nil for
// read-only mappings. Callers must check for nil rather than rely on an error.
func (s *Storage) BytesMut() []byte {
	switch s.kind {
	case KindMemory:
		return s.buf
	case KindMappedReadWrite:
		return s.mm
	default:
		return nil
	}
}

// Len returns the byte length of the storage contents.
func (s *Storage) Len() int {
	return len(s.Bytes())
}

// IsEmpty reports whether the storage holds no bytes.
func (s *Storage) IsEmpty() bool {
	return s.Len() == 0
}

// Capacity returns the allocation capacity of an owned buffer. The second
// return is false for mapped storages, which have no growth capacity.
func (s *Storage) Capacity() (int, bool) {
	if s.kind != KindMemory {
		return 0, false
	}

	return cap(s.buf), true
}

// Append appends bytes to an owned buffer.
//
// Returns errs.ErrUnsupportedOperation for mapped storages, which cannot grow.
func (s *Storage) Append(data []byte) error {
	if s.kind != KindMemory {
		return fmt.Errorf("%w: append on %s storage", errs.ErrUnsupportedOperation, s.kind)
	}
	s.buf = append(s.buf, data...)

	return nil
}

// Resize grows or truncates an owned buffer to newLen bytes, filling new
// bytes with fill.
//
// Returns errs.ErrUnsupportedOperation for mapped storages.
func (s *Storage) Resize(newLen int, fill byte) error {
	if s.kind != KindMemory {
		return fmt.Errorf("%w: resize on %s storage", errs.ErrUnsupportedOperation, s.kind)
	}
	if newLen < 0 {
		return fmt.Errorf("%w: negative length %d", errs.ErrUnsupportedOperation, newLen)
	}

	if newLen <= len(s.buf) {
		s.buf = s.buf[:newLen]
		return nil
	}

	old := len(s.buf)
	if newLen <= cap(s.buf) {
		s.buf = s.buf[:newLen]
	} else {
		grown := make([]byte, newLen)
		copy(grown, s.buf)
		s.buf = grown
	}
	// Reused capacity may hold stale bytes from a previous truncation.
	for i := old; i < newLen; i++ {
		s.buf[i] = fill
	}

	return nil
}

// Clear truncates an owned buffer to zero length, retaining its capacity.
func (s *Storage) Clear() error {
	return s.Resize(0, 0)
}

// Flush forces pending writes of a read-write mapping to durable storage
// synchronously.
//
// Returns errs.ErrUnsupportedOperation for owned buffers and read-only
// mappings; owned buffers persist through WriteFile instead.
func (s *Storage) Flush() error {
	if s.kind != KindMappedReadWrite {
		return fmt.Errorf("%w: flush on %s storage", errs.ErrUnsupportedOperation, s.kind)
	}

	return s.mm.Flush()
}

// WriteFile persists the storage contents.
//
// Owned buffers are written to path; read-write mappings are flushed in place
// (path is ignored). Read-only mappings return errs.ErrUnsupportedOperation.
func (s *Storage) WriteFile(path string) error {
	switch s.kind {
	case KindMemory:
		return os.WriteFile(path, s.buf, 0o644)
	case KindMappedReadWrite:
		return s.mm.Flush()
	default:
		return fmt.Errorf("%w: write from %s storage", errs.ErrUnsupportedOperation, s.kind)
	}
}

// Close releases the storage.
//
// Read-write mappings are flushed before unmapping; the backing file handle
// is closed last. Closing an owned buffer or an already-closed storage is a
// no-op. After Close every slice previously returned by Bytes or BytesMut is
// invalid.
func (s *Storage) Close() error {
	if s.mm == nil {
		s.buf = nil
		return nil
	}

	var firstErr error
	if s.kind == KindMappedReadWrite {
		firstErr = s.mm.Flush()
	}

	if err := s.mm.Unmap(); err != nil && firstErr == nil {
		firstErr = err
	}
	s.mm = nil

	if s.file != nil {
		if err := s.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.file = nil
	}

	return firstErr
}
