// Package dynamic provides named, bounds-checked field access over a raw byte
// buffer described by typefmt metadata.
//
// A Container pairs a buffer - conceptually a homogeneous array of fixed-size
// structs - with one decoded type descriptor. Fields are located by name at
// any element index without a compile-time schema:
//
//	c, err := dynamic.NewContainer(data, blob)
//	if err != nil { ... }
//	x, ok := dynamic.Field[uint32](c, 0, "x")
//	dynamic.FieldMut[uint32](c, 0, "y").Set(42)
//
// Every access validates the index, the field name, the field's byte size
// against the requested type, and the field's byte offset against the type's
// alignment. A failed lookup is an absent result or an empty handle whose
// mutations no-op; it never panics and never touches unrelated memory.
//
// The container is single-threaded and assumes exclusive ownership of its
// buffer. Handles are transient borrows into the buffer: they must not be
// retained across anything that replaces or reallocates it.
package dynamic

import (
	"fmt"
	"iter"
	"os"
	"unsafe"

	"github.com/arloliu/bitpak/endian"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/typefmt"
)

// Container interprets a raw byte buffer as an array of structs described by
// a typefmt type descriptor.
//
// The element byte size is the descriptor's bit size rounded up to whole
// bytes; the element count is the buffer length divided by it, so a trailing
// partial element is never accessible.
type Container struct {
	data     []byte
	meta     []byte // the original metadata blob, kept for WriteFile
	typeDef  typefmt.TypeDef
	strings  []byte
	elemSize int
	fields   map[string]typefmt.FieldDef
}

// NewContainer builds a container from raw element data and a typefmt
// metadata blob.
//
// The blob must decode cleanly and declare at least one type; the first type
// descriptor is used. Every field name is resolved through the string table
// eagerly, so construction fails on unresolvable names instead of deferring
// the error to the first lookup. The container takes ownership of data; the
// metadata blob is copied.
func NewContainer(data []byte, blob []byte) (*Container, error) {
	meta := make([]byte, len(blob))
	copy(meta, blob)

	types, strings, err := typefmt.Decode(meta)
	if err != nil {
		return nil, err
	}

	if len(types) == 0 {
		return nil, fmt.Errorf("%w: metadata declares no types", errs.ErrUnexpectedEOF)
	}
	typeDef := types[0]

	fields := make(map[string]typefmt.FieldDef, len(typeDef.Fields))
	for _, f := range typeDef.Fields {
		name, err := typefmt.LookupString(strings, f.NameOffset)
		if err != nil {
			return nil, fmt.Errorf("resolve field name: %w", err)
		}
		fields[name] = f
	}

	return &Container{
		data:     data,
		meta:     meta,
		typeDef:  typeDef,
		strings:  strings,
		elemSize: (int(typeDef.SizeBits) + 7) / 8,
		fields:   fields,
	}, nil
}

// FromFile loads a container from a file with embedded metadata, laid out as
// [DATA][metadata_size: u32 LE][metadata blob].
func FromFile(path string) (*Container, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if len(raw) < 4 {
		return nil, fmt.Errorf("%w: file of %d bytes has no metadata trailer", errs.ErrUnexpectedEOF, len(raw))
	}

	engine := endian.GetLittleEndianEngine()
	metaSize := int(engine.Uint32(raw[len(raw)-4:]))
	if metaSize+4 > len(raw) {
		return nil, fmt.Errorf("%w: metadata trailer declares %d bytes, file holds %d",
			errs.ErrUnexpectedEOF, metaSize, len(raw)-4)
	}

	dataLen := len(raw) - metaSize - 4

	return NewContainer(raw[:dataLen], raw[dataLen:dataLen+metaSize])
}

// WriteFile persists the container in the embedded-metadata layout read by
// FromFile.
func (c *Container) WriteFile(path string) error {
	engine := endian.GetLittleEndianEngine()

	out := make([]byte, 0, len(c.data)+len(c.meta)+4)
	out = append(out, c.data...)
	out = append(out, c.meta...)
	out = engine.AppendUint32(out, uint32(len(c.meta)))

	return os.WriteFile(path, out, 0o644)
}

// Len returns the number of whole elements in the buffer.
func (c *Container) Len() int {
	if c.elemSize == 0 {
		return 0
	}

	return len(c.data) / c.elemSize
}

// IsEmpty reports whether the container holds no whole element.
func (c *Container) IsEmpty() bool {
	return c.Len() == 0
}

// ElementSize returns the byte size of one element.
func (c *Container) ElementSize() int {
	return c.elemSize
}

// TypeName resolves the container's type name from the string table.
func (c *Container) TypeName() (string, error) {
	return typefmt.LookupString(c.strings, c.typeDef.NameOffset)
}

// FieldNames returns the names of all fields, in unspecified order.
func (c *Container) FieldNames() []string {
	names := make([]string, 0, len(c.fields))
	for name := range c.fields {
		names = append(names, name)
	}

	return names
}

// Bytes returns the raw element buffer.
func (c *Container) Bytes() []byte {
	return c.data
}

// Indices returns a lazy, restartable iterator over the valid element
// indices 0..Len().
func (c *Container) Indices() iter.Seq[int] {
	return func(yield func(int) bool) {
		for i := 0; i < c.Len(); i++ {
			if !yield(i) {
				return
			}
		}
	}
}

// fieldSpan locates the exact byte range of one field of one element,
// validating index bounds, field existence, the field's byte size against
// size, and the field's byte offset against align. Returns nil on any
// mismatch.
func (c *Container) fieldSpan(index int, name string, size, align uintptr) []byte {
	if index < 0 || index >= c.Len() {
		return nil
	}

	field, ok := c.fields[name]
	if !ok {
		return nil
	}

	fieldSize := (int(field.SizeBits) + 7) / 8
	if uintptr(fieldSize) != size {
		return nil
	}

	fieldOffset := int(field.OffsetBits) / 8
	if field.OffsetBits%8 != 0 || align != 0 && uintptr(fieldOffset)%align != 0 {
		return nil
	}

	start := index*c.elemSize + fieldOffset
	end := start + fieldSize
	if end > len(c.data) {
		return nil
	}

	return c.data[start:end:end]
}

// Field returns a read-only pointer to the named field of the element at
// index, reinterpreting the field's exact byte span as a T.
//
// The result is absent if index is out of range, the field name is unknown,
// the field's byte size differs from T's, or the field's byte offset is not
// a multiple of T's alignment.
func Field[T any](c *Container, index int, name string) (*T, bool) {
	var zero T
	span := c.fieldSpan(index, name, unsafe.Sizeof(zero), unsafe.Alignof(zero))
	if span == nil {
		return nil, false
	}

	return (*T)(unsafe.Pointer(&span[0])), true
}

// FieldValue returns a copy of the named field's value, or false under the
// same conditions as Field.
func FieldValue[T any](c *Container, index int, name string) (T, bool) {
	p, ok := Field[T](c, index, name)
	if !ok {
		var zero T
		return zero, false
	}

	return *p, true
}

// FieldMut returns a handle for reading and mutating the named field of the
// element at index in place. The same validation as Field applies; an
// invalid lookup yields an empty handle whose mutations no-op.
func FieldMut[T any](c *Container, index int, name string) Handle[T] {
	var zero T
	span := c.fieldSpan(index, name, unsafe.Sizeof(zero), unsafe.Alignof(zero))

	return Handle[T]{span: span}
}
