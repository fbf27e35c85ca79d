package dynamic

import "unsafe"

// Numeric constrains the element types usable with Add and Sub.
type Numeric interface {
	~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Handle is a transient, non-owning reference to one field's byte span inside
// a live Container.
//
// An empty handle (from a failed lookup) is safe to use: Get reports false
// and every mutation is a no-op. A valid handle stays usable only while the
// owning container's buffer is not replaced; do not retain handles across
// structural changes.
type Handle[T any] struct {
	span []byte // exactly sizeof(T) bytes, or nil for an empty handle
}

// Valid reports whether the handle references a field.
func (h Handle[T]) Valid() bool {
	return h.span != nil
}

// Get returns the field value, or false for an empty handle.
func (h Handle[T]) Get() (T, bool) {
	if h.span == nil {
		var zero T
		return zero, false
	}

	return *h.ptr(), true
}

// Ptr returns a pointer to the field in place, or nil for an empty handle.
func (h Handle[T]) Ptr() *T {
	if h.span == nil {
		return nil
	}

	return h.ptr()
}

// Set overwrites the field value. No-op for an empty handle.
func (h Handle[T]) Set(v T) Handle[T] {
	if h.span != nil {
		*h.ptr() = v
	}

	return h
}

// Apply invokes fn on the field in place. No-op for an empty handle.
func (h Handle[T]) Apply(fn func(*T)) Handle[T] {
	if h.span != nil {
		fn(h.ptr())
	}

	return h
}

func (h Handle[T]) ptr() *T {
	return (*T)(unsafe.Pointer(&h.span[0]))
}

// Add adds v to the field in place. No-op for an empty handle.
func Add[T Numeric](h Handle[T], v T) Handle[T] {
	return h.Apply(func(p *T) { *p += v })
}

// Sub subtracts v from the field in place. No-op for an empty handle.
func Sub[T Numeric](h Handle[T], v T) Handle[T] {
	return h.Apply(func(p *T) { *p -= v })
}
