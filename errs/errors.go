// Package errs defines the sentinel errors shared across the bitpak packages.
//
// Callers match them with errors.Is; fallible operations wrap them with
// additional context (expected vs. found values) via fmt.Errorf and %w.
package errs

import "errors"

// Format errors, reported while decoding binary blobs. Detection always
// happens before any read past the declared bounds.
var (
	// ErrInvalidMagic indicates the blob's magic tag does not match.
	ErrInvalidMagic = errors.New("invalid magic tag")
	// ErrUnsupportedVersion indicates a version number this module cannot read.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrUnexpectedEOF indicates the blob is truncated or shorter than its
	// fixed prefix.
	ErrUnexpectedEOF = errors.New("unexpected end of data")
	// ErrInvalidStringOffset indicates a string table offset that is out of
	// bounds or not followed by a NUL terminator.
	ErrInvalidStringOffset = errors.New("invalid string table offset")
	// ErrInvalidUTF8 indicates a string table entry that is not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8 in string table")
)

// Validation errors, reported by the bit-packed array engine.
var (
	// ErrInvalidBitWidth indicates a bit width outside the supported 1..=32 range.
	ErrInvalidBitWidth = errors.New("bit width must be in range 1..=32")
	// ErrValueOverflow indicates a value that does not fit in the array's bit width.
	ErrValueOverflow = errors.New("value exceeds bit width range")
	// ErrIndexOutOfBounds indicates an element index at or past the array length.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrInsufficientBytes indicates a buffer too small for the declared
	// element count.
	ErrInsufficientBytes = errors.New("insufficient bytes for element count")
	// ErrBitWidthMismatch indicates a persisted array whose recorded bit width
	// differs from the width the reader expects.
	ErrBitWidthMismatch = errors.New("bit width mismatch")
)

// Storage errors, reported by the storage abstraction.
var (
	// ErrUnsupportedOperation indicates an operation the current storage kind
	// cannot perform, such as appending to a mapped region.
	ErrUnsupportedOperation = errors.New("unsupported operation for storage kind")
	// ErrAlignment indicates a file size or mapped base address that does not
	// satisfy the element size or alignment requirement.
	ErrAlignment = errors.New("alignment mismatch")
)

// Archive errors, reported by the pak builder and reader.
var (
	// ErrEntryNotFound indicates a pak entry name with no TOC match.
	ErrEntryNotFound = errors.New("entry not found")
	// ErrInvalidToc indicates a malformed pak table of contents.
	ErrInvalidToc = errors.New("invalid table of contents")
	// ErrEntryNameTooLong indicates a pak entry name above the length limit.
	ErrEntryNameTooLong = errors.New("entry name too long")
)
