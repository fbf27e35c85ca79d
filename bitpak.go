// Package bitpak provides a low-level binary storage toolkit: compact
// bit-packed arrays, a unified storage abstraction over owned buffers and
// memory-mapped files, a self-describing binary type format with runtime
// reflection, and a pak archive format for named byte entries.
//
// # Core Packages
//
//   - storage: owned in-memory buffers and read-only/read-write file
//     mappings behind one Storage type, with size and alignment validation
//     at open time.
//   - packed: arrays of 1-32 bit unsigned integers packed contiguously at
//     the bit level, with an optional persisted header for format
//     self-validation on reload.
//   - typefmt: a minimal self-describing type metadata format (type and
//     field descriptors plus a string table) encoded as a flat blob.
//   - dynamic: named, bounds-checked field access over raw struct buffers
//     described by typefmt metadata, without a compile-time schema.
//   - pak: an archive builder and zero-copy memory-mapped reader with
//     hashed name lookup and optional payload compression (Zstd, S2, LZ4).
//
// # Basic Usage
//
// Packing sub-byte values:
//
//	bits, _ := packed.New(3)
//	for _, v := range []uint32{1, 2, 3, 4, 5} {
//	    _ = bits.Push(v)
//	}
//	v, ok := bits.Get(2) // 3, true
//
// Reflective field access over a raw buffer:
//
//	c, err := dynamic.NewContainer(data, metadataBlob)
//	if err != nil {
//	    return err
//	}
//	dynamic.FieldMut[uint32](c, 0, "y").Set(42)
//
// All containers are single-threaded by design: a Storage, Bits, or
// Container assumes exclusive ownership of its buffer, and sharing one
// across goroutines requires external synchronization.
package bitpak

import "github.com/arloliu/bitpak/internal/hash"

// EntryID computes the xxHash64 identifier a pak archive uses for the given
// entry name. Useful for precomputing lookup keys at schema/build time.
func EntryID(name string) uint64 {
	return hash.ID(name)
}
