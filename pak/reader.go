package pak

import (
	"fmt"

	"github.com/arloliu/bitpak/compress"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/format"
	"github.com/arloliu/bitpak/internal/hash"
	"github.com/arloliu/bitpak/storage"
	"github.com/arloliu/bitpak/typefmt"
)

// Reader provides random access to the entries of a pak archive.
//
// Open maps the archive file read-only, so uncompressed payloads are
// returned zero-copy as sub-slices of the mapping; those slices are only
// valid until Close. Compressed payloads are decompressed into fresh
// buffers owned by the caller.
type Reader struct {
	store    *storage.Storage
	header   Header
	toc      []TocEntry
	strings  []byte
	nameList []string       // resolved entry names, in TOC order
	names    map[string]int // entry name -> TOC index
	byHash   map[uint64]int // name hash -> TOC index
}

// Open memory-maps the archive at path and parses its header, TOC, and name
// table. The file handle stays open until Close.
func Open(path string) (*Reader, error) {
	store, err := storage.OpenRead(path)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(store)
	if err != nil {
		store.Close() //nolint:errcheck // best effort on the error path
		return nil, err
	}

	return r, nil
}

// NewReader parses an archive from an existing storage, which may be an
// owned buffer or a mapping. The reader takes ownership of store and closes
// it on Close.
func NewReader(store *storage.Storage) (*Reader, error) {
	data := store.Bytes()

	var header Header
	if err := header.Parse(data); err != nil {
		return nil, err
	}

	tocStart := int(header.TocOffset)
	tocSize := int(header.EntryCount) * format.TocEntrySize
	tocEnd := tocStart + tocSize
	if tocStart < format.ArchiveHeaderSize || tocEnd > len(data) {
		return nil, fmt.Errorf("%w: TOC range [%d, %d) exceeds archive of %d bytes",
			errs.ErrInvalidToc, tocStart, tocEnd, len(data))
	}

	toc := make([]TocEntry, header.EntryCount)
	for i := range toc {
		entryStart := tocStart + i*format.TocEntrySize
		if err := toc[i].Parse(data[entryStart : entryStart+format.TocEntrySize]); err != nil {
			return nil, err
		}
	}

	// Everything past the TOC is the name string table.
	strings := data[tocEnd:]

	nameList := make([]string, len(toc))
	names := make(map[string]int, len(toc))
	byHash := make(map[uint64]int, len(toc))
	for i, entry := range toc {
		name, err := typefmt.LookupString(strings, entry.NameOffset)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d name: %v", errs.ErrInvalidToc, i, err)
		}
		if hash.ID(name) != entry.NameHash {
			return nil, fmt.Errorf("%w: entry %q name hash mismatch", errs.ErrInvalidToc, name)
		}
		nameList[i] = name
		names[name] = i
		byHash[entry.NameHash] = i
	}

	return &Reader{
		store:    store,
		header:   header,
		toc:      toc,
		strings:  strings,
		nameList: nameList,
		names:    names,
		byHash:   byHash,
	}, nil
}

// Len returns the number of entries in the archive.
func (r *Reader) Len() int {
	return len(r.toc)
}

// Names returns every entry name, in TOC order. Duplicate names appear once
// per TOC entry; by-name lookups resolve a duplicated name to its last entry.
func (r *Reader) Names() []string {
	names := make([]string, len(r.nameList))
	copy(names, r.nameList)

	return names
}

// Entry returns the TOC entry for name, or false if the archive has no such
// entry.
func (r *Reader) Entry(name string) (TocEntry, bool) {
	i, ok := r.names[name]
	if !ok {
		return TocEntry{}, false
	}

	return r.toc[i], true
}

// EntryByHash returns the TOC entry for a precomputed name hash.
func (r *Reader) EntryByHash(nameHash uint64) (TocEntry, bool) {
	i, ok := r.byHash[nameHash]
	if !ok {
		return TocEntry{}, false
	}

	return r.toc[i], true
}

// Data returns the payload of the named entry.
//
// Uncompressed payloads alias the underlying storage and are valid only
// until Close; compressed payloads are decompressed into a fresh buffer.
// Returns errs.ErrEntryNotFound for unknown names.
func (r *Reader) Data(name string) ([]byte, error) {
	i, ok := r.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrEntryNotFound, name)
	}

	return r.payload(r.toc[i])
}

func (r *Reader) payload(entry TocEntry) ([]byte, error) {
	data := r.store.Bytes()

	// Offset and size come from the TOC and may be hostile; validate in
	// uint64 before converting to int so an oversized value cannot wrap.
	size := entry.StoredSize()
	if entry.Offset < uint64(format.ArchiveHeaderSize) ||
		entry.Offset > uint64(len(data)) ||
		size > uint64(len(data))-entry.Offset {
		return nil, fmt.Errorf("%w: payload at offset %d with %d stored bytes exceeds archive of %d bytes",
			errs.ErrInvalidToc, entry.Offset, size, len(data))
	}

	start := int(entry.Offset)
	end := start + int(size)
	raw := data[start:end:end]
	if !entry.IsCompressed() {
		return raw, nil
	}

	codec, err := compress.GetCodec(format.CompressionType(r.header.Flags & 0xFF))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidToc, err)
	}

	decompressed, err := codec.Decompress(raw)
	if err != nil {
		return nil, err
	}

	if uint64(len(decompressed)) != entry.Size {
		return nil, fmt.Errorf("%w: entry declares %d bytes, decompressed %d",
			errs.ErrInvalidToc, entry.Size, len(decompressed))
	}

	return decompressed, nil
}

// Close releases the underlying storage. Payload slices returned by Data for
// uncompressed entries become invalid.
func (r *Reader) Close() error {
	return r.store.Close()
}
