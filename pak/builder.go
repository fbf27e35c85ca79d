package pak

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/arloliu/bitpak/compress"
	"github.com/arloliu/bitpak/errs"
	"github.com/arloliu/bitpak/format"
	"github.com/arloliu/bitpak/internal/options"
	"github.com/arloliu/bitpak/internal/pool"
	"github.com/arloliu/bitpak/storage"
	"github.com/arloliu/bitpak/typefmt"
)

const defaultCompressThreshold = 512

type asset struct {
	name      string
	data      []byte
	entryType format.EntryType
}

// Builder assembles a pak archive in memory.
//
// Entries are staged with AddEntry/AddFile/AddDir and serialized by Build or
// WriteFile. Entries at or above the compression threshold are compressed
// with the configured codec; the compressed form is kept only when it is
// actually smaller.
type Builder struct {
	assets      []asset
	codec       compress.Codec
	compression format.CompressionType
	threshold   int
}

// BuilderOption configures a Builder.
type BuilderOption = options.Option[*Builder]

// WithCompression selects the compression codec for entry payloads.
// The default is Zstd; format.CompressionNone disables compression.
func WithCompression(compressionType format.CompressionType) BuilderOption {
	return options.New(func(b *Builder) error {
		codec, err := compress.CreateCodec(compressionType, "pak entry")
		if err != nil {
			return err
		}
		b.codec = codec
		b.compression = compressionType

		return nil
	})
}

// WithCompressThreshold sets the minimum payload size in bytes at which
// compression is attempted. Smaller entries are stored raw. The default is
// 512 bytes.
func WithCompressThreshold(threshold int) BuilderOption {
	return options.New(func(b *Builder) error {
		if threshold < 0 {
			return fmt.Errorf("compress threshold %d must not be negative", threshold)
		}
		b.threshold = threshold

		return nil
	})
}

// NewBuilder creates an empty archive builder.
func NewBuilder(opts ...BuilderOption) (*Builder, error) {
	b := &Builder{
		codec:       compress.NewZstdCompressor(),
		compression: format.CompressionZstd,
		threshold:   defaultCompressThreshold,
	}

	if err := options.Apply(b, opts...); err != nil {
		return nil, err
	}

	return b, nil
}

// AddEntry stages a named payload. The builder keeps a reference to data;
// callers must not mutate it before Build.
//
// Returns errs.ErrEntryNameTooLong if the name exceeds
// format.MaxEntryNameLength bytes.
func (b *Builder) AddEntry(name string, data []byte, entryType format.EntryType) error {
	if len(name) > format.MaxEntryNameLength {
		return fmt.Errorf("%w: %q is %d bytes, limit %d",
			errs.ErrEntryNameTooLong, name, len(name), format.MaxEntryNameLength)
	}

	b.assets = append(b.assets, asset{name: name, data: data, entryType: entryType})

	return nil
}

// AddFile stages the contents of the file at path under its base name.
func (b *Builder) AddFile(path string, entryType format.EntryType) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return b.AddEntry(filepath.Base(path), data, entryType)
}

// AddDir stages every regular file directly inside dir.
func (b *Builder) AddDir(dir string, entryType format.EntryType) error {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for _, dirent := range dirents {
		if !dirent.Type().IsRegular() {
			continue
		}
		if err := b.AddFile(filepath.Join(dir, dirent.Name()), entryType); err != nil {
			return err
		}
	}

	return nil
}

// Len returns the number of staged entries.
func (b *Builder) Len() int {
	return len(b.assets)
}

// Build serializes the archive and returns its bytes.
func (b *Builder) Build() ([]byte, error) {
	buf := pool.GetArchiveBuffer()
	defer pool.PutArchiveBuffer(buf)

	// Header is rewritten once the TOC offset is known.
	buf.B = append(buf.B, make([]byte, format.ArchiveHeaderSize)...)

	names := make([]string, len(b.assets))
	for i, a := range b.assets {
		names[i] = a.name
	}
	stringTable, nameOffsets := typefmt.BuildStringTable(names...)

	toc := make([]TocEntry, 0, len(b.assets))
	for _, a := range b.assets {
		offset := uint64(buf.Len())

		entry, payload, err := b.encodeAsset(a, offset)
		if err != nil {
			return nil, err
		}
		entry.NameOffset = nameOffsets[a.name]

		buf.B = append(buf.B, payload...)
		toc = append(toc, entry)
	}

	tocOffset := uint64(buf.Len())
	for _, entry := range toc {
		buf.B = entry.AppendBytes(buf.B)
	}
	buf.B = append(buf.B, stringTable...)

	header := Header{
		TocOffset:  tocOffset,
		DataOffset: format.ArchiveHeaderSize,
		EntryCount: uint32(len(toc)),
		Flags:      uint32(b.compression),
	}
	copy(buf.B[:format.ArchiveHeaderSize], header.Bytes())

	out := make([]byte, buf.Len())
	copy(out, buf.B)

	return out, nil
}

// encodeAsset produces the TOC entry and on-disk payload for one staged
// asset, compressing when the threshold and the result size justify it.
func (b *Builder) encodeAsset(a asset, offset uint64) (TocEntry, []byte, error) {
	size := uint64(len(a.data))

	if b.compression == format.CompressionNone || len(a.data) < b.threshold {
		return NewTocEntry(a.name, offset, size, a.entryType), a.data, nil
	}

	compressed, err := b.codec.Compress(a.data)
	if err != nil {
		return TocEntry{}, nil, fmt.Errorf("compress entry %q: %w", a.name, err)
	}
	if len(compressed) == 0 || len(compressed) >= len(a.data) {
		// Compression did not help; store raw.
		return NewTocEntry(a.name, offset, size, a.entryType), a.data, nil
	}

	entry := NewCompressedTocEntry(a.name, offset, size, uint64(len(compressed)), a.entryType)

	return entry, compressed, nil
}

// WriteFile serializes the archive into an owned storage buffer and persists
// it at path.
func (b *Builder) WriteFile(path string) error {
	blob, err := b.Build()
	if err != nil {
		return err
	}

	return storage.FromBuffer(blob).WriteFile(path)
}
