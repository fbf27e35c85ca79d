package format

// Magic tags identifying the binary formats produced by this module.
// All of them are exactly four bytes and sit at offset 0 of their blob.
var (
	// MagicTypeFormat marks a self-describing type metadata blob ("MTF\0").
	MagicTypeFormat = [4]byte{'M', 'T', 'F', 0}
	// MagicPackedBits marks a persisted bit-packed array ("PKBT").
	MagicPackedBits = [4]byte{'P', 'K', 'B', 'T'}
	// MagicArchive marks a pak archive file ("PAK\0").
	MagicArchive = [4]byte{'P', 'A', 'K', 0}
)

const (
	// TypeFormatVersion is the only supported version of the type metadata blob.
	TypeFormatVersion uint32 = 1
	// ArchiveVersion is the only supported version of the pak archive format.
	ArchiveVersion uint32 = 1

	// PackedBitsHeaderSize is the byte size of the persisted packed-array header:
	// [magic:4][width:u32][len:u32].
	PackedBitsHeaderSize = 12

	// ArchiveHeaderSize is the byte size of the pak archive header.
	ArchiveHeaderSize = 32
	// TocEntrySize is the byte size of one pak table-of-contents entry.
	TocEntrySize = 48
	// MaxEntryNameLength bounds the length of a pak entry name.
	MaxEntryNameLength = 256

	// FlagCompressed marks a compressed pak TOC entry.
	FlagCompressed uint32 = 1 << 0
)

type (
	CompressionType uint8
	EntryType       uint32
)

const (
	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// Entry type tags carried by pak TOC entries. Opaque to the core; readers use
// them to route entry payloads.
const (
	EntryUnknown EntryType = 0
	EntryTexture EntryType = 1
	EntryMesh    EntryType = 2
	EntryAudio   EntryType = 3
	EntryScript  EntryType = 4
	EntryData    EntryType = 5
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

func (e EntryType) String() string {
	switch e {
	case EntryTexture:
		return "Texture"
	case EntryMesh:
		return "Mesh"
	case EntryAudio:
		return "Audio"
	case EntryScript:
		return "Script"
	case EntryData:
		return "Data"
	default:
		return "Unknown"
	}
}
