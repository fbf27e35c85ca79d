package compress

// ZstdCompressor provides Zstandard compression for pak entry payloads.
//
// Zstd trades compression speed for ratio, which suits archives built once
// and read many times. Two implementations exist behind build tags: the cgo
// build uses valyala/gozstd, the pure-Go build uses klauspost/compress/zstd
// with pooled encoders and decoders.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
