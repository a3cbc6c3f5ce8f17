package codec

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionType identifies the payload compression on the wire.
type CompressionType uint8

const (
	CompressionNone CompressionType = iota
	CompressionLZ4
	CompressionSnappy
	CompressionZstd
)

var compressionNames = map[CompressionType]string{
	CompressionNone:   "none",
	CompressionLZ4:    "lz4",
	CompressionSnappy: "snappy",
	CompressionZstd:   "zstd",
}

func (c CompressionType) String() string {
	if name, ok := compressionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression resolves a compression name. The empty string means none.
func ParseCompression(name string) (CompressionType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return CompressionNone, nil
	}
	for c, cname := range compressionNames {
		if cname == n {
			return c, nil
		}
	}
	return CompressionNone, fmt.Errorf("unknown compression %q", name)
}

// Compressor interface for different compression algorithms
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, originalSize int) ([]byte, error)
	Type() CompressionType
}

// NewCompressor returns the compressor for t.
func NewCompressor(t CompressionType) (Compressor, error) {
	switch t {
	case CompressionNone:
		return noneCompressor{}, nil
	case CompressionLZ4:
		return NewLZ4Compressor(), nil
	case CompressionSnappy:
		return SnappyCompressor{}, nil
	case CompressionZstd:
		return NewZstdCompressor()
	default:
		return nil, fmt.Errorf("unsupported compression type: %v", t)
	}
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error) { return data, nil }

func (noneCompressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	if len(data) != originalSize {
		return nil, fmt.Errorf("payload size mismatch: expected %d, got %d", originalSize, len(data))
	}
	return data, nil
}

func (noneCompressor) Type() CompressionType { return CompressionNone }

// LZ4Compressor implements LZ4 block compression
type LZ4Compressor struct{}

// NewLZ4Compressor creates a new LZ4 compressor
func NewLZ4Compressor() *LZ4Compressor {
	return &LZ4Compressor{}
}

// Compress compresses data using LZ4
func (c *LZ4Compressor) Compress(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("LZ4 compression failed: %w", err)
	}
	// Incompressible input yields n == 0; the block format needs a literal copy.
	if n == 0 && len(data) > 0 {
		return nil, errIncompressible
	}

	return dst[:n], nil
}

// Decompress decompresses LZ4 data
func (c *LZ4Compressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	dst := make([]byte, originalSize)
	if originalSize == 0 {
		return dst, nil
	}

	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("LZ4 decompression failed: %w", err)
	}

	if n != originalSize {
		return nil, fmt.Errorf("LZ4 decompression size mismatch: expected %d, got %d", originalSize, n)
	}

	return dst, nil
}

// Type returns the compression type
func (c *LZ4Compressor) Type() CompressionType {
	return CompressionLZ4
}

// SnappyCompressor implements Snappy block compression
type SnappyCompressor struct{}

func (SnappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (SnappyCompressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	n, err := snappy.DecodedLen(data)
	if err != nil {
		return nil, fmt.Errorf("snappy decompression failed: %w", err)
	}
	if n != originalSize {
		return nil, fmt.Errorf("snappy decompression size mismatch: expected %d, got %d", originalSize, n)
	}
	return snappy.Decode(nil, data)
}

func (SnappyCompressor) Type() CompressionType { return CompressionSnappy }

// ZstdCompressor implements Zstandard compression. The encoder and decoder
// are safe for concurrent EncodeAll/DecodeAll calls.
type ZstdCompressor struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

func NewZstdCompressor() (*ZstdCompressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, err
	}

	decoder, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxPayloadSize))
	if err != nil {
		encoder.Close()
		return nil, err
	}

	return &ZstdCompressor{encoder: encoder, decoder: decoder}, nil
}

func (z *ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return z.encoder.EncodeAll(data, nil), nil
}

func (z *ZstdCompressor) Decompress(data []byte, originalSize int) ([]byte, error) {
	out, err := z.decoder.DecodeAll(data, make([]byte, 0, originalSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompression failed: %w", err)
	}
	if len(out) != originalSize {
		return nil, fmt.Errorf("zstd decompression size mismatch: expected %d, got %d", originalSize, len(out))
	}
	return out, nil
}

func (z *ZstdCompressor) Type() CompressionType { return CompressionZstd }

// Close releases the encoder and decoder.
func (z *ZstdCompressor) Close() {
	z.encoder.Close()
	z.decoder.Close()
}

// CompressionStats tracks compression performance metrics
type CompressionStats struct {
	Frames            atomic.Int64
	BytesUncompressed atomic.Int64
	BytesCompressed   atomic.Int64
}

// Ratio returns compressed bytes over uncompressed bytes, or 1 before any
// frame was written.
func (s *CompressionStats) Ratio() float64 {
	u := s.BytesUncompressed.Load()
	if u == 0 {
		return 1
	}
	return float64(s.BytesCompressed.Load()) / float64(u)
}

func (s *CompressionStats) record(uncompressed, compressed int) {
	s.Frames.Add(1)
	s.BytesUncompressed.Add(int64(uncompressed))
	s.BytesCompressed.Add(int64(compressed))
}
