// internal/safe/compression.go
package safe

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic prefixes every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// CompressionOptions configures compression behavior
type CompressionOptions struct {
	// Minimum size in bytes before compressing
	MinSize int
	// Compression level (1=fastest, 4=best)
	Level int
}

func DefaultCompressionOptions() CompressionOptions {
	return CompressionOptions{
		MinSize: 1024,
		Level:   2,
	}
}

// compressor pools zstd encoders and decoders.
type compressor struct {
	opts     CompressionOptions
	encoders sync.Pool
	decoders sync.Pool
}

func newCompressor(opts CompressionOptions) (*compressor, error) {
	level := zstd.EncoderLevel(opts.Level)
	if level < zstd.SpeedFastest || level > zstd.SpeedBestCompression {
		return nil, fmt.Errorf("invalid compression level %d", opts.Level)
	}

	// Validate the settings once so pool constructors cannot fail.
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("creating encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		enc.Close()
		return nil, fmt.Errorf("creating decoder: %w", err)
	}

	c := &compressor{opts: opts}
	c.encoders.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level), zstd.WithEncoderConcurrency(1))
		return enc
	}
	c.decoders.New = func() interface{} {
		dec, _ := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		return dec
	}
	c.encoders.Put(enc)
	c.decoders.Put(dec)
	return c, nil
}

func (c *compressor) shouldCompress(size int) bool {
	return size >= c.opts.MinSize
}

// compress returns content compressed, or unchanged when it is too small to
// be worth it. The bool reports which.
func (c *compressor) compress(content []byte) ([]byte, bool) {
	if !c.shouldCompress(len(content)) {
		return content, false
	}

	enc := c.encoders.Get().(*zstd.Encoder)
	defer c.encoders.Put(enc)
	return enc.EncodeAll(content, make([]byte, 0, len(content)/2)), true
}

func (c *compressor) decompress(content []byte) ([]byte, error) {
	if !bytes.HasPrefix(content, zstdMagic) {
		return nil, fmt.Errorf("content is not zstd compressed")
	}

	dec := c.decoders.Get().(*zstd.Decoder)
	defer c.decoders.Put(dec)
	return dec.DecodeAll(content, nil)
}
