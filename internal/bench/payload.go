package bench

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

const (
	CompressionNone = "none"
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// Codec turns an encoded network into the payload handed to the
// deserialization phase and back.
type Codec interface {
	Name() string
	Encode(src []byte) ([]byte, error)
	Decode(src []byte) ([]byte, error)
	Close() error
}

var codecs = map[string]func() (Codec, error){
	CompressionNone: func() (Codec, error) { return identityCodec{}, nil },
	CompressionZstd: newZstdCodec,
	CompressionLZ4:  func() (Codec, error) { return lz4Codec{}, nil },
}

// NewCodec returns the codec registered under name. An empty name selects
// the identity codec.
func NewCodec(name string) (Codec, error) {
	if name == "" {
		name = CompressionNone
	}
	mk, ok := codecs[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown compression %q", ErrInvalidConfig, name)
	}
	return mk()
}

type identityCodec struct{}

func (identityCodec) Name() string                      { return CompressionNone }
func (identityCodec) Encode(src []byte) ([]byte, error) { return bytes.Clone(src), nil }
func (identityCodec) Decode(src []byte) ([]byte, error) { return bytes.Clone(src), nil }
func (identityCodec) Close() error                      { return nil }

type zstdCodec struct {
	enc *zstd.Encoder
	dec *zstd.Decoder
}

func newZstdCodec() (Codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	return &zstdCodec{enc: enc, dec: dec}, nil
}

func (c *zstdCodec) Name() string { return CompressionZstd }

func (c *zstdCodec) Encode(src []byte) ([]byte, error) {
	return c.enc.EncodeAll(src, nil), nil
}

func (c *zstdCodec) Decode(src []byte) ([]byte, error) {
	out, err := c.dec.DecodeAll(src, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (c *zstdCodec) Close() error {
	c.dec.Close()
	return c.enc.Close()
}

// lz4Codec uses the framed format so the payload carries its own size.
type lz4Codec struct{}

func (lz4Codec) Name() string { return CompressionLZ4 }

func (lz4Codec) Encode(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(src); err != nil {
		return nil, fmt.Errorf("lz4 encode: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 encode: %w", err)
	}
	return buf.Bytes(), nil
}

func (lz4Codec) Decode(src []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
	if err != nil {
		return nil, fmt.Errorf("lz4 decode: %w", err)
	}
	return out, nil
}

func (lz4Codec) Close() error { return nil }
