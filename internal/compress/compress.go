// Package compress implements the payload compression codecs a version or
// chunk may be tagged with. Checksums are always computed over the stored
// (compressed) bytes.
package compress

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names as they appear in version and chunk metadata.
const (
	None = ""
	Zstd = "zstd"
	LZ4  = "lz4"
)

// Valid reports whether name is a known codec.
func Valid(name string) bool {
	switch name {
	case None, Zstd, LZ4:
		return true
	}
	return false
}

// Compress encodes data with the named codec. None returns data unchanged.
func Compress(name string, data []byte) ([]byte, error) {
	switch name {
	case None:
		return data, nil
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd writer: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data))), nil
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("lz4 write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("lz4 close: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}

// Decompress reverses Compress.
func Decompress(name string, data []byte) ([]byte, error) {
	switch name {
	case None:
		return data, nil
	case Zstd:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		out, err := dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decode: %w", err)
		}
		return out, nil
	case LZ4:
		out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
		if err != nil {
			return nil, fmt.Errorf("lz4 decode: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", name)
	}
}
