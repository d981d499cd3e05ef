package fileStore

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// Codec selects the at-rest compression of chunk files. The digest is
// always computed over the raw bytes, so addressing and deduplication are
// independent of the codec.
type Codec string

const (
	CodecZstd Codec = "zstd"
	CodecXZ   Codec = "xz"
	CodecNone Codec = "none"
)

// Every stored chunk file starts with one frame byte naming the codec of
// the payload. Reads dispatch on it, so the configured codec can change
// without invalidating existing chunk files.
const (
	frameNone byte = 0x00
	frameZstd byte = 0x01
	frameXZ   byte = 0x02
)

var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

func encodeFrame(codec Codec, data []byte) ([]byte, error) {
	switch codec {
	case CodecNone:
		return append([]byte{frameNone}, data...), nil
	case CodecZstd, "":
		return zstdEncoder.EncodeAll(data, []byte{frameZstd}), nil
	case CodecXZ:
		var buf bytes.Buffer
		buf.WriteByte(frameXZ)
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, fmt.Errorf("creating xz writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("compressing chunk: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("closing xz writer: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown chunk codec %q", codec)
	}
}

func decodeFrame(frame []byte) ([]byte, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty chunk frame")
	}

	payload := frame[1:]
	switch frame[0] {
	case frameNone:
		return payload, nil
	case frameZstd:
		return zstdDecoder.DecodeAll(payload, nil)
	case frameXZ:
		r, err := xz.NewReader(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("creating xz reader: %w", err)
		}
		return io.ReadAll(r)
	default:
		return nil, fmt.Errorf("unknown chunk frame byte 0x%02x", frame[0])
	}
}
