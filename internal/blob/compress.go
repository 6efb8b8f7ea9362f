package blob

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Archives are small enough (hard ceiling 100 MB uncompressed) to compress
// in one shot; shared encoder/decoder avoid per-call setup cost.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// Compress returns the zstd-compressed form of data.
func Compress(data []byte) []byte {
	return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/2))
}

// Decompress reverses Compress. A corrupt or truncated archive returns an
// error rather than partial output.
func Decompress(data []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("blob: decompress: %w", err)
	}
	return out, nil
}
