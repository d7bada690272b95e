package speechprovider

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Audio at least this large is considered for compression before caching
const compressionThreshold = 1024 * 1024

const (
	formatRaw  byte = 0
	formatZstd byte = 1
)

var (
	encoder *zstd.Encoder
	decoder *zstd.Decoder
)

func init() {
	var err error
	encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(fmt.Errorf("failed to create zstd encoder: %w", err))
	}
	decoder, err = zstd.NewReader(nil)
	if err != nil {
		panic(fmt.Errorf("failed to create zstd decoder: %w", err))
	}
}

// PackAudio prepares audio for the cache
//
// Large audio is zstd compressed when that saves at least 20%. The first byte
// records which format the rest of the payload is in.
func PackAudio(audio []byte) []byte {
	if len(audio) > compressionThreshold {
		compressed := encoder.EncodeAll(audio, make([]byte, 1, len(audio)/2))
		compressed[0] = formatZstd
		if float64(len(compressed)-1) < float64(len(audio))*0.8 {
			return compressed
		}
	}

	packed := make([]byte, 0, len(audio)+1)
	packed = append(packed, formatRaw)
	return append(packed, audio...)
}

func UnpackAudio(packed []byte) ([]byte, error) {
	if len(packed) == 0 {
		return nil, errors.New("empty audio payload")
	}

	switch packed[0] {
	case formatRaw:
		return packed[1:], nil
	case formatZstd:
		audio, err := decoder.DecodeAll(packed[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress audio: %w", err)
		}
		return audio, nil
	}
	return nil, fmt.Errorf("unknown audio format %d", packed[0])
}
