package resampler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/speechenhance/pkg/audio/types"
)

// sampleCodec converts one sample of a PCM format from/to the
// normalized [-1, 1] float64 domain.
type sampleCodec struct {
	decode func(p []byte) float64
	encode func(p []byte, v float64)
}

func clampRound(v, scale, lo, hi float64) float64 {
	r := math.Round(v * scale)
	switch {
	case r > hi:
		return hi
	case r < lo:
		return lo
	}
	return r
}

func int24(v int32) int32 {
	if v&0x800000 != 0 {
		v |= -16777216
	}
	return v
}

var codecs = map[types.PCMFormat]sampleCodec{
	types.PCMFormatU8: {
		decode: func(p []byte) float64 { return (float64(p[0]) - 128) / 128 },
		encode: func(p []byte, v float64) { p[0] = byte(clampRound(v, 128, -128, 127) + 128) },
	},
	types.PCMFormatS16LE: {
		decode: func(p []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(p))) / 32768 },
		encode: func(p []byte, v float64) {
			binary.LittleEndian.PutUint16(p, uint16(int16(clampRound(v, 32768, math.MinInt16, math.MaxInt16))))
		},
	},
	types.PCMFormatS16BE: {
		decode: func(p []byte) float64 { return float64(int16(binary.BigEndian.Uint16(p))) / 32768 },
		encode: func(p []byte, v float64) {
			binary.BigEndian.PutUint16(p, uint16(int16(clampRound(v, 32768, math.MinInt16, math.MaxInt16))))
		},
	},
	types.PCMFormatS24LE: {
		decode: func(p []byte) float64 {
			return float64(int24(int32(uint32(p[0])|uint32(p[1])<<8|uint32(p[2])<<16))) / 8388608
		},
		encode: func(p []byte, v float64) {
			val := int32(clampRound(v, 8388608, -8388608, 8388607))
			p[0], p[1], p[2] = byte(val), byte(val>>8), byte(val>>16)
		},
	},
	types.PCMFormatS24BE: {
		decode: func(p []byte) float64 {
			return float64(int24(int32(uint32(p[2])|uint32(p[1])<<8|uint32(p[0])<<16))) / 8388608
		},
		encode: func(p []byte, v float64) {
			val := int32(clampRound(v, 8388608, -8388608, 8388607))
			p[0], p[1], p[2] = byte(val>>16), byte(val>>8), byte(val)
		},
	},
	types.PCMFormatS32LE: {
		decode: func(p []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648 },
		encode: func(p []byte, v float64) {
			binary.LittleEndian.PutUint32(p, uint32(int32(clampRound(v, 2147483648, math.MinInt32, math.MaxInt32))))
		},
	},
	types.PCMFormatS32BE: {
		decode: func(p []byte) float64 { return float64(int32(binary.BigEndian.Uint32(p))) / 2147483648 },
		encode: func(p []byte, v float64) {
			binary.BigEndian.PutUint32(p, uint32(int32(clampRound(v, 2147483648, math.MinInt32, math.MaxInt32))))
		},
	},
	types.PCMFormatFloat32LE: {
		decode: func(p []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(p))) },
		encode: func(p []byte, v float64) { binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v))) },
	},
	types.PCMFormatFloat32BE: {
		decode: func(p []byte) float64 { return float64(math.Float32frombits(binary.BigEndian.Uint32(p))) },
		encode: func(p []byte, v float64) { binary.BigEndian.PutUint32(p, math.Float32bits(float32(v))) },
	},
	types.PCMFormatFloat64LE: {
		decode: func(p []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(p)) },
		encode: func(p []byte, v float64) { binary.LittleEndian.PutUint64(p, math.Float64bits(v)) },
	},
	types.PCMFormatFloat64BE: {
		decode: func(p []byte) float64 { return math.Float64frombits(binary.BigEndian.Uint64(p)) },
		encode: func(p []byte, v float64) { binary.BigEndian.PutUint64(p, math.Float64bits(v)) },
	},
}

func getCodec(f types.PCMFormat) (sampleCodec, error) {
	c, ok := codecs[f]
	if !ok {
		return sampleCodec{}, fmt.Errorf("PCM format %s is not supported", f)
	}
	return c, nil
}
