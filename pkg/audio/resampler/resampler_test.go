package resampler

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechenhance/pkg/audio/types"
)

func s16le(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for idx, s := range samples {
		binary.LittleEndian.PutUint16(b[idx*2:], uint16(s))
	}
	return b
}

func TestResampler(t *testing.T) {
	t.Run("Identity_S16LE_Mono_16000", func(t *testing.T) {
		f := Format{Channels: 1, SampleRate: 16000, PCMFormat: types.PCMFormatS16LE}
		data := make([]int16, 100)
		for idx := range data {
			data[idx] = int16(idx*300 - 15000)
		}
		r, err := NewResampler(f, bytes.NewReader(s16le(data...)), f)
		require.NoError(t, err)

		out, err := io.ReadAll(r)
		require.NoError(t, err)
		assert.Equal(t, s16le(data...), out)
	})

	t.Run("Float32LE_Stereo_48000_to_S16LE_Mono_16000", func(t *testing.T) {
		in := Format{Channels: 2, SampleRate: 48000, PCMFormat: types.PCMFormatFloat32LE}
		out := Format{Channels: 1, SampleRate: 16000, PCMFormat: types.PCMFormatS16LE}

		const frames = 480
		data := make([]byte, frames*2*4)
		for idx := 0; idx < frames; idx++ {
			binary.LittleEndian.PutUint32(data[idx*8:], math.Float32bits(0.5))
			binary.LittleEndian.PutUint32(data[idx*8+4:], math.Float32bits(0.25))
		}
		r, err := NewResampler(in, bytes.NewReader(data), out)
		require.NoError(t, err)

		result, err := io.ReadAll(r)
		require.NoError(t, err)
		require.Len(t, result, frames/3*2)
		for idx := 0; idx < len(result); idx += 2 {
			assert.Equal(t, int16(12288), int16(binary.LittleEndian.Uint16(result[idx:])))
		}
	})

	t.Run("Resampling_32000_to_16000", func(t *testing.T) {
		in := Format{Channels: 1, SampleRate: 32000, PCMFormat: types.PCMFormatS16LE}
		out := Format{Channels: 1, SampleRate: 16000, PCMFormat: types.PCMFormatS16LE}
		data := make([]int16, 100)
		for idx := range data {
			data[idx] = int16(idx)
		}
		r, err := NewResampler(in, bytes.NewReader(s16le(data...)), out)
		require.NoError(t, err)

		result := make([]byte, 100)
		n, err := r.Read(result)
		require.NoError(t, err)
		require.Equal(t, 100, n)
		assert.Equal(t, int16(0), int16(binary.LittleEndian.Uint16(result[0:])))
		assert.Equal(t, int16(2), int16(binary.LittleEndian.Uint16(result[2:])))
	})

	t.Run("Channels_Mono_to_Stereo", func(t *testing.T) {
		in := Format{Channels: 1, SampleRate: 44100, PCMFormat: types.PCMFormatU8}
		out := Format{Channels: 2, SampleRate: 44100, PCMFormat: types.PCMFormatU8}
		r, err := NewResampler(in, bytes.NewReader([]byte{10, 20, 30}), out)
		require.NoError(t, err)

		result := make([]byte, 6)
		n, err := r.Read(result)
		assert.NoError(t, err)
		assert.Equal(t, 6, n)
		assert.Equal(t, []byte{10, 10, 20, 20, 30, 30}, result)
	})

	t.Run("Channels_Stereo_to_Mono", func(t *testing.T) {
		in := Format{Channels: 2, SampleRate: 44100, PCMFormat: types.PCMFormatU8}
		out := Format{Channels: 1, SampleRate: 44100, PCMFormat: types.PCMFormatU8}
		r, err := NewResampler(in, bytes.NewReader([]byte{100, 200, 50, 150}), out)
		require.NoError(t, err)

		result := make([]byte, 2)
		n, err := r.Read(result)
		assert.NoError(t, err)
		assert.Equal(t, 2, n)
		assert.Equal(t, []byte{150, 100}, result)
	})

	t.Run("Unsupported", func(t *testing.T) {
		in := Format{Channels: 1, SampleRate: 16000, PCMFormat: types.PCMFormatUndefined}
		out := Format{Channels: 1, SampleRate: 16000, PCMFormat: types.PCMFormatS16LE}
		_, err := NewResampler(in, bytes.NewReader(nil), out)
		require.Error(t, err)
	})
}
