package pcm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/xaionaro-go/speechenhance/pkg/audio"
	"github.com/xaionaro-go/speechenhance/pkg/audio/resampler"
)

// fromFloat32 downmixes and resamples interleaved normalized samples
// into a mono 16-bit signal of the given rate.
func fromFloat32(
	samples []float32,
	channels audio.Channel,
	sampleRate audio.SampleRate,
	targetSampleRate audio.SampleRate,
) (*Signal, error) {
	if channels == 0 {
		return nil, fmt.Errorf("the amount of channels is zero")
	}
	if len(samples)%int(channels) != 0 {
		return nil, fmt.Errorf("the amount of samples %d is not a multiple of the amount of channels %d", len(samples), channels)
	}

	in := make([]byte, len(samples)*4)
	for idx, v := range samples {
		binary.LittleEndian.PutUint32(in[idx*4:], math.Float32bits(v))
	}

	r, err := resampler.NewResampler(
		resampler.Format{
			Channels:   channels,
			SampleRate: sampleRate,
			PCMFormat:  audio.PCMFormatFloat32LE,
		},
		bytes.NewReader(in),
		resampler.Format{
			Channels:   Channels,
			SampleRate: targetSampleRate,
			PCMFormat:  PCMFormat,
		},
	)
	if err != nil {
		return nil, err
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to convert: %w", err)
	}
	result, err := DecodeRaw(out)
	if err != nil {
		return nil, err
	}
	return NewSignal(targetSampleRate, result), nil
}
