package pcm

import (
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
)

const wavFormatPCM = 1

var ErrInvalidWAV = errors.New("invalid WAV file")

func WriteWAV(w io.WriteSeeker, s *Signal) error {
	enc := wav.NewEncoder(w, int(s.SampleRate), 16, int(Channels), wavFormatPCM)
	data := make([]int, len(s.Samples))
	for idx, v := range s.Samples {
		data[idx] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: int(Channels),
			SampleRate:  int(s.SampleRate),
		},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("unable to write the samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize the WAV file: %w", err)
	}
	return nil
}

// ReadWAV decodes an integer PCM WAV file of any channel count and rate
// into a mono signal of the given sample rate.
func ReadWAV(r io.ReadSeeker, sampleRate audio.SampleRate) (*Signal, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrInvalidWAV
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unable to decode the samples: %w", err)
	}
	if buf == nil {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidWAV)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth <= 0 {
		bitDepth = 16
	}
	channels := audio.Channel(dec.NumChans)
	srcRate := audio.SampleRate(dec.SampleRate)
	if channels == 0 || srcRate == 0 {
		return nil, fmt.Errorf("%w: channels:%d rate:%d", ErrInvalidWAV, channels, srcRate)
	}

	if bitDepth == 16 && channels == 1 && srcRate == sampleRate {
		samples := make([]int16, len(buf.Data))
		for idx, v := range buf.Data {
			samples[idx] = int16(v)
		}
		return NewSignal(sampleRate, samples), nil
	}

	scale := float32(int(1) << (bitDepth - 1))
	var bias int
	if bitDepth == 8 {
		// 8-bit WAV samples are unsigned
		bias = 128
	}
	samples := make([]float32, len(buf.Data))
	for idx, v := range buf.Data {
		samples[idx] = float32(v-bias) / scale
	}
	return fromFloat32(samples, channels, srcRate, sampleRate)
}
