// Package pcm contains the mono 16-bit signal representation used across
// the module and its on-disk codecs.
package pcm

import (
	"time"

	"github.com/xaionaro-go/speechenhance/pkg/audio"
)

const (
	DefaultSampleRate = audio.SampleRate(16000)
	PCMFormat         = audio.PCMFormatS16LE
	Channels          = audio.Channel(1)
)

// Signal is a mono signal of signed 16-bit samples. It must not be
// modified after it was handed over to another component.
type Signal struct {
	SampleRate audio.SampleRate
	Samples    []int16
}

func NewSignal(sampleRate audio.SampleRate, samples []int16) *Signal {
	return &Signal{
		SampleRate: sampleRate,
		Samples:    samples,
	}
}

func (s *Signal) Len() int {
	return len(s.Samples)
}

func (s *Signal) Duration() time.Duration {
	return s.SampleRate.DurationOf(len(s.Samples))
}

// Float32 returns the samples as float32 values of the same magnitude
// (no normalization to [-1, 1]).
func (s *Signal) Float32() []float32 {
	result := make([]float32, len(s.Samples))
	for idx, v := range s.Samples {
		result[idx] = float32(v)
	}
	return result
}
