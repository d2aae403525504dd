// Package spectralgate implements a short-time spectral noise gate: the
// noise floor is estimated per frequency bin from the quietest frames of
// the input and bins close to that floor are attenuated.
package spectralgate

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	"github.com/brettbuddin/fourier"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/go-playground/validator/v10"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer"
)

const (
	epsilon = 1e-9
)

type Config struct {
	// FFTSize is the STFT window size, a power of two. Frames overlap by a half.
	FFTSize int `validate:"gte=4"`

	// NoiseFramesRatio is the share of the quietest frames used to estimate
	// the noise floor.
	NoiseFramesRatio float64 `validate:"gt=0,lte=1"`

	// Reduction is the over-subtraction factor of the noise floor.
	Reduction float64 `validate:"gte=0"`

	// MinGain is the lowest gain applied to a bin.
	MinGain float64 `validate:"gte=0,lte=1"`
}

func DefaultConfig() Config {
	return Config{
		FFTSize:          512,
		NoiseFramesRatio: 0.1,
		Reduction:        1.5,
		MinGain:          0.1,
	}
}

func (cfg Config) Validate() error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid spectral gate config: %w", err)
	}
	if cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		return fmt.Errorf("the FFT size must be a power of two, but it is %d", cfg.FFTSize)
	}
	return nil
}

type SpectralGate struct {
	Config Config
	window []float64
}

var _ enhancer.Enhancer = (*SpectralGate)(nil)
var _ enhancer.OutputScaler = (*SpectralGate)(nil)

func New(cfg Config) (*SpectralGate, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SpectralGate{
		Config: cfg,
		window: window.Hann(cfg.FFTSize),
	}, nil
}

func (*SpectralGate) Close() error {
	return nil
}

func (*SpectralGate) FrameLength() uint {
	return 0
}

func (*SpectralGate) OutputScale() float64 {
	return 1
}

func (g *SpectralGate) Enhance(
	ctx context.Context,
	input []float32,
	output []float32,
) (_err error) {
	logger.Tracef(ctx, "Enhance, len:%d", len(input))
	defer func() { logger.Tracef(ctx, "/Enhance, len:%d: %v", len(input), _err) }()

	if len(input) != len(output) {
		return fmt.Errorf("lengths of input and output slices are not equal: %d != %d", len(input), len(output))
	}
	n := len(input)
	if n == 0 {
		return nil
	}

	fftSize := g.Config.FFTSize
	hop := fftSize / 2

	// the signal is shifted by hop so that its first sample is covered by
	// two frames as any other one
	total := n + fftSize
	if rem := (total - fftSize) % hop; rem != 0 {
		total += hop - rem
	}
	frameCount := (total-fftSize)/hop + 1
	padded := make([]float64, total)
	for idx, v := range input {
		padded[hop+idx] = float64(v)
	}

	spectra := make([][]complex128, frameCount)
	energies := make([]float64, frameCount)
	for frameIdx := range spectra {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := frameIdx * hop
		coeffs := make([]complex128, fftSize)
		for idx := range coeffs {
			coeffs[idx] = complex(padded[start+idx]*g.window[idx], 0)
		}
		if err := fourier.Forward(coeffs); err != nil {
			return fmt.Errorf("unable to compute the spectrum of frame %d: %w", frameIdx, err)
		}
		var energy float64
		for _, c := range coeffs[:fftSize/2+1] {
			energy += real(c)*real(c) + imag(c)*imag(c)
		}
		spectra[frameIdx] = coeffs
		energies[frameIdx] = energy
	}

	noise := g.noiseFloor(spectra, energies, n)

	result := make([]float64, total)
	weights := make([]float64, total)
	for frameIdx, coeffs := range spectra {
		g.applyMask(coeffs, noise)
		timeDomain := fft.IFFT(coeffs)
		start := frameIdx * hop
		for idx, c := range timeDomain {
			result[start+idx] += real(c) * g.window[idx]
			weights[start+idx] += g.window[idx] * g.window[idx]
		}
	}

	for idx := range output {
		w := weights[hop+idx]
		if w < epsilon {
			output[idx] = 0
			continue
		}
		output[idx] = float32(result[hop+idx] / w)
	}
	return nil
}

// noiseFloor returns the mean magnitude per bin over the quietest frames.
// Frames that overlap the zero padding are only used if there is nothing else.
func (g *SpectralGate) noiseFloor(
	spectra [][]complex128,
	energies []float64,
	signalLength int,
) []float64 {
	fftSize := g.Config.FFTSize
	hop := fftSize / 2

	var candidates []int
	for frameIdx := range spectra {
		start := frameIdx * hop
		if start >= hop && start+fftSize <= hop+signalLength {
			candidates = append(candidates, frameIdx)
		}
	}
	if len(candidates) == 0 {
		for frameIdx := range spectra {
			candidates = append(candidates, frameIdx)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return energies[candidates[i]] < energies[candidates[j]]
	})

	count := int(math.Ceil(g.Config.NoiseFramesRatio * float64(len(candidates))))
	count = max(1, min(count, len(candidates)))

	noise := make([]float64, fftSize/2+1)
	for _, frameIdx := range candidates[:count] {
		for bin := range noise {
			noise[bin] += cmplx.Abs(spectra[frameIdx][bin])
		}
	}
	for bin := range noise {
		noise[bin] /= float64(count)
	}
	return noise
}

func (g *SpectralGate) applyMask(coeffs []complex128, noise []float64) {
	fftSize := len(coeffs)
	for bin, noiseMagnitude := range noise {
		magnitude := cmplx.Abs(coeffs[bin])
		gain := 1 - g.Config.Reduction*noiseMagnitude/(magnitude+epsilon)
		gain = max(g.Config.MinGain, min(1, gain))

		coeffs[bin] *= complex(gain, 0)
		if bin > 0 && bin < fftSize/2 {
			coeffs[fftSize-bin] *= complex(gain, 0)
		}
	}
}
