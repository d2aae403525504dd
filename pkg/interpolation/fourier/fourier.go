package fourier

import (
	"math"
	"math/cmplx"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/speechenhance/pkg/interpolation"
)

const (
	// MaxWindowSize limits the analysis window on each side of the gap.
	MaxWindowSize = 1024

	// MinRequiredSamples is the least context on each side to analyze.
	MinRequiredSamples = 4

	// PeakThreshold is how many times a bin must exceed the mean magnitude
	// to be treated as a tonal component.
	PeakThreshold = 2.5
)

// Interpolator extends the tonal components found on both sides of the gap
// into it and cross-fades the two extensions. Without enough context on
// either side the gap stays silent.
type Interpolator struct{}

var _ interpolation.Interpolator = (*Interpolator)(nil)

func New() *Interpolator {
	return &Interpolator{}
}

func (*Interpolator) Interpolate(before, after []float64, gapLen int) []float64 {
	result := make([]float64, gapLen)
	if gapLen == 0 || len(before) < MinRequiredSamples || len(after) < MinRequiredSamples {
		return result
	}

	windowSize := floorPowerOfTwo(min(len(before), len(after), MaxWindowSize))
	left := before[len(before)-windowSize:]
	right := after[:windowSize]

	forward, leftEdge := extend(left, gapLen, true)
	backward, rightEdge := extend(right, gapLen, false)

	// both extensions are shifted so that their reconstruction of the
	// adjacent real sample matches it, otherwise the stitch points click
	startOffset := leftEdge - left[len(left)-1]
	endOffset := rightEdge - right[0]
	for idx := range result {
		t := float64(idx+1) / float64(gapLen+1)
		w := t * t * (3 - 2*t)
		v := (1-w)*forward[idx] + w*backward[idx]
		v -= (1-w)*startOffset + w*endOffset
		result[idx] = v
	}
	return result
}

func floorPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

type peak struct {
	bin       int
	magnitude float64
	phase     float64
}

// extend synthesizes gapLen samples past the end of window (forward) or
// before its start (backward) from its spectral peaks. It also returns the
// reconstruction of the window sample adjacent to the gap.
func extend(window []float64, gapLen int, forward bool) ([]float64, float64) {
	n := len(window)
	result := make([]float64, gapLen)
	edgePos := 0.0
	if forward {
		edgePos = float64(n - 1)
	}

	coeffs := make([]complex128, n)
	for idx, v := range window {
		coeffs[idx] = complex(v, 0)
	}
	if err := fourier.Forward(coeffs); err != nil {
		return result, 0
	}

	var mean float64
	magnitudes := make([]float64, n)
	for idx, c := range coeffs {
		magnitudes[idx] = cmplx.Abs(c)
		mean += magnitudes[idx]
	}
	threshold := mean / float64(n) * PeakThreshold

	var peaks []peak
	for bin := 1; bin < n/2; bin++ {
		m := magnitudes[bin]
		if m > threshold && m > magnitudes[bin-1] && m > magnitudes[bin+1] {
			peaks = append(peaks, peak{
				bin:       bin,
				magnitude: 2 * m / float64(n),
				phase:     cmplx.Phase(coeffs[bin]),
			})
		}
	}

	dc := real(coeffs[0]) / float64(n)
	at := func(pos float64) float64 {
		v := dc
		for _, p := range peaks {
			v += p.magnitude * math.Cos(2*math.Pi*float64(p.bin)*pos/float64(n)+p.phase)
		}
		return v
	}
	for idx := range result {
		pos := float64(idx - gapLen)
		if forward {
			pos = float64(n + idx)
		}
		result[idx] = at(pos)
	}
	return result, at(edgePos)
}
