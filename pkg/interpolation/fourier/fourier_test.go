package fourier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func tone(from, count int) []float64 {
	const (
		freq       = 250.0
		sampleRate = 16000.0
	)
	result := make([]float64, count)
	for idx := range result {
		result[idx] = 8000 * math.Sin(2*math.Pi*freq*float64(from+idx)/sampleRate)
	}
	return result
}

func TestInterpolateHasNoClicks(t *testing.T) {
	const gapLen = 800
	before := tone(0, 2048)
	after := tone(2048+gapLen, 2048)

	interpolated := New().Interpolate(before, after, gapLen)
	require.Len(t, interpolated, gapLen)

	var maxStep float64
	for idx := 1; idx < len(before); idx++ {
		maxStep = max(maxStep, math.Abs(before[idx]-before[idx-1]))
	}

	require.LessOrEqual(t, math.Abs(interpolated[0]-before[len(before)-1]), maxStep*1.5)
	require.LessOrEqual(t, math.Abs(after[0]-interpolated[gapLen-1]), maxStep*1.5)
	for idx := 1; idx < gapLen; idx++ {
		require.LessOrEqual(t, math.Abs(interpolated[idx]-interpolated[idx-1]), maxStep*3, "idx %d", idx)
	}
}

func TestInterpolateWithoutContext(t *testing.T) {
	require.Equal(t, make([]float64, 10), New().Interpolate(nil, tone(0, 100), 10))
	require.Equal(t, make([]float64, 10), New().Interpolate(tone(0, 100), []float64{1, 2}, 10))
	require.Empty(t, New().Interpolate(tone(0, 100), tone(0, 100), 0))
}

func TestInterpolateContinuesPeriodicSignal(t *testing.T) {
	// the analysis windows hold whole periods, so the gap is recoverable
	const gapLen = 800
	before := tone(0, 2048)
	after := tone(2048+gapLen, 2048)
	expected := tone(2048, gapLen)

	interpolated := New().Interpolate(before, after, gapLen)
	require.Len(t, interpolated, gapLen)
	require.NotEqual(t, before[len(before)-1], interpolated[0])
	for idx := range expected {
		require.InDelta(t, expected[idx], interpolated[idx], 1, "idx %d", idx)
	}
}
