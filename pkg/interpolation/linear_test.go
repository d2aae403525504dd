package interpolation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinear(t *testing.T) {
	require.Equal(t, []float64{1, 2, 3}, Linear{}.Interpolate([]float64{5, 0}, []float64{4, 9}, 3))
	require.Equal(t, []float64{0, 0}, Linear{}.Interpolate(nil, []float64{4}, 2))
}
