package interpolation

// Linear draws a straight line between the samples adjacent to the gap.
type Linear struct{}

var _ Interpolator = Linear{}

func (Linear) Interpolate(before, after []float64, gapLen int) []float64 {
	result := make([]float64, gapLen)
	if len(before) == 0 || len(after) == 0 {
		return result
	}
	v0 := before[len(before)-1]
	v1 := after[0]
	for idx := range result {
		t := float64(idx+1) / float64(gapLen+1)
		result[idx] = (1-t)*v0 + t*v1
	}
	return result
}
