// Package interpolation synthesizes the samples of a gap in a signal from
// the samples around it.
package interpolation

type Interpolator interface {
	// Interpolate returns gapLen samples that continue before and lead into after.
	Interpolate(before, after []float64, gapLen int) []float64
}
