// Package enhancer defines the frame-level speech enhancement contract the
// chunked engine drives.
package enhancer

import (
	"context"
	"io"
)

type Enhancer interface {
	io.Closer

	// FrameLength returns the only frame length the enhancer accepts, or 0
	// if it accepts frames of any length.
	FrameLength() uint

	// Enhance writes the enhanced version of input into output. Both slices
	// have the same length.
	Enhance(ctx context.Context, input []float32, output []float32) error
}

// OutputScaler is implemented by enhancers whose output is attenuated by a
// fixed factor relative to the input.
type OutputScaler interface {
	OutputScale() float64
}
