package enhancer

import (
	"context"
	"fmt"
)

// Dummy multiplies the input by Gain.
type Dummy struct {
	Gain float32
}

var _ Enhancer = (*Dummy)(nil)
var _ OutputScaler = (*Dummy)(nil)

func NewDummy(gain float32) *Dummy {
	return &Dummy{
		Gain: gain,
	}
}

func (*Dummy) Close() error {
	return nil
}

func (*Dummy) FrameLength() uint {
	return 0
}

func (d *Dummy) OutputScale() float64 {
	return float64(d.Gain)
}

func (d *Dummy) Enhance(_ context.Context, input []float32, output []float32) error {
	if len(input) != len(output) {
		return fmt.Errorf("lengths of input and output slices are not equal: %d != %d", len(input), len(output))
	}
	for idx, v := range input {
		output[idx] = v * d.Gain
	}
	return nil
}
