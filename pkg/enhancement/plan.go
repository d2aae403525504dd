package enhancement

import (
	"fmt"
)

// Plan is the framing arithmetic of a signal of a given length: which
// input samples form the frame of chunk k and which output positions the
// chunk is responsible for.
type Plan struct {
	SignalLength int
	FrameLength  int
	HopLength    int
}

func NewPlan(signalLength, frameLength, hopLength int) (Plan, error) {
	if signalLength < 0 {
		return Plan{}, fmt.Errorf("the signal length is negative: %d", signalLength)
	}
	if hopLength <= 0 || hopLength >= frameLength {
		return Plan{}, fmt.Errorf("the hop length must be within (0, %d), but it is %d", frameLength, hopLength)
	}
	return Plan{
		SignalLength: signalLength,
		FrameLength:  frameLength,
		HopLength:    hopLength,
	}, nil
}

func (p Plan) Pad() int {
	return p.FrameLength - p.HopLength
}

// NumChunks is floor(N/H)+1. If N is a multiple of H, the last chunk
// starts at N and writes nothing.
func (p Plan) NumChunks() int {
	return p.SignalLength/p.HopLength + 1
}

func (p Plan) Cursor(chunk int) int {
	return chunk * p.HopLength
}

// FillFrame fills dst (of FrameLength) with the input of the given chunk.
// The first chunk gets Pad() leading zeros; later chunks get the Pad()
// preceding samples as left context. The rest past the signal end is zero.
func (p Plan) FillFrame(dst []float32, src []int16, chunk int) {
	if len(dst) != p.FrameLength {
		panic(fmt.Sprintf("the frame length is %d, but expected %d", len(dst), p.FrameLength))
	}
	if len(src) != p.SignalLength {
		panic(fmt.Sprintf("the signal length is %d, but expected %d", len(src), p.SignalLength))
	}

	// frame[i] = src[cursor-pad+i], zero where that is outside of src; for
	// the first chunk this is exactly pad zeros followed by src[:hop]
	start := p.Cursor(chunk) - p.Pad()
	dstOffset := max(0, -start)
	srcStart := min(max(0, start), p.SignalLength)
	srcEnd := min(max(0, start+p.FrameLength), p.SignalLength)
	segment := src[srcStart:max(srcStart, srcEnd)]

	clear(dst[:min(dstOffset, len(dst))])
	for idx, v := range segment {
		dst[dstOffset+idx] = float32(v)
	}
	clear(dst[min(dstOffset+len(segment), len(dst)):])
}

// HopRange returns the half-open range of output positions written by the
// given chunk; it may be empty.
func (p Plan) HopRange(chunk int) (int, int) {
	start := min(p.Cursor(chunk), p.SignalLength)
	end := min(start+p.HopLength, p.SignalLength)
	return start, end
}
