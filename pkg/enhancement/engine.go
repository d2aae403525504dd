// Package enhancement runs a fixed-frame enhancer over a signal of any
// length: the signal is cut into overlapping frames, each frame is enhanced
// and only the hop-sized tail of every output frame is stitched back.
package enhancement

import (
	"context"
	"fmt"
	"math"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer"
	"github.com/xaionaro-go/speechenhance/pkg/interpolation"
	"github.com/xaionaro-go/speechenhance/pkg/interpolation/fourier"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
)

const (
	concealmentContext = 2048
)

type Engine struct {
	Config       Config
	Enhancer     enhancer.Enhancer
	Interpolator interpolation.Interpolator
}

func New(
	cfg Config,
	e enhancer.Enhancer,
) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fmt.Errorf("no enhancer is set")
	}
	if frameLength := e.FrameLength(); frameLength != 0 && frameLength != uint(cfg.FrameLength) {
		return nil, fmt.Errorf("the enhancer requires frames of %d samples, but the frame length is %d", frameLength, cfg.FrameLength)
	}
	return &Engine{
		Config:       cfg,
		Enhancer:     e,
		Interpolator: fourier.New(),
	}, nil
}

// Process returns the enhanced copy of the signal, of the same length and
// sample rate. Chunks are processed strictly in order on the caller's
// goroutine.
func (e *Engine) Process(
	ctx context.Context,
	signal *pcm.Signal,
) (_ret *pcm.Signal, _err error) {
	logger.Tracef(ctx, "Process(%d)", signal.Len())
	defer func() { logger.Tracef(ctx, "/Process(%d): %v", signal.Len(), _err) }()

	plan, err := NewPlan(signal.Len(), e.Config.FrameLength, e.Config.HopLength)
	if err != nil {
		return nil, err
	}

	result := make([]int16, signal.Len())
	input := make([]float32, plan.FrameLength)
	output := make([]float32, plan.FrameLength)
	numChunks := plan.NumChunks()
	var failedChunks []int
	for chunk := 0; chunk < numChunks; chunk++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cursor := plan.Cursor(chunk)
		logger.Debugf(ctx, "processing chunk %d/%d at %d", chunk+1, numChunks, cursor)

		err := e.processChunk(ctx, plan, signal.Samples, result, chunk, input, output)
		if err == nil {
			continue
		}
		chunkErr := &ChunkError{
			Chunk:  chunk,
			Cursor: cursor,
			Err:    err,
		}
		switch e.Config.FailurePolicy {
		case FailurePolicySilence, FailurePolicyConceal:
			failedChunks = append(failedChunks, chunk)
			logger.Warnf(ctx, "%v; the chunk will be %s", chunkErr, e.Config.FailurePolicy)
		default:
			return nil, chunkErr
		}
	}

	if len(failedChunks) > 0 {
		logger.Warnf(ctx, "%d of %d chunks failed", len(failedChunks), numChunks)
		if e.Config.FailurePolicy == FailurePolicyConceal {
			e.conceal(ctx, plan, result, failedChunks)
		}
	}
	return pcm.NewSignal(signal.SampleRate, result), nil
}

// conceal replaces the (silent) hop ranges of the failed chunks with an
// interpolation from the samples around them. Adjacent failed chunks form
// a single gap.
func (e *Engine) conceal(
	ctx context.Context,
	plan Plan,
	result []int16,
	failedChunks []int,
) {
	interpolator := e.Interpolator
	if interpolator == nil {
		return
	}

	for idx := 0; idx < len(failedChunks); {
		gapStart, gapEnd := plan.HopRange(failedChunks[idx])
		idx++
		for idx < len(failedChunks) && failedChunks[idx] == failedChunks[idx-1]+1 {
			_, gapEnd = plan.HopRange(failedChunks[idx])
			idx++
		}
		if gapStart == gapEnd {
			continue
		}

		before := toFloat64(result[max(0, gapStart-concealmentContext):gapStart])
		after := toFloat64(result[gapEnd:min(len(result), gapEnd+concealmentContext)])
		logger.Debugf(ctx, "concealing [%d, %d) using %d+%d samples of context", gapStart, gapEnd, len(before), len(after))
		for pos, v := range interpolator.Interpolate(before, after, gapEnd-gapStart) {
			result[gapStart+pos] = quantize(v)
		}
	}
}

func toFloat64(samples []int16) []float64 {
	result := make([]float64, len(samples))
	for idx, v := range samples {
		result[idx] = float64(v)
	}
	return result
}

func (e *Engine) processChunk(
	ctx context.Context,
	plan Plan,
	src []int16,
	dst []int16,
	chunk int,
	input []float32,
	output []float32,
) error {
	start, end := plan.HopRange(chunk)
	if start == end {
		logger.Tracef(ctx, "chunk %d has nothing to write", chunk)
	}

	plan.FillFrame(input, src, chunk)
	clear(output)
	if err := e.Enhancer.Enhance(ctx, input, output); err != nil {
		return err
	}

	pad := plan.Pad()
	cursor := plan.Cursor(chunk)
	for pos := start; pos < end; pos++ {
		if v := output[pad+pos-cursor]; math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("malformed enhancer output at position %d: %v", pos, v)
		}
	}
	for pos := start; pos < end; pos++ {
		dst[pos] = quantize(float64(output[pad+pos-cursor]) / e.Config.OutputScale)
	}
	return nil
}

// quantize truncates toward zero and saturates to the int16 range.
func quantize(v float64) int16 {
	switch {
	case v >= math.MaxInt16:
		return math.MaxInt16
	case v <= math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// ResolveOutputScale returns scale if it is positive, otherwise the nominal
// scale announced by the enhancer (or 1 if it announces none).
func ResolveOutputScale(scale float64, e enhancer.Enhancer) float64 {
	if scale > 0 {
		return scale
	}
	if scaler, ok := e.(enhancer.OutputScaler); ok {
		if v := scaler.OutputScale(); v > 0 {
			return v
		}
	}
	return 1
}
