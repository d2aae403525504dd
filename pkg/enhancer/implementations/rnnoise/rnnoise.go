//go:build rnnoise
// +build rnnoise

package rnnoise

import (
	"context"
	"fmt"
	"sync"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer"
)

/*
#cgo pkg-config: rnnoise
#cgo CFLAGS: -march=native
#include <rnnoise.h>
*/
import "C"

type RNNoise struct {
	Locker       sync.Mutex
	DenoiseState *C.DenoiseState

	upsampled []float32
	denoised  []float32
}

var _ enhancer.Enhancer = (*RNNoise)(nil)
var _ enhancer.OutputScaler = (*RNNoise)(nil)

var frameSize int

func init() {
	frameSize = int(C.rnnoise_get_frame_size())
}

func New() (*RNNoise, error) {
	state := C.rnnoise_create(nil)
	if state == nil {
		return nil, fmt.Errorf("unable to create a denoise state")
	}
	return &RNNoise{
		DenoiseState: state,
	}, nil
}

func (s *RNNoise) Close() error {
	s.Locker.Lock()
	defer s.Locker.Unlock()
	if s.DenoiseState == nil {
		return fmt.Errorf("double-free attempt")
	}
	C.rnnoise_destroy(s.DenoiseState)
	s.DenoiseState = nil
	return nil
}

func (*RNNoise) FrameLength() uint {
	return 0
}

func (*RNNoise) OutputScale() float64 {
	return 1
}

// Enhance upsamples the 16kHz input to the 48kHz the model is trained on,
// denoises it frame by frame and downsamples it back. Sample values are
// expected in the int16 range.
func (s *RNNoise) Enhance(
	ctx context.Context,
	input []float32,
	output []float32,
) (_err error) {
	logger.Tracef(ctx, "Enhance, len:%d", len(input))
	defer func() { logger.Tracef(ctx, "/Enhance, len:%d: %v", len(input), _err) }()

	if len(input) != len(output) {
		return fmt.Errorf("lengths of input and output slices are not equal: %d != %d", len(input), len(output))
	}
	if len(input) == 0 {
		return nil
	}

	s.Locker.Lock()
	defer s.Locker.Unlock()
	if s.DenoiseState == nil {
		return fmt.Errorf("the denoiser is already closed")
	}

	upsampledLength := len(input) * upsampleFactor
	paddedLength := (upsampledLength + frameSize - 1) / frameSize * frameSize
	if cap(s.upsampled) < paddedLength {
		s.upsampled = make([]float32, paddedLength)
		s.denoised = make([]float32, paddedLength)
	}
	upsampled := s.upsampled[:paddedLength]
	denoised := s.denoised[:paddedLength]
	clear(upsampled[upsampledLength:])
	upsample(upsampled[:upsampledLength], input)

	for offset := 0; offset < paddedLength; offset += frameSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		C.rnnoise_process_frame(
			s.DenoiseState,
			(*C.float)(unsafe.Pointer(unsafe.SliceData(denoised[offset:offset+frameSize]))),
			(*C.float)(unsafe.Pointer(unsafe.SliceData(upsampled[offset:offset+frameSize]))),
		)
	}

	downsample(output, denoised[:upsampledLength])
	return nil
}
