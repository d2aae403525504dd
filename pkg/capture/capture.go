package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
	"github.com/xaionaro-go/speechenhance/pkg/progress"
)

var (
	ErrDeviceUnavailable = errors.New("capture device is unavailable")
	ErrSourceExhausted   = errors.New("the sample source ended before the target length was reached")
)

const (
	DefaultReadBufferSize = 1024
	DefaultTickInterval   = time.Second
)

// SampleSource is a blocking source of mono 16-bit samples. ReadSamples
// returns 0..len(buf) samples.
type SampleSource interface {
	ReadSamples(ctx context.Context, buf []int16) (int, error)
}

type Options struct {
	SampleRate     audio.SampleRate
	ReadBufferSize int
	Progress       progress.Sink
	TickInterval   time.Duration
}

func (opts Options) sampleRate() audio.SampleRate {
	if opts.SampleRate == 0 {
		return pcm.DefaultSampleRate
	}
	return opts.SampleRate
}

func (opts Options) readBufferSize() int {
	if opts.ReadBufferSize <= 0 {
		return DefaultReadBufferSize
	}
	return opts.ReadBufferSize
}

func (opts Options) tickInterval() time.Duration {
	if opts.TickInterval <= 0 {
		return DefaultTickInterval
	}
	return opts.TickInterval
}

// Capture pulls samples from the source until exactly targetLength samples
// are collected. Either the full signal or an error is returned.
func Capture(
	ctx context.Context,
	targetLength int,
	source SampleSource,
	opts Options,
) (_ret *pcm.Signal, _err error) {
	logger.Tracef(ctx, "Capture(%d)", targetLength)
	defer func() { logger.Tracef(ctx, "/Capture(%d): %v", targetLength, _err) }()

	if targetLength < 0 {
		return nil, fmt.Errorf("the target length is negative: %d", targetLength)
	}
	sampleRate := opts.sampleRate()

	if opts.Progress != nil {
		ticker := progress.Start(ctx, opts.tickInterval(), sampleRate.DurationOf(targetLength), opts.Progress)
		defer ticker.Stop()
	}

	buf := make([]int16, targetLength)
	readBufferSize := opts.readBufferSize()
	offset := 0
	for offset < targetLength {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		chunk := buf[offset:min(offset+readBufferSize, targetLength)]
		n, err := source.ReadSamples(ctx, chunk)
		if n < 0 || n > len(chunk) {
			return nil, fmt.Errorf("the source returned an invalid amount of samples: %d (requested: %d)", n, len(chunk))
		}
		offset += n
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			if offset >= targetLength {
				break
			}
			return nil, fmt.Errorf("%w: got %d of %d samples", ErrSourceExhausted, offset, targetLength)
		}
		return nil, fmt.Errorf("unable to read samples at offset %d: %w", offset, err)
	}

	logger.Debugf(ctx, "captured %d samples (%v)", targetLength, sampleRate.DurationOf(targetLength))
	return pcm.NewSignal(sampleRate, buf), nil
}
