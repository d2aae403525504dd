package resampler

import (
	"fmt"
	"io"
	"sync"

	"github.com/xaionaro-go/speechenhance/pkg/audio/types"
)

const (
	distanceStep = 10000
)

type Format struct {
	Channels   types.Channel
	SampleRate types.SampleRate
	PCMFormat  types.PCMFormat
}

func (f Format) FrameSize() uint {
	return uint(f.Channels) * f.PCMFormat.Size()
}

// Resampler is a nearest-sample rate converter that also converts the
// sample format and downmixes to (or upmixes from) mono.
type Resampler struct {
	inReader    io.Reader
	inFormat    Format
	outFormat   Format
	inCodec     sampleCodec
	outCodec    sampleCodec
	inDistance  uint64
	outDistance uint64
	locker      sync.Mutex
	buffer      []byte

	inNumAvg        uint
	outNumRepeat    uint
	outDistanceStep uint64
}

var _ io.Reader = (*Resampler)(nil)

func NewResampler(
	inFormat Format,
	inReader io.Reader,
	outFormat Format,
) (*Resampler, error) {
	r := &Resampler{
		inReader:  inReader,
		inFormat:  inFormat,
		outFormat: outFormat,
	}
	if err := r.init(); err != nil {
		return nil, fmt.Errorf("unable to initialize a resampler from %#+v to %#+v: %w", inFormat, outFormat, err)
	}
	return r, nil
}

func (r *Resampler) init() error {
	var err error
	if r.inCodec, err = getCodec(r.inFormat.PCMFormat); err != nil {
		return fmt.Errorf("input: %w", err)
	}
	if r.outCodec, err = getCodec(r.outFormat.PCMFormat); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if r.inFormat.SampleRate == 0 || r.outFormat.SampleRate == 0 {
		return fmt.Errorf("sample rate must be positive")
	}
	if r.inFormat.Channels == 0 || r.outFormat.Channels == 0 {
		return fmt.Errorf("channel count must be positive")
	}

	r.inNumAvg = 1
	r.outNumRepeat = 1
	if r.inFormat.Channels != r.outFormat.Channels {
		switch {
		case r.inFormat.Channels == 1:
			r.outNumRepeat = uint(r.outFormat.Channels)
		case r.outFormat.Channels == 1:
			r.inNumAvg = uint(r.inFormat.Channels)
		default:
			return fmt.Errorf("do not know how to convert %d channels to %d", r.inFormat.Channels, r.outFormat.Channels)
		}
	}

	sampleRateAdjust := float64(r.outFormat.SampleRate) / float64(r.inFormat.SampleRate)
	r.outDistanceStep = uint64(float64(distanceStep) / sampleRateAdjust)
	return nil
}

func (r *Resampler) Read(p []byte) (int, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	inSampleSize := uint64(r.inFormat.PCMFormat.Size())
	outSampleSize := uint64(r.outFormat.PCMFormat.Size())
	inFrameSize := inSampleSize * uint64(r.inNumAvg)
	outFrameSize := outSampleSize * uint64(r.outNumRepeat)

	maxOutFrames := uint64(len(p)) / outFrameSize
	if maxOutFrames == 0 {
		return 0, nil
	}

	framesToRead := uint64(float64(maxOutFrames) * float64(r.inFormat.SampleRate) / float64(r.outFormat.SampleRate))
	if framesToRead == 0 {
		framesToRead = 1
	}
	bytesToRead := int(framesToRead * inFrameSize)
	if cap(r.buffer) < bytesToRead {
		r.buffer = make([]byte, bytesToRead)
	}
	r.buffer = r.buffer[:bytesToRead]

	n, err := io.ReadAtLeast(r.inReader, r.buffer, int(inFrameSize))
	switch err {
	case io.ErrUnexpectedEOF:
		if n%int(inFrameSize) != 0 {
			return 0, fmt.Errorf("the input ended in the middle of a frame: %d %% %d != 0", n, inFrameSize)
		}
		err = nil
	case nil:
	default:
		if n == 0 {
			return 0, err
		}
	}
	framesRead := uint64(n) / inFrameSize

	var dstIdx, srcIdx uint64
	for srcIdx < framesRead && dstIdx < maxOutFrames {
		for r.inDistance < r.outDistance && srcIdx < framesRead {
			srcIdx++
			r.inDistance += distanceStep
		}
		if srcIdx >= framesRead {
			break
		}

		frame := r.buffer[srcIdx*inFrameSize:]
		var sum float64
		for ch := uint64(0); ch < uint64(r.inNumAvg); ch++ {
			sum += r.inCodec.decode(frame[ch*inSampleSize:])
		}
		val := sum / float64(r.inNumAvg)

		for dstIdx < maxOutFrames && r.outDistance <= r.inDistance {
			for rep := uint64(0); rep < uint64(r.outNumRepeat); rep++ {
				r.outCodec.encode(p[dstIdx*outFrameSize+rep*outSampleSize:], val)
			}
			dstIdx++
			r.outDistance += r.outDistanceStep
		}

		srcIdx++
		r.inDistance += distanceStep
	}

	return int(dstIdx * outFrameSize), err
}
