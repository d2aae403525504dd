package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/speechenhance/pkg/audio/types"
)

const (
	RecordBufferSize = time.Millisecond * 100
)

// RecordPCMStream reads fixed-size blocks from PortAudio (which writes them
// into InputBuffer) and forwards each block to Writer.
type RecordPCMStream struct {
	PortAudioStream *portaudio.Stream
	InputBuffer     []byte
	Writer          io.Writer
	CancelFunc      context.CancelFunc
	WaitGroup       sync.WaitGroup

	closeOnce sync.Once
	errLocker sync.Mutex
	err       error
}

func newRecordPCMStream[T int16 | int32 | float32](
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
) (*RecordPCMStream, error) {
	if binary.NativeEndian.Uint16([]byte{1, 0}) != 1 {
		return nil, fmt.Errorf("only little-endian hosts are supported")
	}
	framesPerBuffer := int(RecordBufferSize.Seconds() * float64(sampleRate))

	var sample T
	buf := make([]T, framesPerBuffer*int(channels))
	logger.Debugf(ctx, "newRecordPCMStream: %T, %d, %d %s(%d)", sample, sampleRate, channels, RecordBufferSize, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(int(channels), 0, float64(sampleRate), framesPerBuffer, buf)
	if err != nil {
		return nil, err
	}

	bytesBuf := unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(buf))), len(buf)*int(unsafe.Sizeof(sample)))
	return &RecordPCMStream{
		PortAudioStream: stream,
		InputBuffer:     bytesBuf,
	}, nil
}

func (s *RecordPCMStream) init(
	ctx context.Context,
	writer io.Writer,
) error {
	s.Writer = writer
	ctx, s.CancelFunc = context.WithCancel(ctx)

	if err := s.PortAudioStream.Start(); err != nil {
		s.CancelFunc()
		return err
	}

	s.WaitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		err := s.readerLoop(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Errorf(ctx, "the PortAudio recording failed: %v", err)
		}
		s.errLocker.Lock()
		defer s.errLocker.Unlock()
		s.err = err
	})
	return nil
}

func (s *RecordPCMStream) readerLoop(
	ctx context.Context,
) (_ret error) {
	logger.Debugf(ctx, "readerLoop")
	defer func() { logger.Debugf(ctx, "/readerLoop: %v", _ret) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := s.PortAudioStream.Read()
		switch {
		case err == nil:
		case errors.Is(err, portaudio.InputOverflowed):
			logger.Warnf(ctx, "input overflowed, some samples were lost")
		default:
			return fmt.Errorf("unable to read: %w", err)
		}

		n, err := s.Writer.Write(s.InputBuffer)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(s.InputBuffer) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(s.InputBuffer))
		}
	}
}

func (s *RecordPCMStream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.CancelFunc()
		err = s.PortAudioStream.Abort()
		s.WaitGroup.Wait()
		if closeErr := s.PortAudioStream.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	})
	return err
}
