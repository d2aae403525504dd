package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
)

// RecorderPCMFromReader is a "recorder" that replays already-encoded PCM
// from a reader (a pipe, a file, a test fixture) as if it was captured.
type RecorderPCMFromReader struct {
	Reader     io.Reader
	SampleRate SampleRate
	Channels   Channel
	PCMFormat  PCMFormat
	ChunkSize  uint
}

var _ RecorderPCM = (*RecorderPCMFromReader)(nil)

func NewRecorderPCMFromReader(
	reader io.Reader,
	sampleRate SampleRate,
	channels Channel,
	pcmFormat PCMFormat,
) *RecorderPCMFromReader {
	return &RecorderPCMFromReader{
		Reader:     reader,
		SampleRate: sampleRate,
		Channels:   channels,
		PCMFormat:  pcmFormat,
		ChunkSize:  4096,
	}
}

func (*RecorderPCMFromReader) Close() error {
	return nil
}

func (r *RecorderPCMFromReader) Ping(context.Context) error {
	if r.Reader == nil {
		return fmt.Errorf("no reader is set")
	}
	return nil
}

func (r *RecorderPCMFromReader) RecordPCM(
	ctx context.Context,
	sampleRate SampleRate,
	channels Channel,
	format PCMFormat,
	writer io.Writer,
) (RecordStream, error) {
	if sampleRate != r.SampleRate || channels != r.Channels || format != r.PCMFormat {
		return nil, fmt.Errorf(
			"the reader provides %d Hz %d ch %s, but requested %d Hz %d ch %s",
			r.SampleRate, r.Channels, r.PCMFormat,
			sampleRate, channels, format,
		)
	}

	ctx, cancelFn := context.WithCancel(ctx)
	s := &recordStreamFromReader{
		cancelFunc: cancelFn,
	}
	s.waitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.waitGroup.Done()
		err := r.copyLoop(ctx, writer)
		logger.Debugf(ctx, "/copyLoop: %v", err)
		s.locker.Lock()
		defer s.locker.Unlock()
		s.err = err
	})
	return s, nil
}

func (r *RecorderPCMFromReader) copyLoop(ctx context.Context, writer io.Writer) error {
	chunkSize := r.ChunkSize
	if chunkSize == 0 {
		chunkSize = 4096
	}
	buf := make([]byte, chunkSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n, err := r.Reader.Read(buf)
		if n > 0 {
			if _, wErr := writer.Write(buf[:n]); wErr != nil {
				return fmt.Errorf("unable to write: %w", wErr)
			}
		}
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return fmt.Errorf("unable to read: %w", err)
		}
	}
}

type recordStreamFromReader struct {
	locker     sync.Mutex
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
	err        error
}

func (s *recordStreamFromReader) Close() error {
	s.cancelFunc()
	s.waitGroup.Wait()
	s.locker.Lock()
	defer s.locker.Unlock()
	if errors.Is(s.err, context.Canceled) {
		return nil
	}
	return s.err
}
