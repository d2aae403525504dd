package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/iamcalledrob/circular"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
)

const (
	DefaultRingBufferDuration = 10 * time.Second
	DefaultNoDataTimeout      = 5 * time.Second

	maxRingWriteSize = 1 << 14
)

// RecorderSource adapts a push-style audio recorder into a SampleSource.
// The recorder writes into a bounded ring buffer and waits when the ring is
// full; ReadSamples drains it.
type RecorderSource struct {
	Recorder audio.RecorderPCM
	Stream   audio.RecordStream

	// NoDataTimeout limits how long ReadSamples waits for the device to
	// deliver anything before it gives up.
	NoDataTimeout time.Duration

	ringLocker    sync.Mutex
	ring          *circular.Buffer
	writtenCh     chan struct{}
	readCh        chan struct{}
	byteBuf       []byte
	partial       [1]byte
	hasPartial    bool
	counter       *datacounter.WriterCounter
	cancelFunc    context.CancelFunc
	closeOnce     sync.Once
	closeErr      error
	closeRecorder bool
}

var _ SampleSource = (*RecorderSource)(nil)

// OpenRecorderSource picks the best available recorder backend and starts
// a mono S16LE stream at the given sample rate.
func OpenRecorderSource(
	ctx context.Context,
	sampleRate audio.SampleRate,
) (_ret *RecorderSource, _err error) {
	logger.Tracef(ctx, "OpenRecorderSource(%d)", sampleRate)
	defer func() { logger.Tracef(ctx, "/OpenRecorderSource(%d): %v", sampleRate, _err) }()

	recorder, err := audio.NewRecorderAuto(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	ringBufferSize := audio.EncodingPCM{
		PCMFormat:  pcm.PCMFormat,
		SampleRate: sampleRate,
	}.BytesForDuration(DefaultRingBufferDuration)
	s, err := NewRecorderSource(ctx, recorder, sampleRate, uint(ringBufferSize))
	if err != nil {
		_ = recorder.Close()
		return nil, err
	}
	s.closeRecorder = true
	return s, nil
}

// NewRecorderSource starts a mono S16LE stream on the given recorder. The
// recorder is not closed by Close unless it was opened by OpenRecorderSource.
func NewRecorderSource(
	ctx context.Context,
	recorder audio.RecorderPCM,
	sampleRate audio.SampleRate,
	ringBufferSize uint,
) (_ret *RecorderSource, _err error) {
	if ringBufferSize < 2 {
		return nil, fmt.Errorf("the ring buffer is too small: %d", ringBufferSize)
	}

	ctx, cancelFn := context.WithCancel(ctx)
	s := &RecorderSource{
		Recorder:      recorder,
		NoDataTimeout: DefaultNoDataTimeout,
		ring:          circular.NewBuffer(int(ringBufferSize)),
		writtenCh:     make(chan struct{}),
		readCh:        make(chan struct{}),
		cancelFunc:    cancelFn,
	}
	s.counter = datacounter.NewWriterCounter(&ringWriter{
		ctx:    ctx,
		source: s,
		chunk:  max(1, min(maxRingWriteSize, int(ringBufferSize)/2)),
	})

	stream, err := recorder.RecordPCM(ctx, sampleRate, pcm.Channels, pcm.PCMFormat, s.counter)
	if err != nil {
		cancelFn()
		return nil, fmt.Errorf("%w: unable to start recording: %w", ErrDeviceUnavailable, err)
	}
	s.Stream = stream
	return s, nil
}

// BytesReceived returns the amount of bytes the device has delivered so far.
func (s *RecorderSource) BytesReceived() uint64 {
	return s.counter.Count()
}

func (s *RecorderSource) ReadSamples(
	ctx context.Context,
	buf []int16,
) (_ret int, _err error) {
	logger.Tracef(ctx, "ReadSamples(%d)", len(buf))
	defer func() { logger.Tracef(ctx, "/ReadSamples(%d): %d %v", len(buf), _ret, _err) }()

	if len(buf) == 0 {
		return 0, nil
	}

	want := len(buf) * 2
	s.ringLocker.Lock()
	defer s.ringLocker.Unlock()

	if cap(s.byteBuf) < want {
		s.byteBuf = make([]byte, want)
	}
	raw := s.byteBuf[:want]
	have := 0
	if s.hasPartial {
		raw[0] = s.partial[0]
		have = 1
		s.hasPartial = false
	}

	for {
		n, err := s.ring.Read(raw[have:])
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("unable to read from the ring buffer: %w", err)
		}
		if n < 0 {
			return 0, fmt.Errorf("received a negative count: %d", n)
		}
		have += n
		if n > 0 {
			var oldCh chan struct{}
			oldCh, s.readCh = s.readCh, make(chan struct{})
			close(oldCh)
		}
		if have >= 2 {
			break
		}
		if err := s.waitForWritten(ctx); err != nil {
			if have > 0 {
				s.partial[0] = raw[0]
				s.hasPartial = true
			}
			return 0, err
		}
	}

	count := pcm.DecodeRawTo(buf, raw[:have])
	if have%2 != 0 {
		s.partial[0] = raw[have-1]
		s.hasPartial = true
	}
	return count, nil
}

func (s *RecorderSource) waitForWritten(ctx context.Context) error {
	logger.Tracef(ctx, "waitForWritten")
	defer logger.Tracef(ctx, "/waitForWritten")

	ch := s.writtenCh
	s.ringLocker.Unlock()
	defer s.ringLocker.Lock()

	timeout := s.NoDataTimeout
	if timeout <= 0 {
		timeout = DefaultNoDataTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("%w: no samples received for %v", ErrDeviceUnavailable, timeout)
	case <-ch:
		return nil
	}
}

func (s *RecorderSource) Close() error {
	s.closeOnce.Do(func() {
		s.cancelFunc()
		var errs []error
		if s.Stream != nil {
			if err := s.Stream.Close(); err != nil {
				errs = append(errs, fmt.Errorf("unable to close the stream: %w", err))
			}
		}
		if s.closeRecorder {
			if err := s.Recorder.Close(); err != nil {
				errs = append(errs, fmt.Errorf("unable to close the recorder: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

type ringWriter struct {
	ctx    context.Context
	source *RecorderSource
	chunk  int
}

func (w *ringWriter) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		end := min(written+w.chunk, len(p))
		if err := w.writeChunk(p[written:end]); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

func (w *ringWriter) writeChunk(p []byte) error {
	s := w.source
	s.ringLocker.Lock()
	defer s.ringLocker.Unlock()
	for {
		if err := w.ctx.Err(); err != nil {
			return err
		}
		// on ErrNoSpace the ring still keeps the first n bytes, so only
		// the rest may be retried
		n, err := s.ring.Write(p)
		if n < 0 || n > len(p) {
			return fmt.Errorf("wrote an invalid amount of bytes: %d (of %d)", n, len(p))
		}
		p = p[n:]
		if n > 0 {
			w.notifyWritten()
		}
		switch {
		case err == nil:
			if len(p) != 0 {
				return fmt.Errorf("wrote != received: %d bytes left", len(p))
			}
			return nil
		case errors.Is(err, circular.ErrNoSpace):
			w.waitForRead()
		default:
			return fmt.Errorf("unable to write to the ring buffer: %w", err)
		}
	}
}

func (w *ringWriter) notifyWritten() {
	s := w.source
	var oldCh chan struct{}
	oldCh, s.writtenCh = s.writtenCh, make(chan struct{})
	close(oldCh)
}

func (w *ringWriter) waitForRead() {
	s := w.source
	ch := s.readCh
	s.ringLocker.Unlock()
	defer s.ringLocker.Lock()
	select {
	case <-w.ctx.Done():
	case <-ch:
	}
}
