package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
	"github.com/xaionaro-go/speechenhance/pkg/progress"
)

// scriptedSource returns samples from data, at most step[i%len(step)]
// samples per call.
type scriptedSource struct {
	data  []int16
	pos   int
	steps []int
	call  int
	delay time.Duration
	err   error

	maxRequested int
}

func (s *scriptedSource) ReadSamples(ctx context.Context, buf []int16) (int, error) {
	if len(buf) > s.maxRequested {
		s.maxRequested = len(buf)
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.pos >= len(s.data) {
		if s.err != nil {
			return 0, s.err
		}
		return 0, io.EOF
	}
	step := len(buf)
	if len(s.steps) > 0 {
		step = min(step, s.steps[s.call%len(s.steps)])
	}
	s.call++
	n := copy(buf[:step], s.data[s.pos:])
	s.pos += n
	return n, nil
}

func ramp(n int) []int16 {
	result := make([]int16, n)
	for idx := range result {
		result[idx] = int16(idx*7 - 3000)
	}
	return result
}

func TestCaptureFillsExactly(t *testing.T) {
	data := ramp(10000)
	src := &scriptedSource{data: data, steps: []int{0, 1, 333, 1000, 7}}

	signal, err := Capture(context.Background(), 9000, src, Options{ReadBufferSize: 512})
	require.NoError(t, err)
	require.Equal(t, 9000, signal.Len())
	require.Equal(t, data[:9000], signal.Samples)
	require.Equal(t, pcm.DefaultSampleRate, signal.SampleRate)
	require.LessOrEqual(t, src.maxRequested, 512)
}

func TestCaptureNeverOverrequests(t *testing.T) {
	src := &scriptedSource{data: ramp(100)}
	signal, err := Capture(context.Background(), 10, src, Options{ReadBufferSize: 1024})
	require.NoError(t, err)
	require.Equal(t, 10, signal.Len())
	require.Equal(t, 10, src.maxRequested)
}

func TestCaptureZeroLength(t *testing.T) {
	signal, err := Capture(context.Background(), 0, &scriptedSource{}, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, signal.Len())
}

func TestCaptureSourceError(t *testing.T) {
	errBroken := errors.New("broken device")
	src := &scriptedSource{data: ramp(100), err: errBroken}
	signal, err := Capture(context.Background(), 200, src, Options{})
	require.ErrorIs(t, err, errBroken)
	require.Nil(t, signal)
}

func TestCaptureSourceExhausted(t *testing.T) {
	src := &scriptedSource{data: ramp(100)}
	signal, err := Capture(context.Background(), 200, src, Options{})
	require.ErrorIs(t, err, ErrSourceExhausted)
	require.Nil(t, signal)
}

type eofWithDataSource struct{}

func (eofWithDataSource) ReadSamples(_ context.Context, buf []int16) (int, error) {
	for idx := range buf {
		buf[idx] = 1
	}
	return len(buf), io.EOF
}

func TestCaptureEOFTogetherWithLastSamples(t *testing.T) {
	signal, err := Capture(context.Background(), 5, eofWithDataSource{}, Options{})
	require.NoError(t, err)
	require.Equal(t, []int16{1, 1, 1, 1, 1}, signal.Samples)
}

func TestCaptureCancelled(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()
	signal, err := Capture(ctx, 10, &scriptedSource{data: ramp(10)}, Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, signal)
}

func TestCaptureProgress(t *testing.T) {
	var (
		locker sync.Mutex
		ticks  []progress.Tick
	)
	sink := progress.SinkFunc(func(_ context.Context, tick progress.Tick) {
		locker.Lock()
		defer locker.Unlock()
		ticks = append(ticks, tick)
	})

	src := &scriptedSource{data: ramp(1600), steps: []int{16}, delay: time.Millisecond}
	signal, err := Capture(context.Background(), 1600, src, Options{
		Progress:     sink,
		TickInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Equal(t, 1600, signal.Len())

	locker.Lock()
	got := append([]progress.Tick(nil), ticks...)
	locker.Unlock()

	// the ticker is joined before Capture returns
	time.Sleep(30 * time.Millisecond)
	locker.Lock()
	assert.Equal(t, len(got), len(ticks))
	locker.Unlock()

	require.NotEmpty(t, got)
	for idx, tick := range got {
		assert.Equal(t, time.Duration(idx+1)*10*time.Millisecond, tick.Elapsed)
		assert.Equal(t, 100*time.Millisecond, tick.Total)
	}
}

func TestReaderSource(t *testing.T) {
	data := ramp(1001)
	src := NewReaderSource(&oneByteReader{r: bytes.NewReader(pcm.EncodeRaw(data))})

	signal, err := Capture(context.Background(), len(data), src, Options{})
	require.NoError(t, err)
	require.Equal(t, data, signal.Samples)
}

func TestReaderSourceExhausted(t *testing.T) {
	src := NewReaderSource(bytes.NewReader(pcm.EncodeRaw(ramp(10))))
	_, err := Capture(context.Background(), 11, src, Options{})
	require.ErrorIs(t, err, ErrSourceExhausted)
}

// oneByteReader returns at most 3 bytes per Read to exercise odd splits.
type oneByteReader struct {
	r io.Reader
}

func (r *oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 3 {
		p = p[:3]
	}
	return r.r.Read(p)
}
