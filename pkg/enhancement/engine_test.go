package enhancement

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer"
	"github.com/xaionaro-go/speechenhance/pkg/interpolation"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
)

func randomSignal(n int, seed int64) *pcm.Signal {
	rng := rand.New(rand.NewSource(seed))
	samples := make([]int16, n)
	for idx := range samples {
		samples[idx] = int16(rng.Intn(math.MaxUint16+1) + math.MinInt16)
	}
	return pcm.NewSignal(pcm.DefaultSampleRate, samples)
}

func smallConfig() Config {
	return Config{
		FrameLength:   16,
		HopLength:     12,
		OutputScale:   10,
		FailurePolicy: FailurePolicyAbort,
	}
}

// scriptedEnhancer calls Func with the index of the call.
type scriptedEnhancer struct {
	Length uint
	Func   func(call int, input []float32, output []float32) error
	Calls  int
	Frames [][]float32
}

var _ enhancer.Enhancer = (*scriptedEnhancer)(nil)

func (*scriptedEnhancer) Close() error        { return nil }
func (e *scriptedEnhancer) FrameLength() uint { return e.Length }
func (e *scriptedEnhancer) Enhance(_ context.Context, input []float32, output []float32) error {
	call := e.Calls
	e.Calls++
	e.Frames = append(e.Frames, append([]float32(nil), input...))
	return e.Func(call, input, output)
}

func TestIdentityRoundTrip(t *testing.T) {
	for _, cfg := range []Config{smallConfig(), DefaultConfig()} {
		for _, n := range []int{0, 1, 5, cfg.HopLength - 1, cfg.HopLength, cfg.HopLength + 1, cfg.FrameLength, 3*cfg.HopLength + 2} {
			engine, err := New(cfg, enhancer.NewDummy(10))
			require.NoError(t, err)

			in := randomSignal(n, int64(n))
			out, err := engine.Process(context.Background(), in)
			require.NoError(t, err)
			require.Equal(t, in.SampleRate, out.SampleRate)
			require.Equal(t, in.Samples, out.Samples, "W=%d H=%d N=%d", cfg.FrameLength, cfg.HopLength, n)
		}
	}
}

func TestSignalOfExactlyOneHop(t *testing.T) {
	cfg := smallConfig()
	in := randomSignal(cfg.HopLength, 1)

	// every call adds its index to the output, so the contribution of
	// each chunk is distinguishable
	e := &scriptedEnhancer{Func: func(call int, input, output []float32) error {
		for idx, v := range input {
			output[idx] = (v + float32(call)) * 10
		}
		return nil
	}}
	engine, err := New(cfg, e)
	require.NoError(t, err)

	out, err := engine.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 2, e.Calls)
	require.Equal(t, in.Samples, out.Samples, spew.Sdump(e.Frames))
}

func TestFirstFramePadIsZero(t *testing.T) {
	cfg := smallConfig()
	in := randomSignal(30, 2)
	e := &scriptedEnhancer{Func: func(_ int, input, output []float32) error {
		copy(output, input)
		return nil
	}}
	engine, err := New(cfg, e)
	require.NoError(t, err)

	_, err = engine.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 30/12+1, e.Calls)
	require.Equal(t, make([]float32, cfg.Pad()), e.Frames[0][:cfg.Pad()])
	for idx := 0; idx < cfg.Pad(); idx++ {
		require.Equal(t, float32(in.Samples[cfg.HopLength-cfg.Pad()+idx]), e.Frames[1][idx])
	}
}

func TestQuantize(t *testing.T) {
	cfg := smallConfig()
	cfg.OutputScale = 1
	values := []float32{1.9, -1.9, 0.5, -0.5, 40000, -40000, 32767.9, -32768.9, 100, -100, 7, 8}
	e := &scriptedEnhancer{Func: func(_ int, _ []float32, output []float32) error {
		copy(output[cfg.Pad():], values)
		return nil
	}}
	engine, err := New(cfg, e)
	require.NoError(t, err)

	out, err := engine.Process(context.Background(), randomSignal(12, 3))
	require.NoError(t, err)
	require.Equal(t, []int16{1, -1, 0, 0, 32767, -32768, 32767, -32768, 100, -100, 7, 8}, out.Samples)
}

func TestOutputScale(t *testing.T) {
	cfg := smallConfig()
	cfg.OutputScale = 2
	engine, err := New(cfg, enhancer.NewDummy(1))
	require.NoError(t, err)

	out, err := engine.Process(context.Background(), pcm.NewSignal(pcm.DefaultSampleRate, []int16{4, 5, -5, 1}))
	require.NoError(t, err)
	require.Equal(t, []int16{2, 2, -2, 0}, out.Samples)
}

func TestFailureAbort(t *testing.T) {
	errModel := errors.New("model crashed")
	e := &scriptedEnhancer{Func: func(call int, input, output []float32) error {
		if call == 1 {
			return errModel
		}
		copy(output, input)
		return nil
	}}
	engine, err := New(smallConfig(), e)
	require.NoError(t, err)

	out, err := engine.Process(context.Background(), randomSignal(40, 4))
	require.Nil(t, out)
	require.ErrorIs(t, err, ErrInferenceFailure)
	require.ErrorIs(t, err, errModel)
	var chunkErr *ChunkError
	require.ErrorAs(t, err, &chunkErr)
	require.Equal(t, 1, chunkErr.Chunk)
	require.Equal(t, 12, chunkErr.Cursor)
	require.Equal(t, 2, e.Calls)
}

func TestFailureSilence(t *testing.T) {
	cfg := smallConfig()
	cfg.FailurePolicy = FailurePolicySilence
	e := &scriptedEnhancer{Func: func(call int, input, output []float32) error {
		if call == 1 {
			return errors.New("model crashed")
		}
		for idx, v := range input {
			output[idx] = v * 10
		}
		return nil
	}}
	engine, err := New(cfg, e)
	require.NoError(t, err)

	in := randomSignal(40, 5)
	out, err := engine.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 40/12+1, e.Calls)

	expected := append([]int16(nil), in.Samples...)
	clear(expected[12:24])
	require.Equal(t, expected, out.Samples)
}

func TestMalformedOutput(t *testing.T) {
	for _, bad := range []float32{float32(math.NaN()), float32(math.Inf(1)), float32(math.Inf(-1))} {
		e := &scriptedEnhancer{Func: func(_ int, input, output []float32) error {
			copy(output, input)
			output[len(output)-1] = bad
			return nil
		}}
		engine, err := New(smallConfig(), e)
		require.NoError(t, err)

		_, err = engine.Process(context.Background(), randomSignal(12, 6))
		require.ErrorIs(t, err, ErrInferenceFailure)
	}
}

func TestMalformedOutputOutsideOfHopIsIgnored(t *testing.T) {
	e := &scriptedEnhancer{Func: func(_ int, input, output []float32) error {
		for idx, v := range input {
			output[idx] = v * 10
		}
		output[0] = float32(math.NaN())
		return nil
	}}
	engine, err := New(smallConfig(), e)
	require.NoError(t, err)

	in := randomSignal(20, 7)
	out, err := engine.Process(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, in.Samples, out.Samples)
}

func TestProcessCancelled(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	e := &scriptedEnhancer{Func: func(call int, input, output []float32) error {
		if call == 0 {
			cancelFn()
		}
		copy(output, input)
		return nil
	}}
	engine, err := New(smallConfig(), e)
	require.NoError(t, err)

	out, err := engine.Process(ctx, randomSignal(100, 8))
	require.ErrorIs(t, err, context.Canceled)
	require.Nil(t, out)
	require.Equal(t, 1, e.Calls)
}

func TestNewRejectsFrameLengthMismatch(t *testing.T) {
	_, err := New(DefaultConfig(), &scriptedEnhancer{Length: 480})
	require.Error(t, err)

	_, err = New(DefaultConfig(), &scriptedEnhancer{Length: 64000})
	require.NoError(t, err)

	_, err = New(DefaultConfig(), nil)
	require.Error(t, err)
}

func TestResolveOutputScale(t *testing.T) {
	require.Equal(t, 3.0, ResolveOutputScale(3, enhancer.NewDummy(10)))
	require.Equal(t, 10.0, ResolveOutputScale(0, enhancer.NewDummy(10)))
	require.Equal(t, 1.0, ResolveOutputScale(0, &scriptedEnhancer{}))
}

func TestFailureConceal(t *testing.T) {
	cfg := smallConfig()
	cfg.FailurePolicy = FailurePolicyConceal
	e := &scriptedEnhancer{Func: func(call int, input, output []float32) error {
		if call == 1 || call == 2 {
			return errors.New("model crashed")
		}
		for idx, v := range input {
			output[idx] = v * 10
		}
		return nil
	}}
	engine, err := New(cfg, e)
	require.NoError(t, err)
	engine.Interpolator = interpolation.Linear{}

	samples := make([]int16, 50)
	for idx := range samples {
		samples[idx] = int16(idx * 10)
	}
	out, err := engine.Process(context.Background(), pcm.NewSignal(pcm.DefaultSampleRate, samples))
	require.NoError(t, err)
	for idx, v := range out.Samples {
		require.InDelta(t, samples[idx], v, 1, "idx %d", idx)
	}
}

func TestFailureConcealTone(t *testing.T) {
	cfg := Config{
		FrameLength:   4096,
		HopLength:     4000,
		OutputScale:   1,
		FailurePolicy: FailurePolicyConceal,
	}
	e := &scriptedEnhancer{Func: func(call int, input, output []float32) error {
		if call == 1 {
			return errors.New("model crashed")
		}
		copy(output, input)
		return nil
	}}
	engine, err := New(cfg, e)
	require.NoError(t, err)

	samples := make([]int16, 12000)
	for idx := range samples {
		samples[idx] = int16(8000 * math.Sin(2*math.Pi*250*float64(idx)/16000))
	}
	out, err := engine.Process(context.Background(), pcm.NewSignal(pcm.DefaultSampleRate, samples))
	require.NoError(t, err)

	var energy float64
	for _, v := range out.Samples[4000:8000] {
		energy += float64(v) * float64(v)
	}
	require.Greater(t, energy, float64(0))
	require.Equal(t, samples[:4000], out.Samples[:4000])
	require.Equal(t, samples[8000:], out.Samples[8000:])
}
