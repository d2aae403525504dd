package progress

import (
	"context"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"
)

type Tick struct {
	Elapsed time.Duration
	Total   time.Duration
}

func (t Tick) Remaining() time.Duration {
	if t.Elapsed >= t.Total {
		return 0
	}
	return t.Total - t.Elapsed
}

type Sink interface {
	OnTick(context.Context, Tick)
}

type SinkFunc func(context.Context, Tick)

func (fn SinkFunc) OnTick(ctx context.Context, tick Tick) {
	fn(ctx, tick)
}

// Ticker calls a Sink once per interval on its own goroutine until stopped.
// Elapsed is counted in whole intervals, not in wall-clock time.
type Ticker struct {
	cancelFunc context.CancelFunc
	waitGroup  sync.WaitGroup
	stopOnce   sync.Once
}

func Start(
	ctx context.Context,
	interval time.Duration,
	total time.Duration,
	sink Sink,
) *Ticker {
	ctx, cancelFn := context.WithCancel(ctx)
	t := &Ticker{
		cancelFunc: cancelFn,
	}
	t.waitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer t.waitGroup.Done()
		t.loop(ctx, interval, total, sink)
	})
	return t
}

func (t *Ticker) loop(
	ctx context.Context,
	interval time.Duration,
	total time.Duration,
	sink Sink,
) {
	logger.Tracef(ctx, "progress loop")
	defer logger.Tracef(ctx, "/progress loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var ticks int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		ticks++
		sink.OnTick(ctx, Tick{
			Elapsed: time.Duration(ticks) * interval,
			Total:   total,
		})
	}
}

// Stop cancels the ticker and waits for the pending OnTick call (if any)
// to return. It is safe to call multiple times.
func (t *Ticker) Stop() {
	t.stopOnce.Do(func() {
		t.cancelFunc()
	})
	t.waitGroup.Wait()
}
