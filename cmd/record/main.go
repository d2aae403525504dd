package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	_ "github.com/xaionaro-go/speechenhance/pkg/audio/backends/portaudio"
	"github.com/xaionaro-go/speechenhance/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/speechenhance/pkg/capture"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
	"github.com/xaionaro-go/speechenhance/pkg/progress"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	sampleRate := pflag.Uint32("sample-rate", uint32(pcm.DefaultSampleRate), "")
	duration := pflag.Duration("duration", 20*time.Second, "how long to record")
	pflag.Parse()

	if pflag.NArg() != 1 {
		panic("expected exactly one positional argument: path to the output file (.wav or raw s16le)")
	}
	outputPath := pflag.Arg(0)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	logger.Infof(ctx, "starting...")
	src, err := capture.OpenRecorderSource(ctx, audio.SampleRate(*sampleRate))
	assertNoError(err)
	defer src.Close()
	logger.Infof(ctx, "recording using %T", src.Recorder)

	rate := audio.SampleRate(*sampleRate)
	recording, err := capture.Capture(ctx, rate.SamplesForDuration(*duration), src, capture.Options{
		SampleRate: rate,
		Progress: progress.SinkFunc(func(ctx context.Context, tick progress.Tick) {
			logger.Infof(ctx, "recorded %v of %v", tick.Elapsed, tick.Total)
			logger.Debugf(ctx, "received: %d", src.BytesReceived())
			if pulseStreamRecord, ok := src.Stream.(*pulseaudio.RecordStream); ok {
				logger.Debugf(ctx, "record stream status: running:%v, closed:%v, err:%v", pulseStreamRecord.Running(), pulseStreamRecord.Closed(), pulseStreamRecord.Error())
			}
		}),
	})
	assertNoError(err)

	assertNoError(pcm.SaveFile(outputPath, recording))
	logger.Infof(ctx, "saved %v of audio to '%s'", recording.Duration(), outputPath)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
