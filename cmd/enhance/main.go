package main

import (
	"context"
	"errors"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	_ "github.com/xaionaro-go/speechenhance/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/speechenhance/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/speechenhance/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/speechenhance/pkg/capture"
	"github.com/xaionaro-go/speechenhance/pkg/config"
	"github.com/xaionaro-go/speechenhance/pkg/enhancement"
	"github.com/xaionaro-go/observability"
)

const (
	exitCodeFailure           = 1
	exitCodeDeviceUnavailable = 2
	exitCodeInferenceFailure  = 3
)

func main() {
	cfg, err := config.Load(context.Background())
	assertNoError(err)

	sampleRate := uint32(cfg.SampleRate)
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	pflag.Uint32Var(&sampleRate, "sample-rate", sampleRate, "the sample rate of the processed signal")
	pflag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "how long to record")
	pflag.IntVar(&cfg.FrameLength, "frame-length", cfg.FrameLength, "the amount of samples per enhancer call")
	pflag.IntVar(&cfg.HopLength, "hop-length", cfg.HopLength, "the amount of new samples per chunk")
	pflag.Float64Var(&cfg.OutputScale, "output-scale", cfg.OutputScale, "the enhancer output is divided by this value (0 means the model default)")
	pflag.Var(&cfg.FailurePolicy, "failure-policy", "what to do if a chunk fails: abort, silence or conceal")
	pflag.StringVar(&cfg.Model, "model", cfg.Model, "the enhancer: spectralgate, rnnoise or bypass")
	pflag.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "where to put input.pcm and enhanced.pcm")
	inputPath := pflag.String("input", "", "process this file (raw s16le, .wav or .ogg) instead of recording")
	play := pflag.Bool("play", false, "play back the enhanced signal")
	netPprofAddr := pflag.String("net-pprof-listen-addr", "", "an address to listen for incoming net/pprof connections")
	pflag.Parse()
	cfg.SampleRate = audio.SampleRate(sampleRate)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelFn()

	if *netPprofAddr != "" {
		observability.Go(ctx, func(ctx context.Context) { l.Error(http.ListenAndServe(*netPprofAddr, nil)) })
	}

	if err := cfg.Validate(); err != nil {
		logger.Errorf(ctx, "%v", err)
		exit(ctx, exitCodeFailure)
	}
	logger.Debugf(ctx, "config: %s", cfg)

	startedAt := time.Now()
	err = run(ctx, runOptions{
		Config:    cfg,
		InputPath: *inputPath,
		Play:      *play,
	})
	switch {
	case err == nil:
		logger.Infof(ctx, "done in %v", time.Since(startedAt))
		belt.Flush(ctx)
	case errors.Is(err, capture.ErrDeviceUnavailable):
		logger.Errorf(ctx, "%v", err)
		exit(ctx, exitCodeDeviceUnavailable)
	case errors.Is(err, enhancement.ErrInferenceFailure):
		logger.Errorf(ctx, "%v", err)
		exit(ctx, exitCodeInferenceFailure)
	default:
		logger.Errorf(ctx, "%v", err)
		exit(ctx, exitCodeFailure)
	}
}

func exit(ctx context.Context, code int) {
	belt.Flush(ctx)
	os.Exit(code)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
