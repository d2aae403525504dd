package main

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	"github.com/xaionaro-go/speechenhance/pkg/capture"
	"github.com/xaionaro-go/speechenhance/pkg/config"
	"github.com/xaionaro-go/speechenhance/pkg/enhancement"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer/implementations/rnnoise"
	"github.com/xaionaro-go/speechenhance/pkg/enhancer/implementations/spectralgate"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
	"github.com/xaionaro-go/speechenhance/pkg/progress"
	"github.com/xaionaro-go/speechenhance/pkg/storage"
)

const (
	inputFileName    = "input.pcm"
	enhancedFileName = "enhanced.pcm"
)

type runOptions struct {
	Config    *config.Config
	InputPath string
	Play      bool
}

func run(ctx context.Context, opts runOptions) (_err error) {
	logger.Tracef(ctx, "run")
	defer func() { logger.Tracef(ctx, "/run: %v", _err) }()

	cfg := opts.Config
	e, err := newEnhancer(cfg.Model)
	if err != nil {
		return fmt.Errorf("unable to initialize the enhancer '%s': %w", cfg.Model, err)
	}
	defer func() {
		if err := e.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the enhancer: %v", err)
		}
	}()

	engine, err := enhancement.New(cfg.Enhancement(enhancement.ResolveOutputScale(0, e)), e)
	if err != nil {
		return fmt.Errorf("unable to initialize the enhancement engine: %w", err)
	}

	var input *pcm.Signal
	if opts.InputPath != "" {
		input, err = pcm.LoadFile(opts.InputPath, cfg.SampleRate)
	} else {
		input, err = record(ctx, cfg)
	}
	if err != nil {
		return err
	}

	out := newStorage(ctx, cfg)
	persist(ctx, out, inputFileName, input)

	logger.Infof(ctx, "enhancing %v of audio with '%s'", input.Duration(), cfg.Model)
	startedAt := time.Now()
	enhanced, err := engine.Process(ctx, input)
	if err != nil {
		return fmt.Errorf("unable to enhance: %w", err)
	}
	logger.Infof(ctx, "enhanced in %v", time.Since(startedAt))

	persist(ctx, out, enhancedFileName, enhanced)

	if opts.Play {
		if err := play(ctx, enhanced); err != nil {
			logger.Errorf(ctx, "unable to play the result: %v", err)
		}
	}
	return nil
}

func newEnhancer(model string) (enhancer.Enhancer, error) {
	switch model {
	case config.ModelSpectralGate:
		return spectralgate.New(spectralgate.DefaultConfig())
	case config.ModelRNNoise:
		e, err := rnnoise.New()
		if err != nil {
			return nil, err
		}
		return e, nil
	case config.ModelBypass:
		return enhancer.NewDummy(enhancement.DefaultOutputScale), nil
	default:
		return nil, fmt.Errorf("unknown model '%s'", model)
	}
}

func record(ctx context.Context, cfg *config.Config) (_ *pcm.Signal, _err error) {
	logger.Tracef(ctx, "record")
	defer func() { logger.Tracef(ctx, "/record: %v", _err) }()

	src, err := capture.OpenRecorderSource(ctx, cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := src.Close(); err != nil {
			logger.Errorf(ctx, "unable to close the recorder: %v", err)
		}
	}()

	logger.Infof(ctx, "Listening - %ds left", int(cfg.Duration.Seconds()))
	signal, err := capture.Capture(ctx, cfg.TargetLength(), src, capture.Options{
		SampleRate: cfg.SampleRate,
		Progress: progress.SinkFunc(func(ctx context.Context, tick progress.Tick) {
			logger.Infof(ctx, "Listening - %ds left", int(tick.Remaining().Seconds()))
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to record: %w", err)
	}
	logger.Debugf(ctx, "the device delivered %d bytes", src.BytesReceived())
	return signal, nil
}

func newStorage(ctx context.Context, cfg *config.Config) storage.Multi {
	var result storage.Multi
	local, err := storage.NewLocal(cfg.OutputDir)
	if err != nil {
		logger.Errorf(ctx, "%v", err)
	} else {
		result = append(result, local)
	}

	if cfg.S3Enabled() {
		s3, err := storage.NewS3(ctx, cfg.S3Config())
		if err != nil {
			logger.Errorf(ctx, "unable to initialize the S3 storage: %v", err)
		} else {
			result = append(result, s3)
		}
	}
	return result
}

// persist logs storage failures instead of returning them.
func persist(ctx context.Context, out storage.Multi, name string, signal *pcm.Signal) {
	locations, err := out.SaveAll(ctx, name, bytes.NewReader(pcm.EncodeRaw(signal.Samples)))
	if err != nil {
		logger.Errorf(ctx, "%v", err)
	}
	for _, location := range locations {
		logger.Infof(ctx, "saved %s", location)
	}
}

func play(ctx context.Context, signal *pcm.Signal) (_err error) {
	logger.Tracef(ctx, "play")
	defer func() { logger.Tracef(ctx, "/play: %v", _err) }()

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	stream, err := player.PlayPCM(
		ctx,
		signal.SampleRate,
		pcm.Channels,
		pcm.PCMFormat,
		audio.BufferSize,
		bytes.NewReader(pcm.EncodeRaw(signal.Samples)),
	)
	if err != nil {
		return fmt.Errorf("unable to start the playback: %w", err)
	}
	logger.Infof(ctx, "playing %v of audio (%T)", signal.Duration(), player.PlayerPCM)
	if err := stream.Drain(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("unable to drain the playback: %w", err)
	}
	return stream.Close()
}
