package main

import (
	"bytes"
	"context"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
	_ "github.com/xaionaro-go/speechenhance/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/speechenhance/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/speechenhance/pkg/pcm"
)

func main() {
	loggerLevel := logger.LevelDebug
	pflag.Var(&loggerLevel, "log-level", "Log level")
	sampleRate := pflag.Uint32("sample-rate", uint32(pcm.DefaultSampleRate), "the sample rate of raw files; other files are resampled to it")
	pflag.Parse()

	if pflag.NArg() != 1 {
		panic("expected exactly one positional argument: path to the file (raw s16le mono, .wav or .ogg)")
	}
	filePath := pflag.Arg(0)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	logger.Infof(ctx, "starting...")
	signal, err := pcm.LoadFile(filePath, audio.SampleRate(*sampleRate))
	assertNoError(err)

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()
	logger.Tracef(ctx, "player.PlayPCM")
	streamPlay, err := player.PlayPCM(
		ctx,
		signal.SampleRate,
		pcm.Channels,
		pcm.PCMFormat,
		audio.BufferSize,
		bytes.NewReader(pcm.EncodeRaw(signal.Samples)),
	)
	logger.Tracef(ctx, "/player.PlayPCM: %v", err)
	assertNoError(err)
	logger.Infof(ctx, "started (%v of audio -> %T)", signal.Duration(), player.PlayerPCM)
	assertNoError(streamPlay.Drain())
	assertNoError(streamPlay.Close())
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
