package pcm

import (
	"errors"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"
	"github.com/xaionaro-go/speechenhance/pkg/audio"
)

func ReadVorbis(r io.Reader, sampleRate audio.SampleRate) (*Signal, error) {
	oggReader, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize a vorbis reader: %w", err)
	}

	channels := oggReader.Channels()
	buf := make([]float32, 4096*channels)
	var samples []float32
	for {
		n, err := oggReader.Read(buf)
		samples = append(samples, buf[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("unable to decode vorbis: %w", err)
		}
	}

	return fromFloat32(samples, audio.Channel(channels), audio.SampleRate(oggReader.SampleRate()), sampleRate)
}
