package pcm

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/xaionaro-go/speechenhance/pkg/audio"
)

func EncodeRaw(samples []int16) []byte {
	result := make([]byte, len(samples)*2)
	for idx, v := range samples {
		binary.LittleEndian.PutUint16(result[idx*2:], uint16(v))
	}
	return result
}

func DecodeRaw(b []byte) ([]int16, error) {
	if len(b)%2 != 0 {
		return nil, fmt.Errorf("the length of raw s16le data must be even, but it is %d", len(b))
	}
	result := make([]int16, len(b)/2)
	DecodeRawTo(result, b)
	return result, nil
}

// DecodeRawTo decodes min(len(dst), len(b)/2) samples into dst and returns
// the amount of decoded samples. A trailing odd byte is ignored.
func DecodeRawTo(dst []int16, b []byte) int {
	count := min(len(dst), len(b)/2)
	for idx := 0; idx < count; idx++ {
		dst[idx] = int16(binary.LittleEndian.Uint16(b[idx*2:]))
	}
	return count
}

// WriteRaw writes headerless little-endian 16-bit samples.
func WriteRaw(w io.Writer, s *Signal) error {
	b := EncodeRaw(s.Samples)
	n, err := w.Write(b)
	if err != nil {
		return fmt.Errorf("unable to write %d bytes: %w", len(b), err)
	}
	if n != len(b) {
		return fmt.Errorf("short write: %d != %d", n, len(b))
	}
	return nil
}

func ReadRaw(r io.Reader, sampleRate audio.SampleRate) (*Signal, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("unable to read: %w", err)
	}
	samples, err := DecodeRaw(b)
	if err != nil {
		return nil, err
	}
	return NewSignal(sampleRate, samples), nil
}
