package capture

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/xaionaro-go/speechenhance/pkg/pcm"
)

// ReaderSource reads little-endian 16-bit samples from a byte stream.
type ReaderSource struct {
	Reader io.Reader

	partial    [1]byte
	hasPartial bool
	byteBuf    []byte
}

var _ SampleSource = (*ReaderSource)(nil)

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{
		Reader: r,
	}
}

func (s *ReaderSource) ReadSamples(ctx context.Context, buf []int16) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if len(buf) == 0 {
		return 0, nil
	}

	want := len(buf) * 2
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

	n, err := s.Reader.Read(raw[have:])
	have += n
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("unable to read: %w", err)
	}

	count := pcm.DecodeRawTo(buf, raw[:have])
	if have%2 != 0 {
		s.partial[0] = raw[have-1]
		s.hasPartial = true
	}
	if errors.Is(err, io.EOF) {
		return count, io.EOF
	}
	return count, nil
}
