package audio

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	bytes.Buffer
	done chan struct{}
	want int
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	n, err := b.Buffer.Write(p)
	if b.Buffer.Len() >= b.want {
		select {
		case <-b.done:
		default:
			close(b.done)
		}
	}
	return n, err
}

func TestRecorderPCMFromReader(t *testing.T) {
	ctx := context.Background()
	payload := make([]byte, 10000)
	for idx := range payload {
		payload[idx] = byte(idx)
	}

	recorder := NewRecorder(NewRecorderPCMFromReader(bytes.NewReader(payload), 16000, 1, PCMFormatS16LE))
	require.NoError(t, recorder.Ping(ctx))

	out := &syncBuffer{done: make(chan struct{}), want: len(payload)}
	stream, err := recorder.RecordPCM(ctx, 16000, 1, PCMFormatS16LE, out)
	require.NoError(t, err)

	select {
	case <-out.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout")
	}
	require.NoError(t, stream.Close())
	require.Equal(t, payload, out.Bytes())
}

func TestRecorderPCMFromReaderFormatMismatch(t *testing.T) {
	recorder := NewRecorderPCMFromReader(bytes.NewReader(nil), 16000, 1, PCMFormatS16LE)
	_, err := recorder.RecordPCM(context.Background(), 48000, 2, PCMFormatFloat32LE, &bytes.Buffer{})
	require.Error(t, err)
}
