package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalSave(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewLocal(dir)
	require.NoError(t, err)

	location, err := s.Save(ctx, "enhanced.pcm", bytes.NewReader([]byte{1, 2, 3}))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "enhanced.pcm"), location)

	b, err := os.ReadFile(location)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, b)

	// overwrite
	_, err = s.Save(ctx, "enhanced.pcm", bytes.NewReader([]byte{4}))
	require.NoError(t, err)
	b, err = os.ReadFile(location)
	require.NoError(t, err)
	require.Equal(t, []byte{4}, b)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestLocalSaveInvalidName(t *testing.T) {
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "../escape.pcm", bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrIOFailure)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestLocalSaveReadFailureLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocal(dir)
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "input.pcm", failingReader{})
	require.ErrorIs(t, err, ErrIOFailure)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestS3Save(t *testing.T) {
	var (
		locker sync.Mutex
		paths  []string
		bodies []string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		locker.Lock()
		defer locker.Unlock()
		if r.Method == http.MethodPut {
			paths = append(paths, r.URL.Path)
			bodies = append(bodies, string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "recordings",
		Region:          "us-east-1",
		Prefix:          "run-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	location, err := s.Save(context.Background(), "enhanced.pcm", strings.NewReader("pcm data"))
	require.NoError(t, err)
	require.Equal(t, "s3://recordings/run-1/enhanced.pcm", location)

	locker.Lock()
	defer locker.Unlock()
	require.Len(t, paths, 1)
	require.Equal(t, "/recordings/run-1/enhanced.pcm", paths[0])
	require.Contains(t, bodies[0], "pcm data")
}

func TestS3SaveFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s, err := NewS3(context.Background(), S3Config{
		Bucket:          "recordings",
		Region:          "us-east-1",
		Endpoint:        server.URL,
		AccessKeyID:     "test-access-key",
		SecretAccessKey: "test-secret-key",
	})
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "enhanced.pcm", strings.NewReader("pcm data"))
	require.ErrorIs(t, err, ErrIOFailure)
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), S3Config{})
	require.Error(t, err)
}

func TestMulti(t *testing.T) {
	ctx := context.Background()
	dirA, dirB := t.TempDir(), t.TempDir()
	a, err := NewLocal(dirA)
	require.NoError(t, err)
	b, err := NewLocal(dirB)
	require.NoError(t, err)

	m := Multi{a, &Local{Dir: filepath.Join(dirA, "missing")}, b}
	locations, err := m.SaveAll(ctx, "input.pcm", bytes.NewReader([]byte{9, 8}))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrIOFailure)
	require.Equal(t, []string{filepath.Join(dirA, "input.pcm"), filepath.Join(dirB, "input.pcm")}, locations)

	location, err := Multi{a}.Save(ctx, "x.pcm", bytes.NewReader(nil))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dirA, "x.pcm"), location)
}
