package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/facebookincubator/go-belt/tool/logger"
)

// Local writes files into a directory. A file appears under its final
// name only after it was completely written.
type Local struct {
	Dir string
}

var _ Storage = (*Local)(nil)

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, ioFailure("unable to create directory '%s': %w", dir, err)
	}
	return &Local{Dir: dir}, nil
}

func (s *Local) Save(ctx context.Context, name string, data io.Reader) (_ string, _err error) {
	logger.Tracef(ctx, "Local.Save(%s)", name)
	defer func() { logger.Tracef(ctx, "/Local.Save(%s): %v", name, _err) }()

	if err := ctx.Err(); err != nil {
		return "", ioFailure("unable to save '%s': %w", name, err)
	}
	if name == "" || filepath.Base(name) != name {
		return "", ioFailure("invalid file name '%s'", name)
	}

	f, err := os.CreateTemp(s.Dir, "."+name+".*")
	if err != nil {
		return "", ioFailure("unable to create a temporary file: %w", err)
	}
	tmpPath := f.Name()

	n, err := io.Copy(f, data)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return "", ioFailure("unable to write '%s': %w", tmpPath, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return "", ioFailure("unable to close '%s': %w", tmpPath, err)
	}

	path := filepath.Join(s.Dir, name)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return "", ioFailure("unable to rename '%s' to '%s': %w", tmpPath, path, err)
	}
	logger.Debugf(ctx, "saved %d bytes to '%s'", n, path)
	return path, nil
}
