// Package storage persists produced recordings: to a local directory and
// optionally to an S3-compatible bucket.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/hashicorp/go-multierror"
)

// ErrIOFailure is the error kind of every failed Save. A failed save is
// never fatal for the enhancement itself.
var ErrIOFailure = errors.New("unable to persist the data")

type Storage interface {
	// Save stores data under the given name and returns its location.
	Save(ctx context.Context, name string, data io.Reader) (location string, err error)
}

func ioFailure(format string, args ...any) error {
	return fmt.Errorf("%w: %w", ErrIOFailure, fmt.Errorf(format, args...))
}

// Multi saves to every storage in order. The data is buffered once, so
// the reader is consumed only once. Locations of successful saves are
// returned even if some of the storages failed.
type Multi []Storage

var _ Storage = (Multi)(nil)

func (m Multi) Save(ctx context.Context, name string, data io.Reader) (_ string, _err error) {
	logger.Tracef(ctx, "Multi.Save(%s)", name)
	defer func() { logger.Tracef(ctx, "/Multi.Save(%s): %v", name, _err) }()

	locations, err := m.SaveAll(ctx, name, data)
	if len(locations) == 0 {
		return "", err
	}
	return locations[0], err
}

func (m Multi) SaveAll(ctx context.Context, name string, data io.Reader) ([]string, error) {
	b, err := io.ReadAll(data)
	if err != nil {
		return nil, ioFailure("unable to read '%s': %w", name, err)
	}

	var (
		locations []string
		mErr      *multierror.Error
	)
	for _, s := range m {
		location, err := s.Save(ctx, name, newBytesReader(b))
		if err != nil {
			mErr = multierror.Append(mErr, fmt.Errorf("unable to save '%s' to %T: %w", name, s, err))
			continue
		}
		locations = append(locations, location)
	}
	return locations, mErr.ErrorOrNil()
}

func newBytesReader(b []byte) io.ReadSeeker {
	return bytes.NewReader(b)
}
