package pcm

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xaionaro-go/speechenhance/pkg/audio"
)

type FileFormat int

const (
	FileFormatRaw = FileFormat(iota)
	FileFormatWAV
	FileFormatVorbis
)

func FileFormatFromPath(path string) FileFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return FileFormatWAV
	case ".ogg", ".oga":
		return FileFormatVorbis
	}
	return FileFormatRaw
}

// LoadFile reads a signal choosing the codec by the file extension; raw
// files are assumed to be already in sampleRate.
func LoadFile(path string, sampleRate audio.SampleRate) (*Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open '%s': %w", path, err)
	}
	defer f.Close()

	var s *Signal
	switch FileFormatFromPath(path) {
	case FileFormatWAV:
		s, err = ReadWAV(f, sampleRate)
	case FileFormatVorbis:
		s, err = ReadVorbis(f, sampleRate)
	default:
		s, err = ReadRaw(f, sampleRate)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load '%s': %w", path, err)
	}
	return s, nil
}

func SaveFile(path string, s *Signal) (_err error) {
	format := FileFormatFromPath(path)
	if format == FileFormatVorbis {
		return fmt.Errorf("writing vorbis is not supported: '%s'", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create '%s': %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close '%s': %w", path, err)
		}
	}()

	switch format {
	case FileFormatWAV:
		err = WriteWAV(f, s)
	default:
		err = WriteRaw(f, s)
	}
	if err != nil {
		return fmt.Errorf("unable to save '%s': %w", path, err)
	}
	return nil
}
