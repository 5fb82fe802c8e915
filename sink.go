package rowstream

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Sink is the byte stream a bridge run writes to.
type Sink interface {
	io.WriteCloser
	// Location returns the address of the stream, e.g. a file path.
	Location() string
}

// SinkProvider provisions a new, uniquely named sink for each run.
type SinkProvider interface {
	Create() (Sink, error)
}

// Defaults used by TempFileProvider.
const (
	DefaultTempPrefix = "rowstream-"
	DefaultTempSuffix = ".rowstream"
)

// TempFileProvider creates sinks as new files in a temporary directory.
// Removing the files is up to the caller.
type TempFileProvider struct {
	// Dir defaults to os.TempDir().
	Dir    string
	Prefix string
	Suffix string
}

// Create creates a new file named <prefix><uuid><suffix>.
func (p TempFileProvider) Create() (Sink, error) {
	dir := p.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	prefix := p.Prefix
	if prefix == "" {
		prefix = DefaultTempPrefix
	}
	suffix := p.Suffix
	if suffix == "" {
		suffix = DefaultTempSuffix
	}

	name := filepath.Join(dir, prefix+uuid.New().String()+suffix)
	f, err := os.OpenFile(name, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "creating temp file failed")
	}
	return &fileSink{File: f}, nil
}

type fileSink struct {
	*os.File
}

func (s *fileSink) Location() string {
	return s.File.Name()
}
