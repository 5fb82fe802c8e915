package rowstream

import (
	"compress/gzip"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// CompressionCodec selects an optional compression frame around the whole
// stream. CompressionNone produces the raw wire format.
type CompressionCodec int

// Supported compression codecs.
const (
	CompressionNone CompressionCodec = iota
	CompressionSnappy
	CompressionGzip
)

var codecNames = map[CompressionCodec]string{
	CompressionNone:   "none",
	CompressionSnappy: "snappy",
	CompressionGzip:   "gzip",
}

func (c CompressionCodec) String() string {
	if n, ok := codecNames[c]; ok {
		return n
	}
	return fmt.Sprintf("CompressionCodec(%d)", int(c))
}

// ParseCompressionCodec looks up a codec by name.
func ParseCompressionCodec(name string) (CompressionCodec, error) {
	for c, n := range codecNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return CompressionNone, errors.Errorf("unsupported compression codec %q", name)
}

// CompressionCodecNames returns the sorted names of all known codecs.
func CompressionCodecNames() []string {
	l := make([]string, 0, len(codecNames))
	for _, n := range codecNames {
		l = append(l, n)
	}
	sort.Strings(l)
	return l
}

var (
	compressors    = make(map[CompressionCodec]StreamCompressor)
	compressorLock sync.RWMutex
)

// StreamCompressor wraps a whole stream. Closing the writer it returns
// finishes the compression frame but must not close the underlying writer.
type (
	StreamCompressor interface {
		Writer(w io.Writer) (io.WriteCloser, error)
		Reader(r io.Reader) (io.Reader, error)
	}

	plainCompressor  struct{}
	snappyCompressor struct{}
	gzipCompressor   struct{}
)

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

func (plainCompressor) Writer(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (plainCompressor) Reader(r io.Reader) (io.Reader, error) {
	return r, nil
}

func (snappyCompressor) Writer(w io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(w), nil
}

func (snappyCompressor) Reader(r io.Reader) (io.Reader, error) {
	return snappy.NewReader(r), nil
}

func (gzipCompressor) Writer(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCompressor) Reader(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

// RegisterStreamCompressor can plug a new kind of stream compressor into the
// library.
func RegisterStreamCompressor(method CompressionCodec, compressor StreamCompressor) {
	compressorLock.Lock()
	defer compressorLock.Unlock()

	compressors[method] = compressor
}

func getStreamCompressor(method CompressionCodec) (StreamCompressor, error) {
	compressorLock.RLock()
	defer compressorLock.RUnlock()

	c, ok := compressors[method]
	if !ok {
		return nil, errors.Errorf("the codec %q is not implemented", method)
	}
	return c, nil
}

func init() {
	RegisterStreamCompressor(CompressionNone, plainCompressor{})
	RegisterStreamCompressor(CompressionSnappy, snappyCompressor{})
	RegisterStreamCompressor(CompressionGzip, gzipCompressor{})
}
