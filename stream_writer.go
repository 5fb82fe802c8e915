package rowstream

import (
	"bufio"
	"io"
	"sync/atomic"

	"github.com/pkg/errors"
)

const defaultBufferSize = 64 * 1024

// StreamWriter writes a row stream: the pipeline name, the step name and the
// canonical schema once, followed by any number of rows. Always use
// NewStreamWriter to create such an object.
//
// A StreamWriter is not safe for concurrent use.
type StreamWriter struct {
	w io.Writer

	codec      CompressionCodec
	bufferSize int

	frame io.WriteCloser
	buf   *bufio.Writer

	norm     *Normalization
	rowCount int64

	headerWritten bool
	sealed        bool
	err           error
}

// StreamWriterOption describes an option function that is applied to a
// StreamWriter when it is created.
type StreamWriterOption func(sw *StreamWriter)

// NewStreamWriter creates a new StreamWriter on top of w. If w is an
// io.Closer, it is closed by StreamWriter.Close.
func NewStreamWriter(w io.Writer, options ...StreamWriterOption) *StreamWriter {
	sw := &StreamWriter{
		w:          w,
		codec:      CompressionNone,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range options {
		opt(sw)
	}

	return sw
}

// WithCompression wraps the whole stream in the given compression frame.
// Readers have to be created with the same codec.
func WithCompression(codec CompressionCodec) StreamWriterOption {
	return func(sw *StreamWriter) {
		sw.codec = codec
	}
}

// WithBufferSize sets the size of the write buffer.
func WithBufferSize(size int) StreamWriterOption {
	return func(sw *StreamWriter) {
		if size > 0 {
			sw.bufferSize = size
		}
	}
}

// WriteHeader writes the pipeline name, the step name and the canonical
// schema of n. It must be called exactly once, before any row.
func (sw *StreamWriter) WriteHeader(pipelineName, stepName string, n *Normalization) error {
	if sw.sealed {
		return ErrStreamSealed
	}
	if sw.headerWritten {
		return ErrHeaderWritten
	}
	if sw.err != nil {
		return sw.err
	}

	compressor, err := getStreamCompressor(sw.codec)
	if err != nil {
		return err
	}
	frame, err := compressor.Writer(sw.w)
	if err != nil {
		return sw.fail(errors.Wrap(err, "creating compression frame failed"))
	}
	sw.frame = frame
	sw.buf = bufio.NewWriterSize(frame, sw.bufferSize)

	if err := writeText(sw.buf, pipelineName); err != nil {
		return sw.fail(errors.Wrap(err, "writing pipeline name failed"))
	}
	if err := writeText(sw.buf, stepName); err != nil {
		return sw.fail(errors.Wrap(err, "writing step name failed"))
	}
	if err := writeSchema(sw.buf, n.Canonical); err != nil {
		return sw.fail(errors.Wrap(err, "writing schema failed"))
	}

	sw.norm = n
	sw.headerWritten = true
	return nil
}

// WriteRow converts row, as emitted against schema, to its canonical form and
// encodes it. A nil schema means the source schema of the header. Conversion
// and field count errors leave the stream untouched; I/O errors are final and
// returned by every following call.
func (sw *StreamWriter) WriteRow(schema *Schema, row Row) error {
	if sw.sealed {
		return ErrStreamSealed
	}
	if !sw.headerWritten {
		return ErrHeaderNotWritten
	}
	if sw.err != nil {
		return sw.err
	}

	canonical, err := sw.norm.Apply(schema, row)
	if err != nil {
		return err
	}

	for i := range canonical {
		if err := encodeValue(sw.buf, sw.norm.Canonical.Field(i).Type, canonical[i]); err != nil {
			return sw.fail(errors.Wrapf(err, "writing field %d (%s) failed", i, sw.norm.Canonical.Field(i).Name))
		}
	}

	atomic.AddInt64(&sw.rowCount, 1)
	return nil
}

// Normalization returns the normalization the header was written with.
func (sw *StreamWriter) Normalization() *Normalization {
	return sw.norm
}

// RowCount returns the number of rows written so far.
func (sw *StreamWriter) RowCount() int64 {
	return atomic.LoadInt64(&sw.rowCount)
}

// Flush writes all buffered data to the underlying writer.
func (sw *StreamWriter) Flush() error {
	if sw.err != nil {
		return sw.err
	}
	if sw.buf == nil {
		return nil
	}
	if err := sw.buf.Flush(); err != nil {
		return sw.fail(errors.Wrap(err, "flushing stream failed"))
	}
	return nil
}

// Close seals the stream: buffered data is flushed, the compression frame is
// finished and the underlying writer is closed if it is an io.Closer. Close
// is idempotent; only the first call does any work.
func (sw *StreamWriter) Close() error {
	if sw.sealed {
		return nil
	}
	sw.sealed = true

	var firstErr error
	if sw.buf != nil && sw.err == nil {
		if err := sw.buf.Flush(); err != nil {
			firstErr = errors.Wrap(err, "flushing stream failed")
		}
	}
	if sw.frame != nil {
		if err := sw.frame.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "finishing compression frame failed")
		}
	}
	if c, ok := sw.w.(io.Closer); ok {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrap(err, "closing stream failed")
		}
	}

	if firstErr == nil {
		firstErr = sw.err
	}
	return firstErr
}

func (sw *StreamWriter) fail(err error) error {
	if sw.err == nil {
		sw.err = err
	}
	return sw.err
}

func writeSchema(w io.Writer, s *Schema) error {
	if err := writeInt32(w, int32(s.Len())); err != nil {
		return err
	}
	for i := 0; i < s.Len(); i++ {
		f := s.Field(i)
		if err := writeText(w, f.Name); err != nil {
			return err
		}
		if err := writeInt32(w, int32(f.Type)); err != nil {
			return err
		}
		if err := writeInt32(w, int32(f.Storage)); err != nil {
			return err
		}
	}
	return nil
}

func readSchema(r io.Reader) (*Schema, error) {
	n, err := readInt32(r)
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, errors.Errorf("invalid field count %d", n)
	}
	capacity := n
	if capacity > 1024 {
		capacity = 1024
	}
	s := &Schema{fields: make([]*Field, 0, capacity)}
	for i := int32(0); i < n; i++ {
		name, err := readText(r)
		if err != nil {
			return nil, mustContinue(err)
		}
		typ, err := readInt32(r)
		if err != nil {
			return nil, mustContinue(err)
		}
		storage, err := readInt32(r)
		if err != nil {
			return nil, mustContinue(err)
		}
		s.fields = append(s.fields, &Field{Name: name, Type: Type(typ), Storage: StorageForm(storage)})
	}
	return s, nil
}
