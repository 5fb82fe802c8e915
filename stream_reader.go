package rowstream

import (
	"io"

	"github.com/pkg/errors"
)

// StreamReader reads a row stream written by StreamWriter.
type StreamReader struct {
	r     io.Reader
	codec CompressionCodec

	pipelineName string
	stepName     string
	schema       *Schema

	rowCount int64
}

// StreamReaderOption describes an option function that is applied to a
// StreamReader when it is created.
type StreamReaderOption func(sr *StreamReader)

// WithReaderCompression sets the compression frame the stream was written
// with.
func WithReaderCompression(codec CompressionCodec) StreamReaderOption {
	return func(sr *StreamReader) {
		sr.codec = codec
	}
}

// NewStreamReader reads the stream header from r and returns a reader
// positioned at the first row.
func NewStreamReader(r io.Reader, options ...StreamReaderOption) (*StreamReader, error) {
	sr := &StreamReader{codec: CompressionNone}
	for _, opt := range options {
		opt(sr)
	}

	compressor, err := getStreamCompressor(sr.codec)
	if err != nil {
		return nil, err
	}
	fr, err := compressor.Reader(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening compression frame failed")
	}
	sr.r = fr

	if sr.pipelineName, err = readText(sr.r); err != nil {
		return nil, errors.Wrap(mustContinue(err), "reading pipeline name failed")
	}
	if sr.stepName, err = readText(sr.r); err != nil {
		return nil, errors.Wrap(mustContinue(err), "reading step name failed")
	}
	if sr.schema, err = readSchema(sr.r); err != nil {
		return nil, errors.Wrap(mustContinue(err), "reading schema failed")
	}

	return sr, nil
}

// PipelineName returns the name of the pipeline the rows were captured from.
func (sr *StreamReader) PipelineName() string {
	return sr.pipelineName
}

// StepName returns the name of the step the rows were captured from.
func (sr *StreamReader) StepName() string {
	return sr.stepName
}

// Schema returns the schema of the rows.
func (sr *StreamReader) Schema() *Schema {
	return sr.schema
}

// RowCount returns the number of rows read so far.
func (sr *StreamReader) RowCount() int64 {
	return sr.rowCount
}

// NextRow reads the next row. It returns io.EOF at the end of the stream and
// io.ErrUnexpectedEOF if the stream ends in the middle of a row. Rows of a
// schema without fields occupy no bytes, so such a stream reads as empty.
func (sr *StreamReader) NextRow() (Row, error) {
	if sr.schema.Len() == 0 {
		return nil, io.EOF
	}
	row := make(Row, sr.schema.Len())
	for i := range row {
		v, err := decodeValue(sr.r, sr.schema.Field(i).Type)
		if err != nil {
			if i > 0 {
				err = mustContinue(err)
			}
			if err == io.EOF {
				return nil, err
			}
			return nil, errors.Wrapf(err, "reading field %d (%s) of row %d failed", i, sr.schema.Field(i).Name, sr.rowCount+1)
		}
		row[i] = v
	}
	sr.rowCount++
	return row, nil
}

// ReadAll reads all remaining rows.
func (sr *StreamReader) ReadAll() ([]Row, error) {
	var rows []Row
	for {
		row, err := sr.NextRow()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
}
