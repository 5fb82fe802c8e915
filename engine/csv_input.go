package engine

import (
	"context"
	"encoding/csv"
	"io"
	"os"

	"github.com/fraugster/rowstream"
	"github.com/pkg/errors"
)

// CSVInput reads rows from a CSV file. With Lazy set, the values are emitted
// as the raw text bytes in binary string storage and only parsed by whoever
// needs the materialized value; otherwise they are parsed right away.
type CSVInput struct {
	StepName string
	Path     string
	// Delimiter defaults to ','.
	Delimiter rune
	// Header tells whether the first record holds the field names.
	Header bool
	// Declared lists names, types and date layouts. Without it, all
	// fields are strings named after the header.
	Declared []rowstream.Field
	Lazy     bool
}

// Name implements Step.
func (s *CSVInput) Name() string { return s.StepName }

// Fields implements Step.
func (s *CSVInput) Fields(*rowstream.Schema) (*rowstream.Schema, error) {
	fields := make([]rowstream.Field, 0, len(s.Declared))
	if len(s.Declared) > 0 {
		for _, f := range s.Declared {
			f.Index = nil
			fields = append(fields, f)
		}
	} else {
		if !s.Header {
			return nil, errors.New("csv input needs either declared fields or a header")
		}
		header, err := s.readHeader()
		if err != nil {
			return nil, err
		}
		for _, name := range header {
			fields = append(fields, rowstream.Field{Name: name, Type: rowstream.TypeString})
		}
	}

	for i := range fields {
		if s.Lazy {
			fields[i].Storage = rowstream.StorageBinaryString
		} else {
			fields[i].Storage = rowstream.StorageNormal
		}
	}
	return rowstream.NewSchema(fields...), nil
}

// Run implements Step.
func (s *CSVInput) Run(ctx context.Context, _ <-chan rowstream.Row, out Emitter) error {
	schema, err := s.Fields(nil)
	if err != nil {
		return err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return errors.Wrap(err, "opening csv file failed")
	}
	defer f.Close()

	r := s.newReader(f)
	if s.Header {
		if _, err := r.Read(); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, "reading csv header failed")
		}
	}

	lazy := make([]*rowstream.Field, schema.Len())
	for i := range lazy {
		fld := *schema.Field(i)
		fld.Storage = rowstream.StorageBinaryString
		lazy[i] = &fld
	}

	for recordIndex := 1; ; recordIndex++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		record, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "reading csv record %d failed", recordIndex)
		}
		if len(record) != schema.Len() {
			return errors.Wrapf(rowstream.ErrFieldCount, "csv record %d has %d fields instead of the expected %d", recordIndex, len(record), schema.Len())
		}

		row := make(rowstream.Row, len(record))
		for i := range record {
			text := []byte(record[i])
			if s.Lazy {
				row[i] = text
				continue
			}
			v, err := rowstream.ConvertToNormal(lazy[i], text)
			if err != nil {
				return errors.Wrapf(err, "in csv record %d, field %s", recordIndex, lazy[i].Name)
			}
			row[i] = v
		}

		if err := out.Emit(ctx, row); err != nil {
			return err
		}
	}
}

func (s *CSVInput) newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	if s.Delimiter != 0 {
		cr.Comma = s.Delimiter
	}
	cr.FieldsPerRecord = -1
	return cr
}

func (s *CSVInput) readHeader() ([]string, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, errors.Wrap(err, "opening csv file failed")
	}
	defer f.Close()

	header, err := s.newReader(f).Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading csv header failed")
	}
	return header, nil
}
