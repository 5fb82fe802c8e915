package engine

import (
	"context"

	"github.com/fraugster/rowstream"
	"github.com/pkg/errors"
)

// RowsInput emits a fixed list of rows. Each copy emits all of them.
type RowsInput struct {
	StepName string
	Schema   *rowstream.Schema
	Rows     []rowstream.Row
}

// Name implements Step.
func (s *RowsInput) Name() string { return s.StepName }

// Fields implements Step.
func (s *RowsInput) Fields(*rowstream.Schema) (*rowstream.Schema, error) {
	if s.Schema == nil {
		return nil, errors.New("rows input has no schema")
	}
	return s.Schema.Clone(), nil
}

// Run implements Step.
func (s *RowsInput) Run(ctx context.Context, _ <-chan rowstream.Row, out Emitter) error {
	for i, row := range s.Rows {
		if len(row) != s.Schema.Len() {
			return errors.Wrapf(rowstream.ErrFieldCount, "row %d has %d values, schema has %d fields", i+1, len(row), s.Schema.Len())
		}
		cp := make(rowstream.Row, len(row))
		copy(cp, row)
		if err := out.Emit(ctx, cp); err != nil {
			return err
		}
	}
	return nil
}

// Dummy passes its input through unchanged.
type Dummy struct {
	StepName string
}

// Name implements Step.
func (s *Dummy) Name() string { return s.StepName }

// Fields implements Step.
func (s *Dummy) Fields(input *rowstream.Schema) (*rowstream.Schema, error) {
	if input == nil {
		return nil, errors.New("dummy step needs an input step")
	}
	return input.Clone(), nil
}

// Run implements Step.
func (s *Dummy) Run(ctx context.Context, in <-chan rowstream.Row, out Emitter) error {
	return Each(ctx, in, func(row rowstream.Row) error {
		return out.Emit(ctx, row)
	})
}

// Intern replaces the values of string fields by their position in a fixed
// dictionary, switching the fields to indexed storage.
type Intern struct {
	StepName string
	// Dictionaries maps field names to their dictionary.
	Dictionaries map[string][]string

	// input is resolved by Fields, which the pipeline calls before Run.
	input *rowstream.Schema
}

// Name implements Step.
func (s *Intern) Name() string { return s.StepName }

// Fields implements Step.
func (s *Intern) Fields(input *rowstream.Schema) (*rowstream.Schema, error) {
	if input == nil {
		return nil, errors.New("intern step needs an input step")
	}
	s.input = input.Clone()
	fields := input.Fields()
	for name, dict := range s.Dictionaries {
		idx := input.IndexOf(name)
		if idx < 0 {
			return nil, errors.Errorf("unknown field %q", name)
		}
		if fields[idx].Type != rowstream.TypeString {
			return nil, errors.Errorf("field %q is of type %s, only strings can be interned", name, fields[idx].Type)
		}
		fields[idx].Storage = rowstream.StorageIndexed
		fields[idx].Format = ""
		fields[idx].Index = make([]interface{}, len(dict))
		for i := range dict {
			fields[idx].Index[i] = dict[i]
		}
	}
	return rowstream.NewSchema(fields...), nil
}

// Run implements Step.
func (s *Intern) Run(ctx context.Context, in <-chan rowstream.Row, out Emitter) error {
	if s.input == nil {
		return errors.New("intern step fields have not been resolved")
	}

	lookups := make(map[int]map[string]int, len(s.Dictionaries))
	for name, dict := range s.Dictionaries {
		m := make(map[string]int, len(dict))
		for i, v := range dict {
			m[v] = i
		}
		lookups[s.input.IndexOf(name)] = m
	}

	return Each(ctx, in, func(row rowstream.Row) error {
		if len(row) != s.input.Len() {
			return errors.Wrapf(rowstream.ErrFieldCount, "row has %d values, input has %d fields", len(row), s.input.Len())
		}
		cp := make(rowstream.Row, len(row))
		copy(cp, row)
		for idx, m := range lookups {
			if cp[idx] == nil {
				continue
			}
			v, err := rowstream.ConvertToNormal(s.input.Field(idx), cp[idx])
			if err != nil {
				return errors.Wrapf(err, "field %q", s.input.Field(idx).Name)
			}
			str, ok := v.(string)
			if !ok {
				return errors.Errorf("field %q: expected a string, got %T", s.input.Field(idx).Name, v)
			}
			pos, ok := m[str]
			if !ok {
				return errors.Errorf("value %q of field %q is not in the dictionary", str, s.input.Field(idx).Name)
			}
			cp[idx] = pos
		}
		return out.Emit(ctx, cp)
	})
}
