package rowstream

import (
	"github.com/pkg/errors"
)

// Normalization is the result of inspecting a source schema once before any
// row flows. It is immutable after Normalize returns.
type Normalization struct {
	// Source is the schema the pipeline step emits.
	Source *Schema
	// Canonical has the same fields in the same order, all of them in
	// StorageNormal form.
	Canonical *Schema
	// ConversionRequired is true if at least one source field is not
	// stored in normal form.
	ConversionRequired bool
}

// Normalize derives the canonical schema of source and decides whether rows
// need to be converted before they can be encoded.
func Normalize(source *Schema) *Normalization {
	n := &Normalization{
		Source:    source.Clone(),
		Canonical: &Schema{fields: make([]*Field, 0, source.Len())},
	}
	if n.Source == nil {
		n.Source = &Schema{}
	}

	for i := 0; i < source.Len(); i++ {
		f := source.Field(i).Clone()
		if f.Storage != StorageNormal {
			n.ConversionRequired = true
			f.Storage = StorageNormal
			f.Index = nil
		}
		n.Canonical.fields = append(n.Canonical.fields, f)
	}

	return n
}

// Apply returns a copy of row in canonical form. The value data is copied so
// that later changes made by the pipeline can't affect the result. The schema
// is the one delivered together with the row; if it is nil the source schema
// is used instead.
func (n *Normalization) Apply(schema *Schema, row Row) (Row, error) {
	if schema == nil {
		schema = n.Source
	}
	if len(row) != n.Canonical.Len() {
		return nil, errors.Wrapf(ErrFieldCount, "row has %d values, schema has %d fields", len(row), n.Canonical.Len())
	}
	if schema.Len() != n.Canonical.Len() {
		return nil, errors.Wrapf(ErrFieldCount, "row schema has %d fields, canonical schema has %d", schema.Len(), n.Canonical.Len())
	}

	out := make(Row, len(row))
	for i := range row {
		f := schema.Field(i)
		var (
			v   interface{}
			err error
		)
		if n.ConversionRequired && f.Storage != StorageNormal {
			v, err = ConvertToNormal(f, row[i])
		} else {
			v, err = cloneValue(f.Type, row[i])
		}
		if err != nil {
			return nil, errors.Wrapf(err, "field %d (%s)", i, f.Name)
		}
		out[i] = v
	}

	return out, nil
}

// ConvertToNormal materializes a lazily stored value of field f.
func ConvertToNormal(f *Field, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}

	switch f.Storage {
	case StorageNormal:
		return cloneValue(f.Type, v)
	case StorageBinaryString:
		text, ok := v.([]byte)
		if !ok {
			return nil, errors.Errorf("binary string storage expects []byte, got %T", v)
		}
		return codecFor(f.Type).parseText(text, f)
	case StorageIndexed:
		idx, ok := indexOf(v)
		if !ok {
			return nil, errors.Errorf("indexed storage expects an integer index, got %T", v)
		}
		if idx < 0 || idx >= len(f.Index) {
			return nil, errors.Errorf("index %d out of range, dictionary has %d entries", idx, len(f.Index))
		}
		return cloneValue(f.Type, f.Index[idx])
	default:
		return nil, errors.Errorf("unknown storage form %s", f.Storage)
	}
}

func indexOf(v interface{}) (int, bool) {
	switch i := v.(type) {
	case int:
		return i, true
	case int32:
		return int(i), true
	case int64:
		return int(i), true
	default:
		return 0, false
	}
}
