package rowstream

import (
	"fmt"
	"strings"
)

// Type is the logical type of a field. The numeric values are part of the
// stream header and must not change.
type Type int32

// Logical types known to the stream format.
const (
	TypeNone      Type = 0
	TypeNumber    Type = 1
	TypeString    Type = 2
	TypeDate      Type = 3
	TypeBoolean   Type = 4
	TypeInteger   Type = 5
	TypeBigNumber Type = 6
	TypeBinary    Type = 8
)

var typeNames = map[Type]string{
	TypeNone:      "None",
	TypeNumber:    "Number",
	TypeString:    "String",
	TypeDate:      "Date",
	TypeBoolean:   "Boolean",
	TypeInteger:   "Integer",
	TypeBigNumber: "BigNumber",
	TypeBinary:    "Binary",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("Type(%d)", int32(t))
}

// ParseType returns the type with the given (case-insensitive) name.
func ParseType(name string) (Type, error) {
	for t, n := range typeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown type %q", name)
}

// StorageForm describes how a value is held in memory while it travels
// through the pipeline.
type StorageForm int32

const (
	// StorageNormal values are directly materialized (int64, string, ...).
	StorageNormal StorageForm = 0
	// StorageBinaryString values are the raw []byte text read from the source
	// and are only parsed on demand.
	StorageBinaryString StorageForm = 1
	// StorageIndexed values are int indexes into Field.Index.
	StorageIndexed StorageForm = 2
)

func (s StorageForm) String() string {
	switch s {
	case StorageNormal:
		return "normal"
	case StorageBinaryString:
		return "binary-string"
	case StorageIndexed:
		return "indexed"
	default:
		return fmt.Sprintf("StorageForm(%d)", int32(s))
	}
}

// Field describes one position of a row.
type Field struct {
	Name    string
	Type    Type
	Storage StorageForm

	// Format is the layout used to parse lazily stored dates. An empty
	// format falls back to lenient parsing.
	Format string

	// Index holds the dictionary of normal values for indexed storage.
	Index []interface{}
}

// Clone returns a deep copy of the field, including its dictionary.
func (f *Field) Clone() *Field {
	cp := *f
	if f.Index != nil {
		cp.Index = make([]interface{}, len(f.Index))
		for i := range f.Index {
			v, err := cloneValue(f.Type, f.Index[i])
			if err != nil {
				v = f.Index[i]
			}
			cp.Index[i] = v
		}
	}
	return &cp
}

// Row is an ordered list of values aligned with the fields of a schema. A nil
// element is the null value.
type Row []interface{}

// Schema is an ordered list of field descriptors. The order is the decoding
// order on the consumer side.
type Schema struct {
	fields []*Field
}

// NewSchema creates a schema from the given fields. The fields are copied.
func NewSchema(fields ...Field) *Schema {
	s := &Schema{fields: make([]*Field, 0, len(fields))}
	for i := range fields {
		s.fields = append(s.fields, fields[i].Clone())
	}
	return s
}

// Len returns the number of fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Field returns the field at position i.
func (s *Schema) Field(i int) *Field {
	return s.fields[i]
}

// Fields returns a copy of the field descriptors.
func (s *Schema) Fields() []Field {
	out := make([]Field, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		out = append(out, *s.fields[i].Clone())
	}
	return out
}

// FieldNames returns the names of all fields in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		names = append(names, s.fields[i].Name)
	}
	return names
}

// IndexOf returns the position of the named field or -1.
func (s *Schema) IndexOf(name string) int {
	for i := 0; i < s.Len(); i++ {
		if s.fields[i].Name == name {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy of the schema.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	cp := &Schema{fields: make([]*Field, 0, len(s.fields))}
	for _, f := range s.fields {
		cp.fields = append(cp.fields, f.Clone())
	}
	return cp
}

func (s *Schema) String() string {
	buf := &strings.Builder{}
	buf.WriteString("schema {\n")
	for i := 0; i < s.Len(); i++ {
		f := s.fields[i]
		fmt.Fprintf(buf, "  %s %s (%s);\n", f.Type, f.Name, f.Storage)
	}
	buf.WriteString("}\n")
	return buf.String()
}
