package rowstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	for typ, name := range typeNames {
		parsed, err := ParseType(name)
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)

		parsed, err = ParseType(strings.ToLower(name))
		require.NoError(t, err)
		assert.Equal(t, typ, parsed, "lower case %s", name)
	}

	typ, err := ParseType("bignumber")
	require.NoError(t, err)
	assert.Equal(t, TypeBigNumber, typ)

	_, err = ParseType("decimal")
	assert.Error(t, err)

	assert.Equal(t, "Type(7)", Type(7).String())
	assert.Equal(t, "StorageForm(9)", StorageForm(9).String())
}

func TestSchemaAccessors(t *testing.T) {
	s := NewSchema(
		Field{Name: "id", Type: TypeInteger},
		Field{Name: "name", Type: TypeString, Storage: StorageBinaryString},
	)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"id", "name"}, s.FieldNames())
	assert.Equal(t, 1, s.IndexOf("name"))
	assert.Equal(t, -1, s.IndexOf("missing"))
	assert.Equal(t, "schema {\n  Integer id (normal);\n  String name (binary-string);\n}\n", s.String())

	var nilSchema *Schema
	assert.Equal(t, 0, nilSchema.Len())
	assert.Nil(t, nilSchema.Clone())
}

func TestSchemaCloneIsDeep(t *testing.T) {
	orig := NewSchema(Field{
		Name:    "color",
		Type:    TypeString,
		Storage: StorageIndexed,
		Index:   []interface{}{"red", "green"},
	})

	cp := orig.Clone()
	cp.Field(0).Name = "colour"
	cp.Field(0).Index[0] = "blue"

	assert.Equal(t, "color", orig.Field(0).Name)
	assert.Equal(t, []interface{}{"red", "green"}, orig.Field(0).Index)

	fields := orig.Fields()
	fields[0].Index[1] = "yellow"
	assert.Equal(t, "green", orig.Field(0).Index[1])
}

func TestNewSchemaCopiesFields(t *testing.T) {
	fields := []Field{{Name: "a", Type: TypeBinary, Storage: StorageIndexed, Index: []interface{}{[]byte("x")}}}
	s := NewSchema(fields...)

	fields[0].Index[0].([]byte)[0] = 'y'
	assert.Equal(t, []byte("x"), s.Field(0).Index[0])
}
