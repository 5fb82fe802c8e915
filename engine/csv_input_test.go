package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fraugster/rowstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestCSVInputFieldsFromHeader(t *testing.T) {
	path := writeCSV(t, "a;b\n1;x\n")
	step := &CSVInput{StepName: "csv", Path: path, Header: true, Delimiter: ';'}

	s, err := step.Fields(nil)
	require.NoError(t, err)
	assert.Equal(t, "schema {\n  String a (normal);\n  String b (normal);\n}\n", s.String())

	rows, err := runSteps(t, step)
	require.NoError(t, err)
	assert.Equal(t, []rowstream.Row{{"1", "x"}}, rows)
}

func TestCSVInputTypedFields(t *testing.T) {
	path := writeCSV(t, "id,price,ok\n1,2.5,yes\n2,,no\n")
	fields := []rowstream.Field{
		{Name: "id", Type: rowstream.TypeInteger},
		{Name: "price", Type: rowstream.TypeNumber},
		{Name: "ok", Type: rowstream.TypeBoolean},
	}

	rows, err := runSteps(t, &CSVInput{StepName: "csv", Path: path, Header: true, Declared: fields})
	require.NoError(t, err)
	assert.Equal(t, []rowstream.Row{
		{int64(1), 2.5, true},
		{int64(2), nil, false},
	}, rows)
}

func TestCSVInputLazy(t *testing.T) {
	path := writeCSV(t, "7,x\n")
	fields := []rowstream.Field{
		{Name: "id", Type: rowstream.TypeInteger},
		{Name: "name", Type: rowstream.TypeString},
	}
	step := &CSVInput{StepName: "csv", Path: path, Declared: fields, Lazy: true}

	s, err := step.Fields(nil)
	require.NoError(t, err)
	assert.Equal(t, rowstream.StorageBinaryString, s.Field(0).Storage)

	rows, err := runSteps(t, step)
	require.NoError(t, err)
	assert.Equal(t, []rowstream.Row{{[]byte("7"), []byte("x")}}, rows)

	v, err := rowstream.ConvertToNormal(s.Field(0), rows[0][0])
	require.NoError(t, err)
	assert.Equal(t, int64(7), v)
}

func TestCSVInputErrors(t *testing.T) {
	_, err := (&CSVInput{StepName: "csv", Path: "unused"}).Fields(nil)
	assert.Error(t, err, "no fields and no header")

	_, err = (&CSVInput{StepName: "csv", Path: filepath.Join(t.TempDir(), "missing.csv"), Header: true}).Fields(nil)
	assert.Error(t, err)

	path := writeCSV(t, "a,b\n1\n")
	_, err = runSteps(t, &CSVInput{StepName: "csv", Path: path, Header: true})
	assert.ErrorIs(t, err, rowstream.ErrFieldCount)

	path = writeCSV(t, "n\nabc\n")
	_, err = runSteps(t, &CSVInput{StepName: "csv", Path: path, Header: true, Declared: []rowstream.Field{{Name: "n", Type: rowstream.TypeInteger}}})
	assert.Error(t, err)
}

func TestCSVInputEmptyFile(t *testing.T) {
	path := writeCSV(t, "")
	rows, err := runSteps(t, &CSVInput{StepName: "csv", Path: path, Header: true, Declared: []rowstream.Field{{Name: "a", Type: rowstream.TypeString}}})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
