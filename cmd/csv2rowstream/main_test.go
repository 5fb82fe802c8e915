package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fraugster/rowstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTypeHints(t *testing.T) {
	tests := map[string]struct {
		Input          string
		ExpectedOutput map[string]rowstream.Type
		ExpectErr      bool
	}{
		"simple": {
			Input:          "foo=boolean,bar=string",
			ExpectedOutput: map[string]rowstream.Type{"foo": rowstream.TypeBoolean, "bar": rowstream.TypeString},
		},
		"simply-with-spaces": {
			Input: "   foo  =  integer ,	bar=Date	 ",
			ExpectedOutput: map[string]rowstream.Type{"foo": rowstream.TypeInteger, "bar": rowstream.TypeDate},
		},
		"empty": {
			Input:          "",
			ExpectedOutput: map[string]rowstream.Type{},
		},
		"invalid-type": {
			Input:     "foo=invalid-type",
			ExpectErr: true,
		},
		"none-type": {
			Input:     "foo=none",
			ExpectErr: true,
		},
		"invalid-field": {
			Input:     "foo=boolean=invalid",
			ExpectErr: true,
		},
	}

	for testName, tt := range tests {
		t.Run(testName, func(t *testing.T) {
			output, err := parseTypeHints(tt.Input)
			if tt.ExpectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.ExpectedOutput, output)
			}
		})
	}
}

func TestDeriveFields(t *testing.T) {
	tests := map[string]struct {
		Header         []string
		Types          map[string]rowstream.Type
		ExpectErr      bool
		ExpectedSchema string
	}{
		"defaults-to-string": {
			Header:         []string{"foo"},
			Types:          map[string]rowstream.Type{},
			ExpectedSchema: "schema {\n  String foo (normal);\n}\n",
		},
		"mixed": {
			Header: []string{"a", "b", "c"},
			Types:  map[string]rowstream.Type{"a": rowstream.TypeInteger, "c": rowstream.TypeBigNumber},
			ExpectedSchema: `schema {
  Integer a (normal);
  String b (normal);
  BigNumber c (normal);
}
`,
		},
		"duplicate-column": {
			Header:    []string{"a", "a"},
			Types:     map[string]rowstream.Type{},
			ExpectErr: true,
		},
		"hint-for-unknown-column": {
			Header:    []string{"a"},
			Types:     map[string]rowstream.Type{"b": rowstream.TypeInteger},
			ExpectErr: true,
		},
	}

	for testName, tt := range tests {
		t.Run(testName, func(t *testing.T) {
			fields, err := deriveFields(tt.Header, tt.Types, "")
			if tt.ExpectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.ExpectedSchema, rowstream.NewSchema(fields...).String())
		})
	}
}

func TestDeriveFieldsDateFormat(t *testing.T) {
	fields, err := deriveFields([]string{"day", "name"}, map[string]rowstream.Type{"day": rowstream.TypeDate}, "02.01.2006")
	require.NoError(t, err)
	assert.Equal(t, "02.01.2006", fields[0].Format)
	assert.Equal(t, "", fields[1].Format)
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.rowstream")
	require.NoError(t, os.WriteFile(input, []byte("id;day;note\n1;24.12.2020;hello\n2;;\n"), 0o644))

	header, err := readHeader(input, ';')
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "day", "note"}, header)

	fields, err := deriveFields(header, map[string]rowstream.Type{"id": rowstream.TypeInteger, "day": rowstream.TypeDate}, "02.01.2006")
	require.NoError(t, err)

	n, err := convert(context.Background(), input, output, ';', fields, rowstream.CompressionGzip, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()

	r, err := rowstream.NewStreamReader(f, rowstream.WithReaderCompression(rowstream.CompressionGzip))
	require.NoError(t, err)
	assert.Equal(t, "csv2rowstream", r.PipelineName())
	assert.Equal(t, "output", r.StepName())

	rows, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(1), rows[0][0])
	assert.True(t, time.Date(2020, 12, 24, 0, 0, 0, 0, time.UTC).Equal(rows[0][1].(time.Time)))
	assert.Equal(t, "hello", rows[0][2])
	assert.Equal(t, rowstream.Row{int64(2), nil, ""}, rows[1])

	leftovers, err := filepath.Glob(filepath.Join(dir, rowstream.DefaultTempPrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestConvertBadValue(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "in.csv")
	output := filepath.Join(dir, "out.rowstream")
	require.NoError(t, os.WriteFile(input, []byte("id\n1\nabc\n"), 0o644))

	fields := []rowstream.Field{{Name: "id", Type: rowstream.TypeInteger}}
	_, err := convert(context.Background(), input, output, ',', fields, rowstream.CompressionNone, zerolog.Nop())
	require.Error(t, err)

	_, err = os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}
