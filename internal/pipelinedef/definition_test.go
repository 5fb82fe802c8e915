package pipelinedef

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/fraugster/rowstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "pipeline.yaml", `
name: people
steps:
  - name: read
    type: csv
    path: people.csv
    header: true
  - name: out
    type: dummy
`)

	def, err := Load(cfg)
	require.NoError(t, err)

	assert.Equal(t, "people", def.Name)
	require.Len(t, def.Steps, 2)
	assert.Equal(t, 1, def.Steps[0].Copies)
	assert.Equal(t, 1, def.Steps[1].Copies)
	assert.Equal(t, "out", def.Capture.Step)
	assert.Equal(t, "none", def.Capture.Compression)
	assert.Equal(t, "info", def.Logging.Level)
	assert.Equal(t, "console", def.Logging.Format)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	cfg := writeFile(t, dir, "pipeline.yaml", `
name: people
steps:
  - name: read
    type: csv
    path: people.csv
capture:
  compression: none
`)

	t.Setenv("ROWSTREAM_CAPTURE_COMPRESSION", "gzip")

	def, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, "gzip", def.Capture.Compression)
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"missing name": `
steps:
  - name: a
    type: dummy
`,
		"no steps": `
name: p
`,
		"unknown step type": `
name: p
steps:
  - name: a
    type: kafka
`,
		"csv without path": `
name: p
steps:
  - name: a
    type: csv
`,
		"sql without query": `
name: p
steps:
  - name: a
    type: sql
    driver: sqlite
    dsn: ":memory:"
`,
		"duplicate step": `
name: p
steps:
  - name: a
    type: csv
    path: x.csv
  - name: a
    type: dummy
`,
		"unknown capture step": `
name: p
steps:
  - name: a
    type: csv
    path: x.csv
capture:
  step: b
`,
		"bad compression": `
name: p
steps:
  - name: a
    type: csv
    path: x.csv
capture:
  compression: lz4
`,
		"bad log level": `
name: p
steps:
  - name: a
    type: csv
    path: x.csv
logging:
  level: loud
`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := writeFile(t, t.TempDir(), "pipeline.yaml", content)
			_, err := Load(cfg)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestBuildCSVPipeline(t *testing.T) {
	dir := t.TempDir()
	csvPath := writeFile(t, dir, "people.csv", "id,name,active\n1,Ada,yes\n2,Grace,no\n")
	cfg := writeFile(t, dir, "pipeline.yaml", `
name: people
steps:
  - name: read
    type: csv
    path: `+csvPath+`
    header: true
    lazy: true
    fields:
      - name: id
        type: integer
      - name: name
        type: string
      - name: active
        type: boolean
  - name: out
    type: dummy
capture:
  dir: `+dir+`
`)

	def, err := Load(cfg)
	require.NoError(t, err)

	p, closer, err := Build(def)
	require.NoError(t, err)
	defer closer.Close()

	schema, err := p.StepFields("out")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "active"}, schema.FieldNames())
	assert.Equal(t, rowstream.StorageBinaryString, schema.Field(0).Storage)

	b := rowstream.NewBridge(p, def.Capture.Step, rowstream.WithSinkProvider(rowstream.TempFileProvider{Dir: def.Capture.Dir}))
	require.NoError(t, b.Run(context.Background()))
	assert.Equal(t, int64(2), b.RowsStaged())

	f, err := os.Open(b.Location())
	require.NoError(t, err)
	defer f.Close()

	r, err := rowstream.NewStreamReader(f)
	require.NoError(t, err)
	rows, err := r.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []rowstream.Row{
		{int64(1), "Ada", true},
		{int64(2), "Grace", false},
	}, rows)
}

func TestBuildSQLPipeline(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE people (id INTEGER, name TEXT)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO people VALUES (1, 'Ada'), (2, 'Grace'), (3, 'Linus')`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	cfg := writeFile(t, dir, "pipeline.yaml", `
name: people
steps:
  - name: query
    type: sql
    driver: sqlite
    dsn: `+dbPath+`
    query: SELECT id, name FROM people ORDER BY id
  - name: intern
    type: intern
    dictionaries:
      - field: name
        values: [Ada, Grace, Linus]
`)

	def, err := Load(cfg)
	require.NoError(t, err)
	assert.Equal(t, "intern", def.Capture.Step)

	p, closer, err := Build(def)
	require.NoError(t, err)
	defer closer.Close()

	schema, err := p.StepFields("intern")
	require.NoError(t, err)
	assert.Equal(t, rowstream.StorageIndexed, schema.Field(1).Storage)

	var rows []rowstream.Row
	b := rowstream.NewBridge(p, "intern", rowstream.WithSinkProvider(rowstream.TempFileProvider{Dir: dir}))
	require.NoError(t, b.Run(context.Background()))

	f, err := os.Open(b.Location())
	require.NoError(t, err)
	defer f.Close()
	r, err := rowstream.NewStreamReader(f)
	require.NoError(t, err)
	assert.Equal(t, rowstream.StorageNormal, r.Schema().Field(1).Storage)
	rows, err = r.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, rowstream.Row{int64(3), "Linus"}, rows[2])
}

func TestBuildBadFieldType(t *testing.T) {
	def := &Definition{
		Name: "p",
		Steps: []StepDef{{
			Name:   "read",
			Type:   "csv",
			Path:   "x.csv",
			Copies: 1,
			Fields: []FieldDef{{Name: "a", Type: "decimal"}},
		}},
	}
	_, _, err := Build(def)
	assert.Error(t, err)
}
