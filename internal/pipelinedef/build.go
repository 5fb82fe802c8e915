package pipelinedef

import (
	"database/sql"
	"io"
	"unicode/utf8"

	"github.com/fraugster/rowstream"
	"github.com/fraugster/rowstream/engine"
	"github.com/pkg/errors"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Build creates the engine pipeline of the definition. The returned closer
// releases the database connections the pipeline's steps use.
func Build(def *Definition, opts ...engine.Option) (*engine.Pipeline, io.Closer, error) {
	p := engine.New(def.Name, opts...)
	dbs := &dbSet{}

	for _, sd := range def.Steps {
		step, err := buildStep(sd, dbs)
		if err != nil {
			_ = dbs.Close()
			return nil, nil, errors.Wrapf(err, "building step %q failed", sd.Name)
		}
		if err := p.AddStep(step, sd.Copies); err != nil {
			_ = dbs.Close()
			return nil, nil, err
		}
	}

	return p, dbs, nil
}

func buildStep(sd StepDef, dbs *dbSet) (engine.Step, error) {
	switch sd.Type {
	case "csv":
		fields, err := buildFields(sd.Fields)
		if err != nil {
			return nil, err
		}
		step := &engine.CSVInput{
			StepName: sd.Name,
			Path:     sd.Path,
			Header:   sd.Header,
			Lazy:     sd.Lazy,
			Declared: fields,
		}
		if sd.Delimiter != "" {
			r, _ := utf8.DecodeRuneInString(sd.Delimiter)
			if r == '\r' || r == '\n' || r == utf8.RuneError {
				return nil, errors.Errorf("invalid CSV field separator %q", sd.Delimiter)
			}
			step.Delimiter = r
		}
		return step, nil
	case "sql":
		db, err := sql.Open(sd.Driver, sd.DSN)
		if err != nil {
			return nil, errors.Wrapf(err, "opening %s database failed", sd.Driver)
		}
		dbs.add(db)
		return &engine.SQLInput{StepName: sd.Name, DB: db, Query: sd.Query}, nil
	case "dummy":
		return &engine.Dummy{StepName: sd.Name}, nil
	case "intern":
		dicts := make(map[string][]string, len(sd.Dictionaries))
		for _, d := range sd.Dictionaries {
			dicts[d.Field] = d.Values
		}
		return &engine.Intern{StepName: sd.Name, Dictionaries: dicts}, nil
	default:
		return nil, errors.Errorf("unsupported step type %q", sd.Type)
	}
}

func buildFields(defs []FieldDef) ([]rowstream.Field, error) {
	fields := make([]rowstream.Field, 0, len(defs))
	for _, fd := range defs {
		typ, err := rowstream.ParseType(fd.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", fd.Name)
		}
		fields = append(fields, rowstream.Field{Name: fd.Name, Type: typ, Format: fd.Format})
	}
	return fields, nil
}

type dbSet struct {
	dbs []*sql.DB
}

func (s *dbSet) add(db *sql.DB) {
	s.dbs = append(s.dbs, db)
}

func (s *dbSet) Close() error {
	var firstErr error
	for _, db := range s.dbs {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.dbs = nil
	return firstErr
}
