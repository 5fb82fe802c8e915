package engine

import (
	"context"
	"database/sql"
	"math"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fraugster/rowstream"
	"github.com/pkg/errors"
)

// SQLInput emits the result rows of a query. Field types are derived from
// the column types the driver reports.
type SQLInput struct {
	StepName string
	DB       *sql.DB
	Query    string
	Args     []interface{}
	// Timeout bounds the query that resolves the result columns.
	Timeout time.Duration

	mu     sync.Mutex
	schema *rowstream.Schema
}

// Name implements Step.
func (s *SQLInput) Name() string { return s.StepName }

// Fields implements Step. The query runs once to learn the result columns;
// later calls return the cached schema.
func (s *SQLInput) Fields(*rowstream.Schema) (*rowstream.Schema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema != nil {
		return s.schema.Clone(), nil
	}

	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	rows, err := s.DB.QueryContext(ctx, s.Query, s.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "executing query failed")
	}
	defer rows.Close()

	schema, err := schemaFromColumns(rows)
	if err != nil {
		return nil, err
	}
	s.schema = schema
	return schema.Clone(), nil
}

// Run implements Step.
func (s *SQLInput) Run(ctx context.Context, _ <-chan rowstream.Row, out Emitter) error {
	rows, err := s.DB.QueryContext(ctx, s.Query, s.Args...)
	if err != nil {
		return errors.Wrap(err, "executing query failed")
	}
	defer rows.Close()

	schema, err := schemaFromColumns(rows)
	if err != nil {
		return err
	}

	lazy := make([]*rowstream.Field, schema.Len())
	for i := range lazy {
		f := *schema.Field(i)
		f.Storage = rowstream.StorageBinaryString
		lazy[i] = &f
	}

	for rows.Next() {
		values := make([]interface{}, schema.Len())
		ptrs := make([]interface{}, len(values))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return errors.Wrap(err, "scanning row failed")
		}

		row := make(rowstream.Row, len(values))
		for i := range values {
			v, err := sqlValue(lazy[i], values[i])
			if err != nil {
				return errors.Wrapf(err, "column %s", lazy[i].Name)
			}
			row[i] = v
		}
		if err := out.Emit(ctx, row); err != nil {
			return err
		}
	}

	return errors.Wrap(rows.Err(), "iterating rows failed")
}

func schemaFromColumns(rows *sql.Rows) (*rowstream.Schema, error) {
	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, "reading column types failed")
	}
	fields := make([]rowstream.Field, 0, len(cols))
	for _, col := range cols {
		fields = append(fields, rowstream.Field{
			Name: col.Name(),
			Type: sqlType(col.DatabaseTypeName()),
		})
	}
	return rowstream.NewSchema(fields...), nil
}

func sqlType(dbType string) rowstream.Type {
	t := strings.ToUpper(dbType)
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = t[:i]
	}
	switch strings.TrimSpace(t) {
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "MEDIUMINT", "INT2", "INT4", "INT8", "SERIAL", "BIGSERIAL":
		return rowstream.TypeInteger
	case "REAL", "FLOAT", "DOUBLE", "FLOAT4", "FLOAT8", "DOUBLE PRECISION":
		return rowstream.TypeNumber
	case "DECIMAL", "NUMERIC":
		return rowstream.TypeBigNumber
	case "BOOL", "BOOLEAN":
		return rowstream.TypeBoolean
	case "DATE", "DATETIME", "TIMESTAMP", "TIMESTAMPTZ", "TIME":
		return rowstream.TypeDate
	case "BLOB", "BYTEA", "BINARY", "VARBINARY", "LONGBLOB":
		return rowstream.TypeBinary
	default:
		return rowstream.TypeString
	}
}

// sqlValue turns a scanned driver value into the normal value of field f.
// Text representations are parsed the way lazily stored values are.
func sqlValue(f *rowstream.Field, v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return rowstream.ConvertToNormal(f, x)
	case string:
		return rowstream.ConvertToNormal(f, []byte(x))
	case int64:
		switch f.Type {
		case rowstream.TypeBoolean:
			return x != 0, nil
		case rowstream.TypeNumber:
			return float64(x), nil
		case rowstream.TypeBigNumber:
			return new(big.Float).SetInt64(x), nil
		case rowstream.TypeString:
			return strconv.FormatInt(x, 10), nil
		}
	case float64:
		switch f.Type {
		case rowstream.TypeInteger:
			if x == math.Trunc(x) {
				return int64(x), nil
			}
		case rowstream.TypeBigNumber:
			return big.NewFloat(x), nil
		case rowstream.TypeString:
			return strconv.FormatFloat(x, 'g', -1, 64), nil
		}
	}

	norm := *f
	norm.Storage = rowstream.StorageNormal
	return rowstream.ConvertToNormal(&norm, v)
}
