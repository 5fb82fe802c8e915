package cmds

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/fraugster/rowstream"
)

func openStream(address string, codec rowstream.CompressionCodec) (*rowstream.StreamReader, io.Closer, error) {
	fl, err := os.Open(address)
	if err != nil {
		return nil, nil, fmt.Errorf("can not open the file: %q", err)
	}

	reader, err := rowstream.NewStreamReader(fl, rowstream.WithReaderCompression(codec))
	if err != nil {
		fl.Close()
		return nil, nil, fmt.Errorf("failed to read the stream header: %q", err)
	}

	return reader, fl, nil
}

// catFile prints up to n rows of the stream, all of them if n is negative.
func catFile(w io.Writer, address string, codec rowstream.CompressionCodec, n int64, raw bool) error {
	reader, fl, err := openStream(address, codec)
	if err != nil {
		return err
	}
	defer fl.Close()

	schema := reader.Schema()
	for n < 0 || reader.RowCount() < n {
		row, err := reader.NextRow()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read row %d: %q", reader.RowCount()+1, err)
		}

		if raw {
			spew.Fdump(w, row)
			continue
		}
		printRow(w, schema, row)
		fmt.Fprintln(w)
	}
	return nil
}

func countRows(address string, codec rowstream.CompressionCodec) (int64, error) {
	reader, fl, err := openStream(address, codec)
	if err != nil {
		return 0, err
	}
	defer fl.Close()

	for {
		_, err := reader.NextRow()
		if err == io.EOF {
			return reader.RowCount(), nil
		}
		if err != nil {
			return reader.RowCount(), fmt.Errorf("failed to read row %d: %q", reader.RowCount()+1, err)
		}
	}
}

func printRow(w io.Writer, schema *rowstream.Schema, row rowstream.Row) {
	for i := range row {
		fmt.Fprintln(w, schema.Field(i).Name+" = "+formatValue(row[i]))
	}
}

func formatValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return "<null>"
	case []byte:
		return fmt.Sprintf("%x", t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case *big.Float:
		return t.Text('g', -1)
	default:
		return fmt.Sprint(t)
	}
}
