package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/fraugster/rowstream"
	"github.com/fraugster/rowstream/engine"
	"github.com/fraugster/rowstream/internal/logger"
	"github.com/rs/zerolog"
)

var printLog = func(string, ...interface{}) {}

func main() {
	inputFile := flag.String("input", "", "CSV file input")
	typeHints := flag.String("typehints", "", "type hints for the CSV columns. A comma-separated list of type hints in the format <column_name>=<type>; valid types: "+strings.Join(validTypeList(), ", "))
	outputFile := flag.String("output", "", "output row stream file")
	compressionCodec := flag.String("compression", "none", "compression algorithm; allowed values: "+strings.Join(rowstream.CompressionCodecNames(), ", "))
	delimiter := flag.String("delimiter", ",", "CSV field separator")
	dateFormat := flag.String("date-format", "", "Go time layout of date columns; if empty, common date formats are detected")
	verbose := flag.Bool("v", false, "enable verbose logging")
	flag.Parse()

	if *inputFile == "" {
		log.Fatalf("Empty input file parameter")
	}

	if *outputFile == "" {
		log.Fatalf("Empty output file parameter")
	}

	codec, err := rowstream.ParseCompressionCodec(*compressionCodec)
	if err != nil {
		log.Fatalf("Invalid compression codec %q: %v", *compressionCodec, err)
	}

	var delimiterRune rune

	if *delimiter != "" {
		delimiterRune, _ = utf8.DecodeRuneInString(*delimiter)
		if delimiterRune == '\r' || delimiterRune == '\n' || delimiterRune == utf8.RuneError {
			log.Fatalf("Invalid CSV field separator %q", *delimiter)
		}
	}

	logCfg := logger.Config{Level: "disabled"}
	if *verbose {
		printLog = log.Printf
		logCfg.Level = "debug"
	}
	logCfg.ApplyDefaults()

	types, err := parseTypeHints(*typeHints)
	if err != nil {
		log.Fatalf("Parsing type hints failed: %v", err)
	}

	printLog("Opening %s...", *inputFile)

	header, err := readHeader(*inputFile, delimiterRune)
	if err != nil {
		log.Fatalf("Reading CSV header failed: %v", err)
	}

	fields, err := deriveFields(header, types, *dateFormat)
	if err != nil {
		log.Fatalf("Deriving fields failed: %v", err)
	}

	printLog("Derived row schema: %s", rowstream.NewSchema(fields...).String())

	rows, err := convert(context.Background(), *inputFile, *outputFile, delimiterRune, fields, codec, logger.New(logCfg, "csv2rowstream"))
	if err != nil {
		log.Fatalf("Couldn't write row stream: %v", err)
	}

	printLog("Finished generating output file %s with %d rows", *outputFile, rows)
}

// convert runs a pipeline reading inputFile and captures its output into
// outputFile. It returns the number of rows written.
func convert(ctx context.Context, inputFile, outputFile string, delimiter rune, fields []rowstream.Field, codec rowstream.CompressionCodec, l zerolog.Logger) (int64, error) {
	p := engine.New("csv2rowstream", engine.WithLogger(l))
	if err := p.AddStep(&engine.CSVInput{
		StepName:  "read",
		Path:      inputFile,
		Delimiter: delimiter,
		Header:    true,
		Declared:  fields,
		Lazy:      true,
	}, 1); err != nil {
		return 0, err
	}
	if err := p.AddStep(&engine.Dummy{StepName: "output"}, 1); err != nil {
		return 0, err
	}

	b := rowstream.NewBridge(p, "output",
		rowstream.WithLogger(l),
		rowstream.WithSinkProvider(rowstream.TempFileProvider{Dir: filepath.Dir(outputFile)}),
		rowstream.WithStreamOptions(rowstream.WithCompression(codec)),
	)
	defer b.Close()

	if err := b.Run(ctx); err != nil {
		return 0, err
	}
	if err := b.PipelineErr(); err != nil {
		_ = os.Remove(b.Location())
		return 0, fmt.Errorf("pipeline failed: %w", err)
	}

	if err := os.Rename(b.Location(), outputFile); err != nil {
		return 0, fmt.Errorf("moving stream to %s failed: %w", outputFile, err)
	}

	return b.RowsStaged(), nil
}

func readHeader(file string, delimiter rune) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	if delimiter != 0 {
		r.Comma = delimiter
	}
	return r.Read()
}

func deriveFields(header []string, types map[string]rowstream.Type, dateFormat string) ([]rowstream.Field, error) {
	fields := make([]rowstream.Field, 0, len(header))
	seen := make(map[string]bool, len(header))

	for _, name := range header {
		if seen[name] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = true

		typ, ok := types[name]
		if !ok {
			typ = rowstream.TypeString
		}
		f := rowstream.Field{Name: name, Type: typ}
		if typ == rowstream.TypeDate {
			f.Format = dateFormat
		}
		fields = append(fields, f)
	}

	for name := range types {
		if !seen[name] {
			return nil, fmt.Errorf("type hint for unknown column %q", name)
		}
	}

	return fields, nil
}

func parseTypeHints(s string) (map[string]rowstream.Type, error) {
	typeMap := make(map[string]rowstream.Type)

	if s == "" {
		return typeMap, nil
	}

	hintsList := strings.Split(s, ",")
	for _, hint := range hintsList {
		hint = strings.TrimSpace(hint)

		hintFields := strings.Split(hint, "=")
		if len(hintFields) != 2 {
			return nil, fmt.Errorf("invalid type hint %q", hint)
		}

		fieldName := strings.TrimSpace(hintFields[0])
		fieldType := strings.TrimSpace(hintFields[1])

		typ, err := rowstream.ParseType(fieldType)
		if err != nil || typ == rowstream.TypeNone {
			return nil, fmt.Errorf("invalid type %q", fieldType)
		}

		typeMap[fieldName] = typ
	}

	return typeMap, nil
}

var validTypes = []rowstream.Type{
	rowstream.TypeNumber,
	rowstream.TypeString,
	rowstream.TypeDate,
	rowstream.TypeBoolean,
	rowstream.TypeInteger,
	rowstream.TypeBigNumber,
	rowstream.TypeBinary,
}

func validTypeList() []string {
	l := make([]string, 0, len(validTypes))
	for _, t := range validTypes {
		l = append(l, strings.ToLower(t.String()))
	}
	sort.Strings(l)
	return l
}
