package rowstream

import (
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type numberCodec struct{}

func (c numberCodec) encodeValue(w io.Writer, v interface{}) error {
	f, err := c.cloneValue(v)
	if err != nil {
		return err
	}
	return writeUint64(w, math.Float64bits(f.(float64)))
}

func (numberCodec) decodeValue(r io.Reader) (interface{}, error) {
	u, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return math.Float64frombits(u), nil
}

func (numberCodec) cloneValue(v interface{}) (interface{}, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	default:
		return nil, invalidValue(TypeNumber, v)
	}
}

func (numberCodec) parseText(text []byte, _ *Field) (interface{}, error) {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "can not convert %q to a number", s)
	}
	return f, nil
}
