package rowstream

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

type integerCodec struct{}

func (c integerCodec) encodeValue(w io.Writer, v interface{}) error {
	i, err := c.cloneValue(v)
	if err != nil {
		return err
	}
	return writeUint64(w, uint64(i.(int64)))
}

func (integerCodec) decodeValue(r io.Reader) (interface{}, error) {
	u, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return int64(u), nil
}

func (integerCodec) cloneValue(v interface{}) (interface{}, error) {
	switch i := v.(type) {
	case int64:
		return i, nil
	case int:
		return int64(i), nil
	case int32:
		return int64(i), nil
	case int16:
		return int64(i), nil
	case int8:
		return int64(i), nil
	case uint32:
		return int64(i), nil
	case uint16:
		return int64(i), nil
	case uint8:
		return int64(i), nil
	default:
		return nil, invalidValue(TypeInteger, v)
	}
}

func (integerCodec) parseText(text []byte, _ *Field) (interface{}, error) {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return nil, nil
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "can not convert %q to an integer", s)
	}
	return i, nil
}
