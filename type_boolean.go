package rowstream

import (
	"io"
	"strings"

	"github.com/pkg/errors"
)

type booleanCodec struct{}

func (booleanCodec) encodeValue(w io.Writer, v interface{}) error {
	b, ok := v.(bool)
	if !ok {
		return invalidValue(TypeBoolean, v)
	}
	var out byte
	if b {
		out = 1
	}
	return writeExactly(w, []byte{out})
}

func (booleanCodec) decodeValue(r io.Reader) (interface{}, error) {
	var buf [1]byte
	if err := readExactly(r, buf[:]); err != nil {
		return nil, err
	}
	switch buf[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return nil, errors.Errorf("invalid boolean value 0x%02x", buf[0])
	}
}

func (booleanCodec) cloneValue(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, invalidValue(TypeBoolean, v)
	}
	return b, nil
}

func (booleanCodec) parseText(text []byte, _ *Field) (interface{}, error) {
	s := strings.TrimSpace(string(text))
	switch strings.ToLower(s) {
	case "":
		return nil, nil
	case "y", "yes", "true", "1":
		return true, nil
	case "n", "no", "false", "0":
		return false, nil
	default:
		return nil, errors.Errorf("can not convert %q to a boolean", s)
	}
}
