package rowstream

import (
	"io"
)

type stringCodec struct{}

func (stringCodec) encodeValue(w io.Writer, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return invalidValue(TypeString, v)
	}
	return writeText(w, s)
}

func (stringCodec) decodeValue(r io.Reader) (interface{}, error) {
	return readText(r)
}

func (stringCodec) cloneValue(v interface{}) (interface{}, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return nil, invalidValue(TypeString, v)
	}
}

func (stringCodec) parseText(text []byte, _ *Field) (interface{}, error) {
	return string(text), nil
}
