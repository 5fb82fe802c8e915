package rowstream

import (
	"io"
)

type binaryCodec struct{}

func (binaryCodec) encodeValue(w io.Writer, v interface{}) error {
	b, ok := v.([]byte)
	if !ok {
		return invalidValue(TypeBinary, v)
	}
	return writeChunk(w, b)
}

func (binaryCodec) decodeValue(r io.Reader) (interface{}, error) {
	return readChunk(r)
}

func (binaryCodec) cloneValue(v interface{}) (interface{}, error) {
	switch b := v.(type) {
	case []byte:
		cp := make([]byte, len(b))
		copy(cp, b)
		return cp, nil
	case string:
		return []byte(b), nil
	default:
		return nil, invalidValue(TypeBinary, v)
	}
}

func (c binaryCodec) parseText(text []byte, _ *Field) (interface{}, error) {
	return c.cloneValue(text)
}
