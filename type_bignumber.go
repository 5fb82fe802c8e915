package rowstream

import (
	"io"
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// bigNumberPrecision is the mantissa precision used when parsing big numbers
// from text.
const bigNumberPrecision = 256

type bigNumberCodec struct{}

func (bigNumberCodec) encodeValue(w io.Writer, v interface{}) error {
	f, ok := v.(*big.Float)
	if !ok || f == nil {
		return invalidValue(TypeBigNumber, v)
	}
	data, err := f.GobEncode()
	if err != nil {
		return errors.Wrap(err, "encoding big number failed")
	}
	return writeChunk(w, data)
}

func (bigNumberCodec) decodeValue(r io.Reader) (interface{}, error) {
	data, err := readChunk(r)
	if err != nil {
		return nil, err
	}
	f := new(big.Float)
	if err := f.GobDecode(data); err != nil {
		return nil, errors.Wrap(err, "decoding big number failed")
	}
	return f, nil
}

func (bigNumberCodec) cloneValue(v interface{}) (interface{}, error) {
	switch f := v.(type) {
	case *big.Float:
		if f == nil {
			return nil, invalidValue(TypeBigNumber, v)
		}
		return new(big.Float).Copy(f), nil
	case *big.Int:
		return new(big.Float).SetInt(f), nil
	default:
		return nil, invalidValue(TypeBigNumber, v)
	}
}

func (bigNumberCodec) parseText(text []byte, _ *Field) (interface{}, error) {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return nil, nil
	}
	f, _, err := big.ParseFloat(s, 10, bigNumberPrecision, big.ToNearestEven)
	if err != nil {
		return nil, errors.Wrapf(err, "can not convert %q to a big number", s)
	}
	return f, nil
}
