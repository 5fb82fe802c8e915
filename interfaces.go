package rowstream

import (
	"io"
	"sync"

	"github.com/pkg/errors"
)

// typeCodec owns the binary layout and the in-memory representation of one
// logical type.
type typeCodec interface {
	// encodeValue writes a non-null value.
	encodeValue(w io.Writer, v interface{}) error
	// decodeValue reads a non-null value.
	decodeValue(r io.Reader) (interface{}, error)
	// cloneValue returns a deep copy of a normal value in the canonical Go
	// representation of the type.
	cloneValue(v interface{}) (interface{}, error)
	// parseText converts the lazily stored text representation.
	parseText(text []byte, f *Field) (interface{}, error)
}

const (
	markerPresent byte = 0
	markerNull    byte = 1
)

var (
	codecs    = make(map[Type]typeCodec)
	codecLock sync.RWMutex
)

func registerCodec(t Type, c typeCodec) {
	codecLock.Lock()
	defer codecLock.Unlock()

	codecs[t] = c
}

// codecFor returns the codec of the type. Unknown types get a codec that
// refuses every value but null.
func codecFor(t Type) typeCodec {
	codecLock.RLock()
	defer codecLock.RUnlock()

	if c, ok := codecs[t]; ok {
		return c
	}
	return unsupportedCodec{t: t}
}

func encodeValue(w io.Writer, t Type, v interface{}) error {
	if v == nil {
		return writeExactly(w, []byte{markerNull})
	}
	if err := writeExactly(w, []byte{markerPresent}); err != nil {
		return err
	}
	return codecFor(t).encodeValue(w, v)
}

// decodeValue reads one value. A clean io.EOF is only returned when not a
// single byte of the value was available.
func decodeValue(r io.Reader, t Type) (interface{}, error) {
	var marker [1]byte
	if err := readExactly(r, marker[:]); err != nil {
		return nil, err
	}
	switch marker[0] {
	case markerNull:
		return nil, nil
	case markerPresent:
		v, err := codecFor(t).decodeValue(r)
		return v, mustContinue(err)
	default:
		return nil, errors.Errorf("invalid null marker 0x%02x", marker[0])
	}
}

func cloneValue(t Type, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	return codecFor(t).cloneValue(v)
}

type unsupportedCodec struct {
	t Type
}

func (c unsupportedCodec) encodeValue(io.Writer, interface{}) error {
	return errors.Errorf("values of type %s can not be encoded", c.t)
}

func (c unsupportedCodec) decodeValue(io.Reader) (interface{}, error) {
	return nil, errors.Errorf("values of type %s can not be decoded", c.t)
}

func (c unsupportedCodec) cloneValue(v interface{}) (interface{}, error) {
	return nil, errors.Errorf("values of type %s are not supported (got %T)", c.t, v)
}

func (c unsupportedCodec) parseText([]byte, *Field) (interface{}, error) {
	return nil, errors.Errorf("values of type %s can not be parsed", c.t)
}

func invalidValue(t Type, v interface{}) error {
	return errors.Errorf("invalid value for type %s: %T", t, v)
}

func init() {
	registerCodec(TypeNumber, numberCodec{})
	registerCodec(TypeString, stringCodec{})
	registerCodec(TypeDate, dateCodec{})
	registerCodec(TypeBoolean, booleanCodec{})
	registerCodec(TypeInteger, integerCodec{})
	registerCodec(TypeBigNumber, bigNumberCodec{})
	registerCodec(TypeBinary, binaryCodec{})
}
