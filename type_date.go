package rowstream

import (
	"io"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
)

// dateCodec stores dates as the instant plus its UTC offset. The zone name is
// not kept, so decoded dates compare equal with Time.Equal but not with ==.
type dateCodec struct{}

func (dateCodec) encodeValue(w io.Writer, v interface{}) error {
	t, ok := v.(time.Time)
	if !ok {
		return invalidValue(TypeDate, v)
	}
	data, err := t.MarshalBinary()
	if err != nil {
		return errors.Wrap(err, "marshalling date failed")
	}
	return writeChunk(w, data)
}

func (dateCodec) decodeValue(r io.Reader) (interface{}, error) {
	data, err := readChunk(r)
	if err != nil {
		return nil, err
	}
	var t time.Time
	if err := t.UnmarshalBinary(data); err != nil {
		return nil, errors.Wrap(err, "unmarshalling date failed")
	}
	return t, nil
}

func (dateCodec) cloneValue(v interface{}) (interface{}, error) {
	t, ok := v.(time.Time)
	if !ok {
		return nil, invalidValue(TypeDate, v)
	}
	return t, nil
}

// parseText uses the field's layout when there is one and falls back to
// dateparse's format detection otherwise.
func (dateCodec) parseText(text []byte, f *Field) (interface{}, error) {
	s := strings.TrimSpace(string(text))
	if s == "" {
		return nil, nil
	}
	if f != nil && f.Format != "" {
		t, err := time.Parse(f.Format, s)
		if err != nil {
			return nil, errors.Wrapf(err, "can not convert %q to a date using layout %q", s, f.Format)
		}
		return t, nil
	}
	t, err := dateparse.ParseAny(s)
	if err != nil {
		return nil, errors.Wrapf(err, "can not convert %q to a date", s)
	}
	return t, nil
}
