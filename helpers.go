package rowstream

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

// maxChunkLength bounds length prefixes read from a stream so a corrupt
// length cannot trigger a huge allocation.
const maxChunkLength = 1 << 30

func readExactly(r io.Reader, buf []byte) error {
	cnt, err := io.ReadFull(r, buf)
	if err == io.ErrUnexpectedEOF || (err == io.EOF && cnt > 0) {
		return io.ErrUnexpectedEOF
	}
	return err
}

func writeExactly(w io.Writer, buf []byte) error {
	cnt, err := w.Write(buf)
	if err != nil {
		return err
	}

	if cnt != len(buf) {
		return errors.Errorf("need to write %d byte wrote %d", len(buf), cnt)
	}

	return nil
}

func writeUint32(w io.Writer, v uint32) error {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return writeExactly(w, buf[:])
}

func readUint32(r io.Reader) (uint32, error) {
	var buf [4]byte
	if err := readExactly(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf[:]), nil
}

func writeInt32(w io.Writer, v int32) error {
	return writeUint32(w, uint32(v))
}

func readInt32(r io.Reader) (int32, error) {
	u, err := readUint32(r)
	return int32(u), err
}

func writeUint64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return writeExactly(w, buf[:])
}

func readUint64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if err := readExactly(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}

// writeChunk writes a uint32 length prefix followed by data.
func writeChunk(w io.Writer, data []byte) error {
	if len(data) > math.MaxUint32 {
		return errors.Errorf("chunk of %d bytes is too large", len(data))
	}
	if err := writeUint32(w, uint32(len(data))); err != nil {
		return err
	}
	return writeExactly(w, data)
}

func readChunk(r io.Reader) ([]byte, error) {
	n, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	if n > maxChunkLength {
		return nil, errors.Errorf("chunk length %d exceeds the limit of %d bytes", n, maxChunkLength)
	}
	buf := make([]byte, n)
	if err := readExactly(r, buf); err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf, nil
}

func writeText(w io.Writer, s string) error {
	return writeChunk(w, []byte(s))
}

func readText(r io.Reader) (string, error) {
	buf, err := readChunk(r)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// mustContinue turns a clean EOF in the middle of a record into
// io.ErrUnexpectedEOF.
func mustContinue(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}
